package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Slot schema versions stored on every palette.
//
// Palettes written before the switch to slug references may hold catalog
// item identifiers mixed with slugs. They carry SlotSchemaLegacy until the
// migration rewrites them, or a slot mutation leaves only catalog slugs.
// Palettes at SlotSchemaSlugs hold slugs only and are never shape-sniffed.
const (
	SlotSchemaLegacy = 1
	SlotSchemaSlugs  = 2
)

// Slot is one position of a palette: a catalog slug, or "" when empty.
// It encodes as a JSON string, or null when empty.
type Slot string

// Empty reports whether the slot holds nothing.
func (s Slot) Empty() bool { return s == "" }

func (s Slot) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *Slot) UnmarshalJSON(data []byte) error {
	var v *string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*s = ""
		return nil
	}
	*s = Slot(*v)
	return nil
}

// Slots is the ordered slot array of a palette. It is stored as a JSON
// array column.
type Slots []Slot

// EmptySlots returns n empty slots.
func EmptySlots(n int) Slots {
	return make(Slots, n)
}

// Fit returns a copy of s resized to exactly n positions: padded with empty
// slots when shorter, truncated when longer.
func (s Slots) Fit(n int) Slots {
	out := make(Slots, n)
	copy(out, s)
	return out
}

// Value implements driver.Valuer.
func (s Slots) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("model: encoding slots: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *Slots) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = Slots{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("model: cannot scan %T into Slots", src)
	}

	var out Slots
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("model: decoding slots: %w", err)
	}
	if out == nil {
		out = Slots{}
	}
	*s = out
	return nil
}

// SlotKind tags what a stored slot value refers to.
type SlotKind uint8

const (
	SlotEmpty SlotKind = iota
	SlotSlug
	SlotLegacyRef
)

func (k SlotKind) String() string {
	switch k {
	case SlotEmpty:
		return "empty"
	case SlotSlug:
		return "slug"
	case SlotLegacyRef:
		return "legacy-ref"
	default:
		return fmt.Sprintf("SlotKind(%d)", uint8(k))
	}
}

// SlotRef is a classified slot value.
type SlotRef struct {
	Kind  SlotKind
	Value string
}

// legacyIDMinLen is the length above which an all-alphanumeric value is
// taken for an old-style item identifier. Catalog slugs are short and
// hyphenated; identifiers were 32 lowercase alphanumerics.
const legacyIDMinLen = 20

// ClassifySlot tags a stored value. Under SlotSchemaSlugs every non-empty
// value is a slug. Under SlotSchemaLegacy the value's shape decides.
func ClassifySlot(s Slot, schema int) SlotRef {
	if s.Empty() {
		return SlotRef{Kind: SlotEmpty}
	}
	if schema >= SlotSchemaSlugs || !looksLikeLegacyID(string(s)) {
		return SlotRef{Kind: SlotSlug, Value: string(s)}
	}
	return SlotRef{Kind: SlotLegacyRef, Value: string(s)}
}

func looksLikeLegacyID(v string) bool {
	if len(v) <= legacyIDMinLen {
		return false
	}
	for _, r := range v {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
