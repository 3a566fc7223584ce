package model

import "time"

// Slot count bounds for a palette. A palette starts at MinSlots and may be
// expanded up to MaxSlots; it never shrinks.
const (
	MinSlots = 6
	MaxSlots = 12
)

// Palette is a user's ordered collection of catalog blocks.
//
// OwnerID is the owner's User.ExternalID. Slots always has exactly
// MaxSlots entries once written by the service.
type Palette struct {
	ID          string    `json:"id"          db:"id"`
	OwnerID     string    `json:"ownerId"     db:"owner_id"`
	Name        string    `json:"name"        db:"name"`
	Description string    `json:"description" db:"description"`
	Slots       Slots     `json:"slots"       db:"slots"`
	MaxSlots    int       `json:"maxSlots"    db:"max_slots"`
	IsPublished bool      `json:"isPublished" db:"is_published"`
	SlotSchema  int       `json:"-"           db:"slot_schema"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}

// PaletteView is a palette as returned to readers: slots resolved to slugs,
// plus the aggregate like count and the owner's public profile (nil when
// the owner record is gone).
type PaletteView struct {
	Palette
	LikesCount int            `json:"likesCount"`
	Owner      *PublicProfile `json:"user"`
}

// PaletteUpdate is a partial patch; nil fields are left untouched.
type PaletteUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	MaxSlots    *int    `json:"maxSlots,omitempty"`
}

// UserProfile is a public profile page: the user plus their published palettes.
type UserProfile struct {
	PublicProfile
	Palettes []PaletteView `json:"palettes"`
}
