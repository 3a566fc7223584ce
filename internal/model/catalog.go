package model

// CatalogItem is a selectable block. Items are loaded once at startup and
// never change; Slug is the only value a palette slot may reference.
//
// LegacyID is the identifier the item had before slot values switched to
// slugs. It is only used to resolve old slot values.
type CatalogItem struct {
	Slug     string `json:"slug"     yaml:"slug"`
	Name     string `json:"name"     yaml:"name"`
	Category string `json:"category" yaml:"category"`
	LegacyID string `json:"-"        yaml:"legacy_id"`
	ImageURL string `json:"imageUrl" yaml:"-"`
}
