// Package catalog holds the static list of blocks a palette slot can
// reference. It is loaded once at startup from YAML (the embedded
// catalog.yaml unless a file is configured) and is read-only afterwards,
// so it is safe for concurrent use without locking.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sakif/block-palettes/internal/model"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// DefaultImageBaseURL is where block images are served from when no base
// URL is configured.
const DefaultImageBaseURL = "/assets"

type file struct {
	Items []model.CatalogItem `yaml:"items"`
}

// Catalog is an immutable, indexed set of catalog items.
type Catalog struct {
	items      []model.CatalogItem
	bySlug     map[string]int
	byLegacyID map[string]string
	categories []string
}

// Default loads the embedded catalog.
func Default(imageBaseURL string) (*Catalog, error) {
	return Parse(defaultCatalog, imageBaseURL)
}

// LoadFile loads a catalog from a YAML file on disk.
func LoadFile(path, imageBaseURL string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	return Parse(data, imageBaseURL)
}

// Parse builds a Catalog from YAML. Every item needs a slug, a name and a
// category; slugs and legacy identifiers must be unique.
func Parse(data []byte, imageBaseURL string) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: decoding yaml: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, errors.New("catalog: no items")
	}
	if imageBaseURL == "" {
		imageBaseURL = DefaultImageBaseURL
	}
	imageBaseURL = strings.TrimRight(imageBaseURL, "/")

	c := &Catalog{
		items:      make([]model.CatalogItem, 0, len(f.Items)),
		bySlug:     make(map[string]int, len(f.Items)),
		byLegacyID: make(map[string]string, len(f.Items)),
	}
	seenCategory := make(map[string]bool)

	for i, it := range f.Items {
		it.Slug = strings.TrimSpace(it.Slug)
		switch {
		case it.Slug == "":
			return nil, fmt.Errorf("catalog: item %d has no slug", i)
		case it.Name == "":
			return nil, fmt.Errorf("catalog: item %q has no name", it.Slug)
		case it.Category == "":
			return nil, fmt.Errorf("catalog: item %q has no category", it.Slug)
		}
		if _, dup := c.bySlug[it.Slug]; dup {
			return nil, fmt.Errorf("catalog: duplicate slug %q", it.Slug)
		}
		if it.LegacyID != "" {
			if prev, dup := c.byLegacyID[it.LegacyID]; dup {
				return nil, fmt.Errorf("catalog: legacy id %q used by %q and %q", it.LegacyID, prev, it.Slug)
			}
			c.byLegacyID[it.LegacyID] = it.Slug
		}

		it.ImageURL = imageBaseURL + "/" + it.Slug + ".webp"
		c.bySlug[it.Slug] = len(c.items)
		c.items = append(c.items, it)

		if !seenCategory[it.Category] {
			seenCategory[it.Category] = true
			c.categories = append(c.categories, it.Category)
		}
	}
	sort.Strings(c.categories)

	return c, nil
}

// All returns every item in file order.
func (c *Catalog) All() []model.CatalogItem {
	out := make([]model.CatalogItem, len(c.items))
	copy(out, c.items)
	return out
}

// ByCategory returns the items of one category, in file order.
func (c *Catalog) ByCategory(category string) []model.CatalogItem {
	out := []model.CatalogItem{}
	for _, it := range c.items {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out
}

// Categories returns the distinct categories, sorted.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.categories))
	copy(out, c.categories)
	return out
}

// Lookup returns the item with the given slug.
func (c *Catalog) Lookup(slug string) (model.CatalogItem, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return model.CatalogItem{}, false
	}
	return c.items[i], true
}

// Has reports whether slug names a catalog item.
func (c *Catalog) Has(slug string) bool {
	_, ok := c.bySlug[slug]
	return ok
}

// ResolveLegacy maps an old-style item identifier to its slug.
func (c *Catalog) ResolveLegacy(id string) (string, bool) {
	slug, ok := c.byLegacyID[id]
	return slug, ok
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }
