package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default("")
	require.NoError(t, err)

	assert.Equal(t, 22, c.Len())
	assert.Equal(t, []string{"Decorative", "Earth", "Ore", "Stone", "Wood"}, c.Categories())

	stone, ok := c.Lookup("stone")
	require.True(t, ok)
	assert.Equal(t, "Stone", stone.Name)
	assert.Equal(t, "/assets/stone.webp", stone.ImageURL)
	assert.NotEmpty(t, stone.LegacyID)

	slug, ok := c.ResolveLegacy(stone.LegacyID)
	require.True(t, ok)
	assert.Equal(t, "stone", slug)
}

func TestByCategory(t *testing.T) {
	c, err := Default("")
	require.NoError(t, err)

	wood := c.ByCategory("Wood")
	require.Len(t, wood, 4)
	assert.Equal(t, "oak-planks", wood[0].Slug)

	assert.Empty(t, c.ByCategory("Lava"))
	assert.NotNil(t, c.ByCategory("Lava"))
}

func TestHasAndMisses(t *testing.T) {
	c, err := Default("")
	require.NoError(t, err)

	assert.True(t, c.Has("glass"))
	assert.False(t, c.Has("obsidian"))

	_, ok := c.ResolveLegacy("k000000000000000000000000000dead")
	assert.False(t, ok)
}

func TestImageBaseURL(t *testing.T) {
	c, err := Default("https://cdn.example.com/blocks/")
	require.NoError(t, err)

	it, ok := c.Lookup("gold-ore")
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/blocks/gold-ore.webp", it.ImageURL)
}

func TestAllReturnsCopy(t *testing.T) {
	c, err := Default("")
	require.NoError(t, err)

	items := c.All()
	items[0].Slug = "mutated"

	_, ok := c.Lookup("stone")
	assert.True(t, ok)
	assert.Equal(t, "stone", c.All()[0].Slug)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "items: []"},
		{"not yaml", "items: [oops"},
		{"missing slug", "items:\n  - name: X\n    category: Y\n"},
		{"missing name", "items:\n  - slug: x\n    category: Y\n"},
		{"missing category", "items:\n  - slug: x\n    name: X\n"},
		{"duplicate slug", "items:\n  - {slug: x, name: X, category: Y}\n  - {slug: x, name: X2, category: Y}\n"},
		{"duplicate legacy id", "items:\n  - {slug: x, name: X, category: Y, legacy_id: abc}\n  - {slug: z, name: Z, category: Y, legacy_id: abc}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "")
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.yaml")
	data := "items:\n  - {slug: lava, name: Lava, category: Liquid}\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	c, err := LoadFile(path, "/img")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, []string{"Liquid"}, c.Categories())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}
