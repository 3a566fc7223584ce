package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/block-palettes/internal/model"
)

func TestCatalogHandler(t *testing.T) {
	e := newTestEnv(t)

	t.Run("list all", func(t *testing.T) {
		rr := e.do(t, http.MethodGet, "/api/catalog", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("Cache-Control"))

		items := decode[[]model.CatalogItem](t, rr)
		assert.Len(t, items, 22)
		assert.Equal(t, "stone", items[0].Slug)
		assert.Equal(t, "/assets/stone.webp", items[0].ImageURL)
		assert.NotContains(t, rr.Body.String(), "legacy")
	})

	t.Run("by category", func(t *testing.T) {
		rr := e.do(t, http.MethodGet, "/api/catalog?category=Ore", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		items := decode[[]model.CatalogItem](t, rr)
		require.Len(t, items, 4)
		for _, it := range items {
			assert.Equal(t, "Ore", it.Category)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		rr := e.do(t, http.MethodGet, "/api/catalog?category=Lava", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, "[]", rr.Body.String())
	})

	t.Run("categories", func(t *testing.T) {
		rr := e.do(t, http.MethodGet, "/api/catalog/categories", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, []string{"Decorative", "Earth", "Ore", "Stone", "Wood"}, decode[[]string](t, rr))
	})

	t.Run("lookup", func(t *testing.T) {
		rr := e.do(t, http.MethodGet, "/api/catalog/oak-planks", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		item := decode[model.CatalogItem](t, rr)
		assert.Equal(t, "oak-planks", item.Slug)
		assert.Equal(t, "Wood", item.Category)
	})

	t.Run("lookup missing", func(t *testing.T) {
		rr := e.do(t, http.MethodGet, "/api/catalog/bedrock", "", "")
		assertError(t, rr, http.StatusNotFound, "not_found")
	})
}
