package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/block-palettes/internal/apperror"
	"github.com/sakif/block-palettes/internal/model"
)

// CatalogReader is the read side of the block catalog.
type CatalogReader interface {
	All() []model.CatalogItem
	ByCategory(category string) []model.CatalogItem
	Categories() []string
	Lookup(slug string) (model.CatalogItem, bool)
}

// CatalogHandler serves the static block catalog. Responses may be cached
// since the catalog never changes while the process runs.
type CatalogHandler struct {
	catalog CatalogReader
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalog CatalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func cacheable(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "public, max-age=300")
}

// HandleList returns every item, or the items of one category.
//
// HTTP: GET /api/catalog?category=stone
func (h *CatalogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	items := h.catalog.All()
	if category != "" {
		items = h.catalog.ByCategory(category)
	}
	cacheable(w)
	writeJSON(w, http.StatusOK, items)
}

// HandleCategories returns the distinct categories.
//
// HTTP: GET /api/catalog/categories
func (h *CatalogHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	cacheable(w)
	writeJSON(w, http.StatusOK, h.catalog.Categories())
}

// HandleGet returns one item by slug.
//
// HTTP: GET /api/catalog/{slug}
func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	item, ok := h.catalog.Lookup(slug)
	if !ok {
		writeError(w, apperror.NotFound("catalog item", slug))
		return
	}
	cacheable(w)
	writeJSON(w, http.StatusOK, item)
}
