package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/block-palettes/internal/apperror"
	"github.com/sakif/block-palettes/internal/auth"
	"github.com/sakif/block-palettes/internal/model"
	"github.com/sakif/block-palettes/internal/service"
)

// PaletteHandler serves palette CRUD and slot editing.
//
// Mutating routes answer with {"id": "..."} (or the new published flag)
// rather than the whole palette; clients re-read what they display.
type PaletteHandler struct {
	palettes *service.PaletteService
	likes    *service.LikeService
	logger   *slog.Logger
}

// NewPaletteHandler creates a PaletteHandler.
func NewPaletteHandler(palettes *service.PaletteService, likes *service.LikeService, logger *slog.Logger) *PaletteHandler {
	return &PaletteHandler{palettes: palettes, likes: likes, logger: logger}
}

type idResponse struct {
	ID string `json:"id"`
}

type createPaletteRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreate creates an empty palette owned by the caller.
//
// HTTP: POST /api/palettes
// REQUEST BODY: {"name": "Castle walls", "description": "..."}
func (h *PaletteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPaletteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.palettes.Create(r.Context(), auth.IdentityFromContext(r.Context()), req.Name, req.Description)
	if err != nil {
		logFailure(h.logger, "create-palette", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// HandleList returns every published palette, newest first.
//
// HTTP: GET /api/palettes
func (h *PaletteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.palettes.GetPublished(r.Context())
	if err != nil {
		logFailure(h.logger, "list-palettes", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleListMine returns the caller's palettes, published or not.
//
// HTTP: GET /api/me/palettes
func (h *PaletteHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	views, err := h.palettes.GetByOwner(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		logFailure(h.logger, "list-my-palettes", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleGetByID returns one palette. A missing palette is 200 with a null
// body, matching how clients check for existence.
//
// HTTP: GET /api/palettes/{id}
func (h *PaletteHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	view, err := h.palettes.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, "get-palette", err)
		writeError(w, err)
		return
	}
	if view == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleUpdate applies a partial patch.
//
// HTTP: PATCH /api/palettes/{id}
// REQUEST BODY: any of {"name": "...", "description": "...", "maxSlots": 9}
func (h *PaletteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var upd model.PaletteUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.palettes.Update(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), upd)
	if err != nil {
		logFailure(h.logger, "update-palette", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

// HandleDelete removes a palette.
//
// HTTP: DELETE /api/palettes/{id}
func (h *PaletteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := h.palettes.Remove(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, "delete-palette", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

type setSlotRequest struct {
	// Slug is the catalog block to place, or null to clear the slot.
	Slug *string `json:"slug"`
}

// HandleSetSlot places a block in one slot or clears it.
//
// HTTP: PUT /api/palettes/{id}/slots/{index}
// REQUEST BODY: {"slug": "oak-planks"} or {"slug": null}
func (h *PaletteHandler) HandleSetSlot(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, apperror.ValidationFailed("slotIndex", "slot index must be an integer"))
		return
	}

	var req setSlotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	slug := ""
	if req.Slug != nil {
		slug = *req.Slug
	}

	id, err := h.palettes.SetSlot(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), index, slug)
	if err != nil {
		logFailure(h.logger, "set-slot", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

type expandRequest struct {
	MaxSlots int `json:"maxSlots"`
}

// HandleExpand grows the palette's slot count.
//
// HTTP: POST /api/palettes/{id}/expand
// REQUEST BODY: {"maxSlots": 9}
func (h *PaletteHandler) HandleExpand(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.palettes.ExpandSlots(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), req.MaxSlots)
	if err != nil {
		logFailure(h.logger, "expand-slots", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

// HandleTogglePublish flips the published flag.
//
// HTTP: POST /api/palettes/{id}/publish
func (h *PaletteHandler) HandleTogglePublish(w http.ResponseWriter, r *http.Request) {
	published, err := h.palettes.TogglePublish(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, "toggle-publish", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isPublished": published})
}

// HandleLikesCount returns the number of likes on a palette.
//
// HTTP: GET /api/palettes/{id}/likes
func (h *PaletteHandler) HandleLikesCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.likes.LikesCount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, "likes-count", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// HandleIsLiked reports whether the caller likes a palette. Anonymous
// callers get false.
//
// HTTP: GET /api/palettes/{id}/liked
func (h *PaletteHandler) HandleIsLiked(w http.ResponseWriter, r *http.Request) {
	liked, err := h.likes.IsLiked(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, "is-liked", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

// HandleToggleLike likes or unlikes a palette.
//
// HTTP: POST /api/palettes/{id}/like
func (h *PaletteHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	liked, err := h.likes.Toggle(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, "toggle-like", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

// HandleListLiked returns the published palettes the caller liked.
//
// HTTP: GET /api/me/likes
func (h *PaletteHandler) HandleListLiked(w http.ResponseWriter, r *http.Request) {
	views, err := h.likes.UserLikedPalettes(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		logFailure(h.logger, "list-liked", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
