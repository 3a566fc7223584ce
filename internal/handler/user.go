package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/block-palettes/internal/auth"
	"github.com/sakif/block-palettes/internal/service"
)

// UserHandler serves account resolution, the username claim and profiles.
type UserHandler struct {
	identity *service.IdentityService
	palettes *service.PaletteService
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(identity *service.IdentityService, palettes *service.PaletteService, logger *slog.Logger) *UserHandler {
	return &UserHandler{identity: identity, palettes: palettes, logger: logger}
}

// HandleUsernameAvailable reports whether a username could be claimed.
//
// HTTP: GET /api/users/username-available?username=steve
func (h *UserHandler) HandleUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	check, err := h.identity.CheckUsernameAvailable(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		logFailure(h.logger, "username-available", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// HandleProfile returns a user's public profile with published palettes.
//
// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.palettes.PublicProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		logFailure(h.logger, "profile", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleResolve returns the caller's account, creating it on first contact.
//
// HTTP: POST /api/users/resolve
func (h *UserHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	res, err := h.identity.ResolveOrCreate(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		logFailure(h.logger, "resolve", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type claimUsernameRequest struct {
	Username string `json:"username"`
}

// HandleClaimUsername claims a username for the caller.
//
// HTTP: POST /api/users/username
// REQUEST BODY: {"username": "steve"}
func (h *UserHandler) HandleClaimUsername(w http.ResponseWriter, r *http.Request) {
	var req claimUsernameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	name, err := h.identity.ClaimUsername(r.Context(), auth.IdentityFromContext(r.Context()), req.Username)
	if err != nil {
		logFailure(h.logger, "claim-username", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": name})
}

// HandleMe returns the caller's account, or null when it has not been
// created yet.
//
// HTTP: GET /api/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.identity.Current(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		logFailure(h.logger, "me", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
