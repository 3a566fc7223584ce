package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/block-palettes/internal/auth"
	"github.com/sakif/block-palettes/internal/service"
)

// AdminHandler serves operator-only maintenance routes.
type AdminHandler struct {
	migration *service.MigrationService
	logger    *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(migration *service.MigrationService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{migration: migration, logger: logger}
}

// HandleMigrateSlots rewrites legacy slot values to slugs.
//
// HTTP: POST /api/admin/migrate-slots
// RESPONSE: {"migratedCount": 3}
func (h *AdminHandler) HandleMigrateSlots(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("slot migration requested",
		slog.String("by", auth.IdentityFromContext(r.Context()).Subject),
	)

	res, err := h.migration.MigrateAll(r.Context())
	if err != nil {
		logFailure(h.logger, "migrate-slots", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process and database health.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HandleHealthz answers 200 {"status":"ok"} when the database responds
// within two seconds, 503 otherwise.
//
// HTTP: GET /healthz
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
