// Package server wires configuration, storage, services, handlers and
// routes together, and runs the HTTP server.
//
// It is the composition root: every dependency is constructed here (or in
// main) and passed down, so no package below reaches for globals.
//
//	config → sqlite.DB → services → handlers → chi routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/block-palettes/internal/auth"
	"github.com/sakif/block-palettes/internal/catalog"
	"github.com/sakif/block-palettes/internal/config"
	"github.com/sakif/block-palettes/internal/handler"
	"github.com/sakif/block-palettes/internal/logger"
	"github.com/sakif/block-palettes/internal/middleware"
	sqliteRepo "github.com/sakif/block-palettes/internal/repository/sqlite"
	"github.com/sakif/block-palettes/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server is the HTTP server and the resources it owns.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *logger.Logger
	db       *sqliteRepo.DB
	catalog  *catalog.Catalog
	tokens   *auth.TokenService
	registry *prometheus.Registry
}

// OpenDB opens (creating the parent directory if needed) and migrates the
// database at path.
func OpenDB(ctx context.Context, path string, log *logger.Logger) (*sqliteRepo.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("server: creating data directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(ctx, path, log)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}
	return db, nil
}

// New opens the database from cfg and builds the server around it. The
// server owns the database and closes it when Start returns.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, cat *catalog.Catalog) (*Server, error) {
	db, err := OpenDB(ctx, cfg.DBPath, log)
	if err != nil {
		return nil, err
	}
	s, err := NewWithDB(cfg, log, cat, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB builds the server around an already opened database.
func NewWithDB(cfg *config.Config, log *logger.Logger, cat *catalog.Catalog, db *sqliteRepo.DB) (*Server, error) {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  log,
		db:      db,
		catalog: cat,
	}

	if cfg.AuthEnabled() {
		tokens, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.tokens = tokens
	} else {
		log.Warn("JWT_SECRET not set; login is disabled and all writes will be rejected")
	}

	if cfg.MetricsEnabled {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	s.setupRoutes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// MIDDLEWARE ORDER:
//  1. RequestID  assigns an id to each request, picked up by the logger
//  2. RealIP     takes the client IP from proxy headers
//  3. Logger     logs each request with its matched route
//  4. Metrics    counts and times each request (when enabled)
//  5. Recoverer  turns panics into 500s; it runs innermost so the logger
//     and metrics still see the 500
func (s *Server) setupRoutes() {
	base := s.logger.Logger

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(base))
	if s.registry != nil {
		s.router.Use(middleware.NewMetrics(s.registry).Handler)
	}
	s.router.Use(chimiddleware.Recoverer)

	// === Services ===
	identitySvc := service.NewIdentityService(s.db, base)
	paletteSvc := service.NewPaletteService(s.db, s.catalog, base)
	likeSvc := service.NewLikeService(s.db, s.catalog, base)
	migrationSvc := service.NewMigrationService(s.db, s.catalog, base)

	// === Handlers ===
	healthH := handler.NewHealthHandler(s.db, base)
	catalogH := handler.NewCatalogHandler(s.catalog)
	userH := handler.NewUserHandler(identitySvc, paletteSvc, base)
	paletteH := handler.NewPaletteHandler(paletteSvc, likeSvc, base)
	adminH := handler.NewAdminHandler(migrationSvc, base)

	s.router.Get("/healthz", healthH.HandleHealthz)
	if s.registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	// === Login ===
	var provider handler.OAuthProvider
	if s.config.GitHubEnabled() {
		provider = auth.NewGitHubProvider(
			s.config.GitHub.ClientID,
			s.config.GitHub.ClientSecret,
			s.config.GitHub.CallbackURL,
		)
	}
	secure := strings.HasPrefix(s.config.GitHub.CallbackURL, "https://")
	authH := handler.NewAuthHandler(provider, s.tokens, identitySvc, secure, base)

	s.router.Route("/auth", func(r chi.Router) {
		if provider != nil {
			r.Get("/github/login", authH.HandleGitHubLogin)
			r.Get("/github/callback", authH.HandleGitHubCallback)
		}
		r.Post("/logout", authH.HandleLogout)
	})

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		// Public reads. A valid token still identifies the caller, which
		// only matters for /liked.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(s.tokens))

			r.Get("/catalog", catalogH.HandleList)
			r.Get("/catalog/categories", catalogH.HandleCategories)
			r.Get("/catalog/{slug}", catalogH.HandleGet)

			r.Get("/users/username-available", userH.HandleUsernameAvailable)
			r.Get("/users/{id}", userH.HandleProfile)

			r.Get("/palettes", paletteH.HandleList)
			r.Get("/palettes/{id}", paletteH.HandleGetByID)
			r.Get("/palettes/{id}/likes", paletteH.HandleLikesCount)
			r.Get("/palettes/{id}/liked", paletteH.HandleIsLiked)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.tokens))

			r.Post("/users/resolve", userH.HandleResolve)
			r.Post("/users/username", userH.HandleClaimUsername)

			r.Get("/me", userH.HandleMe)
			r.Get("/me/palettes", paletteH.HandleListMine)
			r.Get("/me/likes", paletteH.HandleListLiked)

			r.Post("/palettes", paletteH.HandleCreate)
			r.Patch("/palettes/{id}", paletteH.HandleUpdate)
			r.Delete("/palettes/{id}", paletteH.HandleDelete)
			r.Put("/palettes/{id}/slots/{index}", paletteH.HandleSetSlot)
			r.Post("/palettes/{id}/expand", paletteH.HandleExpand)
			r.Post("/palettes/{id}/publish", paletteH.HandleTogglePublish)
			r.Post("/palettes/{id}/like", paletteH.HandleToggleLike)

			r.With(auth.RequireAdmin(s.config.IsAdmin)).
				Post("/admin/migrate-slots", adminH.HandleMigrateSlots)
		})
	})
}

// Start serves HTTP until ctx is cancelled. On shutdown in-flight requests
// get 30s to finish before the database is closed.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.Int("catalogItems", s.catalog.Len()),
			slog.Bool("login", s.config.GitHubEnabled()),
			slog.Bool("metrics", s.registry != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
