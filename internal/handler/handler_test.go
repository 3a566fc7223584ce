package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/block-palettes/internal/auth"
	"github.com/sakif/block-palettes/internal/catalog"
	"github.com/sakif/block-palettes/internal/handler"
	"github.com/sakif/block-palettes/internal/model"
	"github.com/sakif/block-palettes/internal/repository/sqlite"
	"github.com/sakif/block-palettes/internal/service"
)

// subjectHeader carries the caller identity in tests, standing in for
// the token middleware.
const subjectHeader = "X-Test-Subject"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sub := r.Header.Get(subjectHeader); sub != "" {
			id := model.Identity{
				Subject:   sub,
				Email:     strings.ReplaceAll(sub, ":", "-") + "@example.com",
				AvatarURL: "https://avatars.example.com/" + sub,
			}
			r = r.WithContext(auth.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

type testEnv struct {
	router    *chi.Mux
	db        *sqlite.DB
	migration *service.MigrationService
}

// newTestEnv wires the real services over an in-memory database behind
// the same routes the server mounts.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cat, err := catalog.Default("/assets")
	require.NoError(t, err)

	log := testLogger()
	identitySvc := service.NewIdentityService(db, log)
	paletteSvc := service.NewPaletteService(db, cat, log)
	likeSvc := service.NewLikeService(db, cat, log)
	migrationSvc := service.NewMigrationService(db, cat, log)

	userH := handler.NewUserHandler(identitySvc, paletteSvc, log)
	paletteH := handler.NewPaletteHandler(paletteSvc, likeSvc, log)
	catalogH := handler.NewCatalogHandler(cat)
	adminH := handler.NewAdminHandler(migrationSvc, log)
	healthH := handler.NewHealthHandler(db, log)

	r := chi.NewRouter()
	r.Use(fakeAuth)
	r.Get("/healthz", healthH.HandleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", catalogH.HandleList)
		r.Get("/catalog/categories", catalogH.HandleCategories)
		r.Get("/catalog/{slug}", catalogH.HandleGet)

		r.Get("/users/username-available", userH.HandleUsernameAvailable)
		r.Get("/users/{id}", userH.HandleProfile)
		r.Post("/users/resolve", userH.HandleResolve)
		r.Post("/users/username", userH.HandleClaimUsername)

		r.Get("/me", userH.HandleMe)
		r.Get("/me/palettes", paletteH.HandleListMine)
		r.Get("/me/likes", paletteH.HandleListLiked)

		r.Get("/palettes", paletteH.HandleList)
		r.Post("/palettes", paletteH.HandleCreate)
		r.Get("/palettes/{id}", paletteH.HandleGetByID)
		r.Patch("/palettes/{id}", paletteH.HandleUpdate)
		r.Delete("/palettes/{id}", paletteH.HandleDelete)
		r.Put("/palettes/{id}/slots/{index}", paletteH.HandleSetSlot)
		r.Post("/palettes/{id}/expand", paletteH.HandleExpand)
		r.Post("/palettes/{id}/publish", paletteH.HandleTogglePublish)
		r.Get("/palettes/{id}/likes", paletteH.HandleLikesCount)
		r.Get("/palettes/{id}/liked", paletteH.HandleIsLiked)
		r.Post("/palettes/{id}/like", paletteH.HandleToggleLike)

		r.Post("/admin/migrate-slots", adminH.HandleMigrateSlots)
	})

	return &testEnv{router: r, db: db, migration: migrationSvc}
}

// do sends a request as subject ("" for anonymous).
func (e *testEnv) do(t *testing.T, method, path, subject, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set(subjectHeader, subject)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, errorType string) handler.ErrorResponse {
	t.Helper()
	assert.Equal(t, status, rr.Code, "body: %s", rr.Body.String())
	resp := decode[handler.ErrorResponse](t, rr)
	assert.Equal(t, errorType, resp.Error)
	return resp
}

// createPalette creates a palette as owner and returns its id.
func (e *testEnv) createPalette(t *testing.T, owner, name string) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/palettes", owner, `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := decode[map[string]string](t, rr)["id"]
	require.NotEmpty(t, id)
	return id
}

func (e *testEnv) getPalette(t *testing.T, id string) model.PaletteView {
	t.Helper()
	rr := e.do(t, http.MethodGet, "/api/palettes/"+id, "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	return decode[model.PaletteView](t, rr)
}

const (
	alice = "github:1001"
	bob   = "github:1002"
)
