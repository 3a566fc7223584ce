package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/block-palettes/internal/model"
)

// CookieName is the cookie carrying the access token.
const CookieName = "token"

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller identity stored by the auth
// middleware, or the anonymous identity.
func IdentityFromContext(ctx context.Context) model.Identity {
	id, _ := ctx.Value(identityKey).(model.Identity)
	return id
}

// errLoginDisabled is returned for every request when the server runs
// without a token secret (a nil *TokenService).
var errLoginDisabled = errors.New("auth: login disabled")

// RequireAuth rejects requests without a valid token with 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := identityFromRequest(r, tokens)
			if err != nil {
				writeUnauthorized(w, "valid authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// lets the request through either way.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := identityFromRequest(r, tokens); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin lets through only callers whose subject isAdmin accepts.
// It must run after RequireAuth or OptionalAuth.
func RequireAdmin(isAdmin func(subject string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id.Anonymous() {
				writeUnauthorized(w, "valid authentication required")
				return
			}
			if !isAdmin(id.Subject) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"forbidden","message":"admin access required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}

// identityFromRequest reads the token from the cookie, falling back to an
// "Authorization: Bearer" header for non-browser clients.
func identityFromRequest(r *http.Request, tokens *TokenService) (model.Identity, error) {
	if tokens == nil {
		return model.Identity{}, errLoginDisabled
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return tokens.Validate(cookie.Value)
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return tokens.Validate(strings.TrimSpace(token))
	}
	return model.Identity{}, http.ErrNoCookie
}
