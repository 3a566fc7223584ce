package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/block-palettes/internal/auth"
	"github.com/sakif/block-palettes/internal/service"
)

const (
	stateCookie = "oauth_state"
	stateMaxAge = 600 // seconds
)

// OAuthProvider runs the authorization code flow against an identity
// provider. *auth.GitHubProvider is the production implementation.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages the GitHub OAuth login flow and the token cookie.
//
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → exchange the code, resolve the account, issue the token
//   - HandleLogout         → clear the token cookie
type AuthHandler struct {
	provider OAuthProvider
	tokens   *auth.TokenService
	identity *service.IdentityService
	secure   bool
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secure marks cookies Secure and
// should be set whenever the site is served over HTTPS.
func NewAuthHandler(
	provider OAuthProvider,
	tokens *auth.TokenService,
	identity *service.IdentityService,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		tokens:   tokens,
		identity: identity,
		secure:   secure,
		logger:   logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes into a short-lived HttpOnly cookie and into the
// authorization URL. The callback only proceeds when both match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	h.setCookie(w, stateCookie, state, stateMaxAge)

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub profile
//  3. Resolve the account, creating it on first login
//  4. Issue the access token in an HttpOnly cookie
//  5. Redirect home, or to the username gate when signup is incomplete
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	h.setCookie(w, stateCookie, "", -1)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}
	caller := ghUser.Identity()

	res, err := h.identity.ResolveOrCreate(r.Context(), caller)
	if err != nil {
		h.logger.Error("auth callback: resolving account failed",
			slog.String("subject", caller.Subject),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	token, err := h.tokens.Generate(caller)
	if err != nil {
		h.logger.Error("auth callback: token generation failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.setCookie(w, auth.CookieName, token, int(h.tokens.TTL().Seconds()))

	h.logger.Info("user authenticated",
		slog.String("userID", res.UserID),
		slog.String("subject", caller.Subject),
		slog.Bool("new", res.IsNew),
	)

	target := "/"
	if !res.HasCompletedSignup {
		target = "/signup"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// HandleLogout clears the token cookie.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless, so logging out only removes the browser's copy.
// A copied token stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, auth.CookieName, "", -1)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// setCookie writes an HttpOnly, site-wide cookie. A negative maxAge
// deletes it.
func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
