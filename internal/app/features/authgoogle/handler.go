// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/learnhub/internal/app/store"
	"github.com/dalemusser/learnhub/internal/app/store/audit"
	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/auditlog"
	"github.com/dalemusser/learnhub/internal/app/system/auth"
	"github.com/dalemusser/learnhub/internal/app/system/jsonresp"
	"github.com/dalemusser/learnhub/internal/app/system/metrics"
	"github.com/dalemusser/learnhub/internal/app/system/timeouts"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Handler handles Google OAuth sign-in.
type Handler struct {
	Users   store.IdentityRepository
	Tokens  *auth.TokenManager
	States  *StateStore
	Audit   *auditlog.Logger
	Metrics *metrics.Metrics
	Log     *zap.Logger

	// OAuth is nil when Google sign-in is not configured.
	OAuth *oauth2.Config
	// UserInfoURL defaults to DefaultUserInfoURL.
	UserInfoURL string
	// BaseURL is the front end the callback redirects to.
	BaseURL string
}

// NewOAuthConfig returns the Google config, or nil when clientID or
// clientSecret is empty. The callback is served under apiBaseURL.
func NewOAuthConfig(clientID, clientSecret, apiBaseURL string) *oauth2.Config {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  strings.TrimRight(apiBaseURL, "/") + "/auth/google/callback",
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.OAuth != nil
}

func (h *Handler) notConfigured(w http.ResponseWriter, r *http.Request) {
	jsonresp.Error(w, r, h.Log, apperr.NotFound("Google sign-in is not enabled"))
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Redirects to Google's consent screen with a fresh state.                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.notConfigured(w, r)
		return
	}
	state, err := h.States.Begin(w, r)
	if err != nil {
		h.Log.Error("failed to store OAuth state", zap.Error(err))
		jsonresp.Error(w, r, h.Log, apperr.Upstream("oauth state", err))
		return
	}
	http.Redirect(w, r, h.OAuth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Verifies state, exchanges the code, resolves the identity, sets the token.   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.notConfigured(w, r)
		return
	}
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		h.Log.Warn("Google OAuth error", zap.String("error", e), zap.String("description", q.Get("error_description")))
		h.fail(w, r, "google_denied")
		return
	}

	if err := h.States.Verify(w, r, q.Get("state")); err != nil {
		if isDecodeError(err) {
			h.Log.Warn("OAuth state cookie invalid", zap.Error(err))
		} else {
			h.Log.Warn("invalid or expired OAuth state", zap.Error(err))
		}
		h.fail(w, r, "invalid_state")
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, r, "invalid_code")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "google callback")
	defer cancel()

	token, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.fail(w, r, "token_exchange")
		return
	}

	infoURL := h.UserInfoURL
	if infoURL == "" {
		infoURL = DefaultUserInfoURL
	}
	info, err := fetchUserInfo(ctx, h.OAuth, token, infoURL)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.fail(w, r, "user_info")
		return
	}

	u, created, err := resolveUser(ctx, h.Users, info)
	switch {
	case errors.Is(err, errUserBanned):
		h.Audit.LoginFailed(ctx, r, &u.ID, audit.EventLoginFailedBanned, "banned", info.Email)
		h.Metrics.Login(models.AuthGoogle, metrics.ResultDenied)
		h.fail(w, r, "account_banned")
		return
	case errors.Is(err, errEmailUnverified):
		h.Metrics.Login(models.AuthGoogle, metrics.ResultDenied)
		h.fail(w, r, "email_unverified")
		return
	case err != nil:
		h.Log.Error("failed to resolve Google user", zap.Error(err), zap.String("email", info.Email))
		h.Metrics.Login(models.AuthGoogle, metrics.ResultError)
		h.fail(w, r, "internal")
		return
	}

	h.signIn(ctx, w, r, u, created)
}

func (h *Handler) signIn(ctx context.Context, w http.ResponseWriter, r *http.Request, u models.User, created bool) {
	if _, err := h.Tokens.SignIn(w, u.ID.Hex(), u.Role); err != nil {
		h.Log.Error("failed to issue token", zap.Error(err))
		h.Metrics.Login(models.AuthGoogle, metrics.ResultError)
		h.fail(w, r, "internal")
		return
	}
	if created {
		h.Audit.Signup(ctx, r, u.ID, string(u.Role), models.AuthGoogle)
	}
	h.Audit.GoogleLogin(ctx, r, u.ID, created)
	h.Metrics.Login(models.AuthGoogle, metrics.ResultOK)

	h.Log.Info("google sign-in", zap.String("user_id", u.ID.Hex()), zap.Bool("created", created))
	http.Redirect(w, r, h.frontEnd(""), http.StatusSeeOther)
}

// fail redirects to the front end's login page with an error code.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.frontEnd("/login?error="+url.QueryEscape(code)), http.StatusSeeOther)
}

func (h *Handler) frontEnd(path string) string {
	base := strings.TrimRight(h.BaseURL, "/")
	if path == "" {
		if base == "" {
			return "/"
		}
		return base + "/"
	}
	return base + path
}
