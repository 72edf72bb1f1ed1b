package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/jsonresp"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Token constants                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultCookieName = "token"
	DefaultTokenTTL   = 15 * 24 * time.Hour

	minSecretLen = 32
)

// Claims is the signed payload: the user id and the role at issue time.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the identity attached to r.Context() by Authenticate.
type SessionUser struct {
	ID     string
	Name   string
	Role   string
	Banned bool
}

// UserFetcher re-reads a user from the store so a ban takes effect before
// the token expires. It returns (nil, nil) when the user no longer exists.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*SessionUser, error)
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser injects u directly, bypassing token verification.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| TokenManager                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// TokenManager issues and verifies HS256 tokens and owns the auth cookie.
type TokenManager struct {
	secret     []byte
	cookieName string
	domain     string
	ttl        time.Duration
	secure     bool
	log        *zap.Logger

	fetcher UserFetcher
	now     func() time.Time
}

// NewTokenManager validates the secret and returns a manager.
//
// With secure=true (production) the cookie is Secure + SameSite=None so the
// SPA on another origin can send it. Over plain http in dev it is Lax.
func NewTokenManager(secret, cookieName, domain string, ttl time.Duration, secure bool, logger *zap.Logger) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty; provide ≥%d random chars", minSecretLen)
	}
	if len(secret) < minSecretLen {
		logger.Warn("jwt secret is short; 32+ chars recommended", zap.Int("length", len(secret)))
	}
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	logger.Info("token manager initialized",
		zap.Bool("secure", secure),
		zap.String("cookie", cookieName),
		zap.Duration("ttl", ttl))

	return &TokenManager{
		secret:     []byte(secret),
		cookieName: cookieName,
		domain:     domain,
		ttl:        ttl,
		secure:     secure,
		log:        logger,
		now:        time.Now,
	}, nil
}

// SetUserFetcher enables the per-request ban check.
func (m *TokenManager) SetUserFetcher(f UserFetcher) {
	m.fetcher = f
}

// Issue signs a token for userID carrying role.
func (m *TokenManager) Issue(userID string, role models.Role) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies signature and expiry. Any failure is Unauthenticated.
func (m *TokenManager) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthenticated("token expired")
		}
		return nil, apperr.Unauthenticated("invalid token")
	}
	if claims.UserID == "" {
		return nil, apperr.Unauthenticated("invalid token")
	}
	return claims, nil
}

// SignIn issues a token and sets it as the auth cookie.
func (m *TokenManager) SignIn(w http.ResponseWriter, userID string, role models.Role) (string, error) {
	tok, err := m.Issue(userID, role)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, m.cookie(tok, int(m.ttl.Seconds())))
	return tok, nil
}

// SignOut expires the auth cookie.
func (m *TokenManager) SignOut(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

func (m *TokenManager) cookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		Domain:   m.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.secure {
		c.SameSite = http.SameSiteNoneMode
	}
	if maxAge > 0 {
		c.Expires = m.now().Add(time.Duration(maxAge) * time.Second)
	}
	return c
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// Authenticate is the gate every protected route sits behind. It rejects
// with 401 when the token is absent, malformed, forged or expired and with
// 403 when the fetcher reports the user banned. Nothing downstream runs on
// rejection.
func (m *TokenManager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := m.tokenFromRequest(r)
		if raw == "" {
			jsonresp.Error(w, r, m.log, apperr.Unauthenticated("not authenticated"))
			return
		}
		claims, err := m.Parse(raw)
		if err != nil {
			m.log.Debug("token rejected", zap.Error(err))
			jsonresp.Error(w, r, m.log, err)
			return
		}

		u := &SessionUser{ID: claims.UserID, Role: strings.ToLower(claims.Role)}

		if m.fetcher != nil {
			fresh, err := m.fetcher.FetchUser(r.Context(), claims.UserID)
			if err != nil {
				jsonresp.Error(w, r, m.log, apperr.Upstream("fetch user", err))
				return
			}
			if fresh == nil {
				jsonresp.Error(w, r, m.log, apperr.Unauthenticated("user no longer exists"))
				return
			}
			if fresh.Banned {
				jsonresp.Error(w, r, m.log, apperr.Forbidden("account is banned"))
				return
			}
			u.Name = fresh.Name
		}

		next.ServeHTTP(w, withUser(r, u))
	})
}

// Identify returns the claims of a valid token on r, or nil. It never
// writes a response; public routes use it to learn who is calling.
func (m *TokenManager) Identify(r *http.Request) *Claims {
	raw := m.tokenFromRequest(r)
	if raw == "" {
		return nil
	}
	claims, err := m.Parse(raw)
	if err != nil {
		return nil
	}
	return claims
}

// tokenFromRequest reads the auth cookie, falling back to a bearer header.
func (m *TokenManager) tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(m.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}
