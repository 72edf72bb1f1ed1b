// internal/app/features/authgoogle/state.go
package authgoogle

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	stateCookieName = "learnhub_oauth"
	stateKey        = "state"
	stateTTL        = 10 * time.Minute
)

var errStateMismatch = errors.New("oauth state mismatch")

// StateStore keeps the OAuth state in a signed, encrypted cookie for the
// duration of one sign-in round trip.
type StateStore struct {
	store *sessions.CookieStore
}

// NewStateStore derives the cookie keys from secret so a restart does not
// invalidate a sign-in in progress.
func NewStateStore(secret string, secure bool) *StateStore {
	hashKey := sha256.Sum256([]byte("oauth-state-hash:" + secret))
	blockKey := sha256.Sum256([]byte("oauth-state-block:" + secret))
	cs := sessions.NewCookieStore(hashKey[:], blockKey[:])
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	cs.MaxAge(int(stateTTL.Seconds()))
	return &StateStore{store: cs}
}

// Begin generates a state and stores it in the cookie.
func (s *StateStore) Begin(w http.ResponseWriter, r *http.Request) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", err
	}
	// A stale or tampered cookie yields a fresh session, which is overwritten.
	sess, _ := s.store.New(r, stateCookieName)
	sess.Values[stateKey] = state
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return state, nil
}

// Verify checks got against the stored state and clears the cookie. A
// cookie that fails to decode is reported as securecookie's decode error.
func (s *StateStore) Verify(w http.ResponseWriter, r *http.Request, got string) error {
	sess, err := s.store.Get(r, stateCookieName)
	if err != nil {
		return err
	}
	want, _ := sess.Values[stateKey].(string)

	sess.Options.MaxAge = -1
	_ = sess.Save(r, w)

	if want == "" || got == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return errStateMismatch
	}
	return nil
}

func isDecodeError(err error) bool {
	var sc securecookie.Error
	return errors.As(err, &sc) && sc.IsDecode()
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
