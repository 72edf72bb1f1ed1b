package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/learnhub/internal/app/system/auth"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser represents user data for testing HTTP handlers.
type TestUser struct {
	ID   string
	Name string
	Role models.Role
}

// OID returns the user's ObjectID.
func (u TestUser) OID() primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(u.ID)
	return id
}

// Actor returns the user as a service-layer actor.
func (u TestUser) Actor() models.Actor {
	return models.Actor{ID: u.OID(), Role: u.Role}
}

func newTestUser(name string, role models.Role) TestUser {
	return TestUser{ID: primitive.NewObjectID().Hex(), Name: name, Role: role}
}

func AdminUser() TestUser      { return newTestUser("Test Admin", models.RoleAdmin) }
func InstructorUser() TestUser { return newTestUser("Test Instructor", models.RoleInstructor) }
func StudentUser() TestUser    { return newTestUser("Test Student", models.RoleStudent) }

// WithUser adds a user to the request context for testing authenticated handlers.
// This bypasses token verification and injects the user directly.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:   user.ID,
		Name: user.Name,
		Role: string(user.Role),
	})
}

// NewJSONRequest builds a request with a JSON-encoded body.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// Envelope mirrors the JSON response envelope for decoding in tests.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
}

// DecodeEnvelope decodes rec's body, failing the test on malformed JSON.
func DecodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env
}

// DecodeData unmarshals env.Data into v.
func DecodeData(t *testing.T, env Envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (data %s)", err, env.Data)
	}
}

// AssertStatus checks the response status code.
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Errorf("status code: got %d, want %d (body %s)", rec.Code, want, strings.TrimSpace(rec.Body.String()))
	}
}
