package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/learnhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts documents directly, bypassing store normalization.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// CreateUser inserts a user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string, role models.Role) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		Name:       name,
		NameCI:     text.Fold(name),
		Email:      email,
		Role:       role,
		AuthMethod: models.AuthPassword,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("insert user: %v", err)
	}
	return u
}

// CreateCourse inserts a course owned by instructorID.
func (f *Fixtures) CreateCourse(ctx context.Context, title, category string, instructorID primitive.ObjectID) models.Course {
	f.t.Helper()
	now := time.Now().UTC()
	c := models.Course{
		ID:           primitive.NewObjectID(),
		Title:        title,
		TitleCI:      text.Fold(title),
		Description:  title + " description",
		Category:     category,
		VideoURLs:    []string{},
		InstructorID: instructorID,
		StudentIDs:   []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("courses").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("insert course: %v", err)
	}
	return c
}
