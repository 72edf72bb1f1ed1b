// Package store declares the repository contracts the services depend on.
// MongoDB implementations live in the sub-packages; memstore provides
// in-memory fakes for tests.
package store

import (
	"context"
	"errors"

	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when the referenced document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("store: a user with this email already exists")
	// ErrAlreadyEnrolled is returned by AddStudent when the student is on the roster.
	ErrAlreadyEnrolled = errors.New("store: student already enrolled")
)

// CourseRepository persists courses and their rosters.
type CourseRepository interface {
	Create(ctx context.Context, c models.Course) (models.Course, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Course, error)
	// Update applies p with $set for non-empty fields and appends VideoURLs.
	Update(ctx context.Context, id primitive.ObjectID, p models.CoursePatch) (models.Course, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	List(ctx context.Context) ([]models.Course, error)
	ListByInstructor(ctx context.Context, instructorID primitive.ObjectID) ([]models.Course, error)
	ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.Course, error)

	// AddStudent atomically adds studentID to the roster if absent and
	// returns the updated course. ErrNotFound when the course is gone,
	// ErrAlreadyEnrolled when the student is already present.
	AddStudent(ctx context.Context, courseID, studentID primitive.ObjectID) (models.Course, error)

	// Search returns at most limit courses whose title, description or
	// category contains q case-insensitively. Blank q returns nothing.
	Search(ctx context.Context, q string, limit int) ([]models.Course, error)
}

// IdentityRepository persists users and the follow graph.
type IdentityRepository interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	// GetByIDs returns the users that exist, in no particular order.
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)

	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	LinkGoogle(ctx context.Context, id primitive.ObjectID, googleID string) error
	// PromoteToAdmin sets role=admin for email. Found=false when no user has it.
	PromoteToAdmin(ctx context.Context, email string) (found bool, err error)

	// Follow adds the edge follower→target and bumps both counters.
	// changed=false when the edge already existed.
	Follow(ctx context.Context, followerID, targetID primitive.ObjectID) (changed bool, err error)
	// Unfollow removes the edge. changed=false when it did not exist.
	Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) (changed bool, err error)
}
