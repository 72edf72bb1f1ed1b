// Package coursepolicy holds the ownership rule for course mutations.
//
// Authorization rules:
//   - The route middleware RequireRole(instructor, admin) handles role enforcement
//   - An instructor may update or delete only courses whose instructor is them
//   - Admins bypass the ownership comparison
//   - The check loads the course first, so a missing course is NotFound
//     rather than Forbidden
package coursepolicy

import (
	"context"
	"errors"

	"github.com/dalemusser/learnhub/internal/app/store"
	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CanMutate reports whether actor may modify c. Pure; no I/O.
func CanMutate(actor models.Actor, c models.Course) bool {
	if actor.IsAdmin() {
		return true
	}
	return !actor.ID.IsZero() && actor.ID == c.InstructorID
}

// RequireOwner loads the course and applies CanMutate. It returns the
// loaded course so callers can act on it without a second read. Callers
// must run it before any upload or write.
func RequireOwner(ctx context.Context, courses store.CourseRepository, actor models.Actor, courseID primitive.ObjectID) (models.Course, error) {
	c, err := courses.GetByID(ctx, courseID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Course{}, apperr.NotFound("Course not found")
	}
	if err != nil {
		return models.Course{}, apperr.Upstream("load course", err)
	}
	if !CanMutate(actor, c) {
		return models.Course{}, apperr.Forbidden("you are not the instructor of this course")
	}
	return c, nil
}
