package coursepolicy

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/learnhub/internal/app/store/memstore"
	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanMutate(t *testing.T) {
	owner := primitive.NewObjectID()
	c := models.Course{InstructorID: owner}

	tests := []struct {
		name  string
		actor models.Actor
		want  bool
	}{
		{"owner instructor", models.Actor{ID: owner, Role: models.RoleInstructor}, true},
		{"other instructor", models.Actor{ID: primitive.NewObjectID(), Role: models.RoleInstructor}, false},
		{"admin not owner", models.Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin}, true},
		{"student with owner id", models.Actor{ID: owner, Role: models.RoleStudent}, true},
		{"zero actor", models.Actor{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanMutate(tt.actor, c); got != tt.want {
				t.Errorf("CanMutate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequireOwner(t *testing.T) {
	repo := memstore.NewCourses()
	owner := primitive.NewObjectID()
	c := repo.Put(models.Course{Title: "Go", InstructorID: owner})
	ctx := context.Background()

	if _, err := RequireOwner(ctx, repo, models.Actor{ID: owner, Role: models.RoleInstructor}, c.ID); err != nil {
		t.Errorf("owner: unexpected error %v", err)
	}

	_, err := RequireOwner(ctx, repo, models.Actor{ID: primitive.NewObjectID(), Role: models.RoleInstructor}, c.ID)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("non-owner: err = %v, want Forbidden", err)
	}

	_, err = RequireOwner(ctx, repo, models.Actor{ID: owner, Role: models.RoleInstructor}, primitive.NewObjectID())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v, want NotFound", err)
	}

	repo.Err = errors.New("db down")
	_, err = RequireOwner(ctx, repo, models.Actor{ID: owner, Role: models.RoleAdmin}, c.ID)
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Errorf("store failure: kind = %v, want UpstreamFailure", apperr.KindOf(err))
	}
	if repo.Writes != 0 {
		t.Errorf("policy wrote %d times", repo.Writes)
	}
}
