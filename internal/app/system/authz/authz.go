// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/auth"
	"github.com/dalemusser/learnhub/internal/app/system/jsonresp"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Allowed reports whether role is in allow. An empty role never matches,
// so a request without an attached identity has no role at all.
func Allowed(role models.Role, allow ...models.Role) bool {
	if role == "" {
		return false
	}
	for _, a := range allow {
		if a == role {
			return true
		}
	}
	return false
}

// Actor returns the acting identity attached by auth.Authenticate.
// ok=false when no user is attached or the id is malformed; callers
// treat that as Unauthenticated.
func Actor(r *http.Request) (models.Actor, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return models.Actor{}, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return models.Actor{}, false
	}
	role, _ := models.ParseRole(u.Role)
	return models.Actor{ID: id, Role: role}, true
}

// RequireRole admits the request only when the attached role is in allowed.
// A missing identity yields 403 here as well: this gate sits after
// Authenticate, so reaching it without a user means the pipeline is
// misconfigured, and it must fail closed.
func RequireRole(log *zap.Logger, allowed ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := Actor(r)
			if !ok || !Allowed(actor.Role, allowed...) {
				jsonresp.Error(w, r, log, apperr.Forbidden("you do not have permission to perform this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
