// internal/app/features/profile/routes.go
package profile

import (
	"github.com/dalemusser/learnhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the profile API, typically at "/profile". Every route
// requires a signed-in user.
func Routes(h *Handler, tm *auth.TokenManager) chi.Router {
	r := chi.NewRouter()
	r.Use(tm.Authenticate)
	r.Get("/user/{id}", h.ServeProfile)
	r.Post("/user/{id}/follow", h.HandleFollow)
	r.Delete("/user/{id}/follow", h.HandleUnfollow)
	r.Get("/user/{id}/followers", h.ServeFollowers)
	r.Get("/user/{id}/following", h.ServeFollowing)
	return r
}
