// internal/app/features/courses/routes.go
package courses

import (
	"github.com/dalemusser/learnhub/internal/app/system/auth"
	"github.com/dalemusser/learnhub/internal/app/system/authz"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the course API under whatever base path the caller chooses
// (typically "/course" from bootstrap).
//
// Gate order on protected routes: Authenticate, then RequireRole, then the
// handler (which runs the ownership check for update and delete).
func Routes(h *Handler, tm *auth.TokenManager) chi.Router {
	r := chi.NewRouter()

	// Public catalog.
	r.Get("/AllCourses", h.ServeAll)
	r.Get("/CourseDetail/{courseId}", h.ServeDetail)
	r.Get("/search", h.ServeSearch)

	r.Group(func(pr chi.Router) {
		pr.Use(tm.Authenticate)

		pr.Group(func(ir chi.Router) {
			ir.Use(authz.RequireRole(h.Log, models.RoleInstructor, models.RoleAdmin))
			ir.Post("/create", h.HandleCreate)
			ir.Put("/update/{courseId}", h.HandleUpdate)
			ir.Post("/delete/{courseId}", h.HandleDelete)
			ir.Get("/MyCourses/{instructorId}", h.ServeByInstructor)
		})

		pr.With(authz.RequireRole(h.Log, models.RoleStudent, models.RoleInstructor, models.RoleAdmin)).
			Get("/my-courses", h.ServeEnrolled)

		pr.With(authz.RequireRole(h.Log, models.RoleStudent)).
			Post("/enrollInACourse/{courseId}", h.HandleEnroll)
	})

	return r
}
