// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/learnhub/internal/app/system/auth"
	"github.com/dalemusser/learnhub/internal/app/system/authz"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit viewer, typically at "/audit". Admins only.
func Routes(h *Handler, tm *auth.TokenManager) chi.Router {
	r := chi.NewRouter()
	r.Use(tm.Authenticate)
	r.Use(authz.RequireRole(h.Log, models.RoleAdmin))
	r.Get("/", h.ServeList)
	return r
}
