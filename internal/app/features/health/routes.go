// internal/app/features/health/routes.go
package health

import "github.com/go-chi/chi/v5"

// Routes serves /health and, when configured, /metrics. Mount at "/".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.Serve)
	if h.Metrics != nil {
		r.Method("GET", "/metrics", h.Metrics)
	}
	return r
}
