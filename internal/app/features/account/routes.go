// internal/app/features/account/routes.go
package account

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the account API, typically at "/user".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/signup", h.HandleSignup)
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)
	r.Post("/verify", h.HandleVerify)
	r.Post("/resend-otp", h.HandleResend)

	r.With(h.Tokens.Authenticate).Get("/me", h.ServeMe)

	return r
}
