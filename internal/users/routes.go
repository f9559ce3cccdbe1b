package users

import (
	"net/http"

	"github.com/Tosino95/natours/internal/middleware"
	"github.com/Tosino95/natours/internal/resource"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes wires the account flows and the admin-only user CRUD.
func (h *Handler) SetupRoutes(guard middleware.Guard) http.Handler {
	r := chi.NewRouter()

	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)
	r.Post("/forgotPassword", h.ForgotPassword)
	r.Patch("/resetPassword/{token}", h.ResetPassword)

	factory := &resource.Resource[User]{
		DB:     h.DB,
		Name:   "user",
		Plural: "users",
		Schema: Schema(),
	}

	// Everything below requires authentication.
	r.Group(func(r chi.Router) {
		r.Use(guard.Protect)

		r.Patch("/updateMyPassword", h.UpdatePassword)
		r.Get("/me", h.GetMe)
		r.Patch("/updateMe", h.UpdateMe)
		r.Delete("/deleteMe", h.DeleteMe)

		// Admin-only collection management.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RestrictTo(RoleAdmin))

			r.Get("/", factory.List)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", factory.GetByID)
			r.Patch("/{id}", factory.Update) // do NOT update passwords with this
			r.Delete("/{id}", factory.Delete)
		})
	})

	return r
}
