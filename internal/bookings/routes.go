package bookings

import (
	"net/http"

	"github.com/Tosino95/natours/internal/middleware"
	"github.com/Tosino95/natours/internal/resource"
	"github.com/Tosino95/natours/internal/users"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes wires the checkout flow and the staff-only booking CRUD.
// Everything here requires authentication.
func (h *Handler) SetupRoutes(guard middleware.Guard) http.Handler {
	factory := &resource.Resource[Booking]{
		DB:          h.DB,
		Name:        "booking",
		Plural:      "bookings",
		Schema:      Schema(),
		GetPreloads: []string{"Tour"},
	}

	r := chi.NewRouter()
	r.Use(guard.Protect)

	r.Get("/checkout-session/{tourId}", h.GetCheckoutSession)
	r.Get("/checkout-complete", h.CheckoutComplete)
	r.Get("/my-tours", h.GetMyTours)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RestrictTo(users.RoleAdmin, users.RoleLeadGuide))

		r.Get("/", factory.List)
		r.Post("/", factory.Create)
		r.Get("/{id}", factory.GetByID)
		r.Patch("/{id}", factory.Update)
		r.Delete("/{id}", factory.Delete)
	})

	return r
}
