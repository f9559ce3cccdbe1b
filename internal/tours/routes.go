package tours

import (
	"net/http"

	"github.com/Tosino95/natours/internal/middleware"
	"github.com/Tosino95/natours/internal/resource"
	"github.com/Tosino95/natours/internal/reviews"
	"github.com/Tosino95/natours/internal/users"
	"github.com/go-chi/chi/v5"
)

// NewFactory builds the generic tour CRUD operations; single-tour reads
// eager-load the tour's reviews.
func NewFactory(h *Handler) *resource.Resource[Tour] {
	return &resource.Resource[Tour]{
		DB:          h.DB,
		Name:        "tour",
		Plural:      "tours",
		Schema:      Schema(),
		GetPreloads: []string{"Reviews"},
	}
}

// SetupRoutes wires the tour endpoints, with review routes nested under
// /{tourId}/reviews.
func (h *Handler) SetupRoutes(guard middleware.Guard) http.Handler {
	factory := NewFactory(h)
	staffOnly := middleware.RestrictTo(users.RoleAdmin, users.RoleLeadGuide)

	r := chi.NewRouter()

	r.Mount("/{tourId}/reviews", reviews.SetupRoutes(h.DB, guard))

	r.Get("/top-5-cheap", AliasTopTours(factory.List))
	r.Get("/tour-stats", h.GetTourStats)
	r.With(guard.Protect, middleware.RestrictTo(users.RoleAdmin, users.RoleLeadGuide, users.RoleGuide)).
		Get("/monthly-plan/{year}", h.GetMonthlyPlan)

	r.Get("/tours-within/{distance}/center/{latlng}/unit/{unit}", h.GetToursWithin)
	r.Get("/distances/{latlng}/unit/{unit}", h.GetDistances)

	r.Get("/", factory.List)
	r.With(guard.Protect, staffOnly).Post("/", factory.Create)

	r.Get("/{id}", factory.GetByID)
	r.With(guard.Protect, staffOnly).Patch("/{id}", factory.Update)
	r.With(guard.Protect, staffOnly).Patch("/{id}/images", h.UploadImages)
	r.With(guard.Protect, staffOnly).Delete("/{id}", factory.Delete)

	return r
}
