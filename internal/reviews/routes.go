package reviews

import (
	"net/http"

	"github.com/Tosino95/natours/internal/apperror"
	"github.com/Tosino95/natours/internal/middleware"
	"github.com/Tosino95/natours/internal/resource"
	"github.com/Tosino95/natours/internal/utils"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// NewFactory builds the review CRUD operations. On nested routes
// (/tours/{tourId}/reviews) the tour id comes from the URL and the user id
// from the authenticated context when the payload leaves them unset; every
// write recomputes the tour's rating aggregates.
func NewFactory(d *gorm.DB) *resource.Resource[Review] {
	recalc := func(tx *gorm.DB, rv *Review) error {
		if err := RecalcTourRatings(tx, rv.TourID); err != nil {
			return apperror.Internal("recomputing tour ratings", err)
		}
		return nil
	}

	return &resource.Resource[Review]{
		DB:     d,
		Name:   "review",
		Plural: "reviews",
		Schema: Schema(),
		BeforeCreate: func(r *http.Request, rv *Review) error {
			if rv.TourID == "" {
				rv.TourID = chi.URLParam(r, "tourId")
			}
			if rv.UserID == "" {
				if user, ok := utils.GetAuthUser(r.Context()); ok {
					rv.UserID = user.ID
				}
			}
			return nil
		},
		// A review stays on its tour and author; reassigning it would leave
		// the old tour's aggregates stale.
		BeforeUpdate: func(stored, merged *Review) error {
			merged.TourID = stored.TourID
			merged.UserID = stored.UserID
			return nil
		},
		AfterCreate: recalc,
		AfterUpdate: recalc,
		AfterDelete: recalc,
	}
}

// SetupRoutes serves both the standalone /reviews tree and the nested
// /tours/{tourId}/reviews tree; chi carries the tourId param through the
// mount.
func SetupRoutes(d *gorm.DB, guard middleware.Guard) http.Handler {
	factory := NewFactory(d)

	r := chi.NewRouter()
	r.Use(guard.Protect)

	r.Get("/", listScoped(factory))
	r.With(middleware.RestrictTo("user")).Post("/", factory.Create)

	r.Get("/{id}", factory.GetByID)
	r.With(middleware.RestrictTo("user", "admin")).Patch("/{id}", factory.Update)
	r.With(middleware.RestrictTo("user", "admin")).Delete("/{id}", factory.Delete)

	return r
}

// listScoped narrows the list to one tour when reached through the nested
// route, by injecting the path param as a filter before the generic handler
// parses the query.
func listScoped(factory *resource.Resource[Review]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tourID := chi.URLParam(r, "tourId"); tourID != "" {
			q := r.URL.Query()
			q.Set("tour", tourID)
			r.URL.RawQuery = q.Encode()
		}
		factory.List(w, r)
	}
}
