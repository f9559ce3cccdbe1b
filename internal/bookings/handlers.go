package bookings

import (
	"fmt"
	"net/http"

	"github.com/Tosino95/natours/internal/apperror"
	"github.com/Tosino95/natours/internal/payments"
	"github.com/Tosino95/natours/internal/tours"
	"github.com/Tosino95/natours/internal/utils"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// Handler serves the checkout flow and the user's own bookings.
type Handler struct {
	DB       *gorm.DB
	Provider payments.Provider
}

// GetCheckoutSession asks the payment gateway for a session the client can
// redirect to. The booking itself is created when the gateway reports the
// session complete.
func (h *Handler) GetCheckoutSession(w http.ResponseWriter, r *http.Request) {
	current, _ := utils.GetAuthUser(r.Context())

	var tour tours.Tour
	err := h.DB.Where("secret_tour = ?", false).First(&tour, "id = ?", chi.URLParam(r, "tourId")).Error
	if err != nil {
		apperror.Respond(w, apperror.FromDB(err, "tour"))
		return
	}

	base := fmt.Sprintf("%s://%s", requestScheme(r), r.Host)
	session, err := h.Provider.CreateCheckoutSession(r.Context(), payments.CheckoutItem{
		TourID:        tour.ID,
		TourName:      tour.Name,
		Price:         tour.Price,
		CustomerEmail: current.Email,
		SuccessURL:    base + "/api/v1/bookings/checkout-complete",
		CancelURL:     base + "/api/v1/tours/" + tour.ID,
	})
	if err != nil {
		apperror.Respond(w, apperror.Internal("creating checkout session", err))
		return
	}
	utils.Success(w, http.StatusOK, map[string]any{"session": session})
}

// CheckoutComplete records the booking once the gateway redirects back with
// a completed session.
func (h *Handler) CheckoutComplete(w http.ResponseWriter, r *http.Request) {
	current, _ := utils.GetAuthUser(r.Context())

	tourID := r.URL.Query().Get("tour")
	if tourID == "" {
		apperror.Respond(w, apperror.Validation("missing tour in checkout callback"))
		return
	}
	var tour tours.Tour
	if err := h.DB.First(&tour, "id = ?", tourID).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, "tour"))
		return
	}

	booking := Booking{
		TourID: tour.ID,
		UserID: current.ID,
		Price:  tour.Price,
		Paid:   true,
	}
	if err := booking.Validate(); err != nil {
		apperror.Respond(w, apperror.Validation(err.Error()))
		return
	}
	if err := h.DB.Create(&booking).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, "booking"))
		return
	}
	utils.Success(w, http.StatusCreated, map[string]any{"booking": booking})
}

// GetMyTours lists the tours the current user has booked.
func (h *Handler) GetMyTours(w http.ResponseWriter, r *http.Request) {
	current, _ := utils.GetAuthUser(r.Context())

	var myBookings []Booking
	if err := h.DB.Find(&myBookings, "user_id = ?", current.ID).Error; err != nil {
		apperror.Respond(w, apperror.FromDB(err, "booking"))
		return
	}

	tourIDs := make([]string, 0, len(myBookings))
	for _, b := range myBookings {
		tourIDs = append(tourIDs, b.TourID)
	}
	booked := []tours.Tour{}
	if len(tourIDs) > 0 {
		if err := h.DB.Find(&booked, "id IN ?", tourIDs).Error; err != nil {
			apperror.Respond(w, apperror.FromDB(err, "tour"))
			return
		}
	}
	for i := range booked {
		booked[i].Derive()
	}
	utils.SuccessList(w, len(booked), map[string]any{"tours": booked})
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
