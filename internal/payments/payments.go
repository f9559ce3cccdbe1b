// Package payments abstracts the checkout gateway. The real gateway is an
// external collaborator; the application only needs a session to redirect the
// client to.
package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CheckoutSession is what the client needs to complete a payment.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutItem describes the tour being purchased.
type CheckoutItem struct {
	TourID   string
	TourName string
	// Price in the store's base currency unit.
	Price float64
	// CustomerEmail ties the session back to the booking user.
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Provider creates checkout sessions with the payment gateway.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, item CheckoutItem) (CheckoutSession, error)
}

// DevProvider fakes the gateway for development: it issues a session id and a
// redirect straight to the success URL.
type DevProvider struct{}

func (DevProvider) CreateCheckoutSession(_ context.Context, item CheckoutItem) (CheckoutSession, error) {
	id := "cs_dev_" + uuid.NewString()
	return CheckoutSession{
		ID:  id,
		URL: fmt.Sprintf("%s?session=%s&tour=%s", item.SuccessURL, id, item.TourID),
	}, nil
}
