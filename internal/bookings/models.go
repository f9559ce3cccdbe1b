package bookings

import (
	"errors"
	"time"

	"github.com/Tosino95/natours/internal/query"
	"github.com/Tosino95/natours/internal/tours"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking records a paid (or comped) reservation of a tour by a user.
type Booking struct {
	ID     string `gorm:"primaryKey" json:"id"`
	TourID string `gorm:"not null;index" json:"tour"`
	UserID string `gorm:"not null;index" json:"user"`

	// Price at booking time; the tour's price may change later.
	Price float64 `gorm:"not null" json:"price"`
	Paid  bool    `gorm:"not null;default:true" json:"paid"`

	Tour *tours.Tour `gorm:"foreignKey:TourID" json:"tourDetails,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

func (Booking) TableName() string { return "natours.bookings" }

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

func (b *Booking) Validate() error {
	if b.TourID == "" {
		return errors.New("booking must belong to a tour")
	}
	if b.UserID == "" {
		return errors.New("booking must belong to a user")
	}
	if b.Price <= 0 {
		return errors.New("booking must have a price")
	}
	return nil
}

// Schema exposes bookings to the query pipeline.
func Schema() query.Schema {
	return query.Schema{
		Columns: map[string]string{
			"id":        "id",
			"tour":      "tour_id",
			"user":      "user_id",
			"price":     "price",
			"paid":      "paid",
			"createdAt": "created_at",
		},
		DefaultSort: "created_at DESC",
	}
}
