package reviews

import (
	"errors"
	"time"

	"github.com/Tosino95/natours/internal/query"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a user's rating of a tour; one review per user per tour.
type Review struct {
	ID     string  `gorm:"primaryKey" json:"id"`
	Review string  `gorm:"not null" json:"review"`
	Rating float64 `gorm:"not null" json:"rating"`

	TourID string `gorm:"not null;index;uniqueIndex:idx_reviews_tour_user" json:"tour"`
	UserID string `gorm:"not null;uniqueIndex:idx_reviews_tour_user" json:"user"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

func (Review) TableName() string { return "natours.reviews" }

func (rv *Review) BeforeCreate(tx *gorm.DB) error {
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	return nil
}

func (rv *Review) Validate() error {
	if rv.Review == "" {
		return errors.New("review cannot be empty")
	}
	if rv.Rating < 1 || rv.Rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	if rv.TourID == "" {
		return errors.New("review must belong to a tour")
	}
	if rv.UserID == "" {
		return errors.New("review must belong to a user")
	}
	return nil
}

// Schema exposes reviews to the query pipeline.
func Schema() query.Schema {
	return query.Schema{
		Columns: map[string]string{
			"id":        "id",
			"rating":    "rating",
			"tour":      "tour_id",
			"user":      "user_id",
			"createdAt": "created_at",
		},
		DefaultSort: "created_at DESC",
	}
}

// RecalcTourRatings recomputes the denormalized rating aggregates on the
// reviewed tour. Called explicitly after every review write; a tour with no
// reviews falls back to the 4.5 / 0 defaults.
func RecalcTourRatings(d *gorm.DB, tourID string) error {
	return d.Exec(`
		UPDATE natours.tours SET
			ratings_quantity = stats.qty,
			ratings_average  = stats.avg
		FROM (
			SELECT
				COUNT(*) AS qty,
				COALESCE(ROUND(AVG(rating)::numeric, 1), 4.5) AS avg
			FROM natours.reviews
			WHERE tour_id = ?
		) AS stats
		WHERE id = ?`, tourID, tourID).Error
}
