package tours

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Tosino95/natours/internal/query"
	"github.com/Tosino95/natours/internal/reviews"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// Location is a GeoJSON-style point embedded in a tour.
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lng, lat]
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	Day         int       `json:"day,omitempty"`
}

// Tour is the main product entity.
type Tour struct {
	ID   string `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null;uniqueIndex" json:"name"`
	Slug string `gorm:"index" json:"slug"`

	Duration     float64 `gorm:"not null" json:"duration"`
	MaxGroupSize int     `gorm:"not null" json:"maxGroupSize"`
	Difficulty   string  `gorm:"not null" json:"difficulty"`

	RatingsAverage  float64 `gorm:"default:4.5" json:"ratingsAverage"`
	RatingsQuantity int     `gorm:"default:0" json:"ratingsQuantity"`

	Price         float64 `gorm:"not null" json:"price"`
	PriceDiscount float64 `json:"priceDiscount,omitempty"`

	Summary     string `gorm:"not null" json:"summary"`
	Description string `json:"description,omitempty"`

	ImageCover string         `json:"imageCover"`
	Images     pq.StringArray `gorm:"type:text[]" json:"images"`

	StartDates []time.Time `gorm:"type:jsonb;serializer:json" json:"startDates"`

	SecretTour bool `gorm:"not null;default:false" json:"secretTour"`

	StartLocation Location   `gorm:"type:jsonb;serializer:json" json:"startLocation"`
	Locations     []Location `gorm:"type:jsonb;serializer:json" json:"locations"`

	// Guide accounts referenced by id; resolved explicitly when needed.
	GuideIDs pq.StringArray `gorm:"type:text[]" json:"guides"`

	// Reviews are eager-loaded on single-tour reads.
	Reviews []reviews.Review `gorm:"foreignKey:TourID" json:"reviews,omitempty"`

	// DurationWeeks is derived at read time, never persisted.
	DurationWeeks float64 `gorm:"-" json:"durationWeeks"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

func (Tour) TableName() string { return "natours.tours" }

func (t *Tour) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Slug == "" {
		t.Slug = Slugify(t.Name)
	}
	return nil
}

// BeforeSave keeps the stored average at one-decimal precision.
func (t *Tour) BeforeSave(tx *gorm.DB) error {
	t.RatingsAverage = math.Round(t.RatingsAverage*10) / 10
	return nil
}

// Derive computes the read-time fields.
func (t *Tour) Derive() {
	if t.Duration > 0 {
		t.DurationWeeks = t.Duration / 7
	}
}

// Validate evaluates the declarative constraints against the fully
// materialized candidate, so rules may reference sibling fields.
func (t *Tour) Validate() error {
	if n := len(t.Name); n < 10 || n > 40 {
		return errors.New("a tour name must have between 10 and 40 characters")
	}
	if t.Duration <= 0 {
		return errors.New("a tour must have a duration")
	}
	if t.MaxGroupSize <= 0 {
		return errors.New("a tour must have a group size")
	}
	switch t.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
	default:
		return errors.New("difficulty is either: easy, medium, difficult")
	}
	if t.RatingsAverage < 1 || t.RatingsAverage > 5 {
		return errors.New("ratings must be between 1.0 and 5.0")
	}
	if t.Price <= 0 {
		return errors.New("a tour must have a price")
	}
	if t.PriceDiscount != 0 && t.PriceDiscount >= t.Price {
		return fmt.Errorf("discount price (%.0f) should be below the regular price", t.PriceDiscount)
	}
	if t.Summary == "" {
		return errors.New("a tour must have a summary")
	}
	return nil
}

// Schema exposes tours to the query pipeline. Secret tours are filtered out
// of every default read at query construction time.
func Schema() query.Schema {
	return query.Schema{
		Columns: map[string]string{
			"id":              "id",
			"name":            "name",
			"slug":            "slug",
			"duration":        "duration",
			"maxGroupSize":    "max_group_size",
			"difficulty":      "difficulty",
			"ratingsAverage":  "ratings_average",
			"ratingsQuantity": "ratings_quantity",
			"price":           "price",
			"priceDiscount":   "price_discount",
			"summary":         "summary",
			"description":     "description",
			"createdAt":       "created_at",
		},
		BaseFilter: func(tx *gorm.DB) *gorm.DB {
			return tx.Where("secret_tour = ?", false)
		},
		DefaultSort: "created_at DESC",
	}
}
