package tours

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTour() Tour {
	return Tour{
		Name:           "The Forest Hiker",
		Duration:       5,
		MaxGroupSize:   25,
		Difficulty:     DifficultyEasy,
		RatingsAverage: 4.5,
		Price:          397,
		Summary:        "Breathtaking hike through the Canadian Banff National Park",
	}
}

func TestTourValidate_OK(t *testing.T) {
	tour := validTour()
	require.NoError(t, tour.Validate())
}

func TestTourValidate_NameLength(t *testing.T) {
	tour := validTour()

	tour.Name = "Too short"
	assert.Error(t, tour.Validate())

	tour.Name = "This tour name is way way way too long to be acceptable"
	assert.Error(t, tour.Validate())
}

func TestTourValidate_Difficulty(t *testing.T) {
	tour := validTour()
	tour.Difficulty = "impossible"
	assert.Error(t, tour.Validate())
}

func TestTourValidate_RatingBounds(t *testing.T) {
	tour := validTour()

	tour.RatingsAverage = 0.9
	assert.Error(t, tour.Validate())

	tour.RatingsAverage = 5.1
	assert.Error(t, tour.Validate())

	tour.RatingsAverage = 5
	assert.NoError(t, tour.Validate())
}

// The discount constraint references a sibling field, so it must be checked
// against the materialized record.
func TestTourValidate_DiscountBelowPrice(t *testing.T) {
	tour := validTour()

	tour.PriceDiscount = tour.Price - 1
	assert.NoError(t, tour.Validate())

	tour.PriceDiscount = tour.Price
	assert.Error(t, tour.Validate())

	tour.PriceDiscount = tour.Price + 100
	assert.Error(t, tour.Validate())
}

func TestTourDerive_DurationWeeks(t *testing.T) {
	tour := validTour()
	tour.Duration = 14

	tour.Derive()

	assert.Equal(t, 2.0, tour.DurationWeeks)
}

func TestTourBeforeCreate_SetsIDAndSlug(t *testing.T) {
	tour := validTour()

	require.NoError(t, tour.BeforeCreate(nil))

	assert.NotEmpty(t, tour.ID)
	assert.Equal(t, "the-forest-hiker", tour.Slug)

	// An explicit slug is kept.
	tour2 := validTour()
	tour2.Slug = "custom-slug"
	require.NoError(t, tour2.BeforeCreate(nil))
	assert.Equal(t, "custom-slug", tour2.Slug)
}

func TestTourBeforeSave_RoundsRatings(t *testing.T) {
	tour := validTour()
	tour.RatingsAverage = 4.666666

	require.NoError(t, tour.BeforeSave(nil))

	assert.Equal(t, 4.7, tour.RatingsAverage)
}

func TestTourSchema_HidesSecretTours(t *testing.T) {
	s := Schema()

	// secretTour is not filterable, sortable or selectable.
	_, ok := s.Columns["secretTour"]
	assert.False(t, ok)
	assert.NotNil(t, s.BaseFilter)
}
