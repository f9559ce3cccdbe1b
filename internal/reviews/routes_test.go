package reviews

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// An update cannot move a review to another tour or author; otherwise the
// post-write recalculation would miss the tour the review left.
func TestUpdateKeepsReviewOnItsTourAndAuthor(t *testing.T) {
	factory := NewFactory(nil)
	require.NotNil(t, factory.BeforeUpdate)

	stored := Review{ID: "r1", TourID: "t1", UserID: "u1", Review: "great", Rating: 4}
	merged := stored
	merged.TourID = "t2"
	merged.UserID = "u9"
	merged.Rating = 5

	require.NoError(t, factory.BeforeUpdate(&stored, &merged))

	assert.Equal(t, "t1", merged.TourID)
	assert.Equal(t, "u1", merged.UserID)
	assert.Equal(t, 5.0, merged.Rating)
	assert.Equal(t, "great", merged.Review)
}
