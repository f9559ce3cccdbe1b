package tours

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"The Forest Hiker", "the-forest-hiker"},
		{"The Sea Explorer!", "the-sea-explorer"},
		{"Café & Vineyard Tour", "cafe-vineyard-tour"},
		{"  Spaced   Out  ", "spaced-out"},
		{"UPPER lower 123", "upper-lower-123"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.name), tt.name)
	}
}
