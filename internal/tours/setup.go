package tours

import (
	"github.com/Tosino95/natours/internal/db"
	"github.com/Tosino95/natours/internal/reviews"
	"gorm.io/gorm"
)

// Setup ensures the schema and the tour/review tables exist. Reviews migrate
// here because their table carries the tour foreign key.
func Setup(d *gorm.DB) error {
	if err := db.EnsureSchema(d, "natours"); err != nil {
		return err
	}
	return d.AutoMigrate(&Tour{}, &reviews.Review{})
}
