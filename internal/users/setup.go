package users

import (
	"github.com/Tosino95/natours/internal/db"
	"gorm.io/gorm"
)

// Setup ensures the schema and tables exist.
func Setup(d *gorm.DB) error {
	if err := db.EnsureSchema(d, "natours"); err != nil {
		return err
	}
	return d.AutoMigrate(&User{})
}
