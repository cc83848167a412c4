package database

import (
	"gorm.io/gorm"

	"github.com/aubus-project/aubus/internal/models"
)

// Migrate creates or updates the schema. Shared between the postgres path in
// InitDB and the sqlite-backed tests.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ScheduleEntry{},
		&models.Ride{},
		&models.RideOffer{},
		&models.Rating{},
		&models.Message{},
	)
}
