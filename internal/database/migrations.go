package database

import (
	"github.com/NETWORK-Z-Dev/dSyncShop/internal/models"

	"gorm.io/gorm"
)

// Migrate provisions the shop tables. Order matters: every table is created
// after the tables its foreign keys point at.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	)
}
