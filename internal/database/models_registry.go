package database

import (
	"arcanum/internal/models"

	"gorm.io/gorm"
)

// registeredModels is the single source of truth for the schema.
var registeredModels = []interface{}{
	&models.WalletSession{},
	&models.Content{},
	&models.AccessGrant{},
	&models.VoteRecord{},
	&models.Reply{},
}

// AutoMigrate creates or updates tables for every registered model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(registeredModels...)
}
