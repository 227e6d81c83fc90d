package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/famspace-backend/internal/domain"
)

// AutoMigrateAll creates tables plus the constraints the growth invariants rely on.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	// At most one growing plant per family.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_plant_family_growing
		ON plant (family_space_id)
		WHERE completed = false
	`).Error; err != nil {
		return fmt.Errorf("create idx_plant_family_growing: %w", err)
	}
	return nil
}
