package database

import (
	"context"
	"fmt"

	"equiherds-backend/models"

	"gorm.io/gorm"
)

// AutoMigrate brings the schema up to date. It is idempotent and runs once
// per freshly connected handle (Options.OnConnect).
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}
