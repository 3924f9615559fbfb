package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
)

// migratedModels is every table of the service, in dependency order
var migratedModels = []interface{}{
	&domain.Project{},
	&domain.ProjectStage{},
	&domain.Document{},
	&domain.ProjectFeedback{},
	&domain.Reviewer{},
	&domain.ReviewerArea{},
	&domain.ProjectHistory{},
	&domain.OutboxEvent{},
}

// AutoMigrate creates or updates the schema for all domain models in one
// pass. Tests use this directly against in-memory SQLite.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(migratedModels...); err != nil {
		return fmt.Errorf("failed to run auto-migration: %w", err)
	}
	return nil
}

// SafeAutoMigrate migrates one table at a time so a failure names the table
// it broke on. Existing tables only receive additive schema changes.
func SafeAutoMigrate(db *gorm.DB, logger *zap.Logger) error {
	migrator := db.Migrator()

	for _, model := range migratedModels {
		existed := migrator.HasTable(model)
		if err := db.AutoMigrate(model); err != nil {
			stmt := &gorm.Statement{DB: db}
			_ = stmt.Parse(model)
			logger.Error("Failed to migrate table",
				zap.String("table", stmt.Table),
				zap.Bool("table_existed", existed),
				zap.Error(err),
			)
			return fmt.Errorf("failed to migrate table %s: %w", stmt.Table, err)
		}
	}

	logger.Info("Auto-migration completed",
		zap.Int("tables", len(migratedModels)),
	)
	return nil
}

// SafeAutoMigrateWithRetry retries SafeAutoMigrate with linear backoff.
// Fresh deployments often race the database container coming up.
func SafeAutoMigrateWithRetry(db *gorm.DB, logger *zap.Logger, maxRetries int) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = SafeAutoMigrate(db, logger); err == nil {
			return nil
		}
		if attempt < maxRetries {
			backoff := time.Duration(attempt) * time.Second
			logger.Warn("Migration attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			time.Sleep(backoff)
		}
	}
	return fmt.Errorf("migration failed after %d attempts: %w", maxRetries, err)
}
