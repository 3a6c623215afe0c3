package db

import (
	"fmt"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.AllModels()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// EnsureIndexes creates indexes gorm tags cannot express.
func EnsureIndexes(db *gorm.DB) error {
	if err := EnsureEnrollmentIndexes(db); err != nil {
		return err
	}
	return EnsureDeliveryIndexes(db)
}

// EnsureEnrollmentIndexes enforces at most one active enrollment per (client, sequence)
// and at most one enrollment per (client, sequence, trigger_ref).
func EnsureEnrollmentIndexes(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_enrollment_active_unique
		ON client_sequence_enrollment (client_id, sequence_id)
		WHERE status = 'active'
	`).Error; err != nil {
		return fmt.Errorf("create idx_enrollment_active_unique: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_enrollment_trigger_ref_unique
		ON client_sequence_enrollment (client_id, sequence_id, trigger_ref)
		WHERE trigger_ref IS NOT NULL
	`).Error; err != nil {
		return fmt.Errorf("create idx_enrollment_trigger_ref_unique: %w", err)
	}
	return nil
}

func EnsureDeliveryIndexes(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_engagement_schedule_due
		ON engagement_schedule (status, scheduled_for)
	`).Error; err != nil {
		return fmt.Errorf("create idx_engagement_schedule_due: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_progress_event_pending
		ON progress_event (processed, occurred_at)
	`).Error; err != nil {
		return fmt.Errorf("create idx_progress_event_pending: %w", err)
	}
	return nil
}
