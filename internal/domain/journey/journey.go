package journey

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusPaused    = "paused"
	StatusAbandoned = "abandoned"
)

// Progress is a user's position in the onboarding journey. One row per user.
type Progress struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CurrentPhase   string     `gorm:"column:current_phase;not null" json:"current_phase"`
	CurrentStep    int        `gorm:"column:current_step;not null" json:"current_step"`
	Status         string     `gorm:"column:status;not null;index" json:"status"`
	CatalogVersion string     `gorm:"column:catalog_version;not null" json:"catalog_version"`
	StartedAt      time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	LastActivity   time.Time  `gorm:"column:last_activity;not null" json:"last_activity"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Progress) TableName() string { return "journey_progress" }

func (p *Progress) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type StepCompletion struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_journey_step_completion_unique,priority:1" json:"user_id"`
	Phase           string         `gorm:"column:phase;not null;uniqueIndex:idx_journey_step_completion_unique,priority:2" json:"phase"`
	Step            int            `gorm:"column:step;not null;uniqueIndex:idx_journey_step_completion_unique,priority:3" json:"step"`
	Response        datatypes.JSON `gorm:"column:response;type:jsonb" json:"response,omitempty"`
	DurationSeconds int            `gorm:"column:duration_seconds;not null;default:0" json:"duration_seconds"`
	CompletedAt     time.Time      `gorm:"column:completed_at;not null" json:"completed_at"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (StepCompletion) TableName() string { return "journey_step_completion" }

func (s *StepCompletion) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
