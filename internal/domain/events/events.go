package events

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	GoalCompleted        = "goal_completed"
	CourseStarted        = "course_started"
	CourseCompleted      = "course_completed"
	StreakAchieved       = "streak_achieved"
	MilestoneReached     = "milestone_reached"
	InactiveWarning      = "inactive_warning"
	ProfileUpdated       = "profile_updated"
	JourneyStarted       = "journey_started"
	JourneyStepCompleted = "journey_step_completed"
	JourneyCompleted     = "journey_completed"
)

// ProgressEvent is an append-only domain event. Only Processed/ProcessedAt change after insert.
type ProgressEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	EventType   string         `gorm:"column:event_type;not null;index" json:"event_type"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	OccurredAt  time.Time      `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	Processed   bool           `gorm:"column:processed;not null;default:false;index" json:"processed"`
	ProcessedAt *time.Time     `gorm:"column:processed_at" json:"processed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (ProgressEvent) TableName() string { return "progress_event" }

func (e *ProgressEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
