package engagement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Type string

const (
	TypeMorningMotivation Type = "morning_motivation"
	TypeProgressReminder  Type = "progress_reminder"
	TypeEveningCheckin    Type = "evening_checkin"
	TypeWeeklyReflection  Type = "weekly_reflection"
	TypeStreakCelebration Type = "streak_celebration"
)

const (
	StatusScheduled = "scheduled"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Schedule is one planned engagement. ScheduledDay is the user-local calendar
// day (YYYY-MM-DD) and together with UserID and Type forms the uniqueness key.
type Schedule struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_engagement_schedule_user_type_day,priority:1" json:"user_id"`
	Type          Type           `gorm:"column:type;not null;uniqueIndex:idx_engagement_schedule_user_type_day,priority:2" json:"type"`
	ScheduledDay  string         `gorm:"column:scheduled_day;type:varchar(10);not null;uniqueIndex:idx_engagement_schedule_user_type_day,priority:3" json:"scheduled_day"`
	ScheduledFor  time.Time      `gorm:"column:scheduled_for;not null;index" json:"scheduled_for"`
	Status        string         `gorm:"column:status;not null;index" json:"status"`
	Channel       string         `gorm:"column:channel;not null" json:"channel"`
	Title         string         `gorm:"column:title" json:"title,omitempty"`
	Content       string         `gorm:"column:content" json:"content,omitempty"`
	Metadata      datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	DeliveredAt   *time.Time     `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	FailureReason string         `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	Attempts      int            `gorm:"column:attempts;not null;default:0" json:"attempts"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime;index" json:"updated_at"`
}

func (Schedule) TableName() string { return "engagement_schedule" }

func (s *Schedule) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
