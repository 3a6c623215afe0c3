package activity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const StreakDaily = "daily_engagement"

// Log is one user activity signal counted by badge criteria.
type Log struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_activity_log_user_type,priority:1" json:"user_id"`
	ActivityType string         `gorm:"column:activity_type;not null;index:idx_activity_log_user_type,priority:2" json:"activity_type"`
	OccurredAt   time.Time      `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	Metadata     datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	// DedupeKey, when set, makes replaying the same source a no-op.
	DedupeKey *string `gorm:"column:dedupe_key;uniqueIndex" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Log) TableName() string { return "activity_log" }

func (l *Log) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Streak counts consecutive user-local days with activity.
type Streak struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_streak_unique,priority:1" json:"user_id"`
	StreakType       string    `gorm:"column:streak_type;not null;uniqueIndex:idx_user_streak_unique,priority:2" json:"streak_type"`
	CurrentStreak    int       `gorm:"column:current_streak;not null;default:0" json:"current_streak"`
	LongestStreak    int       `gorm:"column:longest_streak;not null;default:0" json:"longest_streak"`
	LastActivityDate string    `gorm:"column:last_activity_date;type:varchar(10)" json:"last_activity_date"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Streak) TableName() string { return "user_streak" }

func (s *Streak) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

const (
	GoalStatusOpen      = "open"
	GoalStatusCompleted = "completed"
)

type Goal struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Status      string     `gorm:"column:status;not null;index" json:"status"`
	CompletedAt *time.Time `gorm:"column:completed_at;index" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Goal) TableName() string { return "goal" }

func (g *Goal) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// Milestone is one occurrence of a named achievement. Reference identifies the
// occurrence (usually the originating event id) so replays do not double count.
type Milestone struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_milestone_unique,priority:1" json:"user_id"`
	Key        string    `gorm:"column:milestone_key;not null;uniqueIndex:idx_milestone_unique,priority:2" json:"key"`
	Reference  string    `gorm:"column:reference;not null;uniqueIndex:idx_milestone_unique,priority:3" json:"reference"`
	Value      int       `gorm:"column:value;not null;default:0" json:"value"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null" json:"occurred_at"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Milestone) TableName() string { return "milestone" }

func (m *Milestone) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
