package sequences

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
	EnrollmentPaused    = "paused"
)

// Sequence is a trigger-activated multi-step communication campaign.
type Sequence struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description  string    `gorm:"column:description" json:"description,omitempty"`
	TriggerEvent string    `gorm:"column:trigger_event;not null;index" json:"trigger_event"`
	Active       bool      `gorm:"column:active;not null;index" json:"active"`

	Steps []Step `gorm:"foreignKey:SequenceID" json:"steps,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Sequence) TableName() string { return "sequence" }

func (s *Sequence) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Step is one delayed send. StepNumber is 1-based; the delay is measured from enrollment.
type Step struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SequenceID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_sequence_step_unique,priority:1" json:"sequence_id"`
	StepNumber int        `gorm:"column:step_number;not null;uniqueIndex:idx_sequence_step_unique,priority:2" json:"step_number"`
	DelayDays  int        `gorm:"column:delay_days;not null;default:0" json:"delay_days"`
	DelayHours int        `gorm:"column:delay_hours;not null;default:0" json:"delay_hours"`
	TemplateID *uuid.UUID `gorm:"type:uuid;column:template_id" json:"template_id,omitempty"`
	Subject    string     `gorm:"column:subject" json:"subject,omitempty"`
	Content    string     `gorm:"column:content" json:"content,omitempty"`
	Channel    string     `gorm:"column:channel;not null" json:"channel"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Step) TableName() string { return "sequence_step" }

func (s *Step) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Delay is the offset from enrollment at which the step becomes due.
func (s Step) Delay() time.Duration {
	return time.Duration(s.DelayDays)*24*time.Hour + time.Duration(s.DelayHours)*time.Hour
}

// Template is reusable message content with {var} placeholders.
type Template struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Category string    `gorm:"column:category;index" json:"category,omitempty"`
	Subject  string    `gorm:"column:subject" json:"subject,omitempty"`
	Content  string    `gorm:"column:content;not null" json:"content"`
	Active   bool      `gorm:"column:active;not null" json:"active"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Template) TableName() string { return "message_template" }

func (t *Template) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Enrollment is a client's position in a sequence. At most one active row per
// (client, sequence) is enforced by a partial unique index. TriggerRef names
// the event that caused the enrollment; it is unique per (client, sequence) so
// replaying that event never enrolls twice.
type Enrollment struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"client_id"`
	SequenceID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"sequence_id"`
	StepCompleted int            `gorm:"column:step_completed;not null;default:0" json:"step_completed"`
	Status        string         `gorm:"column:status;not null;index" json:"status"`
	EnrolledAt    time.Time      `gorm:"column:enrolled_at;not null" json:"enrolled_at"`
	CompletedAt   *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	TriggerEvent  string         `gorm:"column:trigger_event" json:"trigger_event,omitempty"`
	TriggerRef    *string        `gorm:"column:trigger_ref" json:"trigger_ref,omitempty"`
	Variables     datatypes.JSON `gorm:"column:variables;type:jsonb" json:"variables,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Enrollment) TableName() string { return "client_sequence_enrollment" }

func (e *Enrollment) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
