package messaging

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

const (
	MessageDraft     = "draft"
	MessageScheduled = "scheduled"
	MessageSent      = "sent"
	MessageFailed    = "failed"
)

// Message is an outbound message to a client. DedupeKey, when set, makes the
// insert idempotent for replays of the same logical send.
type Message struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	Channel      string     `gorm:"column:channel;not null" json:"channel"`
	Subject      string     `gorm:"column:subject" json:"subject,omitempty"`
	Content      string     `gorm:"column:content;not null" json:"content"`
	Status       string     `gorm:"column:status;not null;index" json:"status"`
	ScheduledFor *time.Time `gorm:"column:scheduled_for;index" json:"scheduled_for,omitempty"`
	SentAt       *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
	ProviderID   string     `gorm:"column:provider_id" json:"provider_id,omitempty"`
	Cost         float64    `gorm:"column:cost;not null;default:0" json:"cost"`
	Error        string     `gorm:"column:error" json:"error,omitempty"`
	DedupeKey    *string    `gorm:"column:dedupe_key;uniqueIndex" json:"-"`
	SequenceID   *uuid.UUID `gorm:"type:uuid;column:sequence_id;index" json:"sequence_id,omitempty"`
	StepNumber   *int       `gorm:"column:step_number" json:"step_number,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string { return "coach_client_message" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Notification is an in-app notification shown in the client feed.
type Notification struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string         `gorm:"column:type;not null;index" json:"type"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Message   string         `gorm:"column:message;not null" json:"message"`
	Priority  string         `gorm:"column:priority;not null;default:'normal'" json:"priority"`
	Read      bool           `gorm:"column:read;not null;default:false;index" json:"read"`
	ReadAt    *time.Time     `gorm:"column:read_at;index" json:"read_at,omitempty"`
	ExpiresAt *time.Time     `gorm:"column:expires_at;index" json:"expires_at,omitempty"`
	Data      datatypes.JSON `gorm:"column:data;type:jsonb" json:"data,omitempty"`
	DedupeKey *string        `gorm:"column:dedupe_key;uniqueIndex" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
