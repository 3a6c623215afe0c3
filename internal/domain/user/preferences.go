package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommunicationPreference holds per-user delivery settings. QuietStart and
// QuietEnd are local wall-clock times formatted "HH:MM"; empty means no quiet hours.
type CommunicationPreference struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Timezone     string    `gorm:"column:timezone" json:"timezone,omitempty"`
	QuietStart   string    `gorm:"column:quiet_start" json:"quiet_start,omitempty"`
	QuietEnd     string    `gorm:"column:quiet_end" json:"quiet_end,omitempty"`
	EmailEnabled bool      `gorm:"column:email_enabled;not null" json:"email_enabled"`
	SMSEnabled   bool      `gorm:"column:sms_enabled;not null;default:false" json:"sms_enabled"`
	InAppEnabled bool      `gorm:"column:in_app_enabled;not null" json:"in_app_enabled"`
	Unsubscribed bool      `gorm:"column:unsubscribed;not null;default:false" json:"unsubscribed"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (CommunicationPreference) TableName() string { return "communication_preference" }

func (p *CommunicationPreference) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
