package badges

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserBadge records that a user earned a catalog badge. Awarded once, never revoked.
type UserBadge struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge_unique,priority:1" json:"user_id"`
	BadgeID  string    `gorm:"column:badge_id;not null;uniqueIndex:idx_user_badge_unique,priority:2;index" json:"badge_id"`
	Points   int       `gorm:"column:points;not null;default:0" json:"points"`
	EarnedAt time.Time `gorm:"column:earned_at;not null;index" json:"earned_at"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (UserBadge) TableName() string { return "user_badge" }

func (b *UserBadge) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
