package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type User struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email  string    `gorm:"column:email;index" json:"email"`
	Phone  string    `gorm:"column:phone" json:"phone,omitempty"`
	Name   string    `gorm:"column:name;not null;default:''" json:"name"`
	Status string    `gorm:"column:status;not null;default:'active';index" json:"status"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// FirstName is the greeting name used by message templates.
func (u *User) FirstName() string {
	if u == nil {
		return ""
	}
	for i, r := range u.Name {
		if r == ' ' {
			return u.Name[:i]
		}
	}
	return u.Name
}
