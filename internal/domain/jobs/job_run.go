package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CronRun is the persisted record of one cadence run.
type CronRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string         `gorm:"column:name;not null;index" json:"name"`
	Trigger    string         `gorm:"column:trigger_source;not null" json:"trigger"`
	Success    bool           `gorm:"column:success;not null;index" json:"success"`
	Processed  int            `gorm:"column:processed;not null;default:0" json:"processed"`
	Errors     int            `gorm:"column:errors;not null;default:0" json:"errors"`
	DurationMs int64          `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
	StartedAt  time.Time      `gorm:"column:started_at;not null;index" json:"started_at"`
	Tasks      datatypes.JSON `gorm:"column:tasks;type:jsonb" json:"tasks,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (CronRun) TableName() string { return "cron_run" }

func (r *CronRun) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// MetricSnapshot is an aggregate computed by a cadence, keyed by period and bucket.
type MetricSnapshot struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Period     string    `gorm:"column:period;not null;uniqueIndex:idx_metric_snapshot_unique,priority:1" json:"period"`
	Bucket     string    `gorm:"column:bucket;not null;uniqueIndex:idx_metric_snapshot_unique,priority:2" json:"bucket"`
	Key        string    `gorm:"column:metric_key;not null;uniqueIndex:idx_metric_snapshot_unique,priority:3" json:"key"`
	Value      float64   `gorm:"column:value;not null" json:"value"`
	ComputedAt time.Time `gorm:"column:computed_at;not null" json:"computed_at"`
}

func (MetricSnapshot) TableName() string { return "metric_snapshot" }

func (m *MetricSnapshot) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
