package jobs

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type CronRunRepo interface {
	Create(dbc dbctx.Context, run *types.CronRun) error
	ListRecent(dbc dbctx.Context, name string, limit int) ([]*types.CronRun, error)
	DeleteBefore(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type cronRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCronRunRepo(db *gorm.DB, baseLog *logger.Logger) CronRunRepo {
	repoLog := baseLog.With("repo", "CronRunRepo")
	return &cronRunRepo{db: db, log: repoLog}
}

func (r *cronRunRepo) Create(dbc dbctx.Context, run *types.CronRun) error {
	run.StartedAt = run.StartedAt.UTC()
	return dbc.DB(r.db).Create(run).Error
}

// ListRecent returns runs newest first. An empty name lists every cadence.
func (r *cronRunRepo) ListRecent(dbc dbctx.Context, name string, limit int) ([]*types.CronRun, error) {
	var out []*types.CronRun
	q := dbc.DB(r.db).Order("started_at DESC")
	if name != "" {
		q = q.Where("name = ?", name)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *cronRunRepo) DeleteBefore(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	res := dbc.DB(r.db).Where("started_at < ?", cutoff.UTC()).Delete(&types.CronRun{})
	return res.RowsAffected, res.Error
}

type MetricSnapshotRepo interface {
	Upsert(dbc dbctx.Context, rows []*types.MetricSnapshot) error
	ListByBucket(dbc dbctx.Context, period, bucket string) ([]*types.MetricSnapshot, error)
}

type metricSnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMetricSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) MetricSnapshotRepo {
	repoLog := baseLog.With("repo", "MetricSnapshotRepo")
	return &metricSnapshotRepo{db: db, log: repoLog}
}

func (r *metricSnapshotRepo) Upsert(dbc dbctx.Context, rows []*types.MetricSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		row.ComputedAt = row.ComputedAt.UTC()
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "period"}, {Name: "bucket"}, {Name: "metric_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "computed_at"}),
	}).Create(&rows).Error
}

func (r *metricSnapshotRepo) ListByBucket(dbc dbctx.Context, period, bucket string) ([]*types.MetricSnapshot, error) {
	var out []*types.MetricSnapshot
	if err := dbc.DB(r.db).
		Where("period = ? AND bucket = ?", period, bucket).
		Order("metric_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
