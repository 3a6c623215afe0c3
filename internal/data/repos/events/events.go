package events

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type ProgressEventRepo interface {
	Create(dbc dbctx.Context, e *types.ProgressEvent) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ProgressEvent, error)
	ListUnprocessed(dbc dbctx.Context, since time.Time, limit int) ([]*types.ProgressEvent, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ProgressEvent, error)
	MarkProcessed(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error)
	CountSince(dbc dbctx.Context, eventType string, since time.Time) (int64, error)
}

type progressEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressEventRepo(db *gorm.DB, baseLog *logger.Logger) ProgressEventRepo {
	repoLog := baseLog.With("repo", "ProgressEventRepo")
	return &progressEventRepo{db: db, log: repoLog}
}

func (r *progressEventRepo) Create(dbc dbctx.Context, e *types.ProgressEvent) error {
	if e == nil || e.UserID == uuid.Nil || e.EventType == "" {
		return errors.New("progress event requires user id and type")
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	e.OccurredAt = e.OccurredAt.UTC()
	return dbc.DB(r.db).Create(e).Error
}

func (r *progressEventRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ProgressEvent, error) {
	var e types.ProgressEvent
	err := dbc.DB(r.db).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListUnprocessed returns pending events that occurred at or after since,
// oldest first. A zero since means no lower bound.
func (r *progressEventRepo) ListUnprocessed(dbc dbctx.Context, since time.Time, limit int) ([]*types.ProgressEvent, error) {
	var out []*types.ProgressEvent
	q := dbc.DB(r.db).Where("processed = ?", false)
	if !since.IsZero() {
		q = q.Where("occurred_at >= ?", since.UTC())
	}
	q = q.Order("occurred_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *progressEventRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ProgressEvent, error) {
	var out []*types.ProgressEvent
	q := dbc.DB(r.db).Where("user_id = ?", userID).Order("occurred_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *progressEventRepo) MarkProcessed(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error) {
	at = at.UTC()
	res := dbc.DB(r.db).Model(&types.ProgressEvent{}).
		Where("id = ? AND processed = ?", id, false).
		Updates(map[string]interface{}{"processed": true, "processed_at": &at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *progressEventRepo) CountSince(dbc dbctx.Context, eventType string, since time.Time) (int64, error) {
	var n int64
	q := dbc.DB(r.db).Model(&types.ProgressEvent{}).Where("occurred_at >= ?", since.UTC())
	if eventType != "" {
		q = q.Where("event_type = ?", eventType)
	}
	err := q.Count(&n).Error
	return n, err
}
