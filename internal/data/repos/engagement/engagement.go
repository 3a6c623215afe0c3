package engagement

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type EngagementRepo interface {
	// InsertIgnore inserts s unless a row for (user, type, day) already exists.
	InsertIgnore(dbc dbctx.Context, s *types.EngagementSchedule) (bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EngagementSchedule, error)
	// ListDue returns scheduled rows with scheduled_for in (from, to], oldest first.
	ListDue(dbc dbctx.Context, from, to time.Time, limit int) ([]*types.EngagementSchedule, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.EngagementSchedule, error)
	MarkDelivered(dbc dbctx.Context, id uuid.UUID, content string, at time.Time) (bool, error)
	MarkFailed(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error)
	IncrementAttempts(dbc dbctx.Context, id uuid.UUID) error
	DeleteFinishedBefore(dbc dbctx.Context, cutoff time.Time) (int64, error)
	CountByStatusSince(dbc dbctx.Context, since time.Time) (map[string]int64, error)
}

type engagementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEngagementRepo(db *gorm.DB, baseLog *logger.Logger) EngagementRepo {
	repoLog := baseLog.With("repo", "EngagementRepo")
	return &engagementRepo{db: db, log: repoLog}
}

func (r *engagementRepo) InsertIgnore(dbc dbctx.Context, s *types.EngagementSchedule) (bool, error) {
	if s == nil || s.UserID == uuid.Nil {
		return false, errors.New("engagement schedule requires a user id")
	}
	if s.Status == "" {
		s.Status = types.EngagementScheduled
	}
	s.ScheduledFor = s.ScheduledFor.UTC()
	res := dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}, {Name: "scheduled_day"}},
		DoNothing: true,
	}).Create(s)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *engagementRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EngagementSchedule, error) {
	var s types.EngagementSchedule
	err := dbc.DB(r.db).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *engagementRepo) ListDue(dbc dbctx.Context, from, to time.Time, limit int) ([]*types.EngagementSchedule, error) {
	var out []*types.EngagementSchedule
	q := dbc.DB(r.db).
		Where("status = ? AND scheduled_for > ? AND scheduled_for <= ?", types.EngagementScheduled, from.UTC(), to.UTC()).
		Order("scheduled_for ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *engagementRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.EngagementSchedule, error) {
	var out []*types.EngagementSchedule
	q := dbc.DB(r.db).Where("user_id = ?", userID).Order("scheduled_for DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkDelivered flips a scheduled row to delivered. It reports false when the
// row was no longer scheduled, which means another run already handled it.
func (r *engagementRepo) MarkDelivered(dbc dbctx.Context, id uuid.UUID, content string, at time.Time) (bool, error) {
	at = at.UTC()
	res := dbc.DB(r.db).Model(&types.EngagementSchedule{}).
		Where("id = ? AND status = ?", id, types.EngagementScheduled).
		Updates(map[string]interface{}{
			"status":       types.EngagementDelivered,
			"content":      content,
			"delivered_at": &at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *engagementRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error) {
	res := dbc.DB(r.db).Model(&types.EngagementSchedule{}).
		Where("id = ? AND status = ?", id, types.EngagementScheduled).
		Updates(map[string]interface{}{
			"status":         types.EngagementFailed,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *engagementRepo) IncrementAttempts(dbc dbctx.Context, id uuid.UUID) error {
	return dbc.DB(r.db).Model(&types.EngagementSchedule{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}

// DeleteFinishedBefore removes delivered and failed rows last touched before cutoff.
func (r *engagementRepo) DeleteFinishedBefore(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	res := dbc.DB(r.db).
		Where("status IN ? AND updated_at < ?", []string{types.EngagementDelivered, types.EngagementFailed}, cutoff.UTC()).
		Delete(&types.EngagementSchedule{})
	return res.RowsAffected, res.Error
}

func (r *engagementRepo) CountByStatusSince(dbc dbctx.Context, since time.Time) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	if err := dbc.DB(r.db).Model(&types.EngagementSchedule{}).
		Select("status, COUNT(*) AS n").
		Where("scheduled_for >= ?", since.UTC()).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}
