package journey

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

type JourneyRepo interface {
	GetProgress(dbc dbctx.Context, userID uuid.UUID) (*types.JourneyProgress, error)
	// CreateIfAbsent inserts p unless the user already has progress. It reports
	// whether a row was inserted.
	CreateIfAbsent(dbc dbctx.Context, p *types.JourneyProgress) (bool, error)
	UpdateProgress(dbc dbctx.Context, userID uuid.UUID, updates map[string]interface{}) error
	DeleteProgress(dbc dbctx.Context, userID uuid.UUID) error
	ListStalledSince(dbc dbctx.Context, cutoff time.Time, limit int) ([]*types.JourneyProgress, error)
	CountByStatus(dbc dbctx.Context) (map[string]int64, error)

	UpsertCompletion(dbc dbctx.Context, c *types.JourneyStepCompletion) error
	ListCompletions(dbc dbctx.Context, userID uuid.UUID) ([]*types.JourneyStepCompletion, error)
	DeleteCompletions(dbc dbctx.Context, userID uuid.UUID) error
}

type journeyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJourneyRepo(db *gorm.DB, baseLog *logger.Logger) JourneyRepo {
	repoLog := baseLog.With("repo", "JourneyRepo")
	return &journeyRepo{db: db, log: repoLog}
}

func (r *journeyRepo) GetProgress(dbc dbctx.Context, userID uuid.UUID) (*types.JourneyProgress, error) {
	var p types.JourneyProgress
	err := dbc.DB(r.db).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *journeyRepo) CreateIfAbsent(dbc dbctx.Context, p *types.JourneyProgress) (bool, error) {
	if p == nil || p.UserID == uuid.Nil {
		return false, errors.New("journey progress requires a user id")
	}
	res := dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *journeyRepo) UpdateProgress(dbc dbctx.Context, userID uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.JourneyProgress{}).Where("user_id = ?", userID).Updates(updates).Error
}

func (r *journeyRepo) DeleteProgress(dbc dbctx.Context, userID uuid.UUID) error {
	return dbc.DB(r.db).Where("user_id = ?", userID).Delete(&types.JourneyProgress{}).Error
}

// ListStalledSince returns active journeys whose last activity is before cutoff.
func (r *journeyRepo) ListStalledSince(dbc dbctx.Context, cutoff time.Time, limit int) ([]*types.JourneyProgress, error) {
	var out []*types.JourneyProgress
	q := dbc.DB(r.db).
		Where("status = ? AND last_activity < ?", types.JourneyStatusActive, cutoff.UTC()).
		Order("last_activity ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *journeyRepo) CountByStatus(dbc dbctx.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	if err := dbc.DB(r.db).Model(&types.JourneyProgress{}).
		Select("status, COUNT(*) AS n").
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

// UpsertCompletion records a step completion. Re-completing a step refreshes
// the response and duration but keeps one row per (user, phase, step).
func (r *journeyRepo) UpsertCompletion(dbc dbctx.Context, c *types.JourneyStepCompletion) error {
	if c == nil || c.UserID == uuid.Nil {
		return errors.New("step completion requires a user id")
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "phase"}, {Name: "step"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"response", "duration_seconds", "completed_at", "updated_at",
		}),
	}).Create(c).Error
}

func (r *journeyRepo) ListCompletions(dbc dbctx.Context, userID uuid.UUID) ([]*types.JourneyStepCompletion, error) {
	var out []*types.JourneyStepCompletion
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("completed_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *journeyRepo) DeleteCompletions(dbc dbctx.Context, userID uuid.UUID) error {
	return dbc.DB(r.db).Where("user_id = ?", userID).Delete(&types.JourneyStepCompletion{}).Error
}
