package activity

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/activity"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

// ActivityRepo reads and writes the signals that badge criteria and streaks are computed from.
type ActivityRepo interface {
	LogActivity(dbc dbctx.Context, l *types.ActivityLog) error
	CountActivities(dbc dbctx.Context, userID uuid.UUID, activityType string, since *time.Time) (int64, error)
	CountDistinctActiveUsers(dbc dbctx.Context, since time.Time) (int64, error)
	LastActivityAt(dbc dbctx.Context, userID uuid.UUID) (*time.Time, error)

	GetStreak(dbc dbctx.Context, userID uuid.UUID, streakType string) (*types.UserStreak, error)
	SaveStreak(dbc dbctx.Context, s *types.UserStreak) error

	CreateGoal(dbc dbctx.Context, g *types.Goal) error
	CompleteGoal(dbc dbctx.Context, goalID uuid.UUID, at time.Time) (bool, error)
	CountCompletedGoals(dbc dbctx.Context, userID uuid.UUID, since *time.Time) (int64, error)

	// RecordMilestone inserts a milestone occurrence once per (user, key, reference).
	RecordMilestone(dbc dbctx.Context, m *types.Milestone) (bool, error)
	CountMilestones(dbc dbctx.Context, userID uuid.UUID, key string) (int64, error)
	MaxMilestoneValue(dbc dbctx.Context, userID uuid.UUID, key string) (int, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	repoLog := baseLog.With("repo", "ActivityRepo")
	return &activityRepo{db: db, log: repoLog}
}

func (r *activityRepo) LogActivity(dbc dbctx.Context, l *types.ActivityLog) error {
	if l == nil || l.UserID == uuid.Nil || l.ActivityType == "" {
		return errors.New("activity log requires user id and type")
	}
	if l.OccurredAt.IsZero() {
		l.OccurredAt = time.Now()
	}
	l.OccurredAt = l.OccurredAt.UTC()
	if l.DedupeKey == nil {
		return dbc.DB(r.db).Create(l).Error
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(l).Error
}

func (r *activityRepo) CountActivities(dbc dbctx.Context, userID uuid.UUID, activityType string, since *time.Time) (int64, error) {
	var n int64
	q := dbc.DB(r.db).Model(&types.ActivityLog{}).Where("user_id = ?", userID)
	if activityType != "" {
		q = q.Where("activity_type = ?", activityType)
	}
	if since != nil {
		q = q.Where("occurred_at >= ?", since.UTC())
	}
	err := q.Count(&n).Error
	return n, err
}

func (r *activityRepo) CountDistinctActiveUsers(dbc dbctx.Context, since time.Time) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.ActivityLog{}).
		Where("occurred_at >= ?", since.UTC()).
		Distinct("user_id").
		Count(&n).Error
	return n, err
}

func (r *activityRepo) LastActivityAt(dbc dbctx.Context, userID uuid.UUID) (*time.Time, error) {
	var l types.ActivityLog
	err := dbc.DB(r.db).Where("user_id = ?", userID).Order("occurred_at DESC").First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	at := l.OccurredAt.UTC()
	return &at, nil
}

func (r *activityRepo) GetStreak(dbc dbctx.Context, userID uuid.UUID, streakType string) (*types.UserStreak, error) {
	if streakType == "" {
		streakType = activity.StreakDaily
	}
	var s types.UserStreak
	err := dbc.DB(r.db).Where("user_id = ? AND streak_type = ?", userID, streakType).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *activityRepo) SaveStreak(dbc dbctx.Context, s *types.UserStreak) error {
	if s == nil || s.UserID == uuid.Nil {
		return errors.New("streak requires a user id")
	}
	if s.StreakType == "" {
		s.StreakType = activity.StreakDaily
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "streak_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_streak", "longest_streak", "last_activity_date", "updated_at",
		}),
	}).Create(s).Error
}

func (r *activityRepo) CreateGoal(dbc dbctx.Context, g *types.Goal) error {
	if g == nil || g.UserID == uuid.Nil {
		return errors.New("goal requires a user id")
	}
	if g.Status == "" {
		g.Status = activity.GoalStatusOpen
	}
	return dbc.DB(r.db).Create(g).Error
}

// CompleteGoal marks an open goal completed. A goal already completed is left untouched.
func (r *activityRepo) CompleteGoal(dbc dbctx.Context, goalID uuid.UUID, at time.Time) (bool, error) {
	at = at.UTC()
	res := dbc.DB(r.db).Model(&types.Goal{}).
		Where("id = ? AND status = ?", goalID, activity.GoalStatusOpen).
		Updates(map[string]interface{}{"status": activity.GoalStatusCompleted, "completed_at": &at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *activityRepo) CountCompletedGoals(dbc dbctx.Context, userID uuid.UUID, since *time.Time) (int64, error) {
	var n int64
	q := dbc.DB(r.db).Model(&types.Goal{}).
		Where("user_id = ? AND status = ?", userID, activity.GoalStatusCompleted)
	if since != nil {
		q = q.Where("completed_at >= ?", since.UTC())
	}
	err := q.Count(&n).Error
	return n, err
}

func (r *activityRepo) RecordMilestone(dbc dbctx.Context, m *types.Milestone) (bool, error) {
	if m == nil || m.UserID == uuid.Nil || m.Key == "" {
		return false, errors.New("milestone requires user id and key")
	}
	if m.Reference == "" {
		m.Reference = uuid.NewString()
	}
	if m.OccurredAt.IsZero() {
		m.OccurredAt = time.Now()
	}
	m.OccurredAt = m.OccurredAt.UTC()
	res := dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "milestone_key"}, {Name: "reference"}},
		DoNothing: true,
	}).Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *activityRepo) CountMilestones(dbc dbctx.Context, userID uuid.UUID, key string) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Milestone{}).
		Where("user_id = ? AND milestone_key = ?", userID, key).
		Count(&n).Error
	return n, err
}

func (r *activityRepo) MaxMilestoneValue(dbc dbctx.Context, userID uuid.UUID, key string) (int, error) {
	var v sql.NullInt64
	err := dbc.DB(r.db).Model(&types.Milestone{}).
		Select("MAX(value)").
		Where("user_id = ? AND milestone_key = ?", userID, key).
		Row().Scan(&v)
	if err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}
