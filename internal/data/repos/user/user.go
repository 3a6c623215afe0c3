package user

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

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error)
	GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error)
	ListActive(dbc dbctx.Context) ([]*types.User, error)
	ListActiveCreatedBetween(dbc dbctx.Context, from, to time.Time) ([]*types.User, error)
	ListInactiveSince(dbc dbctx.Context, cutoff time.Time, limit int) ([]*types.User, error)
	CountActive(dbc dbctx.Context) (int64, error)

	GetPreferences(dbc dbctx.Context, userID uuid.UUID) (*types.CommunicationPreference, error)
	UpsertPreferences(dbc dbctx.Context, pref *types.CommunicationPreference) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (r *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	if err := dbc.DB(r.db).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error) {
	var u types.User
	err := dbc.DB(r.db).Where("id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error) {
	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", userIDs).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRepo) ListActive(dbc dbctx.Context) ([]*types.User, error) {
	var results []*types.User
	if err := dbc.DB(r.db).
		Where("status = ?", types.UserStatusActive).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListActiveCreatedBetween returns active users whose account was created in (from, to].
func (r *userRepo) ListActiveCreatedBetween(dbc dbctx.Context, from, to time.Time) ([]*types.User, error) {
	var results []*types.User
	if err := dbc.DB(r.db).
		Where("status = ? AND created_at > ? AND created_at <= ?", types.UserStatusActive, from.UTC(), to.UTC()).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListInactiveSince returns active users with no activity log at or after cutoff.
func (r *userRepo) ListInactiveSince(dbc dbctx.Context, cutoff time.Time, limit int) ([]*types.User, error) {
	var results []*types.User
	q := dbc.DB(r.db).
		Where("status = ?", types.UserStatusActive).
		Where("created_at < ?", cutoff.UTC()).
		Where("NOT EXISTS (SELECT 1 FROM activity_log a WHERE a.user_id = \"user\".id AND a.occurred_at >= ?)", cutoff.UTC()).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRepo) CountActive(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.User{}).Where("status = ?", types.UserStatusActive).Count(&n).Error
	return n, err
}

func (r *userRepo) GetPreferences(dbc dbctx.Context, userID uuid.UUID) (*types.CommunicationPreference, error) {
	var p types.CommunicationPreference
	err := dbc.DB(r.db).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *userRepo) UpsertPreferences(dbc dbctx.Context, pref *types.CommunicationPreference) error {
	if pref == nil || pref.UserID == uuid.Nil {
		return errors.New("preferences require a user id")
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"timezone", "quiet_start", "quiet_end",
			"email_enabled", "sms_enabled", "in_app_enabled", "unsubscribed", "updated_at",
		}),
	}).Create(pref).Error
}
