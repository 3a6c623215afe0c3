package badges

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type BadgeRepo interface {
	// Award inserts b unless the user already holds the badge. It reports whether
	// this call did the award.
	Award(dbc dbctx.Context, b *types.UserBadge) (bool, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserBadge, error)
	EarnedIDs(dbc dbctx.Context, userID uuid.UUID) (map[string]bool, error)
	SumPoints(dbc dbctx.Context, userID uuid.UUID) (int, error)
	CountAwardedSince(dbc dbctx.Context, since time.Time) (int64, error)
}

type badgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBadgeRepo(db *gorm.DB, baseLog *logger.Logger) BadgeRepo {
	repoLog := baseLog.With("repo", "BadgeRepo")
	return &badgeRepo{db: db, log: repoLog}
}

func (r *badgeRepo) Award(dbc dbctx.Context, b *types.UserBadge) (bool, error) {
	if b == nil || b.UserID == uuid.Nil || b.BadgeID == "" {
		return false, errors.New("badge award requires user id and badge id")
	}
	if b.EarnedAt.IsZero() {
		b.EarnedAt = time.Now()
	}
	b.EarnedAt = b.EarnedAt.UTC()
	res := dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
		DoNothing: true,
	}).Create(b)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *badgeRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserBadge, error) {
	var out []*types.UserBadge
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *badgeRepo) EarnedIDs(dbc dbctx.Context, userID uuid.UUID) (map[string]bool, error) {
	var ids []string
	if err := dbc.DB(r.db).Model(&types.UserBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *badgeRepo) SumPoints(dbc dbctx.Context, userID uuid.UUID) (int, error) {
	var total sql.NullInt64
	err := dbc.DB(r.db).Model(&types.UserBadge{}).
		Select("SUM(points)").
		Where("user_id = ?", userID).
		Row().Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}

func (r *badgeRepo) CountAwardedSince(dbc dbctx.Context, since time.Time) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.UserBadge{}).Where("earned_at >= ?", since.UTC()).Count(&n).Error
	return n, err
}
