package badges

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	"github.com/yungbote/coachflow-backend/internal/data/repos"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/messaging"
	"github.com/yungbote/coachflow-backend/internal/notify"
	"github.com/yungbote/coachflow-backend/internal/observability"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

const NotificationType = "badge_earned"

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Catalog  *catalog.Catalog
	Users    repos.UserRepo
	Activity repos.ActivityRepo
	Badges   repos.BadgeRepo
	Notifier notify.Notifier

	Now func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "badges")
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return Usecases{deps: deps}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

// CheckAndAward evaluates every active badge the user does not hold yet and
// awards those whose metric reaches the threshold. The unique (user, badge)
// row decides who awards; only the call that inserted it notifies. A metric
// failure skips that badge and is reported after the rest are evaluated.
func (u Usecases) CheckAndAward(ctx context.Context, userID uuid.UUID) ([]catalog.BadgeDefinition, error) {
	dbc := dbctx.Of(ctx)
	user, err := u.deps.Users.GetByID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("check badges: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("check badges: user %s: %w", userID, pkgerrors.ErrNotFound)
	}
	earned, err := u.deps.Badges.EarnedIDs(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("check badges: %w", err)
	}

	now := u.deps.Now()
	var (
		awarded []catalog.BadgeDefinition
		errs    []error
	)
	for _, def := range u.deps.Catalog.ActiveBadges() {
		if earned[def.ID] {
			continue
		}
		current, err := u.metric(dbc, user, def.Criteria, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("badge %s: %w", def.ID, err))
			continue
		}
		if current < def.Criteria.Target() {
			continue
		}
		inserted, err := u.deps.Badges.Award(dbc, &types.UserBadge{
			UserID:   userID,
			BadgeID:  def.ID,
			Points:   def.Points,
			EarnedAt: now,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("award %s: %w", def.ID, err))
			continue
		}
		if !inserted {
			continue
		}
		observability.RecordBadgeAwarded(def.ID)
		u.deps.Log.Info("badge awarded", "user_id", userID, "badge_id", def.ID)
		awarded = append(awarded, def)
		u.notifyAward(ctx, userID, def)
	}
	return awarded, errors.Join(errs...)
}

func (u Usecases) notifyAward(ctx context.Context, userID uuid.UUID, def catalog.BadgeDefinition) {
	if u.deps.Notifier == nil {
		return
	}
	_, err := u.deps.Notifier.Send(ctx, messaging.ChannelInApp, userID.String(), notify.Content{
		Type:      NotificationType,
		Title:     fmt.Sprintf("🏆 Nieuwe Badge: %s!", def.Name),
		Body:      def.Description,
		Priority:  messaging.PriorityHigh,
		Data:      map[string]any{"badge_id": def.ID, "points": def.Points, "icon": def.Icon, "rarity": def.Rarity},
		DedupeKey: "badge:" + userID.String() + ":" + def.ID,
	})
	if err != nil {
		u.deps.Log.Warn("badge notification failed", "user_id", userID, "badge_id", def.ID, "error", err)
	}
}

type BadgeProgress struct {
	catalog.BadgeDefinition
	Earned   bool `json:"earned"`
	Current  int  `json:"current"`
	Target   int  `json:"target"`
	Progress int  `json:"progress"`
}

// GetBadgeProgress reports every active badge with a completion percentage:
// 100 when owned, otherwise capped at 99. Highest progress first.
func (u Usecases) GetBadgeProgress(ctx context.Context, userID uuid.UUID) ([]BadgeProgress, error) {
	dbc := dbctx.Of(ctx)
	user, err := u.deps.Users.GetByID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("badge progress: user %s: %w", userID, pkgerrors.ErrNotFound)
	}
	earned, err := u.deps.Badges.EarnedIDs(dbc, userID)
	if err != nil {
		return nil, err
	}
	now := u.deps.Now()
	defs := u.deps.Catalog.ActiveBadges()
	out := make([]BadgeProgress, 0, len(defs))
	for _, def := range defs {
		p := BadgeProgress{BadgeDefinition: def, Target: def.Criteria.Target()}
		if earned[def.ID] {
			p.Earned, p.Progress, p.Current = true, 100, p.Target
			out = append(out, p)
			continue
		}
		current, err := u.metric(dbc, user, def.Criteria, now)
		if err != nil {
			return nil, fmt.Errorf("badge %s: %w", def.ID, err)
		}
		p.Current = current
		p.Progress = progressPercent(current, p.Target)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Progress > out[j].Progress })
	return out, nil
}

func progressPercent(current, target int) int {
	if target <= 0 || current <= 0 {
		return 0
	}
	return min(99, current*100/target)
}

type EarnedBadge struct {
	catalog.BadgeDefinition
	EarnedAt time.Time `json:"earned_at"`
	Points   int       `json:"points"`
}

// ListUserBadges returns earned badges newest first. Badges no longer in the
// catalog are still listed with their id only.
func (u Usecases) ListUserBadges(ctx context.Context, userID uuid.UUID) ([]EarnedBadge, error) {
	rows, err := u.deps.Badges.ListByUser(dbctx.Of(ctx), userID)
	if err != nil {
		return nil, err
	}
	out := make([]EarnedBadge, 0, len(rows))
	for _, r := range rows {
		def, ok := u.deps.Catalog.Badge(r.BadgeID)
		if !ok {
			def = catalog.BadgeDefinition{ID: r.BadgeID}
		}
		out = append(out, EarnedBadge{BadgeDefinition: def, EarnedAt: r.EarnedAt, Points: r.Points})
	}
	return out, nil
}

func (u Usecases) TotalPoints(ctx context.Context, userID uuid.UUID) (int, error) {
	return u.deps.Badges.SumPoints(dbctx.Of(ctx), userID)
}
