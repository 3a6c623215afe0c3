package engagement

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/activity"
	engtypes "github.com/yungbote/coachflow-backend/internal/domain/engagement"
	"github.com/yungbote/coachflow-backend/internal/jobs/worker"
	"github.com/yungbote/coachflow-backend/internal/notify"
	"github.com/yungbote/coachflow-backend/internal/observability"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
	"github.com/yungbote/coachflow-backend/internal/textgen"
)

// Deliver sends scheduled rows due in (now-1h, now]. Older rows are left to
// RecoverMissed. A failing row is marked failed and counted; it never aborts
// the batch.
func (u Usecases) Deliver(ctx context.Context, now time.Time) (worker.Result, error) {
	return u.deliverWindow(ctx, "deliver_engagements", now.Add(-time.Hour), now, now)
}

// RecoverMissed retries rows that are between one and 24 hours overdue and
// still scheduled.
func (u Usecases) RecoverMissed(ctx context.Context, now time.Time) (worker.Result, error) {
	return u.deliverWindow(ctx, "deliver_missed_engagements", now.Add(-24*time.Hour), now.Add(-time.Hour), now)
}

func (u Usecases) deliverWindow(ctx context.Context, name string, from, to, now time.Time) (worker.Result, error) {
	rows, err := u.deps.Engagement.ListDue(dbctx.Of(ctx), from, to, u.deps.Config.DeliveryLimit)
	if err != nil {
		return worker.Result{}, fmt.Errorf("list due engagements: %w", err)
	}
	return worker.ForEach(ctx, u.deps.Pool, name, rows, func(ctx context.Context, row *types.EngagementSchedule) error {
		return u.deliverRow(ctx, row, now)
	}), nil
}

func (u Usecases) deliverRow(ctx context.Context, row *types.EngagementSchedule, now time.Time) error {
	dbc := dbctx.Of(ctx)
	if err := u.deps.Engagement.IncrementAttempts(dbc, row.ID); err != nil {
		return fmt.Errorf("engagement %s: %w", row.ID, err)
	}
	fail := func(cause error) error {
		if _, err := u.deps.Engagement.MarkFailed(dbc, row.ID, cause.Error()); err != nil {
			u.deps.Log.Error("mark engagement failed", "engagement_id", row.ID, "error", err)
		}
		observability.RecordEngagementDelivery(string(row.Type), row.Channel, "failed")
		return fmt.Errorf("engagement %s: %w", row.ID, cause)
	}

	user, err := u.deps.Users.GetByID(dbc, row.UserID)
	if err != nil {
		return fmt.Errorf("engagement %s: load user: %w", row.ID, err)
	}
	if user == nil {
		return fail(fmt.Errorf("user: %w", pkgerrors.ErrNotFound))
	}
	prefs, err := u.deps.Users.GetPreferences(dbc, row.UserID)
	if err != nil {
		return fmt.Errorf("engagement %s: load preferences: %w", row.ID, err)
	}
	if !notify.Allowed(prefs, row.Channel) {
		return fail(fmt.Errorf("%s disabled by preferences: %w", row.Channel, pkgerrors.ErrChannelUnavailable))
	}

	def, _ := u.deps.Catalog.Engagement(string(row.Type))
	content := row.Content
	if strings.TrimSpace(content) == "" {
		content = u.resolveContent(ctx, user, prefs, row, def)
	}
	expires := now.Add(u.deps.Config.NotificationTTL)
	_, err = u.deps.Notifier.Send(ctx, row.Channel, notify.Destination(user, row.Channel), notify.Content{
		Type:      firstNonEmpty(def.NotificationType, "info"),
		Title:     firstNonEmpty(row.Title, def.Title),
		Subject:   firstNonEmpty(row.Title, def.Title),
		Body:      content,
		Data:      map[string]any{"engagement_id": row.ID.String(), "engagement_type": string(row.Type)},
		ExpiresAt: &expires,
		DedupeKey: "engagement:" + row.ID.String(),
	})
	if err != nil {
		return fail(err)
	}
	if _, err := u.deps.Engagement.MarkDelivered(dbc, row.ID, content, now); err != nil {
		return fmt.Errorf("engagement %s: mark delivered: %w", row.ID, err)
	}
	observability.RecordEngagementDelivery(string(row.Type), row.Channel, "delivered")
	return nil
}

// resolveContent asks the generator for personalized text and falls back to
// the catalog template pool on any failure.
func (u Usecases) resolveContent(ctx context.Context, user *types.User, prefs *types.CommunicationPreference, row *types.EngagementSchedule, def catalog.EngagementDefinition) string {
	pc := u.promptContext(ctx, user, prefs, row, def)
	genCtx, cancel := context.WithTimeout(ctx, u.deps.Config.GenerationTimeout)
	defer cancel()
	text, err := u.deps.Generator.Generate(genCtx, pc, u.deps.Config.MaxTokens, u.deps.Config.Temperature)
	text = strings.TrimSpace(text)
	if err == nil && text != "" {
		return text
	}
	if err != nil && !errors.Is(err, textgen.ErrUnavailable) {
		u.deps.Log.Warn("content generation failed, using template", "engagement_id", row.ID, "error", err)
	}
	observability.RecordGenerationFallback(string(row.Type))
	return FallbackContent(def, user, row.ScheduledDay, map[string]string{"streak": strconv.Itoa(pc.CurrentStreak)})
}

func (u Usecases) promptContext(ctx context.Context, user *types.User, prefs *types.CommunicationPreference, row *types.EngagementSchedule, def catalog.EngagementDefinition) textgen.PromptContext {
	dbc := dbctx.Of(ctx)
	pc := textgen.PromptContext{
		EngagementType: string(row.Type),
		Title:          def.Title,
		FirstName:      user.FirstName(),
		LocalTime:      row.ScheduledFor.In(u.location(prefs)).Format("Monday 15:04"),
	}
	if s, err := u.deps.Activity.GetStreak(dbc, user.ID, activity.StreakDaily); err == nil && s != nil {
		pc.CurrentStreak = s.CurrentStreak
	}
	if u.deps.Journey != nil {
		if p, err := u.deps.Journey.GetProgress(dbc, user.ID); err == nil && p != nil {
			pc.JourneyPhase, pc.JourneyStep = p.CurrentPhase, p.CurrentStep
		}
	}
	if u.deps.Badges != nil {
		if ids, err := u.deps.Badges.EarnedIDs(dbc, user.ID); err == nil {
			pc.BadgeCount = len(ids)
		}
	}
	return pc
}

// FallbackContent picks a template deterministically from (user, day) so a
// retried delivery renders the same text.
func FallbackContent(def catalog.EngagementDefinition, user *types.User, day string, vars map[string]string) string {
	if len(def.Templates) == 0 {
		return "💪 Jouw journey gaat door. Zet vandaag één kleine stap!"
	}
	h := fnv.New32a()
	if user != nil {
		_, _ = h.Write([]byte(user.ID.String()))
	}
	_, _ = h.Write([]byte(day))
	tpl := def.Templates[int(h.Sum32()%uint32(len(def.Templates)))]
	if user != nil {
		tpl = strings.ReplaceAll(tpl, "{firstName}", user.FirstName())
	}
	for k, v := range vars {
		tpl = strings.ReplaceAll(tpl, "{"+k+"}", v)
	}
	return tpl
}

// CelebrateStreak schedules and immediately delivers a streak celebration,
// at most once per user-local day.
func (u Usecases) CelebrateStreak(ctx context.Context, userID uuid.UUID, streak int) (bool, error) {
	dbc := dbctx.Of(ctx)
	user, err := u.deps.Users.GetByID(dbc, userID)
	if err != nil {
		return false, fmt.Errorf("celebrate streak: %w", err)
	}
	if user == nil {
		return false, fmt.Errorf("celebrate streak: user %s: %w", userID, pkgerrors.ErrNotFound)
	}
	prefs, err := u.deps.Users.GetPreferences(dbc, userID)
	if err != nil {
		return false, err
	}
	def, ok := u.deps.Catalog.Engagement(string(engtypes.TypeStreakCelebration))
	if !ok {
		return false, fmt.Errorf("celebrate streak: %s not in catalog", engtypes.TypeStreakCelebration)
	}
	now := u.deps.Now()
	day := now.In(u.location(prefs)).Format(dayLayout)
	row := &types.EngagementSchedule{
		UserID:       userID,
		Type:         engtypes.TypeStreakCelebration,
		ScheduledDay: day,
		ScheduledFor: now,
		Status:       types.EngagementScheduled,
		Channel:      def.Channel,
		Title:        def.Title,
		Content:      FallbackContent(def, user, day, map[string]string{"streak": strconv.Itoa(streak)}),
	}
	inserted, err := u.deps.Engagement.InsertIgnore(dbc, row)
	if err != nil || !inserted {
		return false, err
	}
	if err := u.deliverRow(ctx, row, now); err != nil {
		return false, err
	}
	return true, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
