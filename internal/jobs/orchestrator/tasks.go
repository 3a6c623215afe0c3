package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/coachflow-backend/internal/data/repos"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/events"
	msgtypes "github.com/yungbote/coachflow-backend/internal/domain/messaging"
	"github.com/yungbote/coachflow-backend/internal/jobs/worker"
	"github.com/yungbote/coachflow-backend/internal/modules/badges"
	"github.com/yungbote/coachflow-backend/internal/modules/engagement"
	"github.com/yungbote/coachflow-backend/internal/modules/journey"
	"github.com/yungbote/coachflow-backend/internal/modules/messaging"
	"github.com/yungbote/coachflow-backend/internal/modules/progress"
	"github.com/yungbote/coachflow-backend/internal/modules/sequences"
	"github.com/yungbote/coachflow-backend/internal/notify"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

const (
	engagementRetention   = 30 * 24 * time.Hour
	notificationRetention = 7 * 24 * time.Hour
	cronRunRetention      = 90 * 24 * time.Hour
	inactivityThreshold   = 3 * 24 * time.Hour
	inactivityBatch       = 500
)

// AccountMilestoneDays are the account ages celebrated by the monthly cadence.
var AccountMilestoneDays = []int{30, 90, 180, 365}

// Services are the collaborators the default cadences fan out to.
type Services struct {
	Pool *worker.Pool

	Users         repos.UserRepo
	Activity      repos.ActivityRepo
	Badges        repos.BadgeRepo
	Engagements   repos.EngagementRepo
	Enrollments   repos.EnrollmentRepo
	Messages      repos.MessageRepo
	Notifications repos.NotificationRepo
	Events        repos.ProgressEventRepo
	Journeys      repos.JourneyRepo
	CronRuns      repos.CronRunRepo
	Snapshots     repos.MetricSnapshotRepo

	Journey    journey.Usecases
	Engagement engagement.Usecases
	BadgeUC    badges.Usecases
	Sequences  sequences.Usecases
	Messaging  messaging.Usecases
	Progress   progress.Usecases
	Notifier   notify.Notifier
}

// DefaultTasks returns the ordered sub-tasks of every cadence.
func DefaultTasks(s Services) map[Cadence][]Task {
	return map[Cadence][]Task{
		Hourly: {
			{Name: "deliver_missed_engagements", Run: s.Engagement.RecoverMissed},
			{Name: "realtime_metrics", Run: s.snapshotTask("hourly")},
			{Name: "process_sequence_steps", Run: s.Sequences.ProcessSteps},
			{Name: "process_scheduled_messages", Run: s.Messaging.ProcessScheduled},
		},
		Daily: {
			{Name: "schedule_engagements", Run: s.forActiveUsers("schedule_engagements", func(ctx context.Context, u *types.User) error {
				_, err := s.Engagement.ScheduleDaily(ctx, u.ID)
				return err
			})},
			{Name: "deliver_engagements", Run: s.Engagement.Deliver},
			{Name: "check_badges", Run: s.forActiveUsers("check_badges", func(ctx context.Context, u *types.User) error {
				_, err := s.BadgeUC.CheckAndAward(ctx, u.ID)
				return err
			})},
			{Name: "update_metrics", Run: s.snapshotTask("daily")},
			{Name: "process_progress_events", Run: s.Progress.ProcessPending},
			{Name: "cleanup_old_data", Run: s.cleanup},
		},
		Weekly: {
			{Name: "weekly_reflections", Run: s.forActiveUsers("weekly_reflections", func(ctx context.Context, u *types.User) error {
				_, err := s.Engagement.ScheduleWeeklyReflection(ctx, u.ID)
				return err
			})},
			{Name: "inactivity_reminders", Run: s.inactivityReminders},
			{Name: "weekly_analytics", Run: s.snapshotTask("weekly")},
		},
		Monthly: {
			{Name: "monthly_reports", Run: s.monthlyReports},
			{Name: "monthly_analytics", Run: s.snapshotTask("monthly")},
			{Name: "milestone_celebrations", Run: s.milestoneCelebrations},
		},
	}
}

func (s Services) forActiveUsers(name string, fn func(context.Context, *types.User) error) func(context.Context, time.Time) (worker.Result, error) {
	return func(ctx context.Context, _ time.Time) (worker.Result, error) {
		users, err := s.Users.ListActive(dbctx.Of(ctx))
		if err != nil {
			return worker.Result{}, fmt.Errorf("list active users: %w", err)
		}
		return worker.ForEach(ctx, s.Pool, name, users, fn), nil
	}
}

func (s Services) cleanup(ctx context.Context, now time.Time) (worker.Result, error) {
	dbc := dbctx.Of(ctx)
	var res worker.Result
	steps := []struct {
		name string
		run  func() (int64, error)
	}{
		{"engagement_schedules", func() (int64, error) { return s.Engagements.DeleteFinishedBefore(dbc, now.Add(-engagementRetention)) }},
		{"read_notifications", func() (int64, error) { return s.Notifications.DeleteReadBefore(dbc, now.Add(-notificationRetention)) }},
		{"expired_notifications", func() (int64, error) { return s.Notifications.DeleteExpired(dbc, now) }},
		{"cron_runs", func() (int64, error) { return s.CronRuns.DeleteBefore(dbc, now.Add(-cronRunRetention)) }},
	}
	for _, st := range steps {
		n, err := st.run()
		if err != nil {
			res.Add(worker.Result{Errors: 1, Samples: []string{st.name + ": " + err.Error()}})
			continue
		}
		res.Processed += int(n)
	}
	return res, nil
}

func (s Services) inactivityReminders(ctx context.Context, now time.Time) (worker.Result, error) {
	dbc := dbctx.Of(ctx)
	users, err := s.Users.ListInactiveSince(dbc, now.Add(-inactivityThreshold), inactivityBatch)
	if err != nil {
		return worker.Result{}, fmt.Errorf("list inactive users: %w", err)
	}
	return worker.ForEach(ctx, s.Pool, "inactivity_reminders", users, func(ctx context.Context, u *types.User) error {
		last, err := s.Activity.LastActivityAt(dbctx.Of(ctx), u.ID)
		if err != nil {
			return err
		}
		since := u.CreatedAt
		if last != nil {
			since = *last
		}
		return s.Progress.TrackEvent(ctx, u.ID, events.InactiveWarning, map[string]any{
			"days_inactive": int(now.Sub(since).Hours() / 24),
		})
	}), nil
}

func (s Services) monthlyReports(ctx context.Context, now time.Time) (worker.Result, error) {
	month := now.UTC().Format("2006-01")
	return s.forActiveUsers("monthly_reports", func(ctx context.Context, u *types.User) error {
		earned, err := s.BadgeUC.ListUserBadges(ctx, u.ID)
		if err != nil {
			return err
		}
		points, err := s.BadgeUC.TotalPoints(ctx, u.ID)
		if err != nil {
			return err
		}
		stats, err := s.Journey.GetStats(ctx, u.ID)
		if err != nil {
			return err
		}
		expires := now.Add(30 * 24 * time.Hour)
		_, err = s.Notifier.Send(ctx, msgtypes.ChannelInApp, u.ID.String(), notify.Content{
			Type:  "monthly_report",
			Title: "📊 Je maandoverzicht",
			Body: fmt.Sprintf("Je hebt %d badges en %d punten verzameld. Je journey is voor %.0f%% voltooid.",
				len(earned), points, stats.Percent),
			Priority: msgtypes.PriorityNormal,
			Data: map[string]any{
				"month":           month,
				"badges":          len(earned),
				"points":          points,
				"journey_percent": stats.Percent,
			},
			ExpiresAt: &expires,
			DedupeKey: "report:" + u.ID.String() + ":" + month,
		})
		return err
	})(ctx, now)
}

// milestoneCelebrations raises a milestone event for accounts whose age
// crossed a celebrated day count since the previous monthly run.
func (s Services) milestoneCelebrations(ctx context.Context, now time.Time) (worker.Result, error) {
	type hit struct {
		userID uuid.UUID
		days   int
	}
	var hits []hit
	for _, days := range AccountMilestoneDays {
		to := now.AddDate(0, 0, -days)
		from := to.AddDate(0, -1, 0)
		users, err := s.Users.ListActiveCreatedBetween(dbctx.Of(ctx), from, to)
		if err != nil {
			return worker.Result{}, fmt.Errorf("list accounts aged %d days: %w", days, err)
		}
		for _, u := range users {
			hits = append(hits, hit{userID: u.ID, days: days})
		}
	}
	return worker.ForEach(ctx, s.Pool, "milestone_celebrations", hits, func(ctx context.Context, h hit) error {
		return s.Progress.TrackEvent(ctx, h.userID, events.MilestoneReached, map[string]any{
			"milestone": fmt.Sprintf("account_%d_days", h.days),
			"value":     h.days,
		})
	}), nil
}
