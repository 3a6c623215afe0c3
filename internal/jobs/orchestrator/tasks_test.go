package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	"github.com/yungbote/coachflow-backend/internal/data/repos"
	"github.com/yungbote/coachflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/events"
	"github.com/yungbote/coachflow-backend/internal/modules/badges"
	"github.com/yungbote/coachflow-backend/internal/modules/engagement"
	"github.com/yungbote/coachflow-backend/internal/modules/journey"
	"github.com/yungbote/coachflow-backend/internal/modules/messaging"
	"github.com/yungbote/coachflow-backend/internal/modules/progress"
	"github.com/yungbote/coachflow-backend/internal/modules/sequences"
	"github.com/yungbote/coachflow-backend/internal/notify/notifytest"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

type stack struct {
	db   *gorm.DB
	svc  Services
	rec  *notifytest.Recorder
	orch *Orchestrator
}

func newStack(t *testing.T, now time.Time) *stack {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	cat := catalog.Default()
	clock := func() time.Time { return now }
	rec := notifytest.NewRecorder()

	s := Services{
		Users:         repos.NewUserRepo(db, log),
		Activity:      repos.NewActivityRepo(db, log),
		Badges:        repos.NewBadgeRepo(db, log),
		Engagements:   repos.NewEngagementRepo(db, log),
		Enrollments:   repos.NewEnrollmentRepo(db, log),
		Messages:      repos.NewMessageRepo(db, log),
		Notifications: repos.NewNotificationRepo(db, log),
		Events:        repos.NewProgressEventRepo(db, log),
		Journeys:      repos.NewJourneyRepo(db, log),
		CronRuns:      repos.NewCronRunRepo(db, log),
		Snapshots:     repos.NewMetricSnapshotRepo(db, log),
		Notifier:      rec,
	}
	s.Messaging = messaging.New(messaging.UsecasesDeps{DB: db, Log: log, Users: s.Users, Messages: s.Messages, Notifier: rec, Now: clock})
	s.Sequences = sequences.New(sequences.UsecasesDeps{
		DB: db, Log: log, Catalog: cat, Users: s.Users, Sequences: repos.NewSequenceRepo(db, log),
		Enrollments: s.Enrollments, Messaging: s.Messaging, Now: clock,
	})
	s.BadgeUC = badges.New(badges.UsecasesDeps{
		DB: db, Log: log, Catalog: cat, Users: s.Users, Activity: s.Activity, Badges: s.Badges, Notifier: rec, Now: clock,
	})
	s.Journey = journey.New(journey.UsecasesDeps{DB: db, Log: log, Catalog: cat, Journey: s.Journeys, Now: clock})
	s.Engagement = engagement.New(engagement.UsecasesDeps{
		DB: db, Log: log, Catalog: cat, Users: s.Users, Engagement: s.Engagements, Activity: s.Activity,
		Journey: s.Journeys, Badges: s.Badges, Notifier: rec, Now: clock,
	})
	s.Progress = progress.New(progress.UsecasesDeps{
		DB: db, Log: log, Events: s.Events, Activity: s.Activity, Notifier: rec,
		Sequences: s.Sequences, Messages: s.Messaging, Badges: s.BadgeUC, Recorder: s.Engagement, Now: clock,
	})
	return &stack{
		db:   db,
		svc:  s,
		rec:  rec,
		orch: New(Deps{Log: log, Runs: s.CronRuns, Tasks: DefaultTasks(s), Now: clock}),
	}
}

func taskNames(res JobResult) []string {
	out := make([]string, len(res.Tasks))
	for i, tr := range res.Tasks {
		out[i] = tr.Name
	}
	return out
}

func TestDefaultTaskOrder(t *testing.T) {
	tasks := DefaultTasks(Services{})
	names := func(c Cadence) []string {
		var out []string
		for _, tk := range tasks[c] {
			out = append(out, tk.Name)
		}
		return out
	}
	assert.Equal(t, []string{"deliver_missed_engagements", "realtime_metrics", "process_sequence_steps", "process_scheduled_messages"}, names(Hourly))
	assert.Equal(t, []string{"schedule_engagements", "deliver_engagements", "check_badges", "update_metrics", "process_progress_events", "cleanup_old_data"}, names(Daily))
	assert.Equal(t, []string{"weekly_reflections", "inactivity_reminders", "weekly_analytics"}, names(Weekly))
	assert.Equal(t, []string{"monthly_reports", "monthly_analytics", "milestone_celebrations"}, names(Monthly))
}

func TestDailyCadenceEndToEnd(t *testing.T) {
	now := time.Date(2024, 6, 10, 5, 0, 0, 0, time.UTC)
	st := newStack(t, now)
	ctx := context.Background()
	user := testutil.SeedUser(t, ctx, st.db, "daily@example.com")

	res, err := st.orch.Run(ctx, Daily, TriggerManual)
	require.NoError(t, err)
	assert.True(t, res.Success, "%+v", res.Tasks)
	assert.Equal(t, []string{"schedule_engagements", "deliver_engagements", "check_badges", "update_metrics", "process_progress_events", "cleanup_old_data"}, taskNames(res))

	rows, err := st.svc.Engagements.ListByUser(dbctx.Of(ctx), user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	snaps, err := st.svc.Snapshots.ListByBucket(dbctx.Of(ctx), "daily", "2024-06-10")
	require.NoError(t, err)
	values := map[string]float64{}
	for _, s := range snaps {
		values[s.Key] = s.Value
	}
	assert.Equal(t, 1.0, values["active_users"])
	assert.Equal(t, 3.0, values["engagements_scheduled"])

	again, err := st.orch.Run(ctx, Daily, TriggerManual)
	require.NoError(t, err)
	assert.True(t, again.Success)
	rows, err = st.svc.Engagements.ListByUser(dbctx.Of(ctx), user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Len(t, st.orch.History(), 2)
}

func TestWeeklyInactivityReminder(t *testing.T) {
	now := time.Date(2024, 6, 10, 1, 0, 0, 0, time.UTC)
	st := newStack(t, now)
	ctx := context.Background()
	_, err := st.svc.Sequences.SeedPredefined(ctx)
	require.NoError(t, err)
	idle := testutil.SeedUserCreatedAt(t, ctx, st.db, "idle@example.com", now.AddDate(0, 0, -10))
	fresh := testutil.SeedUserCreatedAt(t, ctx, st.db, "fresh@example.com", now.AddDate(0, 0, -10))
	require.NoError(t, st.svc.Activity.LogActivity(dbctx.Of(ctx), &types.ActivityLog{
		UserID: fresh.ID, ActivityType: "login", OccurredAt: now.Add(-time.Hour),
	}))

	res, err := st.orch.Run(ctx, Weekly, TriggerManual)
	require.NoError(t, err)
	assert.True(t, res.Success, "%+v", res.Tasks)

	evs, err := st.svc.Events.ListByUser(dbctx.Of(ctx), idle.ID, 10)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, events.InactiveWarning, evs[0].EventType)
	assert.True(t, evs[0].Processed)

	enrollments, err := st.svc.Enrollments.ListByClient(dbctx.Of(ctx), idle.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "inactive_7_days", enrollments[0].TriggerEvent)

	evs, err = st.svc.Events.ListByUser(dbctx.Of(ctx), fresh.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestMonthlyCadence(t *testing.T) {
	now := time.Date(2024, 7, 1, 2, 0, 0, 0, time.UTC)
	st := newStack(t, now)
	ctx := context.Background()
	veteran := testutil.SeedUserCreatedAt(t, ctx, st.db, "vet@example.com", now.AddDate(0, 0, -40))
	testutil.SeedUserCreatedAt(t, ctx, st.db, "new@example.com", now.AddDate(0, 0, -5))

	res, err := st.orch.Run(ctx, Monthly, TriggerManual)
	require.NoError(t, err)
	assert.True(t, res.Success, "%+v", res.Tasks)

	assert.Len(t, st.rec.SentOfType("monthly_report"), 2)
	n, err := st.svc.Activity.CountMilestones(dbctx.Of(ctx), veteran.ID, "account_30_days")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
