package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	"github.com/yungbote/coachflow-backend/internal/data/repos"
	"github.com/yungbote/coachflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/events"
	msgtypes "github.com/yungbote/coachflow-backend/internal/domain/messaging"
	"github.com/yungbote/coachflow-backend/internal/modules/badges"
	"github.com/yungbote/coachflow-backend/internal/modules/engagement"
	"github.com/yungbote/coachflow-backend/internal/modules/messaging"
	"github.com/yungbote/coachflow-backend/internal/modules/sequences"
	"github.com/yungbote/coachflow-backend/internal/notify/notifytest"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

var fixedNow = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

// relay breaks the construction cycle between the engagement module and the bus.
type relay struct{ bus *Usecases }

func (r *relay) TrackEvent(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]any) error {
	return r.bus.TrackEvent(ctx, userID, eventType, payload)
}

type fixture struct {
	db          *gorm.DB
	u           Usecases
	rec         *notifytest.Recorder
	eventRepo   repos.ProgressEventRepo
	activity    repos.ActivityRepo
	badgeRepo   repos.BadgeRepo
	messages    repos.MessageRepo
	enrollments repos.EnrollmentRepo
	engagements repos.EngagementRepo
	user        *types.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	cat := catalog.Default()
	clock := func() time.Time { return fixedNow }
	f := &fixture{
		db:          db,
		rec:         notifytest.NewRecorder(),
		eventRepo:   repos.NewProgressEventRepo(db, log),
		activity:    repos.NewActivityRepo(db, log),
		badgeRepo:   repos.NewBadgeRepo(db, log),
		messages:    repos.NewMessageRepo(db, log),
		enrollments: repos.NewEnrollmentRepo(db, log),
		engagements: repos.NewEngagementRepo(db, log),
	}
	users := repos.NewUserRepo(db, log)
	seqRepo := repos.NewSequenceRepo(db, log)
	msgs := messaging.New(messaging.UsecasesDeps{DB: db, Log: log, Users: users, Messages: f.messages, Notifier: f.rec, Now: clock})
	seqs := sequences.New(sequences.UsecasesDeps{
		DB: db, Log: log, Catalog: cat, Users: users, Sequences: seqRepo, Enrollments: f.enrollments, Messaging: msgs, Now: clock,
	})
	_, err := seqs.SeedPredefined(context.Background())
	require.NoError(t, err)
	badgeUC := badges.New(badges.UsecasesDeps{
		DB: db, Log: log, Catalog: cat, Users: users, Activity: f.activity, Badges: f.badgeRepo, Notifier: f.rec, Now: clock,
	})
	r := &relay{}
	eng := engagement.New(engagement.UsecasesDeps{
		DB:         db,
		Log:        log,
		Catalog:    cat,
		Users:      users,
		Engagement: f.engagements,
		Activity:   f.activity,
		Journey:    repos.NewJourneyRepo(db, log),
		Badges:     f.badgeRepo,
		Notifier:   f.rec,
		Events:     r,
		Now:        clock,
	})
	f.u = New(UsecasesDeps{
		DB:        db,
		Log:       log,
		Events:    f.eventRepo,
		Activity:  f.activity,
		Notifier:  f.rec,
		Sequences: seqs,
		Messages:  msgs,
		Badges:    badgeUC,
		Recorder:  eng,
		Now:       clock,
	})
	r.bus = &f.u
	f.user = testutil.SeedUser(t, context.Background(), db, "progress@example.com")
	return f
}

func (f *fixture) processed(t *testing.T, id uuid.UUID) bool {
	t.Helper()
	ev, err := f.eventRepo.GetByID(dbctx.Of(context.Background()), id)
	require.NoError(t, err)
	require.NotNil(t, ev)
	return ev.Processed
}

func TestGoalCompletedFansOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev, err := f.u.Track(ctx, TrackInput{
		UserID:    f.user.ID,
		EventType: events.GoalCompleted,
		Payload:   map[string]any{"goal_title": "Drie dates plannen"},
	})
	require.NoError(t, err)
	assert.True(t, f.processed(t, ev.ID))

	notes := f.rec.SentOfType(events.GoalCompleted)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Content.Body, "Drie dates plannen")

	earned, err := f.badgeRepo.EarnedIDs(dbctx.Of(ctx), f.user.ID)
	require.NoError(t, err)
	assert.True(t, earned["doelgericht"])

	msgs, err := f.messages.ListByClient(dbctx.Of(ctx), f.user.ID, 20)
	require.NoError(t, err)
	var followUp *types.Message
	for _, m := range msgs {
		if m.Status == msgtypes.MessageScheduled {
			followUp = m
		}
	}
	require.NotNil(t, followUp)
	require.NotNil(t, followUp.ScheduledFor)
	assert.True(t, followUp.ScheduledFor.Equal(fixedNow.Add(72*time.Hour)))

	enrollments, err := f.enrollments.ListByClient(dbctx.Of(ctx), f.user.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "goal_achieved", enrollments[0].TriggerEvent)
}

func TestRedispatchIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev, err := f.u.Track(ctx, TrackInput{UserID: f.user.ID, EventType: events.GoalCompleted, Payload: map[string]any{"goal_title": "x"}})
	require.NoError(t, err)
	require.NoError(t, f.u.process(ctx, ev))

	n, err := f.activity.CountMilestones(dbctx.Of(ctx), f.user.ID, MilestoneGoalCompleted)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	msgs, err := f.messages.ListByClient(dbctx.Of(ctx), f.user.ID, 20)
	require.NoError(t, err)
	scheduled := 0
	for _, m := range msgs {
		if m.Status == msgtypes.MessageScheduled {
			scheduled++
		}
	}
	assert.Equal(t, 1, scheduled)

	enrollments, err := f.enrollments.ListByClient(dbctx.Of(ctx), f.user.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)

	// Once the first enrollment leaves active, replaying the same event must
	// still not enroll the client again.
	ok, err := f.enrollments.SetStatus(dbctx.Of(ctx), enrollments[0].ID, []string{types.EnrollmentActive}, types.EnrollmentCompleted)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, f.db.Model(&types.ProgressEvent{}).Where("id = ?", ev.ID).
		Updates(map[string]interface{}{"processed": false, "processed_at": nil}).Error)

	res, err := f.u.ProcessPending(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	enrollments, err = f.enrollments.ListByClient(dbctx.Of(ctx), f.user.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, types.EnrollmentCompleted, enrollments[0].Status)
	require.NotNil(t, enrollments[0].TriggerRef)
	assert.Equal(t, "event:"+ev.ID.String(), *enrollments[0].TriggerRef)

	n, err = f.activity.CountMilestones(dbctx.Of(ctx), f.user.ID, MilestoneGoalCompleted)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestFailedHandlerLeavesEventPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fail := true
	f.u.Register("custom", func(context.Context, *types.ProgressEvent, Payload) error {
		if fail {
			return errors.New("downstream unavailable")
		}
		return nil
	})

	ev, err := f.u.Track(ctx, TrackInput{UserID: f.user.ID, EventType: "custom"})
	require.Error(t, err)
	require.NotNil(t, ev)
	assert.False(t, f.processed(t, ev.ID))

	res, err := f.u.ProcessPending(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)

	fail = false
	res, err = f.u.ProcessPending(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.True(t, f.processed(t, ev.ID))

	res, err = f.u.ProcessPending(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
}

func TestProcessPendingWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := &types.ProgressEvent{UserID: f.user.ID, EventType: "unknown", OccurredAt: fixedNow.Add(-25 * time.Hour)}
	recent := &types.ProgressEvent{UserID: f.user.ID, EventType: "unknown", OccurredAt: fixedNow.Add(-23 * time.Hour)}
	require.NoError(t, f.eventRepo.Create(dbctx.Of(ctx), old))
	require.NoError(t, f.eventRepo.Create(dbctx.Of(ctx), recent))

	res, err := f.u.ProcessPending(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.True(t, f.processed(t, recent.ID))
	assert.False(t, f.processed(t, old.ID))
}

func TestStreakAchievedCelebratesMilestones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.u.TrackEvent(ctx, f.user.ID, events.StreakAchieved, map[string]any{"streak": 7}))
	require.NoError(t, f.u.TrackEvent(ctx, f.user.ID, events.StreakAchieved, map[string]any{"streak": 8}))

	rows, err := f.engagements.ListByUser(dbctx.Of(ctx), f.user.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, types.EngagementDelivered, rows[0].Status)
	assert.Contains(t, rows[0].Content, "7")
}

func TestProfileUpdatedAwardsAndEnrolls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.u.TrackEvent(ctx, f.user.ID, events.ProfileUpdated, map[string]any{"completion": 60}))
	earned, err := f.badgeRepo.EarnedIDs(dbctx.Of(ctx), f.user.ID)
	require.NoError(t, err)
	assert.True(t, earned["profiel_starter"])
	assert.False(t, earned["profiel_pro"])

	enrollments, err := f.enrollments.ListByClient(dbctx.Of(ctx), f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, enrollments)

	require.NoError(t, f.u.TrackEvent(ctx, f.user.ID, events.ProfileUpdated, map[string]any{"completion": 100, "complete": true}))
	earned, err = f.badgeRepo.EarnedIDs(dbctx.Of(ctx), f.user.ID)
	require.NoError(t, err)
	assert.True(t, earned["profiel_pro"])

	enrollments, err = f.enrollments.ListByClient(dbctx.Of(ctx), f.user.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "profile_completed", enrollments[0].TriggerEvent)
}

func TestJourneyCompletedRecordsActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.u.TrackEvent(ctx, f.user.ID, events.JourneyCompleted, nil))
	n, err := f.activity.CountActivities(dbctx.Of(ctx), f.user.ID, events.JourneyCompleted, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Len(t, f.rec.SentOfType(events.JourneyCompleted), 1)
}

func TestTrackRejectsMissingFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.u.Track(context.Background(), TrackInput{EventType: events.GoalCompleted})
	require.Error(t, err)
}

func TestPayloadInt(t *testing.T) {
	p := Payload{"a": float64(7), "b": "14", "c": true}
	assert.Equal(t, 7, p.Int("a"))
	assert.Equal(t, 14, p.Int("b"))
	assert.Equal(t, 0, p.Int("c"))
	assert.Equal(t, 0, p.Int("missing"))
}
