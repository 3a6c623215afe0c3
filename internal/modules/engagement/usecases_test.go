package engagement

import (
	"context"
	"errors"
	"sync"
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
	"github.com/yungbote/coachflow-backend/internal/domain/activity"
	engtypes "github.com/yungbote/coachflow-backend/internal/domain/engagement"
	"github.com/yungbote/coachflow-backend/internal/domain/events"
	"github.com/yungbote/coachflow-backend/internal/notify/notifytest"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	"github.com/yungbote/coachflow-backend/internal/textgen"
)

// 2024-06-10 is a Monday; 06:00 UTC is 08:00 in Amsterdam (CEST).
var fixedNow = time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC)

type stubGenerator struct {
	text string
	err  error
	n    int
}

func (g *stubGenerator) Generate(context.Context, textgen.PromptContext, int, float64) (string, error) {
	g.n++
	return g.text, g.err
}

type eventLog struct {
	mu  sync.Mutex
	got []string
}

func (e *eventLog) TrackEvent(_ context.Context, _ uuid.UUID, eventType string, _ map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.got = append(e.got, eventType)
	return nil
}

type fixture struct {
	db       *gorm.DB
	u        Usecases
	rec      *notifytest.Recorder
	gen      *stubGenerator
	events   *eventLog
	engRepo  repos.EngagementRepo
	activity repos.ActivityRepo
	user     *types.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	f := &fixture{
		db:       db,
		rec:      notifytest.NewRecorder(),
		gen:      &stubGenerator{err: errors.New("model overloaded")},
		events:   &eventLog{},
		engRepo:  repos.NewEngagementRepo(db, log),
		activity: repos.NewActivityRepo(db, log),
	}
	f.u = New(UsecasesDeps{
		DB:         db,
		Log:        log,
		Catalog:    catalog.Default(),
		Users:      repos.NewUserRepo(db, log),
		Engagement: f.engRepo,
		Activity:   f.activity,
		Journey:    repos.NewJourneyRepo(db, log),
		Badges:     repos.NewBadgeRepo(db, log),
		Notifier:   f.rec,
		Generator:  f.gen,
		Events:     f.events,
		Now:        func() time.Time { return fixedNow },
	})
	f.user = testutil.SeedUser(t, context.Background(), db, "engage@example.com")
	return f
}

func (f *fixture) prefs(t *testing.T, quietStart, quietEnd string) {
	t.Helper()
	testutil.SeedPreferences(t, context.Background(), f.db, &types.CommunicationPreference{
		UserID:       f.user.ID,
		Timezone:     "Europe/Amsterdam",
		QuietStart:   quietStart,
		QuietEnd:     quietEnd,
		EmailEnabled: true,
		InAppEnabled: true,
	})
}

func (f *fixture) schedule(t *testing.T, typ engtypes.Type, at time.Time) *types.EngagementSchedule {
	t.Helper()
	row := &types.EngagementSchedule{
		UserID:       f.user.ID,
		Type:         typ,
		ScheduledDay: at.Format(dayLayout),
		ScheduledFor: at,
		Channel:      types.ChannelInApp,
	}
	ok, err := f.engRepo.InsertIgnore(dbctx.Of(context.Background()), row)
	require.NoError(t, err)
	require.True(t, ok)
	return row
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *types.EngagementSchedule {
	t.Helper()
	row, err := f.engRepo.GetByID(dbctx.Of(context.Background()), id)
	require.NoError(t, err)
	require.NotNil(t, row)
	return row
}

func TestScheduleDailyIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.prefs(t, "", "")
	ctx := context.Background()

	res, err := f.u.ScheduleDaily(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-10", res.Day)
	assert.Equal(t, 3, res.Scheduled)

	res, err = f.u.ScheduleDaily(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, res.Scheduled)

	rows, err := f.engRepo.ListByUser(dbctx.Of(ctx), f.user.ID, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		if r.Type == engtypes.TypeMorningMotivation {
			assert.True(t, r.ScheduledFor.Equal(time.Date(2024, 6, 10, 7, 0, 0, 0, time.UTC)), "09:00 Amsterdam is 07:00 UTC, got %s", r.ScheduledFor)
		}
	}
}

func TestScheduleDailySkipsEveningInQuietHours(t *testing.T) {
	f := newFixture(t)
	f.prefs(t, "19:00", "21:00")

	res, err := f.u.ScheduleDaily(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scheduled)
	assert.Equal(t, 1, res.Skipped)
}

func TestScheduleDailyWrappedQuietHoursKeepEvening(t *testing.T) {
	f := newFixture(t)
	f.prefs(t, "22:00", "07:00")

	res, err := f.u.ScheduleDaily(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Scheduled)
}

func TestScheduleDailyDefaultsTimezone(t *testing.T) {
	f := newFixture(t)

	res, err := f.u.ScheduleDaily(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Scheduled)
}

func TestScheduleWeeklyReflectionTargetsSunday(t *testing.T) {
	f := newFixture(t)
	f.prefs(t, "", "")

	res, err := f.u.ScheduleWeeklyReflection(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-16", res.Day)
	assert.Equal(t, 1, res.Scheduled)
}

func TestDeliverWindowBoundaries(t *testing.T) {
	f := newFixture(t)
	f.prefs(t, "", "")
	ctx := context.Background()

	due := f.schedule(t, engtypes.TypeMorningMotivation, fixedNow.Add(-30*time.Minute))
	stale := f.schedule(t, engtypes.TypeProgressReminder, fixedNow.Add(-time.Hour))
	future := f.schedule(t, engtypes.TypeEveningCheckin, fixedNow.Add(10*time.Minute))

	res, err := f.u.Deliver(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Zero(t, res.Errors)

	assert.Equal(t, types.EngagementDelivered, f.reload(t, due.ID).Status)
	assert.Equal(t, types.EngagementScheduled, f.reload(t, stale.ID).Status)
	assert.Equal(t, types.EngagementScheduled, f.reload(t, future.ID).Status)

	res, err = f.u.RecoverMissed(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, types.EngagementDelivered, f.reload(t, stale.ID).Status)
	assert.Len(t, f.rec.Sent(), 2)
}

func TestDeliverFallsBackToTemplates(t *testing.T) {
	f := newFixture(t)
	f.prefs(t, "", "")
	row := f.schedule(t, engtypes.TypeMorningMotivation, fixedNow.Add(-time.Minute))

	_, err := f.u.Deliver(context.Background(), fixedNow)
	require.NoError(t, err)

	def, _ := catalog.Default().Engagement(string(engtypes.TypeMorningMotivation))
	stored := f.reload(t, row.ID)
	assert.Contains(t, def.Templates, stored.Content)
	assert.Equal(t, 1, f.gen.n)

	sent := f.rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, stored.Content, sent[0].Content.Body)
	assert.Equal(t, f.user.ID.String(), sent[0].Destination)
}

func TestDeliverUsesGeneratedText(t *testing.T) {
	f := newFixture(t)
	f.prefs(t, "", "")
	f.gen.text, f.gen.err = "Goedemorgen Sam, je kunt dit!", nil
	row := f.schedule(t, engtypes.TypeMorningMotivation, fixedNow.Add(-time.Minute))

	_, err := f.u.Deliver(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "Goedemorgen Sam, je kunt dit!", f.reload(t, row.ID).Content)
}

func TestDeliverMarksFailedRowsAndContinues(t *testing.T) {
	f := newFixture(t)
	f.prefs(t, "", "")
	ctx := context.Background()
	inApp := f.schedule(t, engtypes.TypeMorningMotivation, fixedNow.Add(-2*time.Minute))
	email := &types.EngagementSchedule{
		UserID:       f.user.ID,
		Type:         engtypes.TypeProgressReminder,
		ScheduledDay: "2024-06-10",
		ScheduledFor: fixedNow.Add(-time.Minute),
		Channel:      types.ChannelEmail,
	}
	_, err := f.engRepo.InsertIgnore(dbctx.Of(ctx), email)
	require.NoError(t, err)
	f.rec.Failing[types.ChannelEmail] = true

	res, err := f.u.Deliver(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Errors)

	assert.Equal(t, types.EngagementDelivered, f.reload(t, inApp.ID).Status)
	failed := f.reload(t, email.ID)
	assert.Equal(t, types.EngagementFailed, failed.Status)
	assert.NotEmpty(t, failed.FailureReason)
	assert.Equal(t, 1, failed.Attempts)
}

func TestRecordActivityTracksStreakAndMilestones(t *testing.T) {
	f := newFixture(t)
	f.prefs(t, "", "")
	ctx := context.Background()
	require.NoError(t, f.activity.SaveStreak(dbctx.Of(ctx), &types.UserStreak{
		UserID:           f.user.ID,
		StreakType:       activity.StreakDaily,
		CurrentStreak:    6,
		LongestStreak:    6,
		LastActivityDate: "2024-06-09",
	}))

	s, err := f.u.RecordActivity(ctx, RecordActivityInput{UserID: f.user.ID, ActivityType: "morning_checkin"})
	require.NoError(t, err)
	assert.Equal(t, 7, s.CurrentStreak)
	assert.Equal(t, 7, s.LongestStreak)
	assert.Equal(t, []string{events.StreakAchieved}, f.events.got)

	s, err = f.u.RecordActivity(ctx, RecordActivityInput{UserID: f.user.ID, ActivityType: "message_sent"})
	require.NoError(t, err)
	assert.Equal(t, 7, s.CurrentStreak)
	assert.Len(t, f.events.got, 1)

	n, err := f.activity.CountActivities(dbctx.Of(ctx), f.user.ID, "", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestCelebrateStreakOncePerDay(t *testing.T) {
	f := newFixture(t)
	f.prefs(t, "", "")
	ctx := context.Background()

	ok, err := f.u.CelebrateStreak(ctx, f.user.ID, 14)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.u.CelebrateStreak(ctx, f.user.ID, 14)
	require.NoError(t, err)
	assert.False(t, ok)

	sent := f.rec.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Content.Body, "14")
}

func TestFallbackContentIsDeterministic(t *testing.T) {
	def, _ := catalog.Default().Engagement(string(engtypes.TypeStreakCelebration))
	u := &types.User{ID: uuid.New(), Name: "Sam"}
	a := FallbackContent(def, u, "2024-06-10", map[string]string{"streak": "30"})
	b := FallbackContent(def, u, "2024-06-10", map[string]string{"streak": "30"})
	assert.Equal(t, a, b)
	assert.Contains(t, a, "30")
	assert.NotContains(t, a, "{streak}")
}
