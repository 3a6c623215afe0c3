package badges

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	"github.com/yungbote/coachflow-backend/internal/data/repos"
	"github.com/yungbote/coachflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/activity"
	"github.com/yungbote/coachflow-backend/internal/notify/notifytest"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	u        Usecases
	rec      *notifytest.Recorder
	activity repos.ActivityRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	f := &fixture{db: db, rec: notifytest.NewRecorder(), activity: repos.NewActivityRepo(db, log)}
	f.u = New(UsecasesDeps{
		DB:       db,
		Log:      log,
		Catalog:  catalog.Default(),
		Users:    repos.NewUserRepo(db, log),
		Activity: f.activity,
		Badges:   repos.NewBadgeRepo(db, log),
		Notifier: f.rec,
		Now:      func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) user(t *testing.T, email string, age time.Duration) *types.User {
	t.Helper()
	return testutil.SeedUserCreatedAt(t, context.Background(), f.db, email, fixedNow.Add(-age))
}

func (f *fixture) streak(t *testing.T, u *types.User, current, longest int) {
	t.Helper()
	require.NoError(t, f.activity.SaveStreak(dbctx.Of(context.Background()), &types.UserStreak{
		UserID:           u.ID,
		StreakType:       activity.StreakDaily,
		CurrentStreak:    current,
		LongestStreak:    longest,
		LastActivityDate: "2024-06-10",
	}))
}

func ids(defs []catalog.BadgeDefinition) []string {
	out := make([]string, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}

func TestEersteStapAwardedOnce(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "streak@example.com", time.Hour)
	f.streak(t, u, 7, 7)
	ctx := context.Background()

	awarded, err := f.u.CheckAndAward(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"eerste_stap"}, ids(awarded))

	awarded, err = f.u.CheckAndAward(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, awarded)

	sent := f.rec.SentOfType(NotificationType)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Content.Title, "Eerste Stap")

	points, err := f.u.TotalPoints(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, points)
}

func TestConcurrentChecksAwardOnce(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "race@example.com", time.Hour)
	f.streak(t, u, 7, 7)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.u.CheckAndAward(context.Background(), u.ID)
		}()
	}
	wg.Wait()

	assert.Len(t, f.rec.SentOfType(NotificationType), 1)
	earned, err := f.u.ListUserBadges(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, "Eerste Stap", earned[0].Name)
}

func TestLongestStreakCounts(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "longest@example.com", time.Hour)
	f.streak(t, u, 1, 30)

	awarded, err := f.u.CheckAndAward(context.Background(), u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"eerste_stap", "momentum_bouwer"}, ids(awarded))
}

func TestTimeBasedAndAchievementCriteria(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "veteran@example.com", 31*24*time.Hour)
	_, err := f.activity.RecordMilestone(dbctx.Of(ctx), &types.Milestone{UserID: u.ID, Key: "profile_completion", Reference: "p1", Value: 60})
	require.NoError(t, err)
	_, err = f.activity.RecordMilestone(dbctx.Of(ctx), &types.Milestone{UserID: u.ID, Key: "goal_completed", Reference: "g1"})
	require.NoError(t, err)

	awarded, err := f.u.CheckAndAward(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"maand_1_kampioen", "profiel_starter", "doelgericht"}, ids(awarded))
}

func TestCountCriteriaUsesActivityType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "chatty@example.com", time.Hour)
	for i := 0; i < 50; i++ {
		require.NoError(t, f.activity.LogActivity(dbctx.Of(ctx), &types.ActivityLog{UserID: u.ID, ActivityType: "message_sent", OccurredAt: fixedNow}))
	}
	require.NoError(t, f.activity.LogActivity(dbctx.Of(ctx), &types.ActivityLog{UserID: u.ID, ActivityType: "date_completed", OccurredAt: fixedNow}))

	awarded, err := f.u.CheckAndAward(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"communicator"}, ids(awarded))
}

func TestBadgeProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "progress@example.com", time.Hour)
	f.streak(t, u, 3, 3)
	_, err := f.activity.RecordMilestone(dbctx.Of(ctx), &types.Milestone{UserID: u.ID, Key: "profile_completion", Reference: "p1", Value: 100})
	require.NoError(t, err)
	_, err = f.u.CheckAndAward(ctx, u.ID)
	require.NoError(t, err)

	progress, err := f.u.GetBadgeProgress(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, progress, len(catalog.Default().ActiveBadges()))

	byID := map[string]BadgeProgress{}
	for i, p := range progress {
		byID[p.ID] = p
		if i > 0 {
			assert.GreaterOrEqual(t, progress[i-1].Progress, p.Progress)
		}
	}
	assert.Equal(t, 100, byID["profiel_pro"].Progress)
	assert.True(t, byID["profiel_pro"].Earned)
	assert.Equal(t, 42, byID["eerste_stap"].Progress)
	assert.Equal(t, 10, byID["momentum_bouwer"].Progress)
	assert.Zero(t, byID["doelen_crusher"].Progress)
}

func TestProgressPercentCapsBelowHundred(t *testing.T) {
	assert.Equal(t, 99, progressPercent(10, 10))
	assert.Equal(t, 99, progressPercent(500, 10))
	assert.Equal(t, 50, progressPercent(5, 10))
	assert.Zero(t, progressPercent(0, 10))
}
