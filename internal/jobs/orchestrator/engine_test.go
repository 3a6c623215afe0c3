package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coachflow-backend/internal/data/repos"
	"github.com/yungbote/coachflow-backend/internal/data/repos/testutil"
	"github.com/yungbote/coachflow-backend/internal/jobs/worker"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
)

var fixedNow = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func task(name string, r worker.Result, err error) Task {
	return Task{Name: name, Run: func(context.Context, time.Time) (worker.Result, error) { return r, err }}
}

func newTestOrchestrator(cfg Config, tasks map[Cadence][]Task) *Orchestrator {
	return New(Deps{Config: cfg, Tasks: tasks, Now: func() time.Time { return fixedNow }})
}

func TestRunIsolatesFailingTask(t *testing.T) {
	o := newTestOrchestrator(Config{}, map[Cadence][]Task{
		Hourly: {
			task("a", worker.Result{Processed: 3}, nil),
			task("b", worker.Result{}, errors.New("db down")),
			task("c", worker.Result{Processed: 2, Errors: 1}, nil),
		},
	})

	res, err := o.Run(context.Background(), Hourly, TriggerManual)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 5, res.Processed)
	assert.Equal(t, 1, res.Errors)
	require.Len(t, res.Tasks, 3)
	assert.True(t, res.Tasks[0].Success)
	assert.False(t, res.Tasks[1].Success)
	assert.Equal(t, "db down", res.Tasks[1].Error)
	assert.True(t, res.Tasks[2].Success)
	assert.Equal(t, fixedNow, res.Timestamp)
}

func TestItemErrorsOnlyFailInStrictMode(t *testing.T) {
	tasks := map[Cadence][]Task{Daily: {task("a", worker.Result{Processed: 1, Errors: 2}, nil)}}

	res, err := newTestOrchestrator(Config{}, tasks).Run(context.Background(), Daily, TriggerManual)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = newTestOrchestrator(Config{Strict: true}, tasks).Run(context.Background(), Daily, TriggerManual)
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestTaskPanicIsContained(t *testing.T) {
	o := newTestOrchestrator(Config{}, map[Cadence][]Task{
		Weekly: {
			{Name: "boom", Run: func(context.Context, time.Time) (worker.Result, error) { panic("nil map") }},
			task("after", worker.Result{Processed: 1}, nil),
		},
	})
	res, err := o.Run(context.Background(), Weekly, TriggerManual)
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Tasks, 2)
	assert.Contains(t, res.Tasks[0].Error, "nil map")
	assert.True(t, res.Tasks[1].Success)
}

func TestCancelSkipsRemainingTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	o := newTestOrchestrator(Config{}, map[Cadence][]Task{
		Monthly: {
			{Name: "first", Run: func(context.Context, time.Time) (worker.Result, error) {
				cancel()
				return worker.Result{Processed: 1}, nil
			}},
			task("second", worker.Result{Processed: 1}, nil),
		},
	})
	res, err := o.Run(ctx, Monthly, TriggerManual)
	require.NoError(t, err)
	assert.True(t, res.Canceled)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, res.Tasks, 2)
	assert.True(t, res.Tasks[1].Skipped)
}

func TestHistoryEvictsOldest(t *testing.T) {
	n := 0
	o := newTestOrchestrator(Config{HistoryCapacity: 3}, map[Cadence][]Task{
		Hourly: {{Name: "count", Run: func(context.Context, time.Time) (worker.Result, error) {
			n++
			return worker.Result{Processed: n}, nil
		}}},
	})
	for i := 0; i < 5; i++ {
		_, err := o.Run(context.Background(), Hourly, TriggerSchedule)
		require.NoError(t, err)
	}
	hist := o.History()
	require.Len(t, hist, 3)
	assert.Equal(t, 3, hist[0].Processed)
	assert.Equal(t, 5, hist[2].Processed)
}

func TestSummary(t *testing.T) {
	o := newTestOrchestrator(Config{}, map[Cadence][]Task{
		Hourly: {task("ok", worker.Result{Processed: 2}, nil)},
		Daily:  {task("bad", worker.Result{}, errors.New("x"))},
	})
	assert.Equal(t, 0, o.Summary().TotalRuns)

	for i := 0; i < 3; i++ {
		_, err := o.Run(context.Background(), Hourly, TriggerSchedule)
		require.NoError(t, err)
	}
	_, err := o.Run(context.Background(), Daily, TriggerSchedule)
	require.NoError(t, err)

	s := o.Summary()
	assert.Equal(t, 4, s.TotalRuns)
	assert.InDelta(t, 75.0, s.SuccessRate, 0.001)
	assert.Equal(t, 3, s.Jobs["hourly"].Runs)
	assert.Equal(t, 6, s.Jobs["hourly"].Processed)
	assert.Equal(t, 1, s.Jobs["daily"].Failures)
	assert.False(t, s.Jobs["daily"].LastSuccess)
}

func TestTriggerJobValidatesCadence(t *testing.T) {
	o := newTestOrchestrator(Config{}, map[Cadence][]Task{Hourly: {task("a", worker.Result{}, nil)}})

	_, err := o.TriggerJob(context.Background(), "yearly")
	require.ErrorIs(t, err, pkgerrors.ErrInvalidArgument)
	_, err = o.TriggerJob(context.Background(), "daily")
	require.ErrorIs(t, err, pkgerrors.ErrInvalidArgument)

	res, err := o.TriggerJob(context.Background(), " Hourly ")
	require.NoError(t, err)
	assert.Equal(t, TriggerManual, res.Trigger)
}

func TestOverlappingRunIsRejected(t *testing.T) {
	var o *Orchestrator
	var inner error
	o = newTestOrchestrator(Config{}, map[Cadence][]Task{
		Hourly: {{Name: "reenter", Run: func(ctx context.Context, _ time.Time) (worker.Result, error) {
			_, inner = o.Run(ctx, Hourly, TriggerManual)
			return worker.Result{}, nil
		}}},
	})
	_, err := o.Run(context.Background(), Hourly, TriggerManual)
	require.NoError(t, err)
	require.ErrorIs(t, inner, pkgerrors.ErrConflict)

	_, err = o.Run(context.Background(), Hourly, TriggerManual)
	require.NoError(t, err)
}

func TestRunsArePersisted(t *testing.T) {
	db := testutil.SQLite(t)
	runs := repos.NewCronRunRepo(db, testutil.Logger(t))
	o := New(Deps{
		Log:   testutil.Logger(t),
		Runs:  runs,
		Tasks: map[Cadence][]Task{Daily: {task("a", worker.Result{Processed: 4}, nil)}},
		Now:   func() time.Time { return fixedNow },
	})
	_, err := o.Run(context.Background(), Daily, TriggerSchedule)
	require.NoError(t, err)

	got, err := runs.ListRecent(dbctx.Of(context.Background()), "daily", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Success)
	assert.Equal(t, 4, got[0].Processed)
	assert.Equal(t, TriggerSchedule, got[0].Trigger)
	assert.Contains(t, string(got[0].Tasks), `"name":"a"`)
}

func TestParseCadence(t *testing.T) {
	for _, c := range Cadences {
		got, err := ParseCadence(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCadence("")
	assert.Error(t, err)
}

func TestBucket(t *testing.T) {
	name, since := bucket("hourly", fixedNow)
	assert.Equal(t, "2024-06-10T09", name)
	assert.Equal(t, fixedNow.Add(-time.Hour), since)

	name, _ = bucket("weekly", fixedNow)
	assert.Equal(t, "2024-W24", name)

	name, _ = bucket("monthly", fixedNow)
	assert.Equal(t, "2024-06", name)

	name, _ = bucket("daily", fixedNow)
	assert.Equal(t, "2024-06-10", name)
}

func TestDefaultSchedulesParse(t *testing.T) {
	o := newTestOrchestrator(Config{}, map[Cadence][]Task{})
	_, err := NewScheduler(nil, o, DefaultSchedule(), time.UTC)
	require.NoError(t, err)

	_, err = NewScheduler(nil, o, Schedule{Hourly: "not a spec"}, time.UTC)
	require.Error(t, err)
}
