package orchestrator

import (
	"context"
	"fmt"
	"time"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/jobs/worker"
	"github.com/yungbote/coachflow-backend/internal/observability"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

// bucket names the period containing now and returns the start of the
// lookback window for counts.
func bucket(period string, now time.Time) (string, time.Time) {
	now = now.UTC()
	switch period {
	case "hourly":
		return now.Format("2006-01-02T15"), now.Add(-time.Hour)
	case "weekly":
		y, w := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w), now.AddDate(0, 0, -7)
	case "monthly":
		return now.Format("2006-01"), now.AddDate(0, -1, 0)
	default:
		return now.Format("2006-01-02"), now.AddDate(0, 0, -1)
	}
}

func (s Services) snapshotTask(period string) func(context.Context, time.Time) (worker.Result, error) {
	return func(ctx context.Context, now time.Time) (worker.Result, error) {
		values, err := s.collect(ctx, period, now)
		if err != nil {
			return worker.Result{}, err
		}
		name, _ := bucket(period, now)
		rows := make([]*types.MetricSnapshot, 0, len(values))
		for k, v := range values {
			rows = append(rows, &types.MetricSnapshot{Period: period, Bucket: name, Key: k, Value: v, ComputedAt: now})
			observability.SetSnapshot(period, k, v)
		}
		if err := s.Snapshots.Upsert(dbctx.Of(ctx), rows); err != nil {
			return worker.Result{}, fmt.Errorf("store %s snapshot: %w", period, err)
		}
		return worker.Result{Processed: len(rows)}, nil
	}
}

func (s Services) collect(ctx context.Context, period string, now time.Time) (map[string]float64, error) {
	dbc := dbctx.Of(ctx)
	_, since := bucket(period, now)
	out := map[string]float64{}

	active, err := s.Users.CountActive(dbc)
	if err != nil {
		return nil, fmt.Errorf("count active users: %w", err)
	}
	out["active_users"] = float64(active)

	engaged, err := s.Activity.CountDistinctActiveUsers(dbc, since)
	if err != nil {
		return nil, fmt.Errorf("count engaged users: %w", err)
	}
	out["engaged_users"] = float64(engaged)

	badgesAwarded, err := s.Badges.CountAwardedSince(dbc, since)
	if err != nil {
		return nil, fmt.Errorf("count badges: %w", err)
	}
	out["badges_awarded"] = float64(badgesAwarded)

	evs, err := s.Events.CountSince(dbc, "", since)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	out["progress_events"] = float64(evs)

	groups := []struct {
		prefix string
		load   func() (map[string]int64, error)
	}{
		{"engagements_", func() (map[string]int64, error) { return s.Engagements.CountByStatusSince(dbc, since) }},
		{"messages_", func() (map[string]int64, error) { return s.Messages.CountByStatusSince(dbc, since) }},
		{"enrollments_", func() (map[string]int64, error) { return s.Enrollments.CountByStatus(dbc) }},
		{"journeys_", func() (map[string]int64, error) { return s.Journeys.CountByStatus(dbc) }},
	}
	for _, g := range groups {
		counts, err := g.load()
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", g.prefix, err)
		}
		for status, n := range counts {
			out[g.prefix+status] = float64(n)
		}
	}
	return out, nil
}
