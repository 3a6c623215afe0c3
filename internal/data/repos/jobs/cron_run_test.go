package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/coachflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

func TestCronRunRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewCronRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	now := time.Now().UTC()
	runs := []*types.CronRun{
		{Name: "daily-test", Trigger: "schedule", Success: true, Processed: 4, StartedAt: now.Add(-2 * time.Hour)},
		{Name: "daily-test", Trigger: "manual", Success: false, Errors: 1, StartedAt: now.Add(-time.Hour)},
		{Name: "hourly-test", Trigger: "schedule", Success: true, StartedAt: now.AddDate(0, 0, -100)},
	}
	for _, r := range runs {
		if err := repo.Create(dbc, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	daily, err := repo.ListRecent(dbc, "daily-test", 10)
	if err != nil || len(daily) != 2 {
		t.Fatalf("ListRecent: n=%d err=%v", len(daily), err)
	}
	if daily[0].Trigger != "manual" {
		t.Fatalf("expected newest run first, got %+v", daily[0])
	}

	n, err := repo.DeleteBefore(dbc, now.AddDate(0, 0, -90))
	if err != nil || n != 1 {
		t.Fatalf("DeleteBefore: n=%d err=%v", n, err)
	}
}

func TestMetricSnapshotRepo_Upsert(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewMetricSnapshotRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	now := time.Now()
	if err := repo.Upsert(dbc, []*types.MetricSnapshot{
		{Period: "daily", Bucket: "2024-03-04", Key: "active_users", Value: 10, ComputedAt: now},
		{Period: "daily", Bucket: "2024-03-04", Key: "badges_awarded", Value: 2, ComputedAt: now},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(dbc, []*types.MetricSnapshot{
		{Period: "daily", Bucket: "2024-03-04", Key: "active_users", Value: 12, ComputedAt: now},
	}); err != nil {
		t.Fatalf("Upsert(again): %v", err)
	}
	rows, err := repo.ListByBucket(dbc, "daily", "2024-03-04")
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByBucket: n=%d err=%v", len(rows), err)
	}
	if rows[0].Key != "active_users" || rows[0].Value != 12 {
		t.Fatalf("expected refreshed active_users=12, got %+v", rows[0])
	}
}
