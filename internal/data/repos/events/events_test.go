package events

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/coachflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/events"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

func TestProgressEventRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewProgressEventRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	u := testutil.SeedUser(t, ctx, tx, "events@example.com")
	now := time.Now().UTC()
	first := &types.ProgressEvent{UserID: u.ID, EventType: events.GoalCompleted, OccurredAt: now.Add(-time.Minute)}
	second := &types.ProgressEvent{UserID: u.ID, EventType: events.CourseStarted, OccurredAt: now}
	for _, e := range []*types.ProgressEvent{second, first} {
		if err := repo.Create(dbc, e); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	pending, err := repo.ListUnprocessed(dbc, time.Time{}, 0)
	if err != nil {
		t.Fatalf("ListUnprocessed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first.ID {
		t.Fatalf("expected oldest-first pending events, got %d", len(pending))
	}

	ok, err := repo.MarkProcessed(dbc, first.ID, now)
	if err != nil || !ok {
		t.Fatalf("MarkProcessed: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkProcessed(dbc, first.ID, now)
	if err != nil || ok {
		t.Fatalf("MarkProcessed(again): ok=%v err=%v", ok, err)
	}
	pending, _ = repo.ListUnprocessed(dbc, time.Time{}, 0)
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Fatalf("expected one pending event, got %d", len(pending))
	}
	pending, _ = repo.ListUnprocessed(dbc, now.Add(time.Second), 0)
	if len(pending) != 0 {
		t.Fatalf("expected since bound to exclude older events, got %d", len(pending))
	}

	n, err := repo.CountSince(dbc, events.GoalCompleted, now.Add(-time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("CountSince: n=%d err=%v", n, err)
	}
}
