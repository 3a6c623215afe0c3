package sequences

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/coachflow-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

func TestSequenceRepo_UpsertByName(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewSequenceRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	seq := &types.Sequence{
		Name: "Welcome Series Test", TriggerEvent: "user_registered", Active: true,
		Steps: []types.SequenceStep{
			{Channel: types.ChannelInApp, Content: "Welkom {firstName}"},
			{DelayDays: 1, Channel: types.ChannelEmail, Subject: "Dag 1", Content: "Hoi"},
		},
	}
	created, err := repo.UpsertByName(dbc, seq)
	if err != nil || !created {
		t.Fatalf("UpsertByName: created=%v err=%v", created, err)
	}

	again := &types.Sequence{
		Name: "Welcome Series Test", TriggerEvent: "user_registered", Active: true,
		Steps: []types.SequenceStep{{Channel: types.ChannelInApp, Content: "Alleen deze"}},
	}
	created, err = repo.UpsertByName(dbc, again)
	if err != nil || created {
		t.Fatalf("UpsertByName(again): created=%v err=%v", created, err)
	}
	if again.ID != seq.ID {
		t.Fatalf("expected upsert to keep id %s, got %s", seq.ID, again.ID)
	}

	got, err := repo.GetByID(dbc, seq.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}
	if len(got.Steps) != 1 || got.Steps[0].Content != "Alleen deze" || got.Steps[0].StepNumber != 1 {
		t.Fatalf("expected steps to be replaced, got %+v", got.Steps)
	}

	active, err := repo.ListActiveByTrigger(dbc, "user_registered")
	if err != nil || len(active) == 0 {
		t.Fatalf("ListActiveByTrigger: n=%d err=%v", len(active), err)
	}
	if err := repo.SetActive(dbc, seq.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	active, _ = repo.ListActiveByTrigger(dbc, "user_registered")
	for _, s := range active {
		if s.ID == seq.ID {
			t.Fatalf("inactive sequence still listed")
		}
	}
}

func TestEnrollmentRepo_SingleActiveAndAdvance(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewEnrollmentRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	u := testutil.SeedUser(t, ctx, tx, "enroll@example.com")
	seq := testutil.SeedSequence(t, ctx, tx, "Enrollment Test", "course_started",
		types.SequenceStep{Content: "een"},
		types.SequenceStep{DelayDays: 2, Content: "twee"},
	)

	e := &types.ClientSequenceEnrollment{ClientID: u.ID, SequenceID: seq.ID, TriggerEvent: "course_started"}
	ok, err := repo.EnrollIfAbsent(dbc, e)
	if err != nil || !ok {
		t.Fatalf("EnrollIfAbsent: ok=%v err=%v", ok, err)
	}
	ok, err = repo.EnrollIfAbsent(dbc, &types.ClientSequenceEnrollment{ClientID: u.ID, SequenceID: seq.ID})
	if err != nil || ok {
		t.Fatalf("EnrollIfAbsent(dup): ok=%v err=%v", ok, err)
	}

	now := time.Now()
	ok, err = repo.AdvanceStep(dbc, e.ID, 0, false, now)
	if err != nil || !ok {
		t.Fatalf("AdvanceStep(0): ok=%v err=%v", ok, err)
	}
	ok, err = repo.AdvanceStep(dbc, e.ID, 0, false, now)
	if err != nil || ok {
		t.Fatalf("AdvanceStep(stale): ok=%v err=%v", ok, err)
	}
	ok, err = repo.AdvanceStep(dbc, e.ID, 1, true, now)
	if err != nil || !ok {
		t.Fatalf("AdvanceStep(final): ok=%v err=%v", ok, err)
	}

	got, err := repo.GetByID(dbc, e.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}
	if got.StepCompleted != 2 || got.Status != types.EnrollmentCompleted || got.CompletedAt == nil {
		t.Fatalf("unexpected enrollment: %+v", got)
	}

	// A completed enrollment frees the slot for a new active one.
	ok, err = repo.EnrollIfAbsent(dbc, &types.ClientSequenceEnrollment{ClientID: u.ID, SequenceID: seq.ID})
	if err != nil || !ok {
		t.Fatalf("EnrollIfAbsent(after completion): ok=%v err=%v", ok, err)
	}
	list, err := repo.ListByClient(dbc, u.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListByClient: n=%d err=%v", len(list), err)
	}
}

func TestEnrollmentRepo_SetStatus(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewEnrollmentRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	u := testutil.SeedUser(t, ctx, tx, "pause@example.com")
	seq := testutil.SeedSequence(t, ctx, tx, "Pause Test", "goal_achieved", types.SequenceStep{Content: "x"})
	e := &types.ClientSequenceEnrollment{ClientID: u.ID, SequenceID: seq.ID}
	if _, err := repo.EnrollIfAbsent(dbc, e); err != nil {
		t.Fatalf("EnrollIfAbsent: %v", err)
	}

	ok, err := repo.SetStatus(dbc, e.ID, []string{types.EnrollmentActive}, types.EnrollmentPaused)
	if err != nil || !ok {
		t.Fatalf("SetStatus(pause): ok=%v err=%v", ok, err)
	}
	ok, err = repo.SetStatus(dbc, e.ID, []string{types.EnrollmentActive}, types.EnrollmentPaused)
	if err != nil || ok {
		t.Fatalf("SetStatus(pause again): ok=%v err=%v", ok, err)
	}
	active, err := repo.GetActive(dbc, u.ID, seq.ID)
	if err != nil || active != nil {
		t.Fatalf("GetActive: expected none, got=%+v err=%v", active, err)
	}
}
