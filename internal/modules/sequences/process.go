package sequences

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/jobs/worker"
	"github.com/yungbote/coachflow-backend/internal/modules/messaging"
	"github.com/yungbote/coachflow-backend/internal/observability"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
)

// ProcessSteps sends at most one due step per active enrollment and completes
// enrollments that have run out of steps.
func (u Usecases) ProcessSteps(ctx context.Context, now time.Time) (worker.Result, error) {
	dbc := dbctx.Of(ctx)
	active, err := u.deps.Enrollments.ListActive(dbc, u.deps.BatchLimit)
	if err != nil {
		return worker.Result{}, fmt.Errorf("list active enrollments: %w", err)
	}
	cache := &sequenceCache{u: u, byID: map[uuid.UUID]*types.Sequence{}}
	return worker.ForEach(ctx, u.deps.Pool, "process_sequence_steps", active, func(ctx context.Context, e *types.ClientSequenceEnrollment) error {
		return u.processEnrollment(ctx, cache, e, now)
	}), nil
}

type sequenceCache struct {
	u    Usecases
	mu   sync.Mutex
	byID map[uuid.UUID]*types.Sequence
}

func (c *sequenceCache) get(ctx context.Context, id uuid.UUID) (*types.Sequence, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq, ok := c.byID[id]; ok {
		return seq, nil
	}
	seq, err := c.u.deps.Sequences.GetByID(dbctx.Of(ctx), id)
	if err != nil {
		return nil, err
	}
	c.byID[id] = seq
	return seq, nil
}

func (u Usecases) processEnrollment(ctx context.Context, cache *sequenceCache, e *types.ClientSequenceEnrollment, now time.Time) error {
	dbc := dbctx.Of(ctx)
	seq, err := cache.get(ctx, e.SequenceID)
	if err != nil {
		return fmt.Errorf("enrollment %s: load sequence: %w", e.ID, err)
	}
	if seq == nil || !seq.Active {
		return nil
	}

	next := e.StepCompleted + 1
	if next > len(seq.Steps) {
		_, err := u.deps.Enrollments.SetStatus(dbc, e.ID, []string{types.EnrollmentActive}, types.EnrollmentCompleted)
		return err
	}
	step := seq.Steps[next-1]
	if e.EnrolledAt.Add(step.Delay()).After(now) {
		return nil
	}

	client, err := u.deps.Users.GetByID(dbc, e.ClientID)
	if err != nil {
		return fmt.Errorf("enrollment %s: load client: %w", e.ID, err)
	}
	if client == nil {
		return u.parkOrphaned(dbc, e, next)
	}
	subject, content, err := u.render(ctx, step, client, e)
	if err != nil {
		return fmt.Errorf("enrollment %s step %d: %w", e.ID, next, err)
	}

	stepNumber := next
	_, sendErr := u.deps.Messaging.SendMessage(ctx, messaging.SendMessageInput{
		ClientID:   e.ClientID,
		Channel:    step.Channel,
		Subject:    subject,
		Content:    content,
		DedupeKey:  fmt.Sprintf("sequence:%s:%d", e.ID, next),
		SequenceID: &seq.ID,
		StepNumber: &stepNumber,
	})
	switch {
	case sendErr == nil:
		observability.RecordSequenceStep(step.Channel, "sent")
	case errors.Is(sendErr, pkgerrors.ErrNotFound):
		observability.RecordSequenceStep(step.Channel, "blocked")
		return u.parkOrphaned(dbc, e, next)
	case messaging.IsBlocked(sendErr):
		// The client opted out of this channel; move on rather than retry forever.
		observability.RecordSequenceStep(step.Channel, "blocked")
		u.deps.Log.Info("Sequence step blocked by preferences", "enrollment_id", e.ID, "step", next, "error", sendErr)
	default:
		observability.RecordSequenceStep(step.Channel, "failed")
		return fmt.Errorf("enrollment %s step %d: %w", e.ID, next, sendErr)
	}

	advanced, err := u.deps.Enrollments.AdvanceStep(dbc, e.ID, e.StepCompleted, next >= len(seq.Steps), now)
	if err != nil {
		return fmt.Errorf("enrollment %s: advance: %w", e.ID, err)
	}
	if !advanced {
		u.deps.Log.Debug("Enrollment advanced concurrently", "enrollment_id", e.ID, "expected", e.StepCompleted)
	}
	return nil
}

// parkOrphaned pauses an enrollment whose client no longer exists so the
// worker stops retrying it every pass.
func (u Usecases) parkOrphaned(dbc dbctx.Context, e *types.ClientSequenceEnrollment, step int) error {
	if _, err := u.deps.Enrollments.SetStatus(dbc, e.ID, []string{types.EnrollmentActive}, types.EnrollmentPaused); err != nil {
		return fmt.Errorf("enrollment %s: pause: %w", e.ID, err)
	}
	u.deps.Log.Warn("Sequence client missing, enrollment paused", "enrollment_id", e.ID, "client_id", e.ClientID, "step", step)
	return nil
}
