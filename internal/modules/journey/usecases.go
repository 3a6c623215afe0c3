package journey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	"github.com/yungbote/coachflow-backend/internal/data/repos"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/events"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

// EventTracker receives journey lifecycle events.
type EventTracker interface {
	TrackEvent(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]any) error
}

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Catalog *catalog.Catalog
	Journey repos.JourneyRepo

	// Optional.
	Events EventTracker
	Now    func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "journey")
	return Usecases{deps: deps}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

// Initialize creates the user's progress at the first catalog step, or returns
// the existing row.
func (u Usecases) Initialize(ctx context.Context, userID uuid.UUID) (*types.JourneyProgress, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("journey init: missing user id")
	}
	dbc := dbctx.Of(ctx)
	now := u.deps.Now().UTC()
	first := u.deps.Catalog.FirstStep()
	p := &types.JourneyProgress{
		UserID:         userID,
		CurrentPhase:   first.Phase,
		CurrentStep:    first.Step,
		Status:         types.JourneyStatusActive,
		CatalogVersion: u.deps.Catalog.Version(),
		StartedAt:      now,
		LastActivity:   now,
	}
	created, err := u.deps.Journey.CreateIfAbsent(dbc, p)
	if err != nil {
		return nil, fmt.Errorf("journey init: %w", err)
	}
	if !created {
		return u.deps.Journey.GetProgress(dbc, userID)
	}
	u.track(ctx, userID, events.JourneyStarted, map[string]any{
		"phase": first.Phase,
		"step":  first.Step,
	})
	return p, nil
}

type CompleteStepInput struct {
	UserID          uuid.UUID
	Phase           string
	Step            int
	Response        map[string]any
	DurationSeconds int
}

// CompleteStep records a completion. Progress moves to the successor only
// when the completed step is the current one; other steps are recorded
// without moving progress, and a completed journey never changes again.
func (u Usecases) CompleteStep(ctx context.Context, in CompleteStepInput) (*types.JourneyProgress, error) {
	def, ok := u.deps.Catalog.Step(in.Phase, in.Step)
	if !ok {
		return nil, &UnknownStepError{Phase: in.Phase, Step: in.Step}
	}
	p, err := u.Initialize(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("journey progress vanished for user %s", in.UserID)
	}

	dbc := dbctx.Of(ctx)
	now := u.deps.Now().UTC()
	var resp datatypes.JSON
	if len(in.Response) > 0 {
		raw, err := json.Marshal(in.Response)
		if err != nil {
			return nil, fmt.Errorf("encode step response: %w", err)
		}
		resp = datatypes.JSON(raw)
	}
	if err := u.deps.Journey.UpsertCompletion(dbc, &types.JourneyStepCompletion{
		UserID:          in.UserID,
		Phase:           def.Phase,
		Step:            def.Step,
		Response:        resp,
		DurationSeconds: max(in.DurationSeconds, 0),
		CompletedAt:     now,
	}); err != nil {
		return nil, fmt.Errorf("record step completion: %w", err)
	}

	if p.Status == types.JourneyStatusCompleted {
		return p, nil
	}

	completedIdx, _ := u.deps.Catalog.IndexOf(def.Phase, def.Step)
	currentIdx, known := u.deps.Catalog.IndexOf(p.CurrentPhase, p.CurrentStep)
	if known && completedIdx != currentIdx {
		if err := u.deps.Journey.UpdateProgress(dbc, in.UserID, map[string]interface{}{"last_activity": now}); err != nil {
			return nil, err
		}
		p.LastActivity = now
		return p, nil
	}

	updates := map[string]interface{}{"last_activity": now}
	next, hasNext := u.deps.Catalog.Next(def.Phase, def.Step)
	if hasNext {
		updates["current_phase"] = next.Phase
		updates["current_step"] = next.Step
	} else {
		updates["status"] = types.JourneyStatusCompleted
		updates["completed_at"] = now
	}
	if err := u.deps.Journey.UpdateProgress(dbc, in.UserID, updates); err != nil {
		return nil, fmt.Errorf("advance journey: %w", err)
	}
	p.LastActivity = now
	if hasNext {
		p.CurrentPhase, p.CurrentStep = next.Phase, next.Step
	} else {
		p.Status = types.JourneyStatusCompleted
		p.CompletedAt = &now
	}

	u.track(ctx, in.UserID, events.JourneyStepCompleted, map[string]any{
		"phase":     def.Phase,
		"step":      def.Step,
		"step_name": def.Name,
		"kind":      string(def.Kind),
	})
	if !hasNext {
		u.track(ctx, in.UserID, events.JourneyCompleted, map[string]any{
			"started_at": p.StartedAt.Format(time.RFC3339),
		})
	}
	return p, nil
}

// GetProgress returns nil when the user has not started the journey.
func (u Usecases) GetProgress(ctx context.Context, userID uuid.UUID) (*types.JourneyProgress, error) {
	return u.deps.Journey.GetProgress(dbctx.Of(ctx), userID)
}

// GetAvailableSteps returns the current step when it is not yet completed,
// followed by every optional step the user has not completed, in catalog order.
func (u Usecases) GetAvailableSteps(ctx context.Context, userID uuid.UUID) ([]catalog.StepDefinition, error) {
	dbc := dbctx.Of(ctx)
	p, err := u.deps.Journey.GetProgress(dbc, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return []catalog.StepDefinition{}, nil
	}
	done, err := u.completedKeys(dbc, userID)
	if err != nil {
		return nil, err
	}
	current := catalog.StepKey{Phase: p.CurrentPhase, Step: p.CurrentStep}
	out := make([]catalog.StepDefinition, 0)
	for _, s := range u.deps.Catalog.Steps() {
		if done[s.Key()] {
			continue
		}
		if s.Key() == current || !s.Required {
			out = append(out, s)
		}
	}
	return out, nil
}

// Reset clears completion history and rewinds to the first step.
func (u Usecases) Reset(ctx context.Context, userID uuid.UUID) (*types.JourneyProgress, error) {
	dbc := dbctx.Of(ctx)
	if err := u.deps.Journey.DeleteCompletions(dbc, userID); err != nil {
		return nil, fmt.Errorf("reset journey: %w", err)
	}
	existing, err := u.deps.Journey.GetProgress(dbc, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return u.Initialize(ctx, userID)
	}
	now := u.deps.Now().UTC()
	first := u.deps.Catalog.FirstStep()
	if err := u.deps.Journey.UpdateProgress(dbc, userID, map[string]interface{}{
		"current_phase":   first.Phase,
		"current_step":    first.Step,
		"status":          types.JourneyStatusActive,
		"completed_at":    nil,
		"catalog_version": u.deps.Catalog.Version(),
		"started_at":      now,
		"last_activity":   now,
	}); err != nil {
		return nil, fmt.Errorf("reset journey: %w", err)
	}
	u.deps.Log.Info("journey reset", "user_id", userID)
	return u.deps.Journey.GetProgress(dbc, userID)
}

func (u Usecases) completedKeys(dbc dbctx.Context, userID uuid.UUID) (map[catalog.StepKey]bool, error) {
	rows, err := u.deps.Journey.ListCompletions(dbc, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[catalog.StepKey]bool, len(rows))
	for _, c := range rows {
		out[catalog.StepKey{Phase: c.Phase, Step: c.Step}] = true
	}
	return out, nil
}

func (u Usecases) track(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]any) {
	if u.deps.Events == nil {
		return
	}
	if err := u.deps.Events.TrackEvent(ctx, userID, eventType, payload); err != nil {
		u.deps.Log.Warn("journey event dispatch failed", "user_id", userID, "event", eventType, "error", err)
	}
}
