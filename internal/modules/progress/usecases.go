package progress

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
	"github.com/yungbote/coachflow-backend/internal/jobs/worker"
	"github.com/yungbote/coachflow-backend/internal/modules/engagement"
	"github.com/yungbote/coachflow-backend/internal/modules/messaging"
	"github.com/yungbote/coachflow-backend/internal/modules/sequences"
	"github.com/yungbote/coachflow-backend/internal/notify"
	"github.com/yungbote/coachflow-backend/internal/observability"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

const (
	PendingWindow = 24 * time.Hour
	PendingLimit  = 100
)

type SequenceTrigger interface {
	TriggerEnrollmentRef(ctx context.Context, clientID uuid.UUID, event, ref string, vars map[string]any) (sequences.TriggerResult, error)
}

type MessageScheduler interface {
	ScheduleMessage(ctx context.Context, in messaging.ScheduleMessageInput) (*types.Message, error)
}

type BadgeChecker interface {
	CheckAndAward(ctx context.Context, userID uuid.UUID) ([]catalog.BadgeDefinition, error)
}

type ActivityRecorder interface {
	RecordActivity(ctx context.Context, in engagement.RecordActivityInput) (*types.UserStreak, error)
	CelebrateStreak(ctx context.Context, userID uuid.UUID, streak int) (bool, error)
}

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Events    repos.ProgressEventRepo
	Activity  repos.ActivityRepo
	Notifier  notify.Notifier
	Sequences SequenceTrigger
	Messages  MessageScheduler
	Badges    BadgeChecker
	Recorder  ActivityRecorder
	Pool      *worker.Pool

	Now func() time.Time
}

// Handler reacts to one persisted event. Handlers may run more than once for
// the same event and must rely on storage uniqueness to stay idempotent.
type Handler func(ctx context.Context, ev *types.ProgressEvent, payload Payload) error

type Usecases struct {
	deps     UsecasesDeps
	handlers map[string]Handler
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "progress")
	if deps.Pool == nil {
		deps.Pool = worker.NewPool(deps.Log, 1)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	u := Usecases{deps: deps, handlers: map[string]Handler{}}
	u.registerDefaults()
	return u
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

// Register replaces the handler for eventType.
func (u Usecases) Register(eventType string, h Handler) {
	u.handlers[eventType] = h
}

type TrackInput struct {
	UserID     uuid.UUID
	EventType  string
	Payload    map[string]any
	OccurredAt time.Time
}

// Track persists the event and dispatches it. A handler error is returned but
// the event stays unprocessed so ProcessPending retries it.
func (u Usecases) Track(ctx context.Context, in TrackInput) (*types.ProgressEvent, error) {
	if in.UserID == uuid.Nil || in.EventType == "" {
		return nil, fmt.Errorf("track event: %w", pkgerrors.ErrInvalidArgument)
	}
	ev := &types.ProgressEvent{UserID: in.UserID, EventType: in.EventType, OccurredAt: in.OccurredAt}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = u.deps.Now()
	}
	if len(in.Payload) > 0 {
		raw, err := json.Marshal(in.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode event payload: %w", err)
		}
		ev.Payload = datatypes.JSON(raw)
	}
	if err := u.deps.Events.Create(dbctx.Of(ctx), ev); err != nil {
		return nil, fmt.Errorf("persist event: %w", err)
	}
	return ev, u.process(ctx, ev)
}

// TrackEvent is Track for callers that only know the event basics.
func (u Usecases) TrackEvent(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]any) error {
	_, err := u.Track(ctx, TrackInput{UserID: userID, EventType: eventType, Payload: payload})
	return err
}

// ProcessPending re-dispatches events from the last day that no handler has
// finished yet.
func (u Usecases) ProcessPending(ctx context.Context, now time.Time) (worker.Result, error) {
	pending, err := u.deps.Events.ListUnprocessed(dbctx.Of(ctx), now.Add(-PendingWindow), PendingLimit)
	if err != nil {
		return worker.Result{}, fmt.Errorf("list pending events: %w", err)
	}
	return worker.ForEach(ctx, u.deps.Pool, "process_progress_events", pending, u.process), nil
}

func (u Usecases) ListEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ProgressEvent, error) {
	return u.deps.Events.ListByUser(dbctx.Of(ctx), userID, limit)
}

func (u Usecases) process(ctx context.Context, ev *types.ProgressEvent) error {
	ctx, span := observability.StartSpan(ctx, "progress."+ev.EventType)
	h, ok := u.handlers[ev.EventType]
	var err error
	outcome := "ignored"
	if ok {
		outcome = "processed"
		err = h(ctx, ev, decodePayload(ev.Payload))
	}
	observability.EndSpan(span, err)
	if err != nil {
		observability.RecordProgressEvent(ev.EventType, "failed")
		u.deps.Log.Warn("event handler failed", "event_id", ev.ID, "event_type", ev.EventType, "error", err)
		return fmt.Errorf("event %s (%s): %w", ev.ID, ev.EventType, err)
	}
	now := u.deps.Now().UTC()
	if _, err := u.deps.Events.MarkProcessed(dbctx.Of(ctx), ev.ID, now); err != nil {
		return fmt.Errorf("mark event %s processed: %w", ev.ID, err)
	}
	ev.Processed = true
	ev.ProcessedAt = &now
	observability.RecordProgressEvent(ev.EventType, outcome)
	return nil
}
