package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/data/repos"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	msgtypes "github.com/yungbote/coachflow-backend/internal/domain/messaging"
	"github.com/yungbote/coachflow-backend/internal/jobs/worker"
	"github.com/yungbote/coachflow-backend/internal/notify"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

const DefaultBatchLimit = 50

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Users    repos.UserRepo
	Messages repos.MessageRepo
	Notifier notify.Notifier
	Pool     *worker.Pool

	BatchLimit int
	Now        func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "messaging")
	if deps.Pool == nil {
		deps.Pool = worker.NewPool(deps.Log, 1)
	}
	if deps.BatchLimit <= 0 {
		deps.BatchLimit = DefaultBatchLimit
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return Usecases{deps: deps}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type SendMessageInput struct {
	ClientID uuid.UUID
	Channel  string
	Subject  string
	Content  string
	// DedupeKey makes the send idempotent: a message already sent under the
	// key is returned as is, a failed one is retried.
	DedupeKey  string
	SequenceID *uuid.UUID
	StepNumber *int
}

// SendMessage persists and sends one message, honouring the client's channel
// preferences and unsubscribe flag. Blocked or failed sends leave a failed row.
func (u Usecases) SendMessage(ctx context.Context, in SendMessageInput) (*types.Message, error) {
	msg, fresh, err := u.persist(ctx, in, msgtypes.MessageDraft, nil)
	if err != nil {
		return nil, err
	}
	if !fresh && msg.Status == msgtypes.MessageSent {
		return msg, nil
	}
	return msg, u.deliver(ctx, msg)
}

type ScheduleMessageInput struct {
	SendMessageInput
	At time.Time
}

// ScheduleMessage stores a message for ProcessScheduled to send at or after In.At.
func (u Usecases) ScheduleMessage(ctx context.Context, in ScheduleMessageInput) (*types.Message, error) {
	if in.At.IsZero() {
		return nil, fmt.Errorf("schedule message: missing send time: %w", pkgerrors.ErrInvalidArgument)
	}
	at := in.At.UTC()
	msg, _, err := u.persist(ctx, in.SendMessageInput, msgtypes.MessageScheduled, &at)
	return msg, err
}

// ProcessScheduled sends scheduled messages that are due, oldest first.
func (u Usecases) ProcessScheduled(ctx context.Context, now time.Time) (worker.Result, error) {
	due, err := u.deps.Messages.ListDueScheduled(dbctx.Of(ctx), now, u.deps.BatchLimit)
	if err != nil {
		return worker.Result{}, fmt.Errorf("list scheduled messages: %w", err)
	}
	return worker.ForEach(ctx, u.deps.Pool, "process_scheduled_messages", due, u.deliver), nil
}

func (u Usecases) ListMessages(ctx context.Context, clientID uuid.UUID, limit int) ([]*types.Message, error) {
	return u.deps.Messages.ListByClient(dbctx.Of(ctx), clientID, limit)
}

func (u Usecases) persist(ctx context.Context, in SendMessageInput, status string, at *time.Time) (*types.Message, bool, error) {
	if in.ClientID == uuid.Nil {
		return nil, false, fmt.Errorf("message: missing client id: %w", pkgerrors.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, false, fmt.Errorf("message: empty content: %w", pkgerrors.ErrInvalidArgument)
	}
	channel := in.Channel
	if channel == "" {
		channel = msgtypes.ChannelEmail
	}
	dbc := dbctx.Of(ctx)
	msg := &types.Message{
		ClientID:     in.ClientID,
		Channel:      channel,
		Subject:      in.Subject,
		Content:      in.Content,
		Status:       status,
		ScheduledFor: at,
		SequenceID:   in.SequenceID,
		StepNumber:   in.StepNumber,
	}
	if in.DedupeKey != "" {
		key := in.DedupeKey
		msg.DedupeKey = &key
	}
	inserted, err := u.deps.Messages.CreateIfAbsent(dbc, msg)
	if err != nil {
		return nil, false, fmt.Errorf("persist message: %w", err)
	}
	if inserted {
		return msg, true, nil
	}
	existing, err := u.deps.Messages.GetByDedupeKey(dbc, in.DedupeKey)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("message with dedupe key %q vanished", in.DedupeKey)
	}
	return existing, false, nil
}

func (u Usecases) deliver(ctx context.Context, msg *types.Message) error {
	dbc := dbctx.Of(ctx)
	fail := func(cause error) error {
		if err := u.deps.Messages.MarkFailed(dbc, msg.ID, cause.Error()); err != nil {
			u.deps.Log.Error("mark message failed", "message_id", msg.ID, "error", err)
		}
		msg.Status = msgtypes.MessageFailed
		msg.Error = cause.Error()
		return fmt.Errorf("message %s: %w", msg.ID, cause)
	}

	client, err := u.deps.Users.GetByID(dbc, msg.ClientID)
	if err != nil {
		return fmt.Errorf("message %s: load client: %w", msg.ID, err)
	}
	if client == nil {
		return fail(fmt.Errorf("client: %w", pkgerrors.ErrNotFound))
	}
	prefs, err := u.deps.Users.GetPreferences(dbc, msg.ClientID)
	if err != nil {
		return fmt.Errorf("message %s: load preferences: %w", msg.ID, err)
	}
	if prefs != nil && prefs.Unsubscribed && msg.Channel != msgtypes.ChannelInApp {
		return fail(pkgerrors.ErrUnsubscribed)
	}
	if !notify.Allowed(prefs, msg.Channel) {
		return fail(fmt.Errorf("%s disabled by preferences: %w", msg.Channel, pkgerrors.ErrChannelUnavailable))
	}

	res, err := u.deps.Notifier.Send(ctx, msg.Channel, notify.Destination(client, msg.Channel), notify.Content{
		Type:      "coach_message",
		Title:     msg.Subject,
		Subject:   msg.Subject,
		Body:      msg.Content,
		Data:      map[string]any{"message_id": msg.ID.String()},
		DedupeKey: "message:" + msg.ID.String(),
	})
	if err != nil {
		return fail(err)
	}
	now := u.deps.Now()
	if err := u.deps.Messages.MarkSent(dbc, msg.ID, res.ProviderID, res.Cost, now); err != nil {
		return fmt.Errorf("message %s: mark sent: %w", msg.ID, err)
	}
	msg.Status = msgtypes.MessageSent
	msg.ProviderID = res.ProviderID
	msg.Cost = res.Cost
	msg.SentAt = &now
	return nil
}

// IsBlocked reports whether err means the recipient cannot be reached, as
// opposed to a provider or storage failure.
func IsBlocked(err error) bool {
	return errors.Is(err, pkgerrors.ErrUnsubscribed) || errors.Is(err, pkgerrors.ErrChannelUnavailable)
}
