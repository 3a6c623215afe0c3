package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/coachflow-backend/internal/clients/redis"
	"github.com/yungbote/coachflow-backend/internal/clients/sendgrid"
	"github.com/yungbote/coachflow-backend/internal/clients/twilio"
	"github.com/yungbote/coachflow-backend/internal/data/repos"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/domain/messaging"
	"github.com/yungbote/coachflow-backend/internal/observability"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

// Content is what a notifier delivers. Title and Type only matter for in-app
// notifications; Subject only for email.
type Content struct {
	Type      string
	Title     string
	Subject   string
	Body      string
	Priority  string
	Data      map[string]any
	ExpiresAt *time.Time
	// DedupeKey makes in-app delivery idempotent across retries.
	DedupeKey string
}

type SendResult struct {
	Success    bool
	ProviderID string
	Cost       float64
}

// Notifier delivers content to one destination on one channel. destination is
// the user id for in_app, an email address for email and a phone number for sms.
type Notifier interface {
	Send(ctx context.Context, channel, destination string, content Content) (SendResult, error)
}

type Deps struct {
	Log           *logger.Logger
	Notifications repos.NotificationRepo
	Bus           redis.NotificationBus
	Email         sendgrid.Client
	SMS           twilio.Client
	Timeout       time.Duration
}

type multiChannel struct {
	log     *logger.Logger
	deps    Deps
	timeout time.Duration
}

// New returns a Notifier routing to the configured channel adapters. Channels
// without an adapter return ErrChannelUnavailable.
func New(deps Deps) Notifier {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = envutil.Seconds("NOTIFIER_TIMEOUT_SECONDS", 10)
	}
	return &multiChannel{
		log:     deps.Log.With("service", "Notifier"),
		deps:    deps,
		timeout: timeout,
	}
}

func (n *multiChannel) Send(ctx context.Context, channel, destination string, content Content) (SendResult, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		observability.RecordNotifierSend(channel, "unavailable")
		return SendResult{}, fmt.Errorf("%s: missing destination: %w", channel, pkgerrors.ErrChannelUnavailable)
	}
	if strings.TrimSpace(content.Body) == "" {
		return SendResult{}, fmt.Errorf("notify: empty body: %w", pkgerrors.ErrInvalidArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var (
		res SendResult
		err error
	)
	switch channel {
	case messaging.ChannelInApp:
		res, err = n.sendInApp(ctx, destination, content)
	case messaging.ChannelEmail:
		res, err = n.sendEmail(ctx, destination, content)
	case messaging.ChannelSMS:
		res, err = n.sendSMS(ctx, destination, content)
	default:
		err = fmt.Errorf("notify: unknown channel %q: %w", channel, pkgerrors.ErrInvalidArgument)
	}

	status := "sent"
	switch {
	case errors.Is(err, pkgerrors.ErrChannelUnavailable):
		status = "unavailable"
	case err != nil:
		status = "failed"
	}
	observability.RecordNotifierSend(channel, status)
	if err != nil {
		n.log.Warn("notification send failed", "channel", channel, "error", err)
		return SendResult{}, err
	}
	return res, nil
}

func (n *multiChannel) sendInApp(ctx context.Context, destination string, c Content) (SendResult, error) {
	if n.deps.Notifications == nil {
		return SendResult{}, fmt.Errorf("in_app: %w", pkgerrors.ErrChannelUnavailable)
	}
	userID, err := uuid.Parse(destination)
	if err != nil {
		return SendResult{}, fmt.Errorf("in_app: invalid user id %q: %w", destination, pkgerrors.ErrInvalidArgument)
	}
	row := &types.Notification{
		UserID:    userID,
		Type:      firstNonEmpty(c.Type, "engagement"),
		Title:     firstNonEmpty(c.Title, c.Subject, "Coachflow"),
		Message:   c.Body,
		Priority:  firstNonEmpty(c.Priority, messaging.PriorityNormal),
		ExpiresAt: c.ExpiresAt,
	}
	if len(c.Data) > 0 {
		raw, err := json.Marshal(c.Data)
		if err != nil {
			return SendResult{}, fmt.Errorf("in_app: encode data: %w", err)
		}
		row.Data = datatypes.JSON(raw)
	}
	if c.DedupeKey != "" {
		key := c.DedupeKey
		row.DedupeKey = &key
	}
	inserted, err := n.deps.Notifications.CreateIfAbsent(dbctx.Of(ctx), row)
	if err != nil {
		return SendResult{}, fmt.Errorf("in_app: persist: %w", err)
	}
	if !inserted {
		// Already delivered under this dedupe key.
		return SendResult{Success: true}, nil
	}
	if n.deps.Bus != nil {
		push := redis.PushMessage{
			UserID:         userID.String(),
			NotificationID: row.ID.String(),
			Type:           row.Type,
			Title:          row.Title,
			Message:        row.Message,
			Priority:       row.Priority,
			Data:           c.Data,
		}
		if err := n.deps.Bus.Publish(ctx, push); err != nil {
			// The row is the source of truth; clients poll it if push is lost.
			n.log.Warn("realtime push failed", "notification_id", row.ID, "error", err)
		}
	}
	return SendResult{Success: true, ProviderID: row.ID.String()}, nil
}

func (n *multiChannel) sendEmail(ctx context.Context, destination string, c Content) (SendResult, error) {
	if n.deps.Email == nil {
		return SendResult{}, fmt.Errorf("email: %w", pkgerrors.ErrChannelUnavailable)
	}
	htmlBody, err := renderEmailHTML(c.Body)
	if err != nil {
		n.log.Warn("email markdown render failed; sending text only", "error", err)
		htmlBody = ""
	}
	out, err := n.deps.Email.Send(ctx, sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: destination}},
		Subject:    firstNonEmpty(c.Subject, c.Title, "Coachflow"),
		Text:       c.Body,
		HTML:       htmlBody,
		Categories: nonEmpty(c.Type),
		CustomArgs: emailArgs(c),
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("email: %w", err)
	}
	return SendResult{Success: true, ProviderID: out.MessageID}, nil
}

func (n *multiChannel) sendSMS(ctx context.Context, destination string, c Content) (SendResult, error) {
	if n.deps.SMS == nil {
		return SendResult{}, fmt.Errorf("sms: %w", pkgerrors.ErrChannelUnavailable)
	}
	msg, err := n.deps.SMS.SendSMS(ctx, destination, c.Body)
	if err != nil {
		return SendResult{}, fmt.Errorf("sms: %w", err)
	}
	return SendResult{Success: true, ProviderID: msg.SID, Cost: msg.Cost()}, nil
}

// emailArgs tags the mail so provider webhooks can be matched back to the
// notification or message that caused it.
func emailArgs(c Content) map[string]string {
	args := map[string]string{}
	if c.Type != "" {
		args["coachflow_type"] = c.Type
	}
	if c.DedupeKey != "" {
		args["coachflow_key"] = c.DedupeKey
	}
	if len(args) == 0 {
		return nil
	}
	return args
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
