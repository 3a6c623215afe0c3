package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

// PushMessage is the realtime payload fanned out to connected app clients.
type PushMessage struct {
	UserID         string         `json:"user_id"`
	NotificationID string         `json:"notification_id,omitempty"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Priority       string         `json:"priority,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	SentAt         time.Time      `json:"sent_at"`
}

type NotificationBus interface {
	Publish(ctx context.Context, msg PushMessage) error
	Close() error
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func ConfigFromEnv() Config {
	return Config{
		Addr:     envutil.String("REDIS_ADDR", ""),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
		Channel:  envutil.String("REDIS_CHANNEL", "notifications"),
	}
}

type notificationBus struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
}

func NewNotificationBusFromEnv(log *logger.Logger) (NotificationBus, error) {
	return NewNotificationBus(log, ConfigFromEnv())
}

func NewNotificationBus(log *logger.Logger, cfg Config) (NotificationBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewNotificationBusWithClient(log, rdb, cfg.Channel), nil
}

// NewNotificationBusWithClient wraps an existing client; channel defaults to "notifications".
func NewNotificationBusWithClient(log *logger.Logger, rdb goredis.UniversalClient, channel string) NotificationBus {
	if channel == "" {
		channel = "notifications"
	}
	return &notificationBus{
		log:     log.With("service", "RedisNotificationBus"),
		rdb:     rdb,
		channel: channel,
	}
}

// Publish sends msg on the shared channel and on the per-user channel
// "<channel>:<user_id>" so gateways can subscribe to either.
func (b *notificationBus) Publish(ctx context.Context, msg PushMessage) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis notification bus not initialized")
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	pipe := b.rdb.Pipeline()
	pipe.Publish(ctx, b.channel, raw)
	if msg.UserID != "" {
		pipe.Publish(ctx, b.channel+":"+msg.UserID, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *notificationBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
