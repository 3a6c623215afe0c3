package engagement

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	"github.com/yungbote/coachflow-backend/internal/data/repos"
	"github.com/yungbote/coachflow-backend/internal/jobs/worker"
	"github.com/yungbote/coachflow-backend/internal/notify"
	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
	"github.com/yungbote/coachflow-backend/internal/textgen"
)

// EventTracker receives streak milestones.
type EventTracker interface {
	TrackEvent(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]any) error
}

type Config struct {
	DefaultTimezone   string
	DeliveryLimit     int
	GenerationTimeout time.Duration
	MaxTokens         int
	Temperature       float64
	// SlotHours overrides the catalog hour per engagement type.
	SlotHours map[string]int
	// NotificationTTL is how long delivered in-app engagements stay visible.
	NotificationTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultTimezone:   "Europe/Amsterdam",
		DeliveryLimit:     50,
		GenerationTimeout: 10 * time.Second,
		MaxTokens:         150,
		Temperature:       0.8,
		NotificationTTL:   24 * time.Hour,
	}
}

// ConfigFromEnv reads ENGAGEMENT_* and GENERATION_TIMEOUT_SECONDS.
// ENGAGEMENT_SLOT_HOURS takes "type=hour" pairs separated by commas.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.DefaultTimezone = envutil.String("ENGAGEMENT_DEFAULT_TZ", cfg.DefaultTimezone)
	cfg.DeliveryLimit = envutil.Int("ENGAGEMENT_DELIVERY_LIMIT", cfg.DeliveryLimit)
	cfg.GenerationTimeout = envutil.Seconds("GENERATION_TIMEOUT_SECONDS", 10)
	cfg.SlotHours = parseSlotHours(envutil.String("ENGAGEMENT_SLOT_HOURS", ""))
	return cfg
}

func parseSlotHours(raw string) map[string]int {
	out := map[string]int{}
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		h, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || h < 0 || h > 23 {
			continue
		}
		out[strings.TrimSpace(k)] = h
	}
	return out
}

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Catalog *catalog.Catalog
	Config  Config

	Users      repos.UserRepo
	Engagement repos.EngagementRepo
	Activity   repos.ActivityRepo
	Journey    repos.JourneyRepo
	Badges     repos.BadgeRepo

	Notifier  notify.Notifier
	Generator textgen.Generator
	Pool      *worker.Pool

	// Optional.
	Events EventTracker
	Now    func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("module", "engagement")
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	def := DefaultConfig()
	if deps.Config.DefaultTimezone == "" {
		deps.Config.DefaultTimezone = def.DefaultTimezone
	}
	if deps.Config.DeliveryLimit <= 0 {
		deps.Config.DeliveryLimit = def.DeliveryLimit
	}
	if deps.Config.GenerationTimeout <= 0 {
		deps.Config.GenerationTimeout = def.GenerationTimeout
	}
	if deps.Config.MaxTokens <= 0 {
		deps.Config.MaxTokens = def.MaxTokens
	}
	if deps.Config.Temperature <= 0 {
		deps.Config.Temperature = def.Temperature
	}
	if deps.Config.NotificationTTL <= 0 {
		deps.Config.NotificationTTL = def.NotificationTTL
	}
	if deps.Generator == nil {
		deps.Generator = textgen.Unavailable()
	}
	if deps.Pool == nil {
		deps.Pool = worker.NewPool(deps.Log, 1)
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

// WithEvents returns a copy that reports streak milestones to t.
func (u Usecases) WithEvents(t EventTracker) Usecases {
	u.deps.Events = t
	return u
}

func (u Usecases) slotHour(def catalog.EngagementDefinition) int {
	if h, ok := u.deps.Config.SlotHours[def.Type]; ok {
		return h
	}
	return def.Hour
}
