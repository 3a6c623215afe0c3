package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coachflow-backend/internal/catalog"
	"github.com/yungbote/coachflow-backend/internal/jobs/orchestrator"
	"github.com/yungbote/coachflow-backend/internal/jobs/worker"
	"github.com/yungbote/coachflow-backend/internal/modules/badges"
	"github.com/yungbote/coachflow-backend/internal/modules/engagement"
	"github.com/yungbote/coachflow-backend/internal/modules/journey"
	"github.com/yungbote/coachflow-backend/internal/modules/messaging"
	"github.com/yungbote/coachflow-backend/internal/modules/progress"
	"github.com/yungbote/coachflow-backend/internal/modules/sequences"
	"github.com/yungbote/coachflow-backend/internal/notify"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
	"github.com/yungbote/coachflow-backend/internal/textgen"
)

type Services struct {
	Notifier notify.Notifier
	Pool     *worker.Pool

	Journey    journey.Usecases
	Engagement engagement.Usecases
	Badges     badges.Usecases
	Messaging  messaging.Usecases
	Sequences  sequences.Usecases
	Progress   progress.Usecases

	Orchestrator *orchestrator.Orchestrator
}

// eventRelay hands events to the progress bus, which is built after the
// modules that emit into it.
type eventRelay struct {
	bus *progress.Usecases
}

func (r *eventRelay) TrackEvent(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]any) error {
	if r == nil || r.bus == nil {
		return nil
	}
	return r.bus.TrackEvent(ctx, userID, eventType, payload)
}

type serviceDeps struct {
	DB      *gorm.DB
	Log     *logger.Logger
	Catalog *catalog.Catalog
	Repos   Repos
	Clients Clients
	// Notifier overrides the channel adapters built from Clients.
	Notifier notify.Notifier
	Now      func() time.Time
}

func wireServices(d serviceDeps) Services {
	log := d.Log
	log.Info("Wiring services...")
	r := d.Repos
	now := d.Now
	if now == nil {
		now = time.Now
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = notify.New(notify.Deps{
			Log:           log,
			Notifications: r.Notifications,
			Bus:           d.Clients.Bus,
			Email:         d.Clients.Email,
			SMS:           d.Clients.SMS,
		})
	}
	generator := textgen.Unavailable()
	if d.Clients.OpenAI != nil {
		generator = textgen.NewOpenAIGenerator(log, d.Clients.OpenAI)
	}
	pool := worker.NewPoolFromEnv(log)
	relay := &eventRelay{}

	msg := messaging.New(messaging.UsecasesDeps{
		DB: d.DB, Log: log, Users: r.Users, Messages: r.Messages, Notifier: notifier, Pool: pool, Now: now,
	})
	seq := sequences.New(sequences.UsecasesDeps{
		DB: d.DB, Log: log, Catalog: d.Catalog, Users: r.Users, Sequences: r.Sequences,
		Enrollments: r.Enrollments, Messaging: msg, Pool: pool, Now: now,
	})
	bdg := badges.New(badges.UsecasesDeps{
		DB: d.DB, Log: log, Catalog: d.Catalog, Users: r.Users, Activity: r.Activity,
		Badges: r.Badges, Notifier: notifier, Now: now,
	})
	jrn := journey.New(journey.UsecasesDeps{
		DB: d.DB, Log: log, Catalog: d.Catalog, Journey: r.Journeys, Events: relay, Now: now,
	})
	eng := engagement.New(engagement.UsecasesDeps{
		DB: d.DB, Log: log, Catalog: d.Catalog, Config: engagement.ConfigFromEnv(),
		Users: r.Users, Engagement: r.Engagements, Activity: r.Activity, Journey: r.Journeys, Badges: r.Badges,
		Notifier: notifier, Generator: generator, Pool: pool, Events: relay, Now: now,
	})
	bus := progress.New(progress.UsecasesDeps{
		DB: d.DB, Log: log, Events: r.Events, Activity: r.Activity, Notifier: notifier,
		Sequences: seq, Messages: msg, Badges: bdg, Recorder: eng, Pool: pool, Now: now,
	})
	relay.bus = &bus

	orch := orchestrator.New(orchestrator.Deps{
		Log:    log,
		Runs:   r.CronRuns,
		Config: orchestrator.ConfigFromEnv(),
		Tasks: orchestrator.DefaultTasks(orchestrator.Services{
			Pool:          pool,
			Users:         r.Users,
			Activity:      r.Activity,
			Badges:        r.Badges,
			Engagements:   r.Engagements,
			Enrollments:   r.Enrollments,
			Messages:      r.Messages,
			Notifications: r.Notifications,
			Events:        r.Events,
			Journeys:      r.Journeys,
			CronRuns:      r.CronRuns,
			Snapshots:     r.Snapshots,
			Journey:       jrn,
			Engagement:    eng,
			BadgeUC:       bdg,
			Sequences:     seq,
			Messaging:     msg,
			Progress:      bus,
			Notifier:      notifier,
		}),
		Now: now,
	})

	return Services{
		Notifier:     notifier,
		Pool:         pool,
		Journey:      jrn,
		Engagement:   eng,
		Badges:       bdg,
		Messaging:    msg,
		Sequences:    seq,
		Progress:     bus,
		Orchestrator: orch,
	}
}
