package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron"

	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

// Schedule maps cadences to six-field cron specs (seconds first).
type Schedule map[Cadence]string

func DefaultSchedule() Schedule {
	return Schedule{
		Hourly:  "0 0 * * * *",
		Daily:   "0 30 0 * * *",
		Weekly:  "0 0 1 * * 1",
		Monthly: "0 0 2 1 * *",
	}
}

// ScheduleFromEnv overrides the default specs with CRON_SPEC_<CADENCE>.
func ScheduleFromEnv() Schedule {
	s := DefaultSchedule()
	for _, c := range Cadences {
		s[c] = envutil.String("CRON_SPEC_"+strings.ToUpper(string(c)), s[c])
	}
	return s
}

// Scheduler fires cadences in-process for single-instance deployments.
type Scheduler struct {
	log  *logger.Logger
	orch *Orchestrator
	c    *cron.Cron
}

func NewScheduler(log *logger.Logger, orch *Orchestrator, sched Schedule, loc *time.Location) (*Scheduler, error) {
	if orch == nil {
		return nil, fmt.Errorf("scheduler requires an orchestrator")
	}
	if log == nil {
		log = logger.Nop()
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{log: log.With("service", "CronScheduler"), orch: orch, c: cron.NewWithLocation(loc)}
	for _, cadence := range Cadences {
		spec, ok := sched[cadence]
		if !ok || spec == "" {
			continue
		}
		cadence := cadence
		if err := s.c.AddFunc(spec, func() { s.fire(cadence) }); err != nil {
			return nil, fmt.Errorf("cron spec for %s: %w", cadence, err)
		}
	}
	return s, nil
}

func (s *Scheduler) fire(c Cadence) {
	res, err := s.orch.Run(context.Background(), c, TriggerSchedule)
	if err != nil {
		s.log.Warn("Scheduled cadence not run", "cadence", c, "error", err)
		return
	}
	if !res.Success {
		s.log.Warn("Scheduled cadence finished with failures", "cadence", c, "errors", res.Errors)
	}
}

func (s *Scheduler) Start() {
	s.log.Info("Starting cron scheduler")
	s.c.Start()
}

func (s *Scheduler) Stop() {
	s.c.Stop()
}
