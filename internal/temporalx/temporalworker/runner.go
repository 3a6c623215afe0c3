package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/coachflow-backend/internal/jobs/orchestrator"
	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
	"github.com/yungbote/coachflow-backend/internal/pkg/httpx"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
	"github.com/yungbote/coachflow-backend/internal/temporalx"
	"github.com/yungbote/coachflow-backend/internal/temporalx/cadencerun"
)

// Runner polls the cron task queue and keeps the cadence schedules registered.
type Runner struct {
	log   *logger.Logger
	tc    temporalsdkclient.Client
	orch  *orchestrator.Orchestrator
	sched orchestrator.Schedule
	cfg   temporalx.Config
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, orch *orchestrator.Orchestrator, sched orchestrator.Schedule) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if orch == nil {
		return nil, fmt.Errorf("temporal worker missing orchestrator")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		log:   log.With("service", "TemporalWorker"),
		tc:    tc,
		orch:  orch,
		sched: sched,
		cfg:   temporalx.LoadConfig(),
	}, nil
}

// Start registers schedules, then starts the worker with retry. The worker
// stops when ctx is canceled.
func (r *Runner) Start(ctx context.Context) error {
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	if envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false) {
		if err := temporalx.EnsureNamespace(ctx, cfg, r.log); err != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", cfg.Namespace, "error", err)
		}
	}
	if envutil.Bool("TEMPORAL_REGISTER_SCHEDULES", true) {
		if err := cadencerun.RegisterSchedules(ctx, r.tc, cfg, r.sched, r.log); err != nil {
			r.log.Warn("Temporal schedule registration incomplete", "error", err)
		}
	}

	maxWait := envutil.Seconds("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60)
	backoff := envutil.Millis("TEMPORAL_WORKER_START_BACKOFF_MS", 250)
	backoffMax := envutil.Millis("TEMPORAL_WORKER_START_BACKOFF_MAX_MS", 5000)
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		notFound := errors.As(startErr, &nfe)
		if notFound && envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false) {
			_ = temporalx.EnsureNamespace(ctx, cfg, r.log)
		}
		if maxWait <= 0 || time.Now().After(deadline) {
			if notFound {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			return startErr
		}

		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		if err := httpx.Sleep(ctx, httpx.Backoff(backoff, backoffMax, attempt)); err != nil {
			return err
		}
	}
}

func (r *Runner) newWorker() worker.Worker {
	// A cadence run is sequential and already bounded by the orchestrator's pool.
	concurrency := envutil.Int("TEMPORAL_WORKER_CONCURRENCY", 2)
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &cadencerun.Activities{Log: r.log, Orch: r.orch}
	w.RegisterWorkflowWithOptions(cadencerun.Workflow, workflow.RegisterOptions{Name: cadencerun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: cadencerun.ActivityRun})
	return w
}
