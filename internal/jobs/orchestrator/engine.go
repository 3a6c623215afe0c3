package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/yungbote/coachflow-backend/internal/data/repos"
	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/jobs/worker"
	"github.com/yungbote/coachflow-backend/internal/observability"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

type Cadence string

const (
	Hourly  Cadence = "hourly"
	Daily   Cadence = "daily"
	Weekly  Cadence = "weekly"
	Monthly Cadence = "monthly"
)

var Cadences = []Cadence{Hourly, Daily, Weekly, Monthly}

func ParseCadence(s string) (Cadence, error) {
	c := Cadence(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Cadences {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown cadence %q: %w", s, pkgerrors.ErrInvalidArgument)
}

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerTemporal = "temporal"
)

// Task is one ordered sub-task of a cadence. A returned error means the task
// failed outright; per-item failures are reported through the Result.
type Task struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (worker.Result, error)
}

type TaskResult struct {
	Name       string   `json:"name"`
	Success    bool     `json:"success"`
	Processed  int      `json:"processed"`
	Errors     int      `json:"errors"`
	DurationMs int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
	Samples    []string `json:"samples,omitempty"`
	Skipped    bool     `json:"skipped,omitempty"`
	Canceled   bool     `json:"canceled,omitempty"`
}

type JobResult struct {
	Name       string       `json:"name"`
	Trigger    string       `json:"trigger"`
	Success    bool         `json:"success"`
	Processed  int          `json:"processed"`
	Errors     int          `json:"errors"`
	DurationMs int64        `json:"duration_ms"`
	Timestamp  time.Time    `json:"timestamp"`
	Canceled   bool         `json:"canceled,omitempty"`
	Tasks      []TaskResult `json:"tasks"`
}

type Config struct {
	HistoryCapacity int
	// Strict fails a run that finished with any per-item errors.
	Strict bool
}

func DefaultConfig() Config {
	return Config{HistoryCapacity: 100}
}

func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.HistoryCapacity = envutil.Int("CRON_HISTORY_CAPACITY", cfg.HistoryCapacity)
	cfg.Strict = envutil.Bool("CRON_STRICT", false)
	return cfg
}

type Deps struct {
	Log    *logger.Logger
	Runs   repos.CronRunRepo
	Config Config
	Tasks  map[Cadence][]Task
	Now    func() time.Time
}

// Orchestrator runs cadences and owns their bounded run history.
type Orchestrator struct {
	log   *logger.Logger
	runs  repos.CronRunRepo
	cfg   Config
	tasks map[Cadence][]Task
	now   func() time.Time

	mu      sync.Mutex
	history []JobResult
	running map[Cadence]bool
}

func New(deps Deps) *Orchestrator {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	cfg := deps.Config
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = DefaultConfig().HistoryCapacity
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		log:     log.With("service", "CronOrchestrator"),
		runs:    deps.Runs,
		cfg:     cfg,
		tasks:   deps.Tasks,
		now:     now,
		running: map[Cadence]bool{},
	}
}

// TriggerJob runs the named cadence on demand.
func (o *Orchestrator) TriggerJob(ctx context.Context, name string) (JobResult, error) {
	c, err := ParseCadence(name)
	if err != nil {
		return JobResult{}, err
	}
	return o.Run(ctx, c, TriggerManual)
}

// Run executes every sub-task of cadence in order. Sub-task failures are
// isolated; once ctx is done the remaining tasks are skipped and the partial
// result is returned.
func (o *Orchestrator) Run(ctx context.Context, cadence Cadence, trigger string) (JobResult, error) {
	tasks, ok := o.tasks[cadence]
	if !ok {
		return JobResult{}, fmt.Errorf("cadence %q has no tasks: %w", cadence, pkgerrors.ErrInvalidArgument)
	}
	if !o.acquire(cadence) {
		return JobResult{}, fmt.Errorf("cadence %q is already running: %w", cadence, pkgerrors.ErrConflict)
	}
	defer o.release(cadence)

	ctx, span := observability.StartSpan(ctx, "cron."+string(cadence),
		attribute.String("cron.trigger", trigger),
		attribute.Int("cron.tasks", len(tasks)),
	)
	started := o.now()
	clock := time.Now()
	res := JobResult{Name: string(cadence), Trigger: trigger, Success: true, Timestamp: started}

	o.log.Info("Cron run started", "cadence", cadence, "trigger", trigger)
	for _, t := range tasks {
		if ctx.Err() != nil {
			res.Canceled = true
			res.Success = false
			res.Tasks = append(res.Tasks, TaskResult{Name: t.Name, Skipped: true})
			continue
		}
		tr := o.runTask(ctx, t, started)
		res.Tasks = append(res.Tasks, tr)
		res.Processed += tr.Processed
		res.Errors += tr.Errors
		if tr.Canceled {
			res.Canceled = true
		}
		if !tr.Success {
			res.Success = false
		}
	}
	if o.cfg.Strict && res.Errors > 0 {
		res.Success = false
	}
	res.DurationMs = time.Since(clock).Milliseconds()

	var spanErr error
	if !res.Success {
		spanErr = fmt.Errorf("cadence %s finished with %d errors", cadence, res.Errors)
	}
	observability.EndSpan(span, spanErr)
	observability.RecordCronRun(string(cadence), trigger, res.Success, time.Since(clock))

	o.remember(res)
	o.persist(ctx, res)
	o.log.Info("Cron run finished",
		"cadence", cadence,
		"success", res.Success,
		"processed", res.Processed,
		"errors", res.Errors,
		"duration_ms", res.DurationMs,
	)
	return res, nil
}

func (o *Orchestrator) runTask(ctx context.Context, t Task, now time.Time) (tr TaskResult) {
	ctx, span := observability.StartSpan(ctx, "cron.task."+t.Name)
	clock := time.Now()
	tr = TaskResult{Name: t.Name}
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Cron task panic", "task", t.Name, "panic", r, "stack", string(debug.Stack()))
			tr.Success = false
			tr.Error = fmt.Sprintf("panic: %v", r)
		}
		tr.DurationMs = time.Since(clock).Milliseconds()
		var err error
		if tr.Error != "" {
			err = fmt.Errorf("%s", tr.Error)
		}
		observability.EndSpan(span, err)
		observability.RecordTaskItems(t.Name, tr.Processed, tr.Errors)
	}()

	r, err := t.Run(ctx, now)
	tr.Processed = r.Processed
	tr.Errors = r.Errors
	tr.Samples = r.Samples
	tr.Canceled = r.Canceled
	if err != nil {
		o.log.Warn("Cron task failed", "task", t.Name, "error", err)
		tr.Error = err.Error()
		return tr
	}
	tr.Success = true
	return tr
}

func (o *Orchestrator) acquire(c Cadence) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running[c] {
		return false
	}
	o.running[c] = true
	return true
}

func (o *Orchestrator) release(c Cadence) {
	o.mu.Lock()
	delete(o.running, c)
	o.mu.Unlock()
}

func (o *Orchestrator) persist(ctx context.Context, res JobResult) {
	if o.runs == nil {
		return
	}
	raw, err := json.Marshal(res.Tasks)
	if err != nil {
		o.log.Warn("encode cron tasks", "error", err)
	}
	run := &types.CronRun{
		Name:       res.Name,
		Trigger:    res.Trigger,
		Success:    res.Success,
		Processed:  res.Processed,
		Errors:     res.Errors,
		DurationMs: res.DurationMs,
		StartedAt:  res.Timestamp,
		Tasks:      datatypes.JSON(raw),
	}
	// A canceled run still gets recorded.
	if err := o.runs.Create(dbctx.Of(context.WithoutCancel(ctx)), run); err != nil {
		o.log.Warn("persist cron run", "cadence", res.Name, "error", err)
	}
}
