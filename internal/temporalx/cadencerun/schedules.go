package cadencerun

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/coachflow-backend/internal/jobs/orchestrator"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
	"github.com/yungbote/coachflow-backend/internal/temporalx"
)

func ScheduleID(prefix string, c orchestrator.Cadence) string {
	return prefix + "-cron-" + string(c)
}

// ScheduleOptions builds the Temporal schedule for one cadence. Overlapping
// fires are skipped, matching the in-process scheduler.
func ScheduleOptions(cfg temporalx.Config, c orchestrator.Cadence, spec string) temporalsdkclient.ScheduleOptions {
	id := ScheduleID(cfg.SchedulePrefix, c)
	return temporalsdkclient.ScheduleOptions{
		ID: id,
		Spec: temporalsdkclient.ScheduleSpec{
			CronExpressions: []string{spec},
			TimeZoneName:    cfg.ScheduleTimezone,
		},
		Action: &temporalsdkclient.ScheduleWorkflowAction{
			ID:        id,
			Workflow:  WorkflowName,
			Args:      []interface{}{Input{Cadence: string(c)}},
			TaskQueue: cfg.TaskQueue,
		},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	}
}

// RegisterSchedules creates one schedule per cadence, or updates the spec of
// a schedule that already exists.
func RegisterSchedules(ctx context.Context, tc temporalsdkclient.Client, cfg temporalx.Config, sched orchestrator.Schedule, log *logger.Logger) error {
	if tc == nil {
		return fmt.Errorf("temporal client is not configured")
	}
	if log == nil {
		log = logger.Nop()
	}
	sc := tc.ScheduleClient()
	var errs []error
	for _, c := range orchestrator.Cadences {
		spec, ok := sched[c]
		if !ok || spec == "" {
			continue
		}
		opts := ScheduleOptions(cfg, c, spec)
		_, err := sc.Create(ctx, opts)
		if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
			err = updateSpec(ctx, sc.GetHandle(ctx, opts.ID), opts.Spec)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("schedule %s: %w", opts.ID, err))
			continue
		}
		log.Info("Temporal schedule registered", "schedule_id", opts.ID, "spec", spec, "tz", cfg.ScheduleTimezone)
	}
	return errors.Join(errs...)
}

func updateSpec(ctx context.Context, h temporalsdkclient.ScheduleHandle, spec temporalsdkclient.ScheduleSpec) error {
	return h.Update(ctx, temporalsdkclient.ScheduleUpdateOptions{
		DoUpdate: func(in temporalsdkclient.ScheduleUpdateInput) (*temporalsdkclient.ScheduleUpdate, error) {
			s := in.Description.Schedule
			s.Spec = &spec
			return &temporalsdkclient.ScheduleUpdate{Schedule: &s}, nil
		},
	})
}
