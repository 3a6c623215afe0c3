package cadencerun

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/coachflow-backend/internal/jobs/orchestrator"
	pkgerrors "github.com/yungbote/coachflow-backend/internal/pkg/errors"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

const heartbeatEvery = 20 * time.Second

type Activities struct {
	Log  *logger.Logger
	Orch *orchestrator.Orchestrator
}

func (a *Activities) Run(ctx context.Context, in Input) (orchestrator.JobResult, error) {
	if a == nil || a.Orch == nil {
		return orchestrator.JobResult{}, fmt.Errorf("cadencerun: activity not configured")
	}
	cadence, err := orchestrator.ParseCadence(in.Cadence)
	if err != nil {
		return orchestrator.JobResult{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidCadence, err)
	}

	stop := a.startHeartbeat(ctx, cadence)
	defer stop()

	res, err := a.Orch.Run(ctx, cadence, orchestrator.TriggerTemporal)
	switch {
	case errors.Is(err, pkgerrors.ErrConflict):
		return res, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeOverlap, err)
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		return res, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidCadence, err)
	case err != nil:
		return res, err
	}
	if a.Log != nil {
		a.Log.Info("Temporal cadence run finished", "cadence", cadence, "success", res.Success, "processed", res.Processed, "errors", res.Errors)
	}
	return res, nil
}

func (a *Activities) startHeartbeat(ctx context.Context, cadence orchestrator.Cadence) func() {
	if !activity.IsActivity(ctx) {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(heartbeatEvery)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx, string(cadence))
			}
		}
	}()
	return func() { close(done) }
}
