package cadencerun

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/coachflow-backend/internal/jobs/orchestrator"
)

// Workflow runs one cadence through the orchestrator. Sub-task failures are
// part of the returned result; only an activity failure fails the workflow.
func Workflow(ctx workflow.Context, in Input) (orchestrator.JobResult, error) {
	cadence, err := orchestrator.ParseCadence(in.Cadence)
	if err != nil {
		return orchestrator.JobResult{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidCadence, err)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        30 * time.Second,
			BackoffCoefficient:     2,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeInvalidCadence, ErrTypeOverlap},
		},
	})

	var res orchestrator.JobResult
	if err := workflow.ExecuteActivity(ctx, ActivityRun, Input{Cadence: string(cadence)}).Get(ctx, &res); err != nil {
		return res, err
	}
	if !res.Success {
		workflow.GetLogger(ctx).Warn("Cadence finished with failures", "cadence", res.Name, "errors", res.Errors)
	}
	return res, nil
}
