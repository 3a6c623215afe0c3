package cadencerun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/coachflow-backend/internal/jobs/orchestrator"
	"github.com/yungbote/coachflow-backend/internal/jobs/worker"
	"github.com/yungbote/coachflow-backend/internal/temporalx"
)

func newEnv(t *testing.T, orch *orchestrator.Orchestrator) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	acts := &Activities{Orch: orch}
	env.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: ActivityRun})
	return env
}

func TestWorkflowRunsCadenceThroughOrchestrator(t *testing.T) {
	var ran []string
	orch := orchestrator.New(orchestrator.Deps{
		Tasks: map[orchestrator.Cadence][]orchestrator.Task{
			orchestrator.Daily: {
				{Name: "a", Run: func(context.Context, time.Time) (worker.Result, error) {
					ran = append(ran, "a")
					return worker.Result{Processed: 2}, nil
				}},
				{Name: "b", Run: func(context.Context, time.Time) (worker.Result, error) {
					ran = append(ran, "b")
					return worker.Result{}, errors.New("boom")
				}},
			},
		},
	})
	env := newEnv(t, orch)

	env.ExecuteWorkflow(WorkflowName, Input{Cadence: " Daily "})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res orchestrator.JobResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, "daily", res.Name)
	assert.Equal(t, orchestrator.TriggerTemporal, res.Trigger)
	assert.Equal(t, 2, res.Processed)
	require.Len(t, res.Tasks, 2)
	assert.False(t, res.Tasks[1].Success)
	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Len(t, orch.History(), 1)
}

func TestWorkflowRejectsUnknownCadence(t *testing.T) {
	env := newEnv(t, orchestrator.New(orchestrator.Deps{}))

	env.ExecuteWorkflow(WorkflowName, Input{Cadence: "yearly"})
	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeInvalidCadence, appErr.Type())
}

func TestScheduleOptions(t *testing.T) {
	cfg := temporalx.Config{TaskQueue: "q", ScheduleTimezone: "Europe/Amsterdam", SchedulePrefix: "cf"}
	opts := ScheduleOptions(cfg, orchestrator.Weekly, "0 0 1 * * 1")

	assert.Equal(t, "cf-cron-weekly", opts.ID)
	assert.Equal(t, []string{"0 0 1 * * 1"}, opts.Spec.CronExpressions)
	assert.Equal(t, "Europe/Amsterdam", opts.Spec.TimeZoneName)
}
