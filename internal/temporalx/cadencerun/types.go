package cadencerun

const (
	WorkflowName = "cron_cadence"
	ActivityRun  = "cron_cadence_run"

	ErrTypeInvalidCadence = "invalid_cadence"
	ErrTypeOverlap        = "cadence_overlap"
)

// Input names the cadence a scheduled workflow runs.
type Input struct {
	Cadence string `json:"cadence"`
}
