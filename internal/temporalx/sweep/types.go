// Package sweep runs the lifecycle sweep as a Temporal workflow started by a
// cron schedule.
package sweep

const (
	WorkflowName  = "instance_sweep"
	ActivitySweep = "instance_sweep_run"
)

type Input struct {
	Trigger string `json:"trigger"`
}
