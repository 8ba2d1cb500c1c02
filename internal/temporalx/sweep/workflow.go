package sweep

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/services"
)

// Workflow runs one sweep. Failed sweeps roll back completely, so the
// activity is retried as a whole.
func Workflow(ctx workflow.Context, in Input) (*services.SweepResult, error) {
	if in.Trigger == "" {
		in.Trigger = types.SweepTriggerTemporal
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    10 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    5 * time.Minute,
			MaximumAttempts:    5,
		},
	})
	var out services.SweepResult
	if err := workflow.ExecuteActivity(ctx, ActivitySweep, in).Get(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
