package sweep

import (
	"context"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	apperrors "github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/errors"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/services"
)

type Activities struct {
	Log     *logger.Logger
	Sweeper services.InstanceSweeper
}

func (a *Activities) Sweep(ctx context.Context, in Input) (*services.SweepResult, error) {
	if a == nil || a.Sweeper == nil {
		return nil, temporal.NewNonRetryableApplicationError("sweep activity not configured", "not_configured", apperrors.ErrNotConfigured)
	}
	info := activity.GetInfo(ctx)
	res, err := a.Sweeper.Sweep(ctx, in.Trigger)
	if err != nil {
		a.Log.Warn("sweep activity failed", "attempt", info.Attempt, "workflow_id", info.WorkflowExecution.ID, "error", err)
		return nil, err
	}
	return res, nil
}
