package sweep

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/temporalx"
)

// ScheduleOptions builds the cron schedule that starts one sweep workflow
// per tick. Overlapping runs are skipped.
func ScheduleOptions(cfg temporalx.Config) temporalsdkclient.ScheduleOptions {
	return temporalsdkclient.ScheduleOptions{
		ID:      cfg.SweepScheduleID,
		Spec:    temporalsdkclient.ScheduleSpec{CronExpressions: []string{cfg.SweepCron}},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
		Action: &temporalsdkclient.ScheduleWorkflowAction{
			ID:        cfg.SweepScheduleID + "-run",
			Workflow:  WorkflowName,
			Args:      []interface{}{Input{Trigger: types.SweepTriggerTemporal}},
			TaskQueue: cfg.TaskQueue,
		},
	}
}

// EnsureSchedule creates the sweep schedule, or updates the cron spec of the
// one that already exists.
func EnsureSchedule(ctx context.Context, tc temporalsdkclient.Client, cfg temporalx.Config, log *logger.Logger) error {
	if tc == nil {
		return nil
	}
	opts := ScheduleOptions(cfg)
	_, err := tc.ScheduleClient().Create(ctx, opts)
	if err == nil {
		log.Info("Created sweep schedule", "schedule_id", opts.ID, "cron", cfg.SweepCron)
		return nil
	}
	if !errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		return fmt.Errorf("create sweep schedule: %w", err)
	}

	handle := tc.ScheduleClient().GetHandle(ctx, opts.ID)
	err = handle.Update(ctx, temporalsdkclient.ScheduleUpdateOptions{
		DoUpdate: func(in temporalsdkclient.ScheduleUpdateInput) (*temporalsdkclient.ScheduleUpdate, error) {
			schedule := in.Description.Schedule
			schedule.Spec = &opts.Spec
			schedule.Action = opts.Action
			return &temporalsdkclient.ScheduleUpdate{Schedule: &schedule}, nil
		},
	})
	if err != nil {
		return fmt.Errorf("update sweep schedule: %w", err)
	}
	log.Info("Sweep schedule already registered; spec refreshed", "schedule_id", opts.ID, "cron", cfg.SweepCron)
	return nil
}
