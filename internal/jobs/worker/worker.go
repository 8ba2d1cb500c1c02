// Package worker runs the lifecycle sweep in-process when no Temporal
// frontend is configured.
package worker

import (
	"context"
	"time"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/services"
)

// Worker sweeps once per hour at a fixed minute.
type Worker struct {
	log     *logger.Logger
	sweeper services.InstanceSweeper
	minute  int
	now     func() time.Time
}

func NewWorker(baseLog *logger.Logger, sweeper services.InstanceSweeper, minute int) *Worker {
	if minute < 0 || minute > 59 {
		minute = 5
	}
	return &Worker{
		log:     baseLog.With("component", "SweepWorker"),
		sweeper: sweeper,
		minute:  minute,
		now:     time.Now,
	}
}

// Run blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting sweep worker", "minute", w.minute)
	for {
		next := NextRun(w.now(), w.minute)
		timer := time.NewTimer(next.Sub(w.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			w.log.Info("Sweep worker stopped")
			return nil
		case <-timer.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Sweep panic", "panic", r)
		}
	}()
	if _, err := w.sweeper.Sweep(ctx, types.SweepTriggerTicker); err != nil {
		w.log.Warn("Scheduled sweep failed", "error", err)
	}
}

// NextRun returns the first instant strictly after now whose minute is
// minute and whose seconds are zero.
func NextRun(now time.Time, minute int) time.Time {
	next := now.Truncate(time.Hour).Add(time.Duration(minute) * time.Minute)
	if !next.After(now) {
		next = next.Add(time.Hour)
	}
	return next
}
