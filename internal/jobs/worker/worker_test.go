package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/services"
)

func TestNextRun(t *testing.T) {
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)},
		{time.Date(2024, 1, 1, 10, 4, 59, 0, time.UTC), time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)},
		{time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC), time.Date(2024, 1, 1, 11, 5, 0, 0, time.UTC)},
		{time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 5, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := NextRun(tc.now, 5); !got.Equal(tc.want) {
			t.Fatalf("NextRun(%v): got=%v want=%v", tc.now, got, tc.want)
		}
	}
}

type panicSweeper struct {
	mu    sync.Mutex
	calls int
}

func (p *panicSweeper) Sweep(context.Context, string) (*services.SweepResult, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	panic("boom")
}

func (p *panicSweeper) Latest(context.Context) (*types.SweepRun, error) { return nil, nil }

func TestRunOnceRecoversPanic(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	s := &panicSweeper{}
	w := NewWorker(log, s, 70)
	if w.minute != 5 {
		t.Fatalf("minute: got=%d want=5", w.minute)
	}
	w.runOnce(context.Background())
	if s.calls != 1 {
		t.Fatalf("calls: got=%d", s.calls)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	w := NewWorker(log, &panicSweeper{}, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
