package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/observability"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	apperrors "github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/errors"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/ctxutil"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/envutil"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

type Config struct {
	MaxAttempts    int
	RetryBackoff   time.Duration
	ReconnectDelay time.Duration
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		MaxAttempts:    envutil.Int("EVENT_MAX_ATTEMPTS", 5, log),
		RetryBackoff:   envutil.Duration("EVENT_RETRY_BACKOFF", 2*time.Second, log),
		ReconnectDelay: envutil.Duration("EVENT_RECONNECT_DELAY", 5*time.Second, log),
	}
}

// Dispatcher decodes notifications and runs their handler, retrying failed
// attempts with linear backoff.
type Dispatcher struct {
	log      *logger.Logger
	registry *Registry
	cfg      Config
}

func NewDispatcher(baseLog *logger.Logger, registry *Registry, cfg Config) *Dispatcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{
		log:      baseLog.With("component", "EventDispatcher"),
		registry: registry,
		cfg:      cfg,
	}
}

// Handle processes one notification. Malformed and ignored notifications
// return nil; a handler that still fails after the last attempt returns its
// error.
func (d *Dispatcher) Handle(ctx context.Context, channel string, payload []byte) error {
	ctx = ctxutil.Default(ctx)
	ev, err := Decode(channel, payload)
	if err != nil {
		d.log.Warn("dropping malformed event", "channel", channel, "error", err)
		return nil
	}
	if ev == nil {
		return nil
	}
	h, ok := d.registry.Get(ev.Kind)
	if !ok {
		err := &missingHandlerError{Kind: ev.Kind}
		d.log.Warn("no handler for event", "kind", ev.Kind, "error", err)
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		lastErr = d.attempt(ctx, h, ev, attempt)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, apperrors.ErrMalformedEvent) {
			d.log.Warn("dropping event rejected by handler", "kind", ev.Kind, "error", lastErr)
			return nil
		}
		d.log.Warn("event handler failed",
			"kind", ev.Kind, "table", ev.Table, "attempt", attempt, "max_attempts", d.cfg.MaxAttempts, "error", lastErr)
		if attempt == d.cfg.MaxAttempts {
			break
		}
		if err := sleep(ctx, time.Duration(attempt)*d.cfg.RetryBackoff); err != nil {
			return err
		}
	}
	d.log.Error("event handler gave up", "kind", ev.Kind, "table", ev.Table, "error", lastErr)
	return lastErr
}

func (d *Dispatcher) attempt(ctx context.Context, h Handler, ev *Event, attempt int) (err error) {
	ctx = ctxutil.WithEventData(ctx, &ctxutil.EventData{Kind: ev.Kind, Channel: ev.Channel, Attempt: attempt})
	ctx, span := observability.StartSpan(ctx, "events.dispatch",
		attribute.String("event.kind", ev.Kind),
		attribute.String("event.table", ev.Table),
		attribute.Int("event.attempt", attempt),
	)
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event handler panic", "kind", ev.Kind, "attempt", attempt, "panic", r)
			err = fmt.Errorf("handler panic: %v", r)
		}
		observability.EndSpan(span, err)
	}()
	return h(dbctx.Context{Ctx: ctx}, ev)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
