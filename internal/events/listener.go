package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

// Listener holds a dedicated Postgres connection subscribed to the change
// channels and feeds every notification to the dispatcher, one at a time.
type Listener struct {
	dsn        string
	log        *logger.Logger
	dispatcher *Dispatcher
	cfg        Config
}

func NewListener(baseLog *logger.Logger, dsn string, dispatcher *Dispatcher, cfg Config) *Listener {
	return &Listener{
		dsn:        dsn,
		log:        baseLog.With("component", "EventListener"),
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// Run listens until ctx is done, reconnecting after connection failures.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.log.Info("event listener stopped")
			return nil
		}
		l.log.Warn("event listener disconnected", "error", err, "retry_in", l.cfg.ReconnectDelay.String())
		if err := sleep(ctx, l.cfg.ReconnectDelay); err != nil {
			return nil
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	for _, ch := range Channels {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ch}.Sanitize()); err != nil {
			return fmt.Errorf("listen %s: %w", ch, err)
		}
	}
	l.log.Info("listening for change events", "channels", Channels)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		if err := l.dispatcher.Handle(ctx, n.Channel, []byte(n.Payload)); err != nil {
			l.log.Error("change event not applied", "channel", n.Channel, "error", err)
		}
	}
}
