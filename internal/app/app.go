package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/db"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/events"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/jobs/worker"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/observability"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/temporalx/temporalworker"
)

// Mode selects which long-lived integrations New dials.
type Mode int

const (
	// ModeServe wires everything Run needs.
	ModeServe Mode = iota
	// ModeCommand skips Temporal and migrations; one-shot commands sweep
	// in-process.
	ModeCommand
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	PG       *db.PostgresService
	DB       *gorm.DB
	Repos    repos.Set
	Clients  Clients
	Services Services

	otelShutdown func(context.Context) error
}

// New builds the logger from LOG_MODE and wires every component. Nothing
// runs until Run is called.
func New(ctx context.Context, mode Mode) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	}, observability.SettingsFromEnv(log))

	pg, err := db.NewPostgresService(log, cfg.DB)
	if err != nil {
		_ = shutdown(ctx)
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if cfg.AutoMigrate && mode == ModeServe {
		if err := db.AutoMigrateAll(pg.DB()); err != nil {
			_ = pg.Close()
			_ = shutdown(ctx)
			log.Sync()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}
	theDB := pg.DB()

	reposet := repos.NewSet(theDB, log)

	if mode == ModeCommand {
		cfg.Temporal.Address = ""
	}
	clientset, err := wireClients(log, cfg)
	if err != nil {
		_ = pg.Close()
		_ = shutdown(ctx)
		log.Sync()
		return nil, err
	}

	serviceset, err := wireServices(theDB, log, cfg, reposet, clientset)
	if err != nil {
		clientset.Close()
		_ = pg.Close()
		_ = shutdown(ctx)
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		Cfg:          cfg,
		PG:           pg,
		DB:           theDB,
		Repos:        reposet,
		Clients:      clientset,
		Services:     serviceset,
		otelShutdown: shutdown,
	}, nil
}

// Run starts the change-event listener, the sweep driver and the ops HTTP
// server, and blocks until ctx is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.PG == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if a.Cfg.ListenEvents {
		listener := events.NewListener(a.Log, a.PG.DSN(), a.Services.Dispatcher, a.Cfg.Events)
		g.Go(func() error { return listener.Run(gctx) })
	} else {
		a.Log.Warn("EVENTS_LISTEN_ENABLED=false; change events are not consumed")
	}

	if a.Clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.Cfg.Temporal, a.Services.Sweeper)
		if err != nil {
			return fmt.Errorf("init temporal runner: %w", err)
		}
		g.Go(func() error {
			if err := runner.Start(gctx); err != nil {
				return fmt.Errorf("temporal runner: %w", err)
			}
			<-gctx.Done()
			return nil
		})
	} else {
		w := worker.NewWorker(a.Log, a.Services.Sweeper, a.Cfg.SweepTickerMinute)
		g.Go(func() error { return w.Run(gctx) })
	}

	server := wireHTTP(a.Log, a.Cfg, a.PG.Ping, a.Services)
	g.Go(func() error { return server.Run(gctx) })

	a.Log.Info("Scheduler running", "time_zone", a.Cfg.TimeZone, "ops_addr", a.Cfg.OpsHTTPAddr)
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.PG != nil {
		_ = a.PG.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
