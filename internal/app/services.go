package app

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/events"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/expiration"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/materializer"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/services"
)

type Services struct {
	EndDates     *expiration.EndDateCache
	Oracle       *expiration.Oracle
	Materializer *materializer.Materializer
	Delays       *services.QueueDelayPolicy
	Notifier     services.InstanceNotifier
	Scheduler    services.InstanceScheduler
	Sweeper      services.InstanceSweeper
	Dispatcher   *events.Dispatcher
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, rs repos.Set, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	var cache *expiration.EndDateCache
	if clients.FollowUp != nil {
		cache = expiration.NewEndDateCache(clients.FollowUp, log, expiration.CacheOptions{
			Location: cfg.Location,
			Lookback: cfg.FollowUpLookback,
		})
	}
	oracle := expiration.NewOracle(cache, cfg.Location)

	mat := materializer.New(oracle, materializer.Config{
		Location:                cfg.Location,
		DefaultNotificationTime: cfg.DefaultNotificationTime,
		Now:                     time.Now,
	})

	delays := services.DefaultQueueDelayPolicy()
	if cfg.QueueDelaysFile != "" {
		p, err := services.LoadQueueDelayPolicy(cfg.QueueDelaysFile)
		if err != nil {
			return Services{}, fmt.Errorf("load queue delay policy: %w", err)
		}
		delays = p
	}

	notifier := services.NewInstanceNotifier(clients.InstanceBus, log)
	scheduler := services.NewInstanceScheduler(db, log, rs, mat, delays, notifier)
	sweeper := services.NewInstanceSweeper(db, log, rs, oracle, notifier, time.Now)

	registry, err := events.SchedulerRegistry(scheduler)
	if err != nil {
		return Services{}, fmt.Errorf("register event handlers: %w", err)
	}
	dispatcher := events.NewDispatcher(log, registry, cfg.Events)

	return Services{
		EndDates:     cache,
		Oracle:       oracle,
		Materializer: mat,
		Delays:       delays,
		Notifier:     notifier,
		Scheduler:    scheduler,
		Sweeper:      sweeper,
		Dispatcher:   dispatcher,
	}, nil
}
