package app

import (
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/clients/followup"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/clients/redis"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/temporalx"
)

// Clients holds the optional outbound integrations. Each is nil when its
// configuration is absent.
type Clients struct {
	FollowUp    *followup.Client
	InstanceBus redis.InstanceBus
	Temporal    temporalsdkclient.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Follow-up
	if cfg.FollowUpEnabled() {
		fc, err := followup.New(log, cfg.FollowUp)
		if err != nil {
			return Clients{}, fmt.Errorf("init follow-up client: %w", err)
		}
		out.FollowUp = fc
	} else {
		log.Info("FOLLOWUP_BASE_URL not set; follow-up expiry disabled")
	}

	// Redis
	if cfg.Redis.Addr != "" {
		bus, err := redis.NewInstanceBus(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis instance bus: %w", err)
		}
		out.InstanceBus = bus
	} else {
		log.Info("REDIS_ADDR not set; instance lifecycle messages disabled")
	}

	// Temporal
	if cfg.Temporal.Enabled() {
		tc, err := temporalx.NewClient(log, cfg.Temporal)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init temporal client: %w", err)
		}
		out.Temporal = tc
	} else {
		log.Info("TEMPORAL_ADDRESS not set; sweeps run on the in-process ticker")
	}

	return out, nil
}

func (c Clients) Close() {
	if c.InstanceBus != nil {
		_ = c.InstanceBus.Close()
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
}
