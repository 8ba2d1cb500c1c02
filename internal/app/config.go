package app

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/clients/followup"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/clients/redis"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/db"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/events"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/envutil"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/cycle"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/scheduling/expiration"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/temporalx"
)

const (
	defaultTimeZone         = "Europe/Berlin"
	defaultNotificationTime = "18:00"
	defaultServiceName      = "questionnaire-instance-scheduler"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string

	DB          db.Config
	AutoMigrate bool

	TimeZone                string
	Location                *time.Location
	DefaultNotificationTime cycle.ClockTime
	QueueDelaysFile         string

	FollowUp         followup.Config
	FollowUpLookback time.Duration

	Redis    redis.Config
	Temporal temporalx.Config
	Events   events.Config

	OpsHTTPAddr       string
	SweepTickerMinute int
	ListenEvents      bool
}

// FollowUpEnabled reports whether follow-up end dates are consulted for
// expiry.
func (c Config) FollowUpEnabled() bool {
	return strings.TrimSpace(c.FollowUp.BaseURL) != ""
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		ServiceName: envutil.String("SERVICE_NAME", defaultServiceName, log),
		Environment: envutil.String("ENVIRONMENT", "development", log),
		Version:     envutil.String("SERVICE_VERSION", "dev", log),

		DB:          db.ConfigFromEnv(log),
		AutoMigrate: envutil.Bool("DB_AUTO_MIGRATE", true, log),

		TimeZone:        envutil.String("SCHEDULER_TIME_ZONE", defaultTimeZone, log),
		QueueDelaysFile: strings.TrimSpace(envutil.String("SCHEDULER_QUEUE_DELAYS_FILE", "", log)),

		FollowUp:         followup.ConfigFromEnv(log),
		FollowUpLookback: time.Duration(envutil.Int("FOLLOWUP_LOOKBACK_DAYS", int(expiration.DefaultLookback/(24*time.Hour)), log)) * 24 * time.Hour,

		Redis:    redis.ConfigFromEnv(log),
		Temporal: temporalx.LoadConfig(log),
		Events:   events.ConfigFromEnv(log),

		OpsHTTPAddr:       envutil.String("OPS_HTTP_ADDR", ":8080", log),
		SweepTickerMinute: envutil.Int("SWEEP_TICKER_MINUTE", 5, log),
		ListenEvents:      envutil.Bool("EVENTS_LISTEN_ENABLED", true, log),
	}

	loc, err := time.LoadLocation(strings.TrimSpace(cfg.TimeZone))
	if err != nil {
		return Config{}, fmt.Errorf("load SCHEDULER_TIME_ZONE %q: %w", cfg.TimeZone, err)
	}
	cfg.Location = loc

	clock, err := cycle.ParseClockTime(envutil.String("SCHEDULER_DEFAULT_NOTIFICATION_TIME", defaultNotificationTime, log))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEDULER_DEFAULT_NOTIFICATION_TIME: %w", err)
	}
	cfg.DefaultNotificationTime = clock

	if cfg.FollowUpLookback <= 0 {
		cfg.FollowUpLookback = expiration.DefaultLookback
	}
	return cfg, nil
}
