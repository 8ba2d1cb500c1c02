package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/envutil"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

const defaultChannel = "questionnaire_instances"

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func ConfigFromEnv(log *logger.Logger) Config {
	cfg := Config{
		Addr:     strings.TrimSpace(envutil.String("REDIS_ADDR", "", log)),
		Password: envutil.String("REDIS_PASSWORD", "", log),
		DB:       envutil.Int("REDIS_DB", 0, log),
		Channel:  strings.TrimSpace(envutil.String("REDIS_CHANNEL", defaultChannel, log)),
	}
	if cfg.Channel == "" {
		cfg.Channel = defaultChannel
	}
	return cfg
}

// InstanceBus fans instance lifecycle messages out over Redis pub/sub.
type InstanceBus interface {
	Publish(ctx context.Context, msgs ...types.LifecycleMessage) error
	Subscribe(ctx context.Context, onMsg func(m types.LifecycleMessage)) error
	Close() error
}

type redisInstanceBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewInstanceBus(log *logger.Logger, cfg Config) (InstanceBus, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if cfg.Channel == "" {
		cfg.Channel = defaultChannel
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisInstanceBus{
		log:     log.With("client", "RedisInstanceBus"),
		rdb:     rdb,
		channel: cfg.Channel,
	}, nil
}

// Publish sends all messages in one pipeline round trip.
func (b *redisInstanceBus) Publish(ctx context.Context, msgs ...types.LifecycleMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	payloads, err := encode(msgs)
	if err != nil {
		return err
	}
	pipe := b.rdb.Pipeline()
	for _, raw := range payloads {
		pipe.Publish(ctx, b.channel, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *redisInstanceBus) Subscribe(ctx context.Context, onMsg func(m types.LifecycleMessage)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				msg, err := decode(m.Payload)
				if err != nil {
					b.log.Warn("bad instance message payload", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()

	return nil
}

func (b *redisInstanceBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func encode(msgs []types.LifecycleMessage) ([][]byte, error) {
	out := make([][]byte, 0, len(msgs))
	for _, m := range msgs {
		raw, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", m.Type, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

func decode(payload string) (types.LifecycleMessage, error) {
	var msg types.LifecycleMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return types.LifecycleMessage{}, err
	}
	if msg.Type == "" {
		return types.LifecycleMessage{}, fmt.Errorf("missing message type")
	}
	return msg, nil
}
