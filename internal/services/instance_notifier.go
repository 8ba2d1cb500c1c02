package services

import (
	"context"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/clients/redis"
	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

// InstanceNotifier announces instance lifecycle changes once they are
// committed. Delivery is best effort.
type InstanceNotifier interface {
	Notify(ctx context.Context, kind string, instances []*types.QuestionnaireInstance)
}

type instanceNotifier struct {
	bus redis.InstanceBus
	log *logger.Logger
}

// NewInstanceNotifier publishes on bus; a nil bus yields a notifier that
// drops everything.
func NewInstanceNotifier(bus redis.InstanceBus, baseLog *logger.Logger) InstanceNotifier {
	if bus == nil {
		return noopNotifier{}
	}
	return &instanceNotifier{
		bus: bus,
		log: baseLog.With("service", "InstanceNotifier"),
	}
}

func (n *instanceNotifier) Notify(ctx context.Context, kind string, instances []*types.QuestionnaireInstance) {
	if len(instances) == 0 {
		return
	}
	msgs := make([]types.LifecycleMessage, 0, len(instances))
	for _, qi := range instances {
		if qi == nil {
			continue
		}
		msgs = append(msgs, types.NewLifecycleMessage(kind, qi))
	}
	if err := n.bus.Publish(ctx, msgs...); err != nil {
		n.log.Warn("publish instance messages failed", "type", kind, "count", len(msgs), "error", err)
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, []*types.QuestionnaireInstance) {}
