package events

import (
	"fmt"
	"sync"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/dbctx"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/services"
)

type Handler func(dbc dbctx.Context, ev *Event) error

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(kind string, h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	if kind == "" {
		return fmt.Errorf("handler kind is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("handler already registered for kind=%s", kind)
	}
	r.handlers[kind] = h
	return nil
}

func (r *Registry) Get(kind string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

type missingHandlerError struct{ Kind string }

func (e *missingHandlerError) Error() string { return "no handler registered for kind=" + e.Kind }

// SchedulerRegistry routes every event kind to its InstanceScheduler handler.
func SchedulerRegistry(s services.InstanceScheduler) (*Registry, error) {
	r := NewRegistry()
	handlers := map[string]Handler{
		KindQuestionnaireInserted: func(dbc dbctx.Context, ev *Event) error {
			return s.QuestionnaireInserted(dbc, ev.Questionnaire)
		},
		KindQuestionnaireUpdated: func(dbc dbctx.Context, ev *Event) error {
			return s.QuestionnaireUpdated(dbc, ev.OldQuestionnaire, ev.Questionnaire)
		},
		KindParticipantUpdated: func(dbc dbctx.Context, ev *Event) error {
			return s.ParticipantUpdated(dbc, ev.OldParticipant, ev.Participant)
		},
		KindParticipantDeleted: func(dbc dbctx.Context, ev *Event) error {
			return s.ParticipantDeleted(dbc, ev.OldParticipant)
		},
		KindParticipantEnrolled: func(dbc dbctx.Context, ev *Event) error {
			return s.ParticipantEnrolled(dbc, ev.Membership)
		},
		KindParticipantUnenrolled: func(dbc dbctx.Context, ev *Event) error {
			return s.ParticipantUnenrolled(dbc, ev.Membership)
		},
		KindInstanceReleased: func(dbc dbctx.Context, ev *Event) error {
			return s.InstanceReleased(dbc, ev.OldInstance, ev.Instance)
		},
	}
	for kind, h := range handlers {
		if err := r.Register(kind, h); err != nil {
			return nil, err
		}
	}
	return r, nil
}
