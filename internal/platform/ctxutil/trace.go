package ctxutil

import "context"

type traceDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

type eventDataKey struct{}

// EventData describes the change notification a handler is running for.
type EventData struct {
	Kind    string
	Channel string
	Attempt int
}

func WithEventData(ctx context.Context, ed *EventData) context.Context {
	return context.WithValue(ctx, eventDataKey{}, ed)
}

func GetEventData(ctx context.Context) *EventData {
	val := ctx.Value(eventDataKey{})
	if ed, ok := val.(*EventData); ok {
		return ed
	}
	return nil
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
