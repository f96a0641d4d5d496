package audit

import (
	"context"
	"time"
)

// Event is the audit record shared by the dispatcher and the root API.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(ctx context.Context, event Event)

func (f SinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// Fanout delivers each event to every non-nil sink in order.
func Fanout(sinks ...Sink) Sink {
	live := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return SinkFunc(func(ctx context.Context, event Event) {
		for _, s := range live {
			s.Emit(ctx, event)
		}
	})
}
