package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// ChannelSink buffers events in a channel for a consumer to read.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

// Emit blocks while the channel is full, unless ctx ends first.
func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event { return s.events }

// JSONWriterSink writes newline-delimited JSON.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	_ = s.enc.Encode(event)
	s.mu.Unlock()
}

// LogrusSink logs each event as a structured entry: info for successes,
// warn for failures.
type LogrusSink struct {
	log logrus.FieldLogger
}

func NewLogrusSink(log logrus.FieldLogger) *LogrusSink {
	return &LogrusSink{log: log}
}

func (s *LogrusSink) Emit(_ context.Context, event Event) {
	if s == nil || s.log == nil {
		return
	}
	entry := s.log.WithFields(eventFields(event))
	if !event.Success {
		entry.Warn("audit event")
		return
	}
	entry.Info("audit event")
}

func eventFields(event Event) logrus.Fields {
	f := make(logrus.Fields, 5+len(event.Metadata))
	f["audit"] = event.EventType
	f["success"] = event.Success
	optional := map[string]string{
		"user_id":    event.UserID,
		"ip":         event.IP,
		"error_code": event.Error,
	}
	for k, v := range optional {
		if v != "" {
			f[k] = v
		}
	}
	for k, v := range event.Metadata {
		f["meta_"+k] = v
	}
	return f
}
