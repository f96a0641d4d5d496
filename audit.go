package goSession

import (
	"io"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/sirupsen/logrus"
)

// AuditEvent is one security-relevant engine event.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's background dispatcher.
// Sinks are called from a single goroutine.
type AuditSink = internalaudit.Sink

type NoOpSink = internalaudit.NoOpSink

type ChannelSink = internalaudit.ChannelSink

type JSONWriterSink = internalaudit.JSONWriterSink

type LogrusSink = internalaudit.LogrusSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLogrusSink writes audit events as structured log entries.
func NewLogrusSink(log logrus.FieldLogger) *LogrusSink {
	return internalaudit.NewLogrusSink(log)
}
