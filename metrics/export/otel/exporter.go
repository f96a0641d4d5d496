package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("otel: nil meter")
	ErrNilSource = errors.New("otel: nil metrics source")
)

// MetricsSource is the engine surface read on each collection.
type MetricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

type counter struct {
	id  goSession.MetricID
	ins metric.Int64ObservableCounter
}

// histogram exposes one gauge per cumulative bucket plus a count gauge.
type histogram struct {
	id      goSession.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

type Exporter struct {
	source       MetricsSource
	registration metric.Registration
	counters     []counter
	histograms   []histogram
	auditDropped metric.Int64ObservableCounter
}

// NewExporter creates the instruments on meter and registers a callback that
// reads source.
func NewExporter(meter metric.Meter, source MetricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("otel: counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counter{id: def.ID, ins: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := histogram{id: def.ID}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(def.Help+" Cumulative bucket count."))
			if err != nil {
				return nil, fmt.Errorf("otel: bucket %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help+" Sample count."))
		if err != nil {
			return nil, fmt.Errorf("otel: count %s: %w", def.Name, err)
		}
		h.count = count
		observables = append(observables, count)
		e.histograms = append(e.histograms, h)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("otel: counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("otel: register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.ins, int64(snapshot.Counters[c.id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i, v := range cumulative {
			o.ObserveInt64(h.buckets[i], int64(v))
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
