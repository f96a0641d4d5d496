package goSession

import (
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	for _, enabled := range []bool{true, false} {
		name := "enabled"
		if !enabled {
			name = "disabled"
		}
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: enabled})
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					m.Inc(MetricRefreshSuccess)
				}
			})
		})
	}
}

func BenchmarkMetricsObserveRefreshLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricRefreshLatency, 3*time.Millisecond)
		}
	})
}

// A refresh touches several adjacent counters; this measures false sharing.
func BenchmarkMetricsRefreshPathParallel(b *testing.B) {
	ids := []MetricID{
		MetricRefreshSuccess,
		MetricSessionCreated,
		MetricSessionsRevoked,
		MetricRefreshReuseDetected,
	}
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		var i int
		for pb.Next() {
			m.Inc(ids[i%len(ids)])
			i++
		}
	})
}
