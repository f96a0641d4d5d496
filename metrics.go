package goSession

import (
	"sort"
	"sync/atomic"
	"time"
)

// MetricID identifies an engine counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricLoginUnverified
	// MetricLoginCookieRevoked counts logins that retired sessions because of
	// the refresh cookie they presented.
	MetricLoginCookieRevoked
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshReuseDetected
	MetricRefreshOwnerMismatch
	MetricSessionCreated
	// MetricSessionInsertConflict counts refresh inserts rejected because the
	// token already had a row. Any non-zero value indicates a codec fault.
	MetricSessionInsertConflict
	MetricSessionsRevoked
	MetricLogout
	MetricLogoutStoreError
	MetricLogoutAll
	MetricValidateFailure
	MetricStoreError
	MetricRefreshLatency
	MetricValidateLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of the finite histogram
// buckets. The last bucket catches everything slower.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(latencyBounds) + 1

// counter sits alone on a cache line so hot neighbouring ids do not share one.
type counter struct {
	n atomic.Uint64
	_ [56]byte
}

type latencyHistogram [histBucketCount]atomic.Uint64

func (h *latencyHistogram) observe(d time.Duration) {
	i := sort.Search(len(latencyBounds), func(i int) bool { return d <= latencyBounds[i] })
	h[i].Add(1)
}

func (h *latencyHistogram) load() []uint64 {
	out := make([]uint64, histBucketCount)
	for i := range h {
		out[i] = h[i].Load()
	}
	return out
}

// Metrics holds lock-free counters and fixed-bucket latency histograms.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled  bool
	latency  bool
	counters [metricIDCount]counter
	refresh  latencyHistogram
	validate latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool { return m != nil && m.enabled }

func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latency }

func (m *Metrics) Inc(id MetricID) { m.Add(id, 1) }

// Add increments id by n. Histogram ids are ignored.
func (m *Metrics) Add(id MetricID, n uint64) {
	if !m.Enabled() || n == 0 || id >= metricIDCount || m.histogram(id) != nil {
		return
	}
	m.counters[id].n.Add(n)
}

// Observe records d in the histogram for id. Only latency metrics carry
// histograms; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() {
		return
	}
	if h := m.histogram(id); h != nil {
		h.observe(d)
	}
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

func (m *Metrics) histogram(id MetricID) *latencyHistogram {
	switch id {
	case MetricRefreshLatency:
		return &m.refresh
	case MetricValidateLatency:
		return &m.validate
	}
	return nil
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if m.histogram(id) == nil {
			s.Counters[id] = m.counters[id].n.Load()
		}
	}
	if m.latency {
		s.Histograms[MetricRefreshLatency] = m.refresh.load()
		s.Histograms[MetricValidateLatency] = m.validate.load()
	}
	return s
}
