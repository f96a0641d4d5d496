package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSource is the engine surface read at scrape time.
type MetricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// Collector adapts engine metrics to a prometheus.Collector.
type Collector struct {
	source       MetricsSource
	counters     []*prometheus.Desc
	histograms   []*prometheus.Desc
	auditDropped *prometheus.Desc
	bounds       []float64
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(source MetricsSource) *Collector {
	c := &Collector{
		source:       source,
		counters:     make([]*prometheus.Desc, len(internaldefs.CounterDefs)),
		histograms:   make([]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
		bounds:       append([]float64(nil), internaldefs.HistogramUpperBounds...),
	}
	for i, def := range internaldefs.CounterDefs {
		c.counters[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.HistogramDefs {
		c.histograms[i] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
	ch <- c.auditDropped
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for i, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(c.counters[i], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		buckets := make(map[float64]uint64, len(c.bounds))
		for j, le := range c.bounds {
			buckets[le] = cumulative[j]
		}
		// the engine keeps counts only, so the sum is not available
		ch <- prometheus.MustNewConstHistogram(c.histograms[i], cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.auditDropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
}

// Handler serves registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// NewRegistry returns a registry holding a Collector for source and the
// process and Go runtime collectors.
func NewRegistry(source MetricsSource) (*prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(NewCollector(source)); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	return registry, nil
}

// HTTPMetrics records request counts and durations for the auth endpoints.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(registry prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosession_http_requests_total",
				Help: "HTTP requests by method, path and status.",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gosession_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
	registry.MustRegister(m.requests, m.duration)
	return m
}

// Middleware wraps next and records every request.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.requests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.status)).Inc()
		m.duration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
