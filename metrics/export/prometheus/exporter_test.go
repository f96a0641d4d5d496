package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/goSession"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestCollectorCounters(t *testing.T) {
	c := NewCollector(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricLoginSuccess:         7,
				goSession.MetricRefreshReuseDetected: 2,
			},
			Histograms: map[goSession.MetricID][]uint64{},
		},
		dropped: 3,
	})

	expected := `
# HELP gosession_login_success_total Successful logins.
# TYPE gosession_login_success_total counter
gosession_login_success_total 7
# HELP gosession_refresh_reuse_detected_total Replays of already-rotated refresh tokens.
# TYPE gosession_refresh_reuse_detected_total counter
gosession_refresh_reuse_detected_total 2
# HELP gosession_audit_dropped_total Audit events dropped because the dispatcher buffer was full.
# TYPE gosession_audit_dropped_total counter
gosession_audit_dropped_total 3
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"gosession_login_success_total",
		"gosession_refresh_reuse_detected_total",
		"gosession_audit_dropped_total",
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestCollectorHistogram(t *testing.T) {
	c := NewCollector(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(c)

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := rec.Body.String()

	for _, want := range []string{
		`gosession_validate_latency_seconds_bucket{le="0.005"} 1`,
		`gosession_validate_latency_seconds_bucket{le="0.5"} 28`,
		`gosession_validate_latency_seconds_bucket{le="+Inf"} 36`,
		`gosession_validate_latency_seconds_count 36`,
		`gosession_refresh_latency_seconds_count 0`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestCollectorLint(t *testing.T) {
	c := NewCollector(fakeSource{snapshot: goSession.MetricsSnapshot{}})
	problems, err := testutil.CollectAndLint(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 0 {
		t.Fatalf("lint problems: %v", problems)
	}
}

func TestNewRegistry(t *testing.T) {
	registry, err := NewRegistry(fakeSource{snapshot: goSession.MetricsSnapshot{}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected metric families")
	}
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewHTTPMetrics(registry)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodPost, "/auth/refresh", "403"))
	if got != 1 {
		t.Fatalf("requests = %v, want 1", got)
	}
}
