package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authform"
)

type fakeSource struct {
	snapshot  authform.MetricsSnapshot
	dropped   uint64
	delivered uint64
}

func (f fakeSource) MetricsSnapshot() authform.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }
func (f fakeSource) AuditDelivered() uint64                    { return f.delivered }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authform.MetricsSnapshot{
			Counters:   map[authform.MetricID]uint64{},
			Histograms: map[authform.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authform.MetricsSnapshot{
			Counters: map[authform.MetricID]uint64{
				authform.MetricLoginSuccess:      7,
				authform.MetricValidationFailure: 3,
			},
			Histograms: map[authform.MetricID][]uint64{
				authform.MetricSubmitLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped:   2,
		delivered: 9,
	})

	out := exp.Render()
	for _, want := range []string{
		"authform_login_success_total 7",
		"authform_validation_failure_total 3",
		"authform_navigation_total 0",
		"authform_submit_latency_seconds_bucket{le=\"0.025\"} 1",
		"authform_submit_latency_seconds_bucket{le=\"+Inf\"} 36",
		"authform_submit_latency_seconds_count 36",
		"authform_audit_dropped_total 2",
		"authform_audit_delivered_total 9",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if exp.Render() != out {
		t.Fatal("expected deterministic output")
	}
}

func TestRenderFromEngine(t *testing.T) {
	engine, err := authform.New().
		WithIdentityService(nopIdentity{}).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	if _, err := engine.NewForm(authform.ModeLogin); err != nil {
		t.Fatalf("new form: %v", err)
	}

	out := NewPrometheusExporter(engine).Render()
	if !strings.Contains(out, "authform_form_created_total 1") {
		t.Fatalf("expected form_created counter, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authform.MetricsSnapshot{
			Counters:   map[authform.MetricID]uint64{authform.MetricLoginSuccess: 1},
			Histograms: map[authform.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authform.MetricsSnapshot{
			Counters: map[authform.MetricID]uint64{
				authform.MetricSubmitStarted:       1000,
				authform.MetricLoginSuccess:        800,
				authform.MetricLoginRejected:       40,
				authform.MetricRegistrationSuccess: 150,
				authform.MetricNavigation:          800,
			},
			Histograms: map[authform.MetricID][]uint64{
				authform.MetricSubmitLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
