package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/swarmaid/swarmaid/internal/config"
	"github.com/swarmaid/swarmaid/internal/llm"
	"github.com/swarmaid/swarmaid/internal/tools"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Facade ---

func TestNew_NilConfig(t *testing.T) {
	obs, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New(nil) error: %v", err)
	}
	if obs.Metrics != nil || obs.Tracer != nil {
		t.Fatal("expected metrics and tracing disabled for nil config")
	}
	if obs.Health == nil {
		t.Error("health checker should always be created")
	}
}

func TestNew_MetricsEnabled(t *testing.T) {
	obs, err := New(&config.ObservabilityConfig{
		Metrics: &config.MetricsConfig{Enabled: true, Path: "/internal/metrics"},
	}, discardLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if obs.MetricsOrNil() == nil {
		t.Fatal("expected metrics")
	}
	if obs.MetricsPath() != "/internal/metrics" {
		t.Errorf("metrics path = %q", obs.MetricsPath())
	}
	if obs.TracerOrNil() != nil {
		t.Error("tracing should stay disabled")
	}
}

func TestObservability_NilSafe(t *testing.T) {
	var obs *Observability
	obs.Shutdown(context.Background())
	if obs.TracerOrNil() != nil || obs.MetricsOrNil() != nil {
		t.Error("expected nil components from nil Observability")
	}
	if obs.MetricsPath() != DefaultMetricsPath {
		t.Errorf("metrics path = %q", obs.MetricsPath())
	}
	var ts *TracerSetup
	if ts.Tracer() == nil {
		t.Error("nil TracerSetup should hand out a no-op tracer")
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); !strings.Contains(got, tt.want) {
			t.Errorf("samplerFor(%v) = %s, want it to contain %s", tt.rate, got, tt.want)
		}
	}
}

// --- MetricsCollector ---

func TestMetricsCollector_Handler(t *testing.T) {
	m := NewMetricsCollector()
	m.LLMRequestsTotal.WithLabelValues("openai", "success").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `swarmaid_llm_requests_total{provider="openai",status="success"} 1`) {
		t.Errorf("exposition missing counter:\n%s", rec.Body.String())
	}
}

// --- HealthChecker ---

func TestHealthChecker_NoChecks(t *testing.T) {
	h := NewHealthChecker(nil)
	if status := h.CheckReady(context.Background()); status.Status != "ok" {
		t.Errorf("status = %q", status.Status)
	}
}

func TestHealthChecker_OneFails(t *testing.T) {
	h := NewHealthChecker(discardLogger())
	h.AddCheck("geocoder", func(context.Context) error { return nil })
	h.AddCheck("llm", func(context.Context) error { return errors.New("no API key") })

	status := h.CheckReady(context.Background())
	if status.Status != "degraded" {
		t.Errorf("status = %q, want degraded", status.Status)
	}
	if status.Checks["geocoder"].Status != "ok" {
		t.Errorf("geocoder = %+v", status.Checks["geocoder"])
	}
	if c := status.Checks["llm"]; c.Status != "fail" || c.Message != "no API key" {
		t.Errorf("llm = %+v", c)
	}
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil)
	h.AddCheck("always-fails", func(context.Context) error { return errors.New("x") })
	if h.CheckHealth().Status != "ok" {
		t.Error("liveness must not depend on readiness checks")
	}
}

// --- InstrumentedProvider ---

type mockProvider struct {
	name string
	err  error
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) SendMessage(context.Context, *llm.Request) (*llm.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Content: "ok", Usage: llm.Usage{InputTokens: 10, OutputTokens: 4}}, nil
}

func TestInstrumentedProvider_Success(t *testing.T) {
	metrics := NewMetricsCollector()
	p := NewInstrumentedProvider(&mockProvider{name: "gemini"}, metrics, nil)

	if _, err := p.SendMessage(context.Background(), &llm.Request{}); err != nil {
		t.Fatal(err)
	}
	if v := counterValue(t, metrics.Registry, "swarmaid_llm_requests_total", prometheus.Labels{"provider": "gemini", "status": "success"}); v != 1 {
		t.Errorf("requests = %v", v)
	}
	if v := counterValue(t, metrics.Registry, "swarmaid_llm_tokens_used_total", prometheus.Labels{"provider": "gemini", "direction": "output"}); v != 4 {
		t.Errorf("output tokens = %v", v)
	}
}

func TestInstrumentedProvider_Error(t *testing.T) {
	metrics := NewMetricsCollector()
	p := NewInstrumentedProvider(&mockProvider{name: "openai", err: errors.New("boom")}, metrics, nil)
	if _, err := p.SendMessage(context.Background(), &llm.Request{}); err == nil {
		t.Fatal("expected error")
	}
	if v := counterValue(t, metrics.Registry, "swarmaid_llm_requests_total", prometheus.Labels{"provider": "openai", "status": "error"}); v != 1 {
		t.Errorf("errors = %v", v)
	}
}

func TestInstrumentedProvider_NilMetrics(t *testing.T) {
	p := NewInstrumentedProvider(&mockProvider{name: "x"}, nil, nil)
	if p.Name() != "x" {
		t.Errorf("name = %q", p.Name())
	}
	if _, err := p.SendMessage(context.Background(), &llm.Request{}); err != nil {
		t.Fatal(err)
	}
}

// --- InstrumentedTool ---

type directTool struct{}

func (directTool) Name() string        { return "Route Planner" }
func (directTool) Description() string { return "d" }
func (directTool) Execute(context.Context, string) (*tools.Result, error) {
	return tools.Answer("unavailable"), nil
}

func TestInstrumentedTool(t *testing.T) {
	metrics := NewMetricsCollector()
	tool := NewInstrumentedTool(directTool{}, metrics, nil)
	res, err := tool.Execute(context.Background(), "x")
	if err != nil || !res.Direct {
		t.Fatalf("unexpected result %+v, %v", res, err)
	}
	if v := counterValue(t, metrics.Registry, "swarmaid_tool_executions_total", prometheus.Labels{"tool": "Route Planner", "status": "direct"}); v != 1 {
		t.Errorf("executions = %v", v)
	}
}

// --- HTTP Middleware ---

func TestHTTPMetricsMiddleware(t *testing.T) {
	metrics := NewMetricsCollector()
	handler := HTTPMetricsMiddleware(metrics, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d", rec.Code)
	}
	if v := counterValue(t, metrics.Registry, "swarmaid_http_requests_total", prometheus.Labels{"method": "POST", "path": "/mcp", "status_code": "202"}); v != 1 {
		t.Errorf("http requests = %v, want 1", v)
	}
}

func TestHTTPMetricsMiddleware_NilMetrics(t *testing.T) {
	handler := HTTPMetricsMiddleware(nil, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

// --- Helpers ---

func labelMap(pairs []*dto.LabelPair) map[string]string {
	m := make(map[string]string)
	for _, p := range pairs {
		m[p.GetName()] = p.GetValue()
	}
	return m
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels prometheus.Labels) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather error: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			lm := labelMap(metric.GetLabel())
			match := true
			for k, v := range labels {
				if lm[k] != v {
					match = false
					break
				}
			}
			if match {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
