package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/swarmaid/swarmaid/internal/llm"
	"github.com/swarmaid/swarmaid/internal/tools"
)

// --- InstrumentedProvider ---

// InstrumentedProvider wraps an llm.Provider with metrics and tracing.
type InstrumentedProvider struct {
	inner   llm.Provider
	metrics *MetricsCollector
	tracer  trace.Tracer
}

var _ llm.Provider = (*InstrumentedProvider)(nil)

// NewInstrumentedProvider wraps an LLM provider with observability.
func NewInstrumentedProvider(inner llm.Provider, metrics *MetricsCollector, ts *TracerSetup) *InstrumentedProvider {
	var tracer trace.Tracer
	if ts != nil {
		tracer = ts.Tracer()
	}
	return &InstrumentedProvider{inner: inner, metrics: metrics, tracer: tracer}
}

func (p *InstrumentedProvider) Name() string { return p.inner.Name() }

func (p *InstrumentedProvider) SendMessage(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	provider := p.inner.Name()

	var span trace.Span
	if p.tracer != nil {
		ctx, span = p.tracer.Start(ctx, "llm.send_message",
			trace.WithAttributes(
				attribute.String("llm.provider", provider),
				attribute.Int("llm.max_tokens", req.MaxTokens),
			))
		defer span.End()
	}

	start := time.Now()
	resp, err := p.inner.SendMessage(ctx, req)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}

	if p.metrics != nil {
		p.metrics.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
		p.metrics.LLMRequestDuration.WithLabelValues(provider).Observe(duration)
		if resp != nil {
			p.metrics.LLMTokensUsed.WithLabelValues(provider, "input").Add(float64(resp.Usage.InputTokens))
			p.metrics.LLMTokensUsed.WithLabelValues(provider, "output").Add(float64(resp.Usage.OutputTokens))
		}
	}

	return resp, err
}

// --- InstrumentedTool ---

// InstrumentedTool wraps an agent tool with metrics and tracing.
type InstrumentedTool struct {
	inner   tools.Tool
	metrics *MetricsCollector
	tracer  trace.Tracer
}

var _ tools.Tool = (*InstrumentedTool)(nil)

// NewInstrumentedTool wraps a tool with observability.
func NewInstrumentedTool(inner tools.Tool, metrics *MetricsCollector, ts *TracerSetup) *InstrumentedTool {
	var tracer trace.Tracer
	if ts != nil {
		tracer = ts.Tracer()
	}
	return &InstrumentedTool{inner: inner, metrics: metrics, tracer: tracer}
}

func (t *InstrumentedTool) Name() string        { return t.inner.Name() }
func (t *InstrumentedTool) Description() string { return t.inner.Description() }

func (t *InstrumentedTool) Execute(ctx context.Context, query string) (*tools.Result, error) {
	name := t.inner.Name()

	var span trace.Span
	if t.tracer != nil {
		ctx, span = t.tracer.Start(ctx, "tool.execute",
			trace.WithAttributes(attribute.String("tool.name", name)))
		defer span.End()
	}

	start := time.Now()
	res, err := t.inner.Execute(ctx, query)
	duration := time.Since(start).Seconds()

	status := "brief"
	switch {
	case err != nil:
		status = "error"
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	case res != nil && res.Direct:
		status = "direct"
	}
	if span != nil && res != nil {
		span.SetAttributes(attribute.Int("tool.features", len(res.Features)))
	}

	if t.metrics != nil {
		t.metrics.ToolExecutionsTotal.WithLabelValues(name, status).Inc()
		t.metrics.ToolExecutionDuration.WithLabelValues(name).Observe(duration)
	}

	return res, err
}
