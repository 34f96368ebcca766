// Package observability provides Prometheus metrics, OpenTelemetry tracing
// and health checks for swarmaid.
// All components are optional and nil-safe: when disabled, wrappers
// skip recording with a single nil check per operation.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/swarmaid/swarmaid/internal/config"
)

// DefaultMetricsPath is where metrics are served when no path is configured.
const DefaultMetricsPath = "/metrics"

// Observability is the top-level facade holding all observability components.
// Any field except Health may be nil when that feature is disabled.
type Observability struct {
	Metrics     *MetricsCollector
	Tracer      *TracerSetup
	Health      *HealthChecker
	metricsPath string
}

// New creates an Observability instance from config. A nil config yields an
// instance with only the health checker.
func New(cfg *config.ObservabilityConfig, logger *slog.Logger) (*Observability, error) {
	obs := &Observability{
		Health:      NewHealthChecker(logger),
		metricsPath: DefaultMetricsPath,
	}
	if cfg == nil {
		return obs, nil
	}

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		obs.Metrics = NewMetricsCollector()
		if cfg.Metrics.Path != "" {
			obs.metricsPath = cfg.Metrics.Path
		}
	}

	if cfg.Tracing != nil && cfg.Tracing.Enabled {
		ts, err := NewTracerSetup(cfg.Tracing)
		if err != nil {
			return nil, fmt.Errorf("initializing tracing: %w", err)
		}
		obs.Tracer = ts
		if logger != nil {
			logger.Info("tracing enabled",
				slog.String("endpoint", cfg.Tracing.Endpoint),
				slog.String("protocol", cfg.Tracing.Protocol),
			)
		}
	}

	return obs, nil
}

// MetricsPath returns the HTTP path metrics are exposed on.
func (o *Observability) MetricsPath() string {
	if o == nil || o.metricsPath == "" {
		return DefaultMetricsPath
	}
	return o.metricsPath
}

// MetricsOrNil returns the metrics collector or nil if metrics are disabled.
func (o *Observability) MetricsOrNil() *MetricsCollector {
	if o == nil {
		return nil
	}
	return o.Metrics
}

// TracerOrNil returns the tracer setup or nil if tracing is disabled.
func (o *Observability) TracerOrNil() *TracerSetup {
	if o == nil {
		return nil
	}
	return o.Tracer
}

// Shutdown flushes pending spans.
func (o *Observability) Shutdown(ctx context.Context) {
	if o == nil {
		return
	}
	if o.Tracer != nil {
		_ = o.Tracer.Shutdown(ctx)
	}
}
