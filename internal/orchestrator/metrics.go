package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/swarmaid/swarmaid/internal/geo"
)

// PipelineMetrics holds Prometheus metrics for simulation runs.
// All metrics use the swarmaid_pipeline_ prefix.
type PipelineMetrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	StagesTotal     *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	ActiveRuns      prometheus.Gauge
	MapLayerErrors  *prometheus.CounterVec
	MapFeaturesLast prometheus.Gauge
	MapSeverities   *prometheus.GaugeVec
}

// NewPipelineMetrics creates and registers pipeline metrics on the given
// registry. Returns nil if reg is nil.
func NewPipelineMetrics(reg *prometheus.Registry) *PipelineMetrics {
	if reg == nil {
		return nil
	}

	m := &PipelineMetrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swarmaid",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total simulation runs by outcome (ok, degraded).",
		}, []string{"status"}),

		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swarmaid",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Simulation run duration in seconds.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"status"}),

		StagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swarmaid",
			Subsystem: "pipeline",
			Name:      "stages_total",
			Help:      "Total stage executions by agent and outcome (ok, direct, error).",
		}, []string{"stage", "status"}),

		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swarmaid",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Stage duration in seconds by agent.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"stage"}),

		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "swarmaid",
			Subsystem: "pipeline",
			Name:      "active_runs",
			Help:      "Number of simulation runs in progress.",
		}),

		MapLayerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swarmaid",
			Subsystem: "pipeline",
			Name:      "map_layer_errors_total",
			Help:      "Map layers skipped because they failed to build.",
		}, []string{"layer"}),

		MapFeaturesLast: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "swarmaid",
			Subsystem: "pipeline",
			Name:      "map_features",
			Help:      "Feature count of the most recent map overlay.",
		}),

		MapSeverities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "swarmaid",
			Subsystem: "pipeline",
			Name:      "map_features_by_severity",
			Help:      "Feature count of the most recent map overlay by severity tag.",
		}, []string{"severity"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.StagesTotal,
		m.StageDuration,
		m.ActiveRuns,
		m.MapLayerErrors,
		m.MapFeaturesLast,
		m.MapSeverities,
	)

	return m
}

func (m *PipelineMetrics) recordStage(stage, status string, seconds float64) {
	if m == nil {
		return
	}
	m.StagesTotal.WithLabelValues(stage, status).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

func (m *PipelineMetrics) runStarted() {
	if m == nil {
		return
	}
	m.ActiveRuns.Inc()
}

func (m *PipelineMetrics) runFinished(status string, seconds float64) {
	if m == nil {
		return
	}
	m.ActiveRuns.Dec()
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(seconds)
}

func (m *PipelineMetrics) layerFailed(layer string) {
	if m == nil {
		return
	}
	m.MapLayerErrors.WithLabelValues(layer).Inc()
}

func (m *PipelineMetrics) mapBuilt(fc geo.FeatureCollection) {
	if m == nil {
		return
	}
	m.MapFeaturesLast.Set(float64(len(fc.Features)))
	m.MapSeverities.Reset()
	for _, f := range fc.Features {
		if sev := f.Severity(); sev != "" {
			m.MapSeverities.WithLabelValues(sev).Inc()
		}
	}
}
