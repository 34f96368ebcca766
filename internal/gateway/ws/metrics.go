package ws

import "github.com/prometheus/client_golang/prometheus"

// RegisterRunMetrics exposes the tracker's run counts on reg under the
// swarmaid_ws_ prefix. It does nothing when reg is nil.
func RegisterRunMetrics(reg *prometheus.Registry, runs *RunTracker) {
	if reg == nil || runs == nil {
		return
	}
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "swarmaid",
			Subsystem: "ws",
			Name:      "active_runs",
			Help:      "Simulations currently streaming over WebSocket connections.",
		}, func() float64 { return float64(runs.Active()) }),

		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "swarmaid",
			Subsystem: "ws",
			Name:      "runs_completed_total",
			Help:      "WebSocket simulations that ended, canceled ones included.",
		}, func() float64 { return float64(runs.Completed()) }),
	)
}
