package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the job scheduler.
type Metrics struct {
	JobsFired     *prometheus.CounterVec
	JobsSucceeded *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
}

// NewMetrics creates and registers scheduler metrics.
// Returns nil if reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		JobsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swarmaid",
			Subsystem: "scheduler",
			Name:      "jobs_fired_total",
			Help:      "Total scheduled job runs started.",
		}, []string{"job"}),
		JobsSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swarmaid",
			Subsystem: "scheduler",
			Name:      "jobs_succeeded_total",
			Help:      "Total scheduled job runs that succeeded.",
		}, []string{"job"}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swarmaid",
			Subsystem: "scheduler",
			Name:      "jobs_failed_total",
			Help:      "Total scheduled job runs that failed.",
		}, []string{"job"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "swarmaid",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Duration of each scheduled job run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"job"}),
	}

	reg.MustRegister(
		m.JobsFired,
		m.JobsSucceeded,
		m.JobsFailed,
		m.JobDuration,
	)

	return m
}

func (m *Metrics) fired(job string) {
	if m == nil {
		return
	}
	m.JobsFired.WithLabelValues(job).Inc()
}

func (m *Metrics) finished(job string, err error, d time.Duration) {
	if m == nil {
		return
	}
	if err != nil {
		m.JobsFailed.WithLabelValues(job).Inc()
	} else {
		m.JobsSucceeded.WithLabelValues(job).Inc()
	}
	m.JobDuration.WithLabelValues(job).Observe(d.Seconds())
}
