package jobs

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsProcessed *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
)

func newCollectors() {
	jobsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aggregation_jobs_total",
		Help: "Aggregation jobs processed, by type and outcome.",
	}, []string{"type", "outcome"})
	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aggregation_job_duration_seconds",
		Help:    "Time spent computing one aggregation job.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
}

func init() { newCollectors() }

// MustRegisterMetrics registers the job collectors on the given registry.
func MustRegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(jobsProcessed, jobDuration)
}

// ResetMetrics replaces the collectors and registers fresh ones. Used by
// tests that need isolated registries.
func ResetMetrics(reg prometheus.Registerer) {
	newCollectors()
	reg.MustRegister(jobsProcessed, jobDuration)
}
