// Package metrics provides the metrics sink implementations: Prometheus
// collectors and an InfluxDB writer, selected via the factory registry.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/afetops/coordcore/core/metrics"
)

// PromSink records assignment and priority observations as Prometheus
// metrics.
type PromSink struct {
	assignments *prometheus.CounterVec
	scores      *prometheus.GaugeVec
}

// NewPromSink registers the collectors on the default Prometheus registerer.
// The metrics server is started separately.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the collectors on the provided
// registerer. A nil registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_attempts_total",
		Help: "Auto-dispatch assignment attempts, by request type, urgency and outcome.",
	}, []string{"request_type", "urgency", "auto", "outcome"})
	scores := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "location_priority_score",
		Help: "Latest priority score per affected area.",
	}, []string{"disaster_id", "location"})

	if err := reg.Register(assignments); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			assignments = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(scores); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			scores = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{assignments: assignments, scores: scores}, nil
}

// RecordDispatchResult increments the attempt counter for each record.
func (s *PromSink) RecordDispatchResult(results []coremetrics.AssignmentRecord) error {
	for _, r := range results {
		s.assignments.WithLabelValues(
			string(r.RequestType),
			string(r.Urgency),
			strconv.FormatBool(r.Auto),
			outcome(r),
		).Inc()
	}
	return nil
}

// RecordPrioritySnapshot sets the score gauge for each location.
func (s *PromSink) RecordPrioritySnapshot(scores []coremetrics.LocationScore) error {
	for _, sc := range scores {
		s.scores.WithLabelValues(sc.DisasterID.String(), sc.Name).Set(float64(sc.Score))
	}
	return nil
}

func outcome(r coremetrics.AssignmentRecord) string {
	switch {
	case r.Succeeded:
		return "assigned"
	case r.Conflict:
		return "conflict"
	default:
		return "failed"
	}
}
