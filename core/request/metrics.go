package request

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsSubmitted  *prometheus.CounterVec
	requestsAssigned   *prometheus.CounterVec
	requestsCompleted  *prometheus.CounterVec
	transitionRejects  *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.HistogramVec) {
	sub := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "help_requests_submitted_total",
			Help: "Number of help requests submitted",
		},
		[]string{"urgency", "type"},
	)
	asg := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "help_requests_assigned_total",
			Help: "Number of help requests assigned to a team",
		},
		[]string{"auto"},
	)
	cmp := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "help_requests_resolved_total",
			Help: "Number of help requests reaching a terminal status",
		},
		[]string{"status"},
	)
	rej := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "help_request_transition_rejects_total",
			Help: "Number of rejected status transitions",
		},
		[]string{"reason"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "help_request_resolution_seconds",
			Help:    "Time from submission to terminal status",
			Buckets: prometheus.ExponentialBuckets(60, 2, 12),
		},
		[]string{"status"},
	)
	return sub, asg, cmp, rej, dur
}

func init() {
	requestsSubmitted, requestsAssigned, requestsCompleted, transitionRejects, resolutionDuration = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers request metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(requestsSubmitted, requestsAssigned, requestsCompleted, transitionRejects, resolutionDuration)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	requestsSubmitted, requestsAssigned, requestsCompleted, transitionRejects, resolutionDuration = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
