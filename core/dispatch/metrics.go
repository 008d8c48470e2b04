package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var autoDispatch *prometheus.CounterVec

// newCollectors creates new metric collectors.
func newCollectors() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auto_dispatch_total",
			Help: "Automatic dispatch attempts by outcome",
		},
		[]string{"outcome"},
	)
}

func init() {
	autoDispatch = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(autoDispatch)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	autoDispatch = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
