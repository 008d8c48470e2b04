package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/afetops/coordcore/core/events"
	"github.com/afetops/coordcore/infra/logger"
	"github.com/afetops/coordcore/internal/eventbus"
)

var busEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "coordination_events_total",
	Help: "Coordination events observed on the internal bus.",
}, []string{"event", "action"})

// MustRegisterEventMetrics registers the collector's counters with reg.
func MustRegisterEventMetrics(reg prometheus.Registerer) {
	reg.MustRegister(busEvents)
}

// ResetEventMetrics unregisters and clears the counters, for tests.
func ResetEventMetrics(reg prometheus.Registerer) {
	reg.Unregister(busEvents)
	busEvents.Reset()
}

// StartEventCollector subscribes to the event bus and records metrics for
// events. Dispatch errors, failed jobs and team emergencies additionally go
// to the log. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, log logger.Logger) {
	if bus == nil {
		return
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.DispatchEvent:
					busEvents.WithLabelValues("dispatch", e.Action).Inc()
					if e.Err != nil {
						log.Warnf("dispatch %s for request %s: %v", e.Action, e.RequestID, e.Err)
					}
				case events.JobEvent:
					busEvents.WithLabelValues("job", e.Action).Inc()
					if e.Action == "failed" {
						log.Warnf("aggregation job %s for disaster %s failed on attempt %d: %v", e.JobType, e.DisasterID, e.Attempt, e.Err)
					}
				case events.EmergencyEvent:
					busEvents.WithLabelValues("emergency", string(e.Severity)).Inc()
					log.Warnf("team %s reported a %s emergency: %s", e.TeamID, e.Severity, e.Message)
				}
			}
		}
	}()
}
