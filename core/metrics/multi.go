package metrics

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatchResult forwards the records to all sinks, returning the
// first error encountered.
func (m *MultiSink) RecordDispatchResult(results []AssignmentRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordDispatchResult(results); err != nil {
			return err
		}
	}
	return nil
}

// RecordPrioritySnapshot forwards the scores to all sinks.
func (m *MultiSink) RecordPrioritySnapshot(scores []LocationScore) error {
	for _, s := range m.Sinks {
		if err := s.RecordPrioritySnapshot(scores); err != nil {
			return err
		}
	}
	return nil
}
