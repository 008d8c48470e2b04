package metrics

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

type countSink struct {
	dispatch int
	priority int
	err      error
}

func (s *countSink) RecordDispatchResult([]AssignmentRecord) error {
	s.dispatch++
	return s.err
}

func (s *countSink) RecordPrioritySnapshot([]LocationScore) error {
	s.priority++
	return s.err
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &countSink{}, &countSink{}
	m := NewMultiSink(a, b)
	if err := m.RecordDispatchResult([]AssignmentRecord{{RequestID: uuid.New()}}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := m.RecordPrioritySnapshot([]LocationScore{{LocationID: uuid.New()}}); err != nil {
		t.Fatalf("priority: %v", err)
	}
	if a.dispatch != 1 || b.dispatch != 1 || a.priority != 1 || b.priority != 1 {
		t.Fatalf("expected fan-out to both sinks")
	}
}

func TestMultiSinkStopsAtFirstError(t *testing.T) {
	fail := &countSink{err: errors.New("boom")}
	after := &countSink{}
	m := NewMultiSink(fail, after)
	if err := m.RecordDispatchResult(nil); err == nil {
		t.Fatal("expected error")
	}
	if after.dispatch != 0 {
		t.Fatalf("sink after failure should not be called")
	}
}

func TestNewMetricsSinkEmptyIsNop(t *testing.T) {
	s, err := NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
}
