// Package metrics defines the sink interfaces through which dispatch and
// priority observations leave the core. Implementations live in
// infra/metrics.
package metrics

import (
	"time"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/model"
)

// AssignmentRecord represents one auto-dispatch attempt to be recorded.
type AssignmentRecord struct {
	RequestID    uuid.UUID
	TeamID       uuid.UUID
	DisasterID   uuid.UUID
	RequestType  model.RequestType
	Urgency      model.Level
	Auto         bool
	Succeeded    bool
	Conflict     bool
	DispatchTime time.Time
}

// LocationScore is one scored affected area from a priority snapshot.
type LocationScore struct {
	LocationID uuid.UUID
	DisasterID uuid.UUID
	Name       string
	Score      int
	Priority   model.Level
	Time       time.Time
}

// MetricsSink records coordination results for observability purposes.
type MetricsSink interface {
	RecordDispatchResult(results []AssignmentRecord) error
	RecordPrioritySnapshot(scores []LocationScore) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordDispatchResult([]AssignmentRecord) error { return nil }
func (NopSink) RecordPrioritySnapshot([]LocationScore) error  { return nil }
