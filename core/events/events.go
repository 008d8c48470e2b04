// Package events defines the coordination events emitted on the in-process
// event bus.
//
// Available event types:
//   - DispatchEvent: auto-dispatch attempt outcome for a help request
//   - JobEvent: aggregation job lifecycle information
//   - EmergencyEvent: a team's emergency report
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/model"
)

// DispatchEvent is emitted when the dispatch manager attempts an automatic
// assignment. Action can be "selected", "no_candidate", "assigned",
// "conflict" or "error".
type DispatchEvent struct {
	RequestID uuid.UUID
	TeamID    uuid.UUID
	Action    string
	Err       error
}

// JobEvent reports an aggregation job transition. Action can be "enqueued",
// "started", "completed", "retried" or "failed".
type JobEvent struct {
	JobType    string
	DisasterID uuid.UUID
	Action     string
	Attempt    int
	Err        error
}

// EmergencyEvent is emitted when a team reports an emergency in the field.
type EmergencyEvent struct {
	TeamID     uuid.UUID
	DisasterID uuid.UUID
	Severity   model.Level
	Message    string
	Time       time.Time
}
