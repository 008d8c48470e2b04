// Package audit persists an append-only trail of help-request transitions
// and dispatch decisions. The trail is operational logging for after-action
// review; the entity stores remain the system of record.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/model"
)

// Record is one committed transition.
type Record struct {
	Timestamp  time.Time           `json:"timestamp"`
	DisasterID uuid.UUID           `json:"disaster_id"`
	RequestID  uuid.UUID           `json:"request_id"`
	TeamID     *uuid.UUID          `json:"team_id,omitempty"`
	ActorID    uuid.UUID           `json:"actor_id"`
	ActorRole  model.Role          `json:"actor_role"`
	From       model.RequestStatus `json:"from"`
	To         model.RequestStatus `json:"to"`
	Auto       bool                `json:"auto"`
	Notes      string              `json:"notes,omitempty"`
}

// Query filters records on retrieval. Zero fields match everything.
type Query struct {
	Start      time.Time
	End        time.Time
	DisasterID uuid.UUID
	Limit      int
}

// Store is an append-only transition log.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Search(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Nop discards records and returns nothing.
type Nop struct{}

func (Nop) Append(context.Context, Record) error            { return nil }
func (Nop) Search(context.Context, Query) ([]Record, error) { return nil, nil }
func (Nop) Close() error                                    { return nil }

func matches(rec Record, q Query) bool {
	if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && rec.Timestamp.After(q.End) {
		return false
	}
	if q.DisasterID != uuid.Nil && rec.DisasterID != q.DisasterID {
		return false
	}
	return true
}
