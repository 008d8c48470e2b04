// Package store defines the authoritative entity stores. Every state
// transition goes through a conditional update against the single stored
// record, so concurrent conflicting writers are rejected instead of
// corrupting state. No external locks are involved.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/model"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a conditional update finds the record in a
// different state than expected. Callers must re-read current state rather
// than blindly retry.
var ErrConflict = errors.New("store: conflict")

// ConflictError wraps ErrConflict with the status actually found, so an
// operator losing an assignment race sees what the request became.
type ConflictError struct {
	Current model.RequestStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("store: conflict, request status is already %q", e.Current)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// DisasterStore holds incident aggregates.
type DisasterStore interface {
	Create(ctx context.Context, d model.Disaster) error
	Get(ctx context.Context, id uuid.UUID) (model.Disaster, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*model.Disaster) error) (model.Disaster, error)
	List(ctx context.Context) ([]model.Disaster, error)
}

// LocationStore holds affected-area records.
type LocationStore interface {
	Create(ctx context.Context, l model.Location) error
	Get(ctx context.Context, id uuid.UUID) (model.Location, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*model.Location) error) (model.Location, error)
	ListByDisaster(ctx context.Context, disasterID uuid.UUID) ([]model.Location, error)
}

// TeamStore holds deployable response units.
type TeamStore interface {
	Create(ctx context.Context, t model.Team) error
	Get(ctx context.Context, id uuid.UUID) (model.Team, error)
	Update(ctx context.Context, id uuid.UUID, mutate func(*model.Team) error) (model.Team, error)
	ListByDisaster(ctx context.Context, disasterID uuid.UUID) ([]model.Team, error)
}

// RequestStore holds help requests. UpdateIfStatus is the check-and-set
// primitive behind the assignment race: exactly one of two concurrent
// callers with expect=pending succeeds, the other receives a ConflictError.
type RequestStore interface {
	Create(ctx context.Context, r model.HelpRequest) error
	Get(ctx context.Context, id uuid.UUID) (model.HelpRequest, error)
	UpdateIfStatus(ctx context.Context, id uuid.UUID, expect model.RequestStatus, mutate func(*model.HelpRequest) error) (model.HelpRequest, error)
	ListByDisaster(ctx context.Context, disasterID uuid.UUID) ([]model.HelpRequest, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]model.HelpRequest, error)
}

// ResourceStore lists institution stock for the availability aggregation.
type ResourceStore interface {
	Create(ctx context.Context, r model.Resource) error
	List(ctx context.Context) ([]model.Resource, error)
}

// ResourceRequestStore lists resource requests for the availability
// aggregation.
type ResourceRequestStore interface {
	Create(ctx context.Context, r model.ResourceRequest) error
	ListByDisaster(ctx context.Context, disasterID uuid.UUID) ([]model.ResourceRequest, error)
}
