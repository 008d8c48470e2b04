package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType is the kind of aid a help request asks for.
type RequestType string

const (
	RequestRescue        RequestType = "rescue"
	RequestMedical       RequestType = "medical"
	RequestFood          RequestType = "food"
	RequestWater         RequestType = "water"
	RequestShelter       RequestType = "shelter"
	RequestEvacuation    RequestType = "evacuation"
	RequestMissingPerson RequestType = "missing_person"
	RequestDebrisRemoval RequestType = "debris_removal"
	RequestOther         RequestType = "other"
)

// Valid reports whether the type is a known aid category.
func (t RequestType) Valid() bool {
	switch t {
	case RequestRescue, RequestMedical, RequestFood, RequestWater,
		RequestShelter, RequestEvacuation, RequestMissingPerson,
		RequestDebrisRemoval, RequestOther:
		return true
	}
	return false
}

// RequestStatus is a state of the help request state machine:
//
//	pending -> assigned -> in_progress -> {completed | cancelled | unreachable}
//
// cancelled and unreachable are also reachable from pending and assigned.
// Requests are never deleted, only moved to a terminal status.
type RequestStatus string

const (
	RequestPending     RequestStatus = "pending"
	RequestAssigned    RequestStatus = "assigned"
	RequestInProgress  RequestStatus = "in_progress"
	RequestCompleted   RequestStatus = "completed"
	RequestCancelled   RequestStatus = "cancelled"
	RequestUnreachable RequestStatus = "unreachable"
)

// Valid reports whether the status is a known state.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestAssigned, RequestInProgress,
		RequestCompleted, RequestCancelled, RequestUnreachable:
		return true
	}
	return false
}

// Terminal reports whether the status ends the request lifecycle.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestCompleted, RequestCancelled, RequestUnreachable:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s to
// next. The assignment transition (pending -> assigned) and the unassign
// transition (assigned -> pending) are included here but additionally guarded
// by the request service.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	switch s {
	case RequestPending:
		return next == RequestAssigned || next == RequestCancelled || next == RequestUnreachable
	case RequestAssigned:
		return next == RequestInProgress || next == RequestPending ||
			next == RequestCancelled || next == RequestUnreachable
	case RequestInProgress:
		return next.Terminal()
	}
	return false
}

// RequestSource records through which channel a request was submitted.
type RequestSource string

const (
	SourceApp         RequestSource = "app"
	SourceWeb         RequestSource = "web"
	SourcePhone       RequestSource = "phone"
	SourceSMS         RequestSource = "sms"
	SourceField       RequestSource = "field"
	SourceSocialMedia RequestSource = "social_media"
)

// RequesterContact identifies the person asking for help. Name and phone are
// mandatory on submission.
type RequesterContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Household flags captured on submission; they inform urgency triage but do
// not change the state machine.
type Household struct {
	NumberOfPeople int  `json:"number_of_people"`
	HasChildren    bool `json:"has_children"`
	HasElderly     bool `json:"has_elderly"`
	HasDisabled    bool `json:"has_disabled"`
	HasInjured     bool `json:"has_injured"`
}

// HelpRequest is a single request for assistance tied to a disaster. It is
// created on submission and never physically deleted.
type HelpRequest struct {
	ID              uuid.UUID        `json:"id"`
	DisasterID      uuid.UUID        `json:"disaster_id"`
	RequestType     RequestType      `json:"request_type"`
	Urgency         Level            `json:"urgency"`
	Status          RequestStatus    `json:"status"`
	Requester       RequesterContact `json:"requester"`
	Household       Household        `json:"household"`
	LocationID      *uuid.UUID       `json:"location_id,omitempty"`
	ExactLocation   *Point           `json:"exact_location,omitempty"`
	Address         string           `json:"address,omitempty"`
	Landmark        string           `json:"landmark,omitempty"`
	Description     string           `json:"description"`
	AssignedTeamID  *uuid.UUID       `json:"assigned_team_id,omitempty"`
	AssignedByID    *uuid.UUID       `json:"assigned_by_id,omitempty"`
	AssignedAt      *time.Time       `json:"assigned_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	CompletionNotes string           `json:"completion_notes,omitempty"`
	Source          RequestSource    `json:"source"`
	IsVerified      bool             `json:"is_verified"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Validate checks the cross-field invariants of a stored request:
// assignment fields are present exactly for assigned/in_progress/completed,
// CompletedAt only for completed, and timestamps are monotonic.
func (r HelpRequest) Validate() error {
	if r.DisasterID == uuid.Nil {
		return fmt.Errorf("request requires a disaster id")
	}
	if !r.RequestType.Valid() {
		return fmt.Errorf("invalid request type %q", r.RequestType)
	}
	if !r.Urgency.Valid() {
		return fmt.Errorf("invalid urgency %q", r.Urgency)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid status %q", r.Status)
	}
	if r.Requester.Name == "" || r.Requester.Phone == "" {
		return fmt.Errorf("requester name and phone are required")
	}
	if r.Description == "" {
		return fmt.Errorf("description is required")
	}
	assigned := r.Status == RequestAssigned || r.Status == RequestInProgress || r.Status == RequestCompleted
	if assigned && r.AssignedTeamID == nil {
		return fmt.Errorf("status %q requires an assigned team", r.Status)
	}
	if !assigned && r.AssignedTeamID != nil {
		return fmt.Errorf("status %q must not carry an assigned team", r.Status)
	}
	if (r.Status == RequestCompleted) != (r.CompletedAt != nil) {
		return fmt.Errorf("completed_at must be set exactly when status is completed")
	}
	if r.AssignedAt != nil && r.AssignedAt.Before(r.CreatedAt) {
		return fmt.Errorf("assigned_at precedes created_at")
	}
	if r.CompletedAt != nil && r.AssignedAt != nil && r.CompletedAt.Before(*r.AssignedAt) {
		return fmt.Errorf("completed_at precedes assigned_at")
	}
	return nil
}
