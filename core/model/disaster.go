package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DisasterType categorizes the incident.
type DisasterType string

const (
	DisasterEarthquake   DisasterType = "earthquake"
	DisasterFlood        DisasterType = "flood"
	DisasterFire         DisasterType = "fire"
	DisasterLandslide    DisasterType = "landslide"
	DisasterAvalanche    DisasterType = "avalanche"
	DisasterStorm        DisasterType = "storm"
	DisasterTsunami      DisasterType = "tsunami"
	DisasterPandemic     DisasterType = "pandemic"
	DisasterCBRN         DisasterType = "cbrn"
	DisasterTerrorAttack DisasterType = "terror_attack"
	DisasterOther        DisasterType = "other"
)

// Valid reports whether the type is a known incident category.
func (t DisasterType) Valid() bool {
	switch t {
	case DisasterEarthquake, DisasterFlood, DisasterFire, DisasterLandslide,
		DisasterAvalanche, DisasterStorm, DisasterTsunami, DisasterPandemic,
		DisasterCBRN, DisasterTerrorAttack, DisasterOther:
		return true
	}
	return false
}

// DisasterStatus is the operator-driven lifecycle of an incident. Transitions
// are never automatic.
type DisasterStatus string

const (
	DisasterAlert      DisasterStatus = "alert"
	DisasterActive     DisasterStatus = "active"
	DisasterControlled DisasterStatus = "controlled"
	DisasterRecovery   DisasterStatus = "recovery"
	DisasterClosed     DisasterStatus = "closed"
)

// Valid reports whether the status is part of the incident lifecycle.
func (s DisasterStatus) Valid() bool {
	switch s {
	case DisasterAlert, DisasterActive, DisasterControlled, DisasterRecovery, DisasterClosed:
		return true
	}
	return false
}

// ResponsePhase tracks the operational phase inside an active incident.
type ResponsePhase string

const (
	PhaseInitialAssessment ResponsePhase = "initial_assessment"
	PhaseSearchRescue      ResponsePhase = "search_rescue"
	PhaseEmergencyAid      ResponsePhase = "emergency_aid"
	PhaseTemporaryShelter  ResponsePhase = "temporary_shelter"
	PhaseRecovery          ResponsePhase = "recovery"
	PhaseReconstruction    ResponsePhase = "reconstruction"
)

// Casualties is the structured head count attached to a disaster. It is
// replaced as a whole by coordinator updates, never merged field by field.
type Casualties struct {
	Dead      int `json:"dead"`
	Injured   int `json:"injured"`
	Missing   int `json:"missing"`
	Evacuated int `json:"evacuated"`
}

// CasualtyPoint is one sample of the casualty trend over time.
type CasualtyPoint struct {
	Timestamp  time.Time  `json:"timestamp"`
	Casualties Casualties `json:"casualties"`
	ReportedBy uuid.UUID  `json:"reported_by,omitempty"`
}

// Disaster is the top-level incident aggregate coordinating all response
// activity. One record per incident, updated throughout its life and never
// deleted.
type Disaster struct {
	ID                 uuid.UUID       `json:"id"`
	Type               DisasterType    `json:"type"`
	Name               string          `json:"name"`
	Description        string          `json:"description,omitempty"`
	Severity           Level           `json:"severity"`
	Status             DisasterStatus  `json:"status"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            *time.Time      `json:"end_date,omitempty"`
	Epicenter          *Point          `json:"epicenter,omitempty"`
	AffectedPopulation int             `json:"affected_population"`
	Casualties         Casualties      `json:"casualties"`
	CasualtyHistory    []CasualtyPoint `json:"casualty_history,omitempty"`
	CoordinatorID      uuid.UUID       `json:"coordinator_id"`
	ResponsePhase      ResponsePhase   `json:"response_phase"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Validate checks the invariants that must hold for every stored disaster.
// EndDate may only be set once the incident is closed.
func (d Disaster) Validate() error {
	if !d.Type.Valid() {
		return fmt.Errorf("invalid disaster type %q", d.Type)
	}
	if d.Name == "" {
		return fmt.Errorf("disaster name is required")
	}
	if !d.Severity.Valid() {
		return fmt.Errorf("invalid severity %q", d.Severity)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("invalid status %q", d.Status)
	}
	if d.StartDate.IsZero() {
		return fmt.Errorf("start date is required")
	}
	if d.EndDate != nil && d.Status != DisasterClosed {
		return fmt.Errorf("end date requires status %q, got %q", DisasterClosed, d.Status)
	}
	return nil
}

// Ongoing reports whether the incident still drives response activity.
func (d Disaster) Ongoing() bool {
	return d.Status == DisasterActive || d.Status == DisasterControlled
}
