package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LocationType categorizes an affected area.
type LocationType string

const (
	LocationDistrict           LocationType = "district"
	LocationNeighborhood       LocationType = "neighborhood"
	LocationVillage            LocationType = "village"
	LocationBuilding           LocationType = "building"
	LocationStreet             LocationType = "street"
	LocationCriticalInfra      LocationType = "critical_infrastructure"
	LocationGatheringPoint     LocationType = "gathering_point"
	LocationMedicalFacility    LocationType = "medical_facility"
	LocationShelter            LocationType = "shelter"
	LocationDistributionCenter LocationType = "distribution_center"
	LocationCommandCenter      LocationType = "command_center"
	LocationOther              LocationType = "other"
)

// Valid reports whether the type is a known area category.
func (t LocationType) Valid() bool {
	switch t {
	case LocationDistrict, LocationNeighborhood, LocationVillage,
		LocationBuilding, LocationStreet, LocationCriticalInfra,
		LocationGatheringPoint, LocationMedicalFacility, LocationShelter,
		LocationDistributionCenter, LocationCommandCenter, LocationOther:
		return true
	}
	return false
}

// DamageLevel grades the assessed damage of an area.
type DamageLevel string

const (
	DamageNone      DamageLevel = "none"
	DamageLight     DamageLevel = "light"
	DamageModerate  DamageLevel = "moderate"
	DamageHeavy     DamageLevel = "heavy"
	DamageDestroyed DamageLevel = "destroyed"
)

// DamageAssessment records the latest field assessment of an area.
type DamageAssessment struct {
	Level      DamageLevel `json:"level,omitempty"`
	Date       *time.Time  `json:"date,omitempty"`
	AssessedBy uuid.UUID   `json:"assessed_by,omitempty"`
	Details    string      `json:"details,omitempty"`
}

// Accessibility describes which transport modes can currently reach an area.
type Accessibility struct {
	ByRoad      bool       `json:"by_road"`
	ByAir       bool       `json:"by_air"`
	BySea       bool       `json:"by_sea"`
	Obstacles   []string   `json:"obstacles,omitempty"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
}

// Location is a geographically bounded affected area owned by a disaster.
// AssignedTeams holds non-owning references into the team registry.
type Location struct {
	ID                 uuid.UUID        `json:"id"`
	DisasterID         uuid.UUID        `json:"disaster_id"`
	Name               string           `json:"name"`
	Type               LocationType     `json:"type"`
	Coordinates        Point            `json:"coordinates"`
	Population         int              `json:"population"`
	AffectedPopulation int              `json:"affected_population"`
	DamageAssessment   DamageAssessment `json:"damage_assessment"`
	Accessibility      Accessibility    `json:"accessibility"`
	Priority           Level            `json:"priority"`
	AssignedTeams      []uuid.UUID      `json:"assigned_teams,omitempty"`
	LastUpdatedBy      uuid.UUID        `json:"last_updated_by,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Validate checks mandatory fields of an affected area.
func (l Location) Validate() error {
	if l.DisasterID == uuid.Nil {
		return fmt.Errorf("location requires a disaster id")
	}
	if l.Name == "" {
		return fmt.Errorf("location name is required")
	}
	if !l.Type.Valid() {
		return fmt.Errorf("invalid location type %q", l.Type)
	}
	if !l.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", l.Priority)
	}
	return nil
}

// HasTeam reports whether any team is currently assigned to the area.
func (l Location) HasTeam() bool { return len(l.AssignedTeams) > 0 }
