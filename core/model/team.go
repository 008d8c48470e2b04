package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TeamType is the capability category of a response unit.
type TeamType string

const (
	TeamSearchRescue   TeamType = "search_rescue"
	TeamMedical        TeamType = "medical"
	TeamLogistics      TeamType = "logistics"
	TeamSecurity       TeamType = "security"
	TeamInfrastructure TeamType = "infrastructure"
	TeamCommunication  TeamType = "communication"
)

// Valid reports whether the type is a known capability.
func (t TeamType) Valid() bool {
	switch t {
	case TeamSearchRescue, TeamMedical, TeamLogistics, TeamSecurity,
		TeamInfrastructure, TeamCommunication:
		return true
	}
	return false
}

// TeamStatus is the operational state of a response unit.
type TeamStatus string

const (
	TeamForming     TeamStatus = "forming"
	TeamReady       TeamStatus = "ready"
	TeamDeployed    TeamStatus = "deployed"
	TeamInOperation TeamStatus = "in_operation"
	TeamReturning   TeamStatus = "returning"
	TeamDisbanded   TeamStatus = "disbanded"
)

// Valid reports whether the status is a known operational state.
func (s TeamStatus) Valid() bool {
	switch s {
	case TeamForming, TeamReady, TeamDeployed, TeamInOperation, TeamReturning, TeamDisbanded:
		return true
	}
	return false
}

// Capacity tracks how many assignments a team carries against its maximum.
type Capacity struct {
	Max     int `json:"max"`
	Current int `json:"current"`
}

// Headroom returns the remaining assignment slots.
func (c Capacity) Headroom() int { return c.Max - c.Current }

// AchievementKind names one of the typed achievement counters.
type AchievementKind string

const (
	AchievementPeopleRescued     AchievementKind = "people_rescued"
	AchievementPeopleEvacuated   AchievementKind = "people_evacuated"
	AchievementPeopleTreated     AchievementKind = "people_treated"
	AchievementSuppliesDelivered AchievementKind = "supplies_delivered"
)

// Achievements holds the cumulative counters reported by a team. Counters are
// only ever incremented through IncrementAchievement on the owning team.
type Achievements struct {
	PeopleRescued     int `json:"people_rescued"`
	PeopleEvacuated   int `json:"people_evacuated"`
	PeopleTreated     int `json:"people_treated"`
	SuppliesDelivered int `json:"supplies_delivered"`
}

// Total returns the sum of all counters.
func (a Achievements) Total() int {
	return a.PeopleRescued + a.PeopleEvacuated + a.PeopleTreated + a.SuppliesDelivered
}

// Team is a deployable response unit tied to a disaster.
type Team struct {
	ID              uuid.UUID    `json:"id"`
	DisasterID      uuid.UUID    `json:"disaster_id"`
	Name            string       `json:"name"`
	Type            TeamType     `json:"type"`
	Status          TeamStatus   `json:"status"`
	LeaderID        uuid.UUID    `json:"leader_id"`
	Capacity        Capacity     `json:"capacity"`
	Size            int          `json:"size"`
	CurrentLocation *Point       `json:"current_location,omitempty"`
	Achievements    Achievements `json:"achievements"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Validate checks the team invariants, in particular Current <= Max.
func (t Team) Validate() error {
	if t.DisasterID == uuid.Nil {
		return fmt.Errorf("team requires a disaster id")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}
	if !t.Type.Valid() {
		return fmt.Errorf("invalid team type %q", t.Type)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid team status %q", t.Status)
	}
	if t.Capacity.Max < 0 || t.Capacity.Current < 0 {
		return fmt.Errorf("capacity must not be negative")
	}
	if t.Capacity.Current > t.Capacity.Max {
		return fmt.Errorf("capacity current %d exceeds max %d", t.Capacity.Current, t.Capacity.Max)
	}
	return nil
}

// Deployable reports whether the team may receive new assignments.
func (t Team) Deployable() bool {
	switch t.Status {
	case TeamReady, TeamDeployed, TeamInOperation:
		return true
	}
	return false
}

// IncrementAchievement adds delta to the named counter. Unknown kinds and
// non-positive deltas are rejected so arbitrary merges cannot corrupt the
// counters.
func (t *Team) IncrementAchievement(kind AchievementKind, delta int) error {
	if delta <= 0 {
		return fmt.Errorf("achievement delta must be positive, got %d", delta)
	}
	switch kind {
	case AchievementPeopleRescued:
		t.Achievements.PeopleRescued += delta
	case AchievementPeopleEvacuated:
		t.Achievements.PeopleEvacuated += delta
	case AchievementPeopleTreated:
		t.Achievements.PeopleTreated += delta
	case AchievementSuppliesDelivered:
		t.Achievements.SuppliesDelivered += delta
	default:
		return fmt.Errorf("unknown achievement kind %q", kind)
	}
	return nil
}
