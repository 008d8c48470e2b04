// Package scoring computes the 0-100 urgency ranking of affected areas.
// The weights are policy values, not domain truths, and therefore load from
// configuration; the defaults reproduce the ranking used in production.
package scoring

import (
	"math"

	"github.com/afetops/coordcore/core/model"
)

// Weights are the tunable scoring constants.
type Weights struct {
	PriorityCritical float64 `json:"priority_critical"`
	PriorityHigh     float64 `json:"priority_high"`
	PriorityMedium   float64 `json:"priority_medium"`
	PriorityLow      float64 `json:"priority_low"`

	// Population contributes affectedPopulation/PopulationDivisor, capped
	// at PopulationCap.
	PopulationDivisor float64 `json:"population_divisor"`
	PopulationCap     float64 `json:"population_cap"`

	PerPendingRequest  float64 `json:"per_pending_request"`
	PerCriticalRequest float64 `json:"per_critical_request"`

	DamageDestroyed float64 `json:"damage_destroyed"`
	DamageHeavy     float64 `json:"damage_heavy"`
	DamageModerate  float64 `json:"damage_moderate"`
	DamageLight     float64 `json:"damage_light"`

	NoRoadAccess float64 `json:"no_road_access"`
	NoTeam       float64 `json:"no_team"`

	MaxScore float64 `json:"max_score"`
}

// DefaultWeights returns the production scoring constants.
func DefaultWeights() Weights {
	return Weights{
		PriorityCritical:   40,
		PriorityHigh:       30,
		PriorityMedium:     20,
		PriorityLow:        10,
		PopulationDivisor:  100,
		PopulationCap:      20,
		PerPendingRequest:  2,
		PerCriticalRequest: 5,
		DamageDestroyed:    20,
		DamageHeavy:        15,
		DamageModerate:     10,
		DamageLight:        5,
		NoRoadAccess:       10,
		NoTeam:             15,
		MaxScore:           100,
	}
}

// SetDefaults fills zero-value weight groups with the production constants.
func (w *Weights) SetDefaults() {
	if *w == (Weights{}) {
		*w = DefaultWeights()
		return
	}
	if w.PopulationDivisor <= 0 {
		w.PopulationDivisor = 100
	}
	if w.MaxScore <= 0 {
		w.MaxScore = 100
	}
}

// Scorer ranks locations. It holds no mutable state: identical inputs always
// produce identical scores.
type Scorer struct {
	weights Weights
}

// New creates a Scorer with the given weights.
func New(w Weights) Scorer {
	w.SetDefaults()
	return Scorer{weights: w}
}

// Score computes the urgency score of a location given the number of open
// (pending or assigned) requests and how many of those are critical. The
// result is clamped to [0, MaxScore].
func (s Scorer) Score(loc model.Location, pendingRequests, criticalRequests int) int {
	w := s.weights
	var score float64

	switch loc.Priority {
	case model.LevelCritical:
		score += w.PriorityCritical
	case model.LevelHigh:
		score += w.PriorityHigh
	case model.LevelMedium:
		score += w.PriorityMedium
	default:
		score += w.PriorityLow
	}

	score += math.Min(float64(loc.AffectedPopulation)/w.PopulationDivisor, w.PopulationCap)
	score += float64(pendingRequests) * w.PerPendingRequest
	score += float64(criticalRequests) * w.PerCriticalRequest

	switch loc.DamageAssessment.Level {
	case model.DamageDestroyed:
		score += w.DamageDestroyed
	case model.DamageHeavy:
		score += w.DamageHeavy
	case model.DamageModerate:
		score += w.DamageModerate
	case model.DamageLight:
		score += w.DamageLight
	}

	if !loc.Accessibility.ByRoad {
		score += w.NoRoadAccess
	}
	if !loc.HasTeam() {
		score += w.NoTeam
	}

	if score > w.MaxScore {
		score = w.MaxScore
	}
	if score < 0 {
		score = 0
	}
	return int(score)
}

// Recommendation action texts.
const (
	RecommendUrgentResponse     = "Critical help requests present, urgent response required"
	RecommendAssignTeam         = "Assign a response team to the area"
	RecommendAlternateTransport = "No road access, evaluate alternative transport (helicopter, boat)"
	RecommendSearchRescue       = "Heavily damaged area, prioritize search and rescue teams"
)

// Recommend returns the fixed rule-based action list for a location.
func (s Scorer) Recommend(loc model.Location, criticalRequests int) []string {
	var recs []string
	if criticalRequests > 0 {
		recs = append(recs, RecommendUrgentResponse)
	}
	if !loc.HasTeam() {
		recs = append(recs, RecommendAssignTeam)
	}
	if !loc.Accessibility.ByRoad {
		recs = append(recs, RecommendAlternateTransport)
	}
	if lvl := loc.DamageAssessment.Level; lvl == model.DamageHeavy || lvl == model.DamageDestroyed {
		recs = append(recs, RecommendSearchRescue)
	}
	return recs
}
