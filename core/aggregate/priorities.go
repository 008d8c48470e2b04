package aggregate

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/model"
	"github.com/afetops/coordcore/core/scoring"
)

// LocationPriority is one scored affected area with its recommendations.
type LocationPriority struct {
	LocationID      uuid.UUID   `json:"location_id"`
	Name            string      `json:"name"`
	Coordinates     model.Point `json:"coordinates"`
	Priority        model.Level `json:"priority"`
	Score           int         `json:"score"`
	PendingRequests int         `json:"pending_requests"`
	Recommendations []string    `json:"recommendations,omitempty"`
}

// PriorityReport ranks every affected area of the disaster.
type PriorityReport struct {
	DisasterID  uuid.UUID          `json:"disaster_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Locations   []LocationPriority `json:"locations"`
	Unreachable int                `json:"unreachable"`
	Unattended  int                `json:"unattended"`
}

// LocationPriorities scores every location with the configured scorer and
// sorts them most urgent first.
func LocationPriorities(snap Snapshot, scorer scoring.Scorer) PriorityReport {
	out := PriorityReport{
		DisasterID:  snap.Disaster.ID,
		GeneratedAt: snap.Now,
	}

	type load struct {
		pending  int
		critical int
	}
	byLocation := make(map[uuid.UUID]*load)
	for _, r := range snap.Requests {
		if r.LocationID == nil || r.Status != model.RequestPending {
			continue
		}
		l := byLocation[*r.LocationID]
		if l == nil {
			l = &load{}
			byLocation[*r.LocationID] = l
		}
		l.pending++
		if r.Urgency == model.LevelCritical {
			l.critical++
		}
	}

	for _, loc := range snap.Locations {
		var pending, critical int
		if l := byLocation[loc.ID]; l != nil {
			pending, critical = l.pending, l.critical
		}
		out.Locations = append(out.Locations, LocationPriority{
			LocationID:      loc.ID,
			Name:            loc.Name,
			Coordinates:     loc.Coordinates,
			Priority:        loc.Priority,
			Score:           scorer.Score(loc, pending, critical),
			PendingRequests: pending,
			Recommendations: scorer.Recommend(loc, critical),
		})
		if !loc.Accessibility.ByRoad {
			out.Unreachable++
		}
		if !loc.HasTeam() {
			out.Unattended++
		}
	}
	sort.SliceStable(out.Locations, func(i, j int) bool {
		if out.Locations[i].Score != out.Locations[j].Score {
			return out.Locations[i].Score > out.Locations[j].Score
		}
		return out.Locations[i].Name < out.Locations[j].Name
	})
	return out
}
