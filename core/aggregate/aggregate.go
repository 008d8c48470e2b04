// Package aggregate computes the periodic summaries the background workers
// publish: disaster statistics, resource availability, team performance,
// request trends and location priorities. Every function is a pure pass
// over a Snapshot; running one twice on the same snapshot yields the same
// result, so retried jobs are harmless.
package aggregate

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/afetops/coordcore/core/model"
)

// Snapshot is the read-only input to an aggregation pass. Stores stay
// untouched; the caller assembles the slices once and hands them over.
type Snapshot struct {
	Now              time.Time
	Disaster         model.Disaster
	Requests         []model.HelpRequest
	Teams            []model.Team
	Locations        []model.Location
	Resources        []model.Resource
	ResourceRequests []model.ResourceRequest
}

// inWindow reports whether ts falls inside the trailing window. A zero
// window admits everything.
func (s Snapshot) inWindow(ts time.Time, window time.Duration) bool {
	if window <= 0 {
		return true
	}
	return !ts.Before(s.Now.Add(-window)) && !ts.After(s.Now)
}

// DisasterStats is the per-incident overview.
type DisasterStats struct {
	DisasterID  uuid.UUID                      `json:"disaster_id"`
	GeneratedAt time.Time                      `json:"generated_at"`
	Window      time.Duration                  `json:"window"`
	Requests    RequestStats                   `json:"requests"`
	Teams       TeamStats                      `json:"teams"`
	Resources   map[string]CategoryUtilization `json:"resources"`
	Casualties  model.Casualties               `json:"casualties"`
	Trend       []model.CasualtyPoint          `json:"trend,omitempty"`
}

// RequestStats summarizes help request activity.
type RequestStats struct {
	Total              int                         `json:"total"`
	ByStatus           map[model.RequestStatus]int `json:"by_status"`
	ByUrgency          map[model.Level]int         `json:"by_urgency"`
	ByType             map[model.RequestType]int   `json:"by_type"`
	AvgResolutionHours float64                     `json:"avg_resolution_hours"`
}

// TeamStats summarizes the team registry.
type TeamStats struct {
	Total        int                      `json:"total"`
	ByStatus     map[model.TeamStatus]int `json:"by_status"`
	ByType       map[model.TeamType]int   `json:"by_type"`
	Achievements model.Achievements       `json:"achievements"`
}

// CategoryUtilization is stock usage within one resource category.
type CategoryUtilization struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// DisasterStatistics computes the incident overview for the trailing window.
func DisasterStatistics(snap Snapshot, window time.Duration) DisasterStats {
	out := DisasterStats{
		DisasterID:  snap.Disaster.ID,
		GeneratedAt: snap.Now,
		Window:      window,
		Requests: RequestStats{
			ByStatus:  make(map[model.RequestStatus]int),
			ByUrgency: make(map[model.Level]int),
			ByType:    make(map[model.RequestType]int),
		},
		Teams: TeamStats{
			ByStatus: make(map[model.TeamStatus]int),
			ByType:   make(map[model.TeamType]int),
		},
		Resources:  make(map[string]CategoryUtilization),
		Casualties: snap.Disaster.Casualties,
	}

	var resolutionHours []float64
	for _, r := range snap.Requests {
		if !snap.inWindow(r.CreatedAt, window) {
			continue
		}
		out.Requests.Total++
		out.Requests.ByStatus[r.Status]++
		out.Requests.ByUrgency[r.Urgency]++
		out.Requests.ByType[r.RequestType]++
		if r.CompletedAt != nil {
			resolutionHours = append(resolutionHours, r.CompletedAt.Sub(r.CreatedAt).Hours())
		}
	}
	if len(resolutionHours) > 0 {
		out.Requests.AvgResolutionHours = stat.Mean(resolutionHours, nil)
	}

	for _, t := range snap.Teams {
		out.Teams.Total++
		out.Teams.ByStatus[t.Status]++
		out.Teams.ByType[t.Type]++
		out.Teams.Achievements.PeopleRescued += t.Achievements.PeopleRescued
		out.Teams.Achievements.PeopleEvacuated += t.Achievements.PeopleEvacuated
		out.Teams.Achievements.PeopleTreated += t.Achievements.PeopleTreated
		out.Teams.Achievements.SuppliesDelivered += t.Achievements.SuppliesDelivered
	}

	for _, res := range snap.Resources {
		u := out.Resources[res.Category]
		u.Total += res.Quantity
		u.Available += res.Available
		out.Resources[res.Category] = u
	}

	for _, p := range snap.Disaster.CasualtyHistory {
		if snap.inWindow(p.Timestamp, window) {
			out.Trend = append(out.Trend, p)
		}
	}
	return out
}

// CriticalNeed is a resource request far ahead of its approvals.
type CriticalNeed struct {
	Category  string `json:"category"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Approved  int    `json:"approved"`
}

// AvailabilityReport sums free stock and flags unmet demand.
type AvailabilityReport struct {
	GeneratedAt   time.Time      `json:"generated_at"`
	ByCategory    map[string]int `json:"by_category"`
	CriticalNeeds []CriticalNeed `json:"critical_needs,omitempty"`
}

const (
	criticalNeedFactor = 2
	criticalNeedWindow = 24 * time.Hour
	maxCriticalNeeds   = 10
)

// ResourceAvailability reports free stock by category. A need is critical
// when the last day's requests exceed twice what was approved.
func ResourceAvailability(snap Snapshot) AvailabilityReport {
	out := AvailabilityReport{
		GeneratedAt: snap.Now,
		ByCategory:  make(map[string]int),
	}
	for _, r := range snap.Resources {
		out.ByCategory[r.Category] += r.Available
	}
	for _, rr := range snap.ResourceRequests {
		if !snap.inWindow(rr.CreatedAt, criticalNeedWindow) {
			continue
		}
		if rr.RequestedQuantity > criticalNeedFactor*rr.ApprovedQuantity {
			out.CriticalNeeds = append(out.CriticalNeeds, CriticalNeed{
				Category:  rr.Category,
				Name:      rr.Name,
				Requested: rr.RequestedQuantity,
				Approved:  rr.ApprovedQuantity,
			})
		}
	}
	sort.SliceStable(out.CriticalNeeds, func(i, j int) bool {
		return out.CriticalNeeds[i].Requested > out.CriticalNeeds[j].Requested
	})
	if len(out.CriticalNeeds) > maxCriticalNeeds {
		out.CriticalNeeds = out.CriticalNeeds[:maxCriticalNeeds]
	}
	return out
}

// PerformanceEntry is one team's completions in the window.
type PerformanceEntry struct {
	TeamID             uuid.UUID          `json:"team_id"`
	Name               string             `json:"name"`
	Type               model.TeamType     `json:"type"`
	Completed          int                `json:"completed"`
	AvgCompletionHours float64            `json:"avg_completion_hours"`
	Size               int                `json:"size"`
	Achievements       model.Achievements `json:"achievements"`
}

// TeamPerformance ranks teams by completed requests in the trailing window.
func TeamPerformance(snap Snapshot, window time.Duration) []PerformanceEntry {
	type acc struct {
		completed int
		hours     []float64
	}
	byTeam := make(map[uuid.UUID]*acc)
	for _, r := range snap.Requests {
		if r.Status != model.RequestCompleted || r.AssignedTeamID == nil || r.CompletedAt == nil {
			continue
		}
		if !snap.inWindow(*r.CompletedAt, window) {
			continue
		}
		a := byTeam[*r.AssignedTeamID]
		if a == nil {
			a = &acc{}
			byTeam[*r.AssignedTeamID] = a
		}
		a.completed++
		if r.AssignedAt != nil {
			a.hours = append(a.hours, r.CompletedAt.Sub(*r.AssignedAt).Hours())
		}
	}

	out := make([]PerformanceEntry, 0, len(snap.Teams))
	for _, t := range snap.Teams {
		e := PerformanceEntry{
			TeamID:       t.ID,
			Name:         t.Name,
			Type:         t.Type,
			Size:         t.Size,
			Achievements: t.Achievements,
		}
		if a := byTeam[t.ID]; a != nil {
			e.Completed = a.completed
			if len(a.hours) > 0 {
				e.AvgCompletionHours = stat.Mean(a.hours, nil)
			}
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Completed != out[j].Completed {
			return out[i].Completed > out[j].Completed
		}
		return out[i].Name < out[j].Name
	})
	return out
}
