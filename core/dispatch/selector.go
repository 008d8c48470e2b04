// Package dispatch selects response teams for pending help requests and
// orchestrates automatic assignment. Selection is a pure ranking; the
// assignment itself goes through the request service, so automatic and
// manual paths share one conflict check.
package dispatch

import (
	"sort"

	"github.com/afetops/coordcore/core/model"
)

// Candidate pairs a team with its current workload.
type Candidate struct {
	Team              model.Team
	ActiveAssignments int
}

// Locate resolves the position a request should be served at. The second
// return value is false when no position is known.
type Locate func(model.HelpRequest) (model.Point, bool)

// capableTypes maps an aid category to the team types that can serve it.
// An empty slice means any team type qualifies.
func capableTypes(rt model.RequestType) []model.TeamType {
	switch rt {
	case model.RequestRescue, model.RequestMissingPerson:
		return []model.TeamType{model.TeamSearchRescue}
	case model.RequestMedical:
		return []model.TeamType{model.TeamMedical}
	case model.RequestEvacuation:
		return []model.TeamType{model.TeamSearchRescue, model.TeamLogistics}
	case model.RequestFood, model.RequestWater, model.RequestShelter:
		return []model.TeamType{model.TeamLogistics}
	case model.RequestDebrisRemoval:
		return []model.TeamType{model.TeamInfrastructure}
	}
	return nil
}

func capable(rt model.RequestType, tt model.TeamType) bool {
	types := capableTypes(rt)
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == tt {
			return true
		}
	}
	return false
}

// SelectTeam returns the best candidate for the request, or false when no
// team qualifies. Candidates are filtered to deployable teams of the
// request's disaster with matching capability and free capacity, then ranked
// by distance to the request, current workload, remaining capacity and age.
func SelectTeam(req model.HelpRequest, candidates []Candidate, locate Locate) (*model.Team, bool) {
	var pos model.Point
	havePos := false
	if locate != nil {
		pos, havePos = locate(req)
	}

	type ranked struct {
		Candidate
		distance float64
	}
	var eligible []ranked
	for _, c := range candidates {
		t := c.Team
		if t.DisasterID != req.DisasterID || !t.Deployable() {
			continue
		}
		if t.Capacity.Headroom() <= 0 {
			continue
		}
		if !capable(req.RequestType, t.Type) {
			continue
		}
		r := ranked{Candidate: c, distance: -1}
		if havePos && t.CurrentLocation != nil {
			r.distance = t.CurrentLocation.DistanceKm(pos)
		}
		eligible = append(eligible, r)
	}
	if len(eligible) == 0 {
		return nil, false
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		// Known distance beats unknown, shorter beats longer.
		if a.distance != b.distance {
			if a.distance < 0 {
				return false
			}
			if b.distance < 0 {
				return true
			}
			return a.distance < b.distance
		}
		if a.ActiveAssignments != b.ActiveAssignments {
			return a.ActiveAssignments < b.ActiveAssignments
		}
		if ah, bh := a.Team.Capacity.Headroom(), b.Team.Capacity.Headroom(); ah != bh {
			return ah > bh
		}
		return a.Team.CreatedAt.Before(b.Team.CreatedAt)
	})
	best := eligible[0].Team
	return &best, true
}
