package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/events"
	"github.com/afetops/coordcore/core/logger"
	"github.com/afetops/coordcore/core/metrics"
	"github.com/afetops/coordcore/core/model"
	"github.com/afetops/coordcore/core/request"
	"github.com/afetops/coordcore/core/store"
	"github.com/afetops/coordcore/internal/eventbus"
)

// ErrNoCandidate is returned when no deployable team can serve the request.
var ErrNoCandidate = errors.New("dispatch: no eligible team")

// Manager runs automatic assignment for pending help requests. It reuses the
// request service's Assign path, so a manual operator racing the dispatcher
// is resolved by the store's conditional update like any other race.
type Manager struct {
	svc       *request.Service
	requests  store.RequestStore
	teams     store.TeamStore
	locations store.LocationStore
	sink      metrics.MetricsSink
	bus       eventbus.EventBus
	actor     model.Actor
	log       logger.Logger
}

// NewManager wires a dispatch manager. The sink and bus may be nil; actor is
// the identity recorded on automatic assignments and needs request
// management authority.
func NewManager(
	svc *request.Service,
	requests store.RequestStore,
	teams store.TeamStore,
	locations store.LocationStore,
	sink metrics.MetricsSink,
	bus eventbus.EventBus,
	actor model.Actor,
	log logger.Logger,
) (*Manager, error) {
	if svc == nil {
		return nil, fmt.Errorf("nil request service")
	}
	if requests == nil || teams == nil || locations == nil {
		return nil, fmt.Errorf("nil store")
	}
	if log == nil {
		return nil, fmt.Errorf("nil logger")
	}
	if !actor.Role.CanManageRequests() {
		return nil, fmt.Errorf("dispatch actor role %q cannot assign requests", actor.Role)
	}
	return &Manager{
		svc:       svc,
		requests:  requests,
		teams:     teams,
		locations: locations,
		sink:      sink,
		bus:       bus,
		actor:     actor,
		log:       log,
	}, nil
}

// Dispatch assigns the pending request to the best available team.
func (m *Manager) Dispatch(ctx context.Context, requestID uuid.UUID) (model.HelpRequest, error) {
	req, err := m.requests.Get(ctx, requestID)
	if err != nil {
		return model.HelpRequest{}, err
	}
	if req.Status != model.RequestPending {
		return model.HelpRequest{}, fmt.Errorf("request %s is %q, not pending", requestID, req.Status)
	}

	candidates, err := m.candidates(ctx, req.DisasterID)
	if err != nil {
		return model.HelpRequest{}, err
	}
	team, ok := SelectTeam(req, candidates, m.locate(ctx))
	if !ok {
		autoDispatch.WithLabelValues("no_candidate").Inc()
		m.publish(events.DispatchEvent{RequestID: requestID, Action: "no_candidate"})
		m.log.Warnf("no eligible team for request %s (%s)", requestID, req.RequestType)
		return model.HelpRequest{}, ErrNoCandidate
	}
	m.publish(events.DispatchEvent{RequestID: requestID, TeamID: team.ID, Action: "selected"})

	updated, err := m.svc.AutoAssign(ctx, requestID, team.ID, m.actor)
	rec := metrics.AssignmentRecord{
		RequestID:   requestID,
		TeamID:      team.ID,
		DisasterID:  req.DisasterID,
		RequestType: req.RequestType,
		Urgency:     req.Urgency,
		Auto:        true,
	}
	switch {
	case err == nil:
		rec.Succeeded = true
		rec.DispatchTime = updated.UpdatedAt
		autoDispatch.WithLabelValues("assigned").Inc()
		m.publish(events.DispatchEvent{RequestID: requestID, TeamID: team.ID, Action: "assigned"})
	case errors.Is(err, store.ErrConflict):
		rec.Conflict = true
		autoDispatch.WithLabelValues("conflict").Inc()
		m.publish(events.DispatchEvent{RequestID: requestID, TeamID: team.ID, Action: "conflict", Err: err})
		m.log.Infof("request %s changed before auto-assignment: %v", requestID, err)
	default:
		autoDispatch.WithLabelValues("error").Inc()
		m.publish(events.DispatchEvent{RequestID: requestID, TeamID: team.ID, Action: "error", Err: err})
		m.log.Errorf("auto-assign request %s to team %s: %v", requestID, team.ID, err)
	}
	m.record(rec)
	if err != nil {
		return model.HelpRequest{}, err
	}
	return updated, nil
}

// Run consumes pending request IDs until the context is canceled.
func (m *Manager) Run(ctx context.Context, pending <-chan uuid.UUID) {
	for {
		select {
		case id, ok := <-pending:
			if !ok {
				return
			}
			if _, err := m.Dispatch(ctx, id); err != nil && !errors.Is(err, ErrNoCandidate) && !errors.Is(err, store.ErrConflict) {
				m.log.Errorf("dispatch %s: %v", id, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// candidates loads the disaster's teams with their active workloads.
func (m *Manager) candidates(ctx context.Context, disasterID uuid.UUID) ([]Candidate, error) {
	teams, err := m.teams.ListByDisaster(ctx, disasterID)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(teams))
	for _, t := range teams {
		active := 0
		reqs, err := m.requests.ListByTeam(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		for _, r := range reqs {
			if r.Status == model.RequestAssigned || r.Status == model.RequestInProgress {
				active++
			}
		}
		out = append(out, Candidate{Team: t, ActiveAssignments: active})
	}
	return out, nil
}

func (m *Manager) locate(ctx context.Context) Locate {
	return func(r model.HelpRequest) (model.Point, bool) {
		if r.ExactLocation != nil {
			return *r.ExactLocation, true
		}
		if r.LocationID != nil {
			if loc, err := m.locations.Get(ctx, *r.LocationID); err == nil {
				return loc.Coordinates, true
			}
		}
		return model.Point{}, false
	}
}

func (m *Manager) publish(e eventbus.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}

func (m *Manager) record(rec metrics.AssignmentRecord) {
	if m.sink == nil {
		return
	}
	if err := m.sink.RecordDispatchResult([]metrics.AssignmentRecord{rec}); err != nil {
		m.log.Warnf("record dispatch result: %v", err)
	}
}
