// Package request implements the help request lifecycle: submission,
// assignment, status transitions and tracking. Every transition is committed
// through a conditional store update, so concurrent conflicting operators are
// rejected rather than silently overwritten.
package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/audit"
	"github.com/afetops/coordcore/core/broadcast"
	"github.com/afetops/coordcore/core/logger"
	"github.com/afetops/coordcore/core/model"
	"github.com/afetops/coordcore/core/notify"
	"github.com/afetops/coordcore/core/store"
)

// ErrValidation marks input the operation cannot accept.
var ErrValidation = errors.New("request: validation failed")

// ErrForbidden marks an actor without authority for the operation.
var ErrForbidden = errors.New("request: forbidden")

// ErrIneligible marks a team that cannot take the assignment.
var ErrIneligible = errors.New("request: team ineligible")

// Service coordinates help request transitions across the entity stores, the
// broadcaster and the notification dispatcher.
type Service struct {
	disasters store.DisasterStore
	locations store.LocationStore
	teams     store.TeamStore
	requests  store.RequestStore
	bus       broadcast.Broadcaster
	notifier  notify.Dispatcher
	trail     audit.Store
	log       logger.Logger
	now       func() time.Time
}

// NewService wires a request service. The audit store and notifier may be
// nil; no-op implementations are substituted.
func NewService(
	disasters store.DisasterStore,
	locations store.LocationStore,
	teams store.TeamStore,
	requests store.RequestStore,
	bus broadcast.Broadcaster,
	notifier notify.Dispatcher,
	trail audit.Store,
	log logger.Logger,
) (*Service, error) {
	if disasters == nil || locations == nil || teams == nil || requests == nil {
		return nil, fmt.Errorf("nil store")
	}
	if bus == nil {
		return nil, fmt.Errorf("nil broadcaster")
	}
	if log == nil {
		return nil, fmt.Errorf("nil logger")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if trail == nil {
		trail = audit.Nop{}
	}
	return &Service{
		disasters: disasters,
		locations: locations,
		teams:     teams,
		requests:  requests,
		bus:       bus,
		notifier:  notifier,
		trail:     trail,
		log:       log,
		now:       time.Now,
	}, nil
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SubmitInput carries everything a submission channel provides.
type SubmitInput struct {
	DisasterID  uuid.UUID
	RequestType model.RequestType
	Urgency     model.Level
	Requester   model.RequesterContact
	Household   model.Household
	Coordinates *model.Point
	Address     string
	Landmark    string
	Description string
	Source      model.RequestSource
}

// Submit records a new help request in pending status. When coordinates are
// provided an affected-area record is created alongside, so the scoring and
// aggregation passes see the spot immediately. Critical submissions push a
// notification to the coordinating roles.
func (s *Service) Submit(ctx context.Context, in SubmitInput, actor model.Actor) (model.HelpRequest, error) {
	if in.Urgency == "" {
		in.Urgency = model.LevelMedium
	}
	if in.Source == "" {
		in.Source = model.SourceApp
	}
	d, err := s.disasters.Get(ctx, in.DisasterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.HelpRequest{}, fmt.Errorf("%w: unknown disaster %s", ErrValidation, in.DisasterID)
		}
		return model.HelpRequest{}, err
	}
	if d.Status == model.DisasterClosed {
		return model.HelpRequest{}, fmt.Errorf("%w: disaster %s is closed", ErrValidation, d.ID)
	}

	now := s.now()
	r := model.HelpRequest{
		ID:            uuid.New(),
		DisasterID:    in.DisasterID,
		RequestType:   in.RequestType,
		Urgency:       in.Urgency,
		Status:        model.RequestPending,
		Requester:     in.Requester,
		Household:     in.Household,
		ExactLocation: in.Coordinates,
		Address:       in.Address,
		Landmark:      in.Landmark,
		Description:   in.Description,
		Source:        in.Source,
		IsVerified:    actor.Role != model.RoleCitizen && actor.Role != "",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.Validate(); err != nil {
		return model.HelpRequest{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if in.Coordinates != nil {
		loc := model.Location{
			ID:          uuid.New(),
			DisasterID:  in.DisasterID,
			Name:        fmt.Sprintf("Help request - %s", in.Requester.Name),
			Type:        model.LocationOther,
			Coordinates: *in.Coordinates,
			Priority:    in.Urgency,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.locations.Create(ctx, loc); err != nil {
			return model.HelpRequest{}, fmt.Errorf("create location: %w", err)
		}
		r.LocationID = &loc.ID
	}

	if err := s.requests.Create(ctx, r); err != nil {
		return model.HelpRequest{}, err
	}
	requestsSubmitted.WithLabelValues(string(r.Urgency), string(r.RequestType)).Inc()

	s.publish(broadcast.Event{
		Name:       broadcast.EventRequestCreated,
		EntityID:   r.ID,
		DisasterID: r.DisasterID,
		ActorName:  actorName(actor, r),
		Timestamp:  now,
		Data: map[string]any{
			"status":       r.Status,
			"urgency":      r.Urgency,
			"request_type": r.RequestType,
		},
	}, broadcast.DisasterRoom(r.DisasterID))

	if r.Urgency == model.LevelCritical {
		n := notify.Notification{
			Roles:    []model.Role{model.RoleCoordinator, model.RoleCityManager},
			Title:    "Critical help request",
			Message:  fmt.Sprintf("Critical %s request from %s", r.RequestType, r.Requester.Name),
			Priority: model.LevelCritical,
			Channels: []notify.Channel{notify.ChannelPush, notify.ChannelInApp},
		}
		if err := s.notifier.Enqueue(ctx, n); err != nil {
			s.log.Errorf("enqueue critical notification for %s: %v", r.ID, err)
		}
	}

	s.log.Infof("help request %s submitted (%s, %s)", r.ID, r.RequestType, r.Urgency)
	return r, nil
}

// Assign moves a pending request to a team on behalf of an operator.
func (s *Service) Assign(ctx context.Context, id, teamID uuid.UUID, actor model.Actor) (model.HelpRequest, error) {
	return s.assign(ctx, id, teamID, actor, false)
}

// AutoAssign is the dispatcher's entry: same transition, flagged as
// automatic in the audit trail.
func (s *Service) AutoAssign(ctx context.Context, id, teamID uuid.UUID, actor model.Actor) (model.HelpRequest, error) {
	return s.assign(ctx, id, teamID, actor, true)
}

func (s *Service) assign(ctx context.Context, id, teamID uuid.UUID, actor model.Actor, auto bool) (model.HelpRequest, error) {
	if !actor.Role.CanManageRequests() {
		return model.HelpRequest{}, fmt.Errorf("%w: role %q cannot assign requests", ErrForbidden, actor.Role)
	}
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.HelpRequest{}, fmt.Errorf("%w: unknown team %s", ErrValidation, teamID)
		}
		return model.HelpRequest{}, err
	}
	cur, err := s.requests.Get(ctx, id)
	if err != nil {
		return model.HelpRequest{}, err
	}
	if team.DisasterID != cur.DisasterID {
		return model.HelpRequest{}, fmt.Errorf("%w: team %s belongs to another disaster", ErrIneligible, teamID)
	}
	if !team.Deployable() {
		return model.HelpRequest{}, fmt.Errorf("%w: team %s status is %q", ErrIneligible, teamID, team.Status)
	}
	if team.Capacity.Headroom() <= 0 {
		return model.HelpRequest{}, fmt.Errorf("%w: team %s is at capacity", ErrIneligible, teamID)
	}

	now := s.now()
	updated, err := s.requests.UpdateIfStatus(ctx, id, model.RequestPending, func(r *model.HelpRequest) error {
		r.Status = model.RequestAssigned
		r.AssignedTeamID = &teamID
		r.AssignedByID = &actor.ID
		r.AssignedAt = &now
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			transitionRejects.WithLabelValues("conflict").Inc()
		}
		return model.HelpRequest{}, err
	}

	// Capacity is an advisory load counter; losing this write never
	// invalidates the committed assignment above.
	if _, terr := s.teams.Update(ctx, teamID, func(t *model.Team) error {
		t.Capacity.Current++
		t.UpdatedAt = now
		return nil
	}); terr != nil {
		s.log.Warnf("bump capacity of team %s: %v", teamID, terr)
	}

	requestsAssigned.WithLabelValues(fmt.Sprintf("%t", auto)).Inc()
	s.appendTrail(ctx, audit.Record{
		Timestamp:  now,
		DisasterID: updated.DisasterID,
		RequestID:  updated.ID,
		TeamID:     &teamID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		From:       model.RequestPending,
		To:         model.RequestAssigned,
		Auto:       auto,
	})
	s.publish(broadcast.Event{
		Name:          broadcast.EventRequestAssigned,
		EntityID:      updated.ID,
		DisasterID:    updated.DisasterID,
		ChangedFields: []string{"status", "assigned_team_id"},
		ActorName:     actor.Name,
		Timestamp:     now,
		Data: map[string]any{
			"status":    updated.Status,
			"team_id":   teamID,
			"team_name": team.Name,
			"auto":      auto,
		},
	},
		broadcast.DisasterRoom(updated.DisasterID),
		broadcast.TeamRoom(teamID),
		broadcast.RequestRoom(updated.ID),
	)
	s.log.Infof("help request %s assigned to team %s (auto=%t)", updated.ID, teamID, auto)
	return updated, nil
}

// UpdateStatus advances a request to in_progress or one of the terminal
// statuses. Assignment and unassignment have their own entries. Permitted to
// coordinating roles and to the leader of the assigned team.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next model.RequestStatus, notes string, actor model.Actor) (model.HelpRequest, error) {
	if !next.Valid() {
		return model.HelpRequest{}, fmt.Errorf("%w: unknown status %q", ErrValidation, next)
	}
	if next == model.RequestAssigned || next == model.RequestPending {
		return model.HelpRequest{}, fmt.Errorf("%w: status %q is set through assignment operations", ErrValidation, next)
	}
	cur, err := s.requests.Get(ctx, id)
	if err != nil {
		return model.HelpRequest{}, err
	}
	if err := s.authorizeTransition(ctx, cur, actor); err != nil {
		return model.HelpRequest{}, err
	}
	if !cur.Status.CanTransitionTo(next) {
		transitionRejects.WithLabelValues("illegal").Inc()
		return model.HelpRequest{}, fmt.Errorf("%w: cannot move %q to %q", ErrValidation, cur.Status, next)
	}

	now := s.now()
	var prevTeam *uuid.UUID
	updated, err := s.requests.UpdateIfStatus(ctx, id, cur.Status, func(r *model.HelpRequest) error {
		prevTeam = r.AssignedTeamID
		r.Status = next
		r.UpdatedAt = now
		switch next {
		case model.RequestCompleted:
			r.CompletedAt = &now
			r.CompletionNotes = notes
		case model.RequestCancelled, model.RequestUnreachable:
			r.AssignedTeamID = nil
			r.AssignedByID = nil
			r.AssignedAt = nil
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			transitionRejects.WithLabelValues("conflict").Inc()
		}
		return model.HelpRequest{}, err
	}

	if next.Terminal() {
		requestsCompleted.WithLabelValues(string(next)).Inc()
		resolutionDuration.WithLabelValues(string(next)).Observe(now.Sub(updated.CreatedAt).Seconds())
	}
	// The slot stays held across assigned -> in_progress; the team is still
	// working the request. Settle only when it leaves the team.
	if prevTeam != nil && next != model.RequestInProgress {
		s.settleTeam(ctx, *prevTeam, updated.RequestType, next, now)
	}
	s.appendTrail(ctx, audit.Record{
		Timestamp:  now,
		DisasterID: updated.DisasterID,
		RequestID:  updated.ID,
		TeamID:     prevTeam,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		From:       cur.Status,
		To:         next,
		Notes:      notes,
	})

	rooms := []broadcast.Room{
		broadcast.DisasterRoom(updated.DisasterID),
		broadcast.RequestRoom(updated.ID),
	}
	if prevTeam != nil {
		rooms = append(rooms, broadcast.TeamRoom(*prevTeam))
	}
	s.publish(broadcast.Event{
		Name:          broadcast.EventRequestStatusChanged,
		EntityID:      updated.ID,
		DisasterID:    updated.DisasterID,
		ChangedFields: []string{"status"},
		ActorName:     actor.Name,
		Timestamp:     now,
		Data:          map[string]any{"status": updated.Status, "notes": notes},
	}, rooms...)
	s.log.Infof("help request %s moved %s -> %s", updated.ID, cur.Status, next)
	return updated, nil
}

// Unassign returns an assigned request to the pending pool, for example when
// the team is redirected. Coordinating roles only.
func (s *Service) Unassign(ctx context.Context, id uuid.UUID, reason string, actor model.Actor) (model.HelpRequest, error) {
	if !actor.Role.Coordinator() {
		return model.HelpRequest{}, fmt.Errorf("%w: role %q cannot unassign requests", ErrForbidden, actor.Role)
	}
	now := s.now()
	var prevTeam *uuid.UUID
	updated, err := s.requests.UpdateIfStatus(ctx, id, model.RequestAssigned, func(r *model.HelpRequest) error {
		prevTeam = r.AssignedTeamID
		r.Status = model.RequestPending
		r.AssignedTeamID = nil
		r.AssignedByID = nil
		r.AssignedAt = nil
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			transitionRejects.WithLabelValues("conflict").Inc()
		}
		return model.HelpRequest{}, err
	}
	if prevTeam != nil {
		s.settleTeam(ctx, *prevTeam, updated.RequestType, model.RequestPending, now)
	}
	s.appendTrail(ctx, audit.Record{
		Timestamp:  now,
		DisasterID: updated.DisasterID,
		RequestID:  updated.ID,
		TeamID:     prevTeam,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		From:       model.RequestAssigned,
		To:         model.RequestPending,
		Notes:      reason,
	})
	rooms := []broadcast.Room{
		broadcast.DisasterRoom(updated.DisasterID),
		broadcast.RequestRoom(updated.ID),
	}
	if prevTeam != nil {
		rooms = append(rooms, broadcast.TeamRoom(*prevTeam))
	}
	s.publish(broadcast.Event{
		Name:          broadcast.EventRequestStatusChanged,
		EntityID:      updated.ID,
		DisasterID:    updated.DisasterID,
		ChangedFields: []string{"status", "assigned_team_id"},
		ActorName:     actor.Name,
		Timestamp:     now,
		Data:          map[string]any{"status": updated.Status, "reason": reason},
	}, rooms...)
	s.log.Infof("help request %s unassigned: %s", updated.ID, reason)
	return updated, nil
}

// Track joins the connection to the request's room so it receives further
// status events. Staff always may; the requester is recognized by matching
// phone or email.
func (s *Service) Track(ctx context.Context, connID string, id uuid.UUID, actor model.Actor) (model.HelpRequest, error) {
	r, err := s.requests.Get(ctx, id)
	if err != nil {
		return model.HelpRequest{}, err
	}
	if !s.mayTrack(r, actor) {
		return model.HelpRequest{}, fmt.Errorf("%w: not the requester of %s", ErrForbidden, id)
	}
	s.bus.Join(connID, broadcast.RequestRoom(id))
	return r, nil
}

// Get returns the stored request.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.HelpRequest, error) {
	return s.requests.Get(ctx, id)
}

// ListByDisaster returns the disaster's requests ordered by creation time.
func (s *Service) ListByDisaster(ctx context.Context, disasterID uuid.UUID) ([]model.HelpRequest, error) {
	return s.requests.ListByDisaster(ctx, disasterID)
}

func (s *Service) mayTrack(r model.HelpRequest, actor model.Actor) bool {
	if actor.Role.Staff() {
		return true
	}
	if actor.Phone != "" && actor.Phone == r.Requester.Phone {
		return true
	}
	if actor.Email != "" && actor.Email == r.Requester.Email {
		return true
	}
	return false
}

func (s *Service) authorizeTransition(ctx context.Context, r model.HelpRequest, actor model.Actor) error {
	if actor.Role.Coordinator() {
		return nil
	}
	if r.AssignedTeamID != nil {
		team, err := s.teams.Get(ctx, *r.AssignedTeamID)
		if err == nil && team.LeaderID == actor.ID {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q may not change request %s", ErrForbidden, actor.Role, r.ID)
}

// settleTeam releases the team's slot when a request leaves it and credits
// the achievement counter on completion.
func (s *Service) settleTeam(ctx context.Context, teamID uuid.UUID, rt model.RequestType, outcome model.RequestStatus, now time.Time) {
	kind := achievementKind(rt)
	if _, err := s.teams.Update(ctx, teamID, func(t *model.Team) error {
		if t.Capacity.Current > 0 {
			t.Capacity.Current--
		}
		if outcome == model.RequestCompleted && kind != "" {
			if err := t.IncrementAchievement(kind, 1); err != nil {
				return err
			}
		}
		t.UpdatedAt = now
		return nil
	}); err != nil {
		s.log.Warnf("settle team %s after %s: %v", teamID, outcome, err)
	}
}

func (s *Service) appendTrail(ctx context.Context, rec audit.Record) {
	if err := s.trail.Append(ctx, rec); err != nil {
		s.log.Warnf("append audit record for %s: %v", rec.RequestID, err)
	}
}

func (s *Service) publish(ev broadcast.Event, rooms ...broadcast.Room) {
	for _, room := range rooms {
		s.bus.Publish(room, ev)
	}
}

func actorName(actor model.Actor, r model.HelpRequest) string {
	if actor.Name != "" {
		return actor.Name
	}
	return r.Requester.Name
}

func achievementKind(rt model.RequestType) model.AchievementKind {
	switch rt {
	case model.RequestRescue, model.RequestMissingPerson:
		return model.AchievementPeopleRescued
	case model.RequestEvacuation:
		return model.AchievementPeopleEvacuated
	case model.RequestMedical:
		return model.AchievementPeopleTreated
	case model.RequestFood, model.RequestWater, model.RequestShelter:
		return model.AchievementSuppliesDelivered
	}
	return ""
}
