// Package coord bundles the disaster, team and location operations around
// the help request lifecycle: casualty updates, team movements, emergency
// alerts and affected-area management. Mutations follow the same pattern as
// the request service: validate, commit to the store, emit exactly one event.
package coord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/broadcast"
	"github.com/afetops/coordcore/core/events"
	"github.com/afetops/coordcore/core/logger"
	"github.com/afetops/coordcore/core/model"
	"github.com/afetops/coordcore/core/notify"
	"github.com/afetops/coordcore/core/store"
	"github.com/afetops/coordcore/internal/eventbus"
)

// ErrValidation marks input the operation cannot accept.
var ErrValidation = errors.New("coord: validation failed")

// ErrForbidden marks an actor without authority for the operation.
var ErrForbidden = errors.New("coord: forbidden")

// Service holds the coordination operations outside the request lifecycle.
type Service struct {
	disasters store.DisasterStore
	locations store.LocationStore
	teams     store.TeamStore
	bus       broadcast.Broadcaster
	notifier  notify.Dispatcher
	events    eventbus.EventBus
	log       logger.Logger
	now       func() time.Time
}

// NewService wires a coordination service. The notifier and event bus may
// be nil.
func NewService(
	disasters store.DisasterStore,
	locations store.LocationStore,
	teams store.TeamStore,
	bus broadcast.Broadcaster,
	notifier notify.Dispatcher,
	evts eventbus.EventBus,
	log logger.Logger,
) (*Service, error) {
	if disasters == nil || locations == nil || teams == nil {
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
	return &Service{
		disasters: disasters,
		locations: locations,
		teams:     teams,
		bus:       bus,
		notifier:  notifier,
		events:    evts,
		log:       log,
		now:       time.Now,
	}, nil
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// AreaInput describes a new affected area.
type AreaInput struct {
	DisasterID         uuid.UUID
	Name               string
	Type               model.LocationType
	Coordinates        model.Point
	Population         int
	AffectedPopulation int
	DamageAssessment   model.DamageAssessment
	Accessibility      model.Accessibility
	Priority           model.Level
}

// CreateAffectedArea registers a new area under the disaster. Staff with
// request management authority only.
func (s *Service) CreateAffectedArea(ctx context.Context, in AreaInput, actor model.Actor) (model.Location, error) {
	if !actor.Role.CanManageRequests() {
		return model.Location{}, fmt.Errorf("%w: role %q cannot manage areas", ErrForbidden, actor.Role)
	}
	now := s.now()
	if in.Priority == "" {
		in.Priority = model.LevelMedium
	}
	loc := model.Location{
		ID:                 uuid.New(),
		DisasterID:         in.DisasterID,
		Name:               in.Name,
		Type:               in.Type,
		Coordinates:        in.Coordinates,
		Population:         in.Population,
		AffectedPopulation: in.AffectedPopulation,
		DamageAssessment:   in.DamageAssessment,
		Accessibility:      in.Accessibility,
		Priority:           in.Priority,
		LastUpdatedBy:      actor.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := loc.Validate(); err != nil {
		return model.Location{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := s.disasters.Get(ctx, in.DisasterID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Location{}, fmt.Errorf("%w: unknown disaster %s", ErrValidation, in.DisasterID)
		}
		return model.Location{}, err
	}
	if err := s.locations.Create(ctx, loc); err != nil {
		return model.Location{}, err
	}
	s.bus.Publish(broadcast.DisasterRoom(loc.DisasterID), broadcast.Event{
		Name:       broadcast.EventAreaAdded,
		EntityID:   loc.ID,
		DisasterID: loc.DisasterID,
		ActorName:  actor.Name,
		Timestamp:  now,
		Data:       map[string]any{"name": loc.Name, "priority": loc.Priority},
	})
	s.log.Infof("affected area %s (%s) added to disaster %s", loc.ID, loc.Name, loc.DisasterID)
	return loc, nil
}

// UpdateCasualties replaces the disaster's casualty figures and appends a
// trend point. Coordinating roles only.
func (s *Service) UpdateCasualties(ctx context.Context, disasterID uuid.UUID, c model.Casualties, actor model.Actor) (model.Disaster, error) {
	if !actor.Role.Coordinator() {
		return model.Disaster{}, fmt.Errorf("%w: role %q cannot update casualties", ErrForbidden, actor.Role)
	}
	if c.Dead < 0 || c.Injured < 0 || c.Missing < 0 || c.Evacuated < 0 {
		return model.Disaster{}, fmt.Errorf("%w: casualty counts must not be negative", ErrValidation)
	}
	now := s.now()
	updated, err := s.disasters.Update(ctx, disasterID, func(d *model.Disaster) error {
		d.Casualties = c
		d.CasualtyHistory = append(d.CasualtyHistory, model.CasualtyPoint{
			Timestamp:  now,
			Casualties: c,
			ReportedBy: actor.ID,
		})
		d.UpdatedAt = now
		return nil
	})
	if err != nil {
		return model.Disaster{}, err
	}
	s.bus.Publish(broadcast.DisasterRoom(disasterID), broadcast.Event{
		Name:          broadcast.EventDisasterCasualties,
		EntityID:      disasterID,
		DisasterID:    disasterID,
		ChangedFields: []string{"casualties"},
		ActorName:     actor.Name,
		Timestamp:     now,
		Data:          map[string]any{"casualties": c},
	})
	n := notify.Notification{
		Roles:    []model.Role{model.RoleCoordinator, model.RoleCityManager},
		Title:    "Casualty figures updated",
		Message:  fmt.Sprintf("%s: %d dead, %d injured, %d missing", updated.Name, c.Dead, c.Injured, c.Missing),
		Priority: model.LevelHigh,
		Channels: []notify.Channel{notify.ChannelInApp},
	}
	if err := s.notifier.Enqueue(ctx, n); err != nil {
		s.log.Errorf("enqueue casualty notification for %s: %v", disasterID, err)
	}
	return updated, nil
}

// UpdateDisasterStatus moves the incident through its lifecycle. EndDate is
// set exactly when the incident closes. Coordinating roles only.
func (s *Service) UpdateDisasterStatus(ctx context.Context, disasterID uuid.UUID, status model.DisasterStatus, actor model.Actor) (model.Disaster, error) {
	if !actor.Role.Coordinator() {
		return model.Disaster{}, fmt.Errorf("%w: role %q cannot update disaster status", ErrForbidden, actor.Role)
	}
	if !status.Valid() {
		return model.Disaster{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	now := s.now()
	updated, err := s.disasters.Update(ctx, disasterID, func(d *model.Disaster) error {
		d.Status = status
		if status == model.DisasterClosed {
			d.EndDate = &now
		} else {
			d.EndDate = nil
		}
		d.UpdatedAt = now
		return nil
	})
	if err != nil {
		return model.Disaster{}, err
	}
	s.bus.Publish(broadcast.DisasterRoom(disasterID), broadcast.Event{
		Name:          broadcast.EventDisasterStatus,
		EntityID:      disasterID,
		DisasterID:    disasterID,
		ChangedFields: []string{"status"},
		ActorName:     actor.Name,
		Timestamp:     now,
		Data:          map[string]any{"status": status},
	})
	s.log.Infof("disaster %s status set to %s", disasterID, status)
	return updated, nil
}

// teamAuthority allows the team's leader and the coordinating roles.
func (s *Service) teamAuthority(team model.Team, actor model.Actor) error {
	if actor.Role.Coordinator() || team.LeaderID == actor.ID {
		return nil
	}
	return fmt.Errorf("%w: actor %s is not the leader of team %s", ErrForbidden, actor.ID, team.ID)
}

// UpdateTeamLocation records the team's position report.
func (s *Service) UpdateTeamLocation(ctx context.Context, teamID uuid.UUID, at model.Point, actor model.Actor) (model.Team, error) {
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return model.Team{}, err
	}
	if err := s.teamAuthority(team, actor); err != nil {
		return model.Team{}, err
	}
	now := s.now()
	updated, err := s.teams.Update(ctx, teamID, func(t *model.Team) error {
		t.CurrentLocation = &at
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return model.Team{}, err
	}
	ev := broadcast.Event{
		Name:          broadcast.EventTeamLocationUpdated,
		EntityID:      teamID,
		DisasterID:    team.DisasterID,
		ChangedFields: []string{"current_location"},
		ActorName:     actor.Name,
		Timestamp:     now,
		Data:          map[string]any{"lat": at.Lat, "lon": at.Lon},
	}
	s.bus.Publish(broadcast.TeamRoom(teamID), ev)
	s.bus.Publish(broadcast.DisasterRoom(team.DisasterID), ev)
	return updated, nil
}

// UpdateTeamStatus moves the team through its readiness states.
func (s *Service) UpdateTeamStatus(ctx context.Context, teamID uuid.UUID, status model.TeamStatus, actor model.Actor) (model.Team, error) {
	if !status.Valid() {
		return model.Team{}, fmt.Errorf("%w: unknown team status %q", ErrValidation, status)
	}
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return model.Team{}, err
	}
	if err := s.teamAuthority(team, actor); err != nil {
		return model.Team{}, err
	}
	now := s.now()
	updated, err := s.teams.Update(ctx, teamID, func(t *model.Team) error {
		t.Status = status
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return model.Team{}, err
	}
	ev := broadcast.Event{
		Name:          broadcast.EventTeamStatusChanged,
		EntityID:      teamID,
		DisasterID:    team.DisasterID,
		ChangedFields: []string{"status"},
		ActorName:     actor.Name,
		Timestamp:     now,
		Data:          map[string]any{"status": status},
	}
	s.bus.Publish(broadcast.TeamRoom(teamID), ev)
	s.bus.Publish(broadcast.DisasterRoom(team.DisasterID), ev)
	s.log.Infof("team %s status set to %s", teamID, status)
	return updated, nil
}

// ReportTeamEmergency raises an alert from the field: broadcast to the team
// and disaster rooms, pushed to the coordinating roles.
func (s *Service) ReportTeamEmergency(ctx context.Context, teamID uuid.UUID, severity model.Level, message string, actor model.Actor) error {
	if !severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrValidation, severity)
	}
	if message == "" {
		return fmt.Errorf("%w: emergency message is required", ErrValidation)
	}
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return err
	}
	if err := s.teamAuthority(team, actor); err != nil {
		return err
	}
	now := s.now()
	ev := broadcast.Event{
		Name:       broadcast.EventTeamEmergencyAlert,
		EntityID:   teamID,
		DisasterID: team.DisasterID,
		ActorName:  actor.Name,
		Timestamp:  now,
		Data:       map[string]any{"severity": severity, "message": message, "team_name": team.Name},
	}
	s.bus.Publish(broadcast.TeamRoom(teamID), ev)
	s.bus.Publish(broadcast.DisasterRoom(team.DisasterID), ev)
	s.bus.PublishRoles([]model.Role{model.RoleCoordinator, model.RoleCityManager}, ev)

	n := notify.Notification{
		Roles:    []model.Role{model.RoleCoordinator, model.RoleCityManager},
		Title:    fmt.Sprintf("Team emergency: %s", team.Name),
		Message:  message,
		Priority: severity,
		Channels: []notify.Channel{notify.ChannelPush, notify.ChannelSMS, notify.ChannelInApp},
	}
	if err := s.notifier.Enqueue(ctx, n); err != nil {
		s.log.Errorf("enqueue emergency notification for team %s: %v", teamID, err)
	}
	if s.events != nil {
		s.events.Publish(events.EmergencyEvent{
			TeamID:     teamID,
			DisasterID: team.DisasterID,
			Severity:   severity,
			Message:    message,
			Time:       now,
		})
	}
	s.log.Warnf("team %s reported a %s emergency: %s", teamID, severity, message)
	return nil
}

// ReportAchievement credits a typed counter on the team.
func (s *Service) ReportAchievement(ctx context.Context, teamID uuid.UUID, kind model.AchievementKind, delta int, actor model.Actor) (model.Team, error) {
	team, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return model.Team{}, err
	}
	if err := s.teamAuthority(team, actor); err != nil {
		return model.Team{}, err
	}
	now := s.now()
	updated, err := s.teams.Update(ctx, teamID, func(t *model.Team) error {
		if err := t.IncrementAchievement(kind, delta); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return model.Team{}, err
	}
	s.bus.Publish(broadcast.TeamRoom(teamID), broadcast.Event{
		Name:          broadcast.EventTeamStatusChanged,
		EntityID:      teamID,
		DisasterID:    team.DisasterID,
		ChangedFields: []string{"achievements"},
		ActorName:     actor.Name,
		Timestamp:     now,
		Data:          map[string]any{"kind": kind, "delta": delta},
	})
	return updated, nil
}
