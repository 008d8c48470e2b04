// Package broadcast defines the room-scoped, best-effort event fan-out used
// to push state changes to connected operators. The broadcaster is not the
// system of record; events for absent subscribers are dropped.
package broadcast

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/model"
)

// Event names emitted by the coordination core.
const (
	EventRequestCreated       = "helpRequest.created"
	EventRequestAssigned      = "helpRequest.assigned"
	EventRequestStatusChanged = "helpRequest.statusChanged"
	EventTeamLocationUpdated  = "team.locationUpdated"
	EventTeamStatusChanged    = "team.statusChanged"
	EventTeamEmergencyAlert   = "team.emergencyAlert"
	EventDisasterStatus       = "disaster.statusUpdated"
	EventDisasterCasualties   = "disaster.casualtiesUpdated"
	EventAreaAdded            = "location.areaAdded"
)

// Event describes a committed state change. Exactly one event follows each
// successful mutation, on the same execution path as the commit.
type Event struct {
	Name          string         `json:"name"`
	EntityID      uuid.UUID      `json:"entity_id"`
	DisasterID    uuid.UUID      `json:"disaster_id"`
	ChangedFields []string       `json:"changed_fields,omitempty"`
	ActorName     string         `json:"actor_name"`
	Timestamp     time.Time      `json:"timestamp"`
	Data          map[string]any `json:"data,omitempty"`
}

// RoomKind names the scope a room covers.
type RoomKind string

const (
	RoomDisaster    RoomKind = "disaster"
	RoomTeam        RoomKind = "team"
	RoomRequest     RoomKind = "help_request"
	RoomUser        RoomKind = "user"
	RoomInstitution RoomKind = "institution"
	RoomRole        RoomKind = "role"
)

// Room is a named broadcast scope. The zero value is not a valid room.
type Room struct {
	Kind RoomKind
	ID   string
}

func (r Room) String() string { return fmt.Sprintf("%s:%s", r.Kind, r.ID) }

// DisasterRoom scopes events to one incident.
func DisasterRoom(id uuid.UUID) Room { return Room{Kind: RoomDisaster, ID: id.String()} }

// TeamRoom scopes events to one response unit.
func TeamRoom(id uuid.UUID) Room { return Room{Kind: RoomTeam, ID: id.String()} }

// RequestRoom scopes events to one tracked help request.
func RequestRoom(id uuid.UUID) Room { return Room{Kind: RoomRequest, ID: id.String()} }

// UserRoom is the fixed personal room of a connection.
func UserRoom(id uuid.UUID) Room { return Room{Kind: RoomUser, ID: id.String()} }

// InstitutionRoom is the fixed room shared by an institution's connections.
func InstitutionRoom(id uuid.UUID) Room { return Room{Kind: RoomInstitution, ID: id.String()} }

// RoleRoom is the fixed room shared by all connections of a role.
func RoleRoom(role model.Role) Room { return Room{Kind: RoomRole, ID: string(role)} }

// FixedRooms returns the rooms a connection joins automatically from its
// identity. Membership lives only for the connection's lifetime.
func FixedRooms(a model.Actor) []Room {
	rooms := []Room{UserRoom(a.ID), RoleRoom(a.Role)}
	if a.InstitutionID != uuid.Nil {
		rooms = append(rooms, InstitutionRoom(a.InstitutionID))
	}
	return rooms
}

// Broadcaster fans out events to subscribed connections. Delivery is
// at-most-once: a full or absent subscriber simply misses the event.
type Broadcaster interface {
	// Publish sends the event to every connection in the room.
	Publish(room Room, event Event)
	// PublishRoles sends the event to the role rooms of the given roles.
	PublishRoles(roles []model.Role, event Event)
	// Subscribe joins the connection to a dynamic room after authorization.
	Subscribe(connID string, actor model.Actor, room Room) error
	// Join adds the connection to a room without an authorization check.
	// Callers that perform their own eligibility check use this entry.
	Join(connID string, room Room)
	// Unsubscribe removes the connection from the room.
	Unsubscribe(connID string, room Room)
}
