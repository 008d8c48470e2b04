package broadcast

import (
	"errors"

	"github.com/afetops/coordcore/core/model"
)

// ErrDenied is returned for unauthorized subscription attempts. Denials are
// explicit, never a silent downgrade.
var ErrDenied = errors.New("broadcast: subscription denied")

// Authorize is the pure role-to-room policy for dynamic subscriptions.
// Unknown room kinds deny: authorization fails closed.
//
// Help-request rooms answer true only for staff; the requester identity
// match for citizens is established by the request service (Track), which
// joins the room directly after its own check.
func Authorize(actor model.Actor, room Room) bool {
	switch room.Kind {
	case RoomDisaster:
		// Any authenticated connection may follow an incident.
		return true
	case RoomTeam:
		switch actor.Role {
		case model.RoleCoordinator, model.RoleCityManager, model.RoleFieldOfficer:
			return true
		}
		return false
	case RoomRequest:
		return actor.Role.Staff()
	case RoomInstitution:
		return actor.InstitutionID.String() == room.ID || actor.Role == model.RoleCoordinator
	case RoomUser:
		return actor.ID.String() == room.ID
	case RoomRole:
		return string(actor.Role) == room.ID
	}
	return false
}
