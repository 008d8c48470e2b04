package model

import "github.com/google/uuid"

// Role is the authorization role of an operator or citizen. Role resolution
// itself belongs to the external auth layer; the core only consumes the
// resolved value.
type Role string

const (
	RoleCitizen      Role = "citizen"
	RoleVolunteer    Role = "volunteer"
	RoleFieldOfficer Role = "field_officer"
	RoleNGO          Role = "ngo_representative"
	RoleCoordinator  Role = "coordinator"
	RoleCityManager  Role = "city_manager"
)

// Staff reports whether the role belongs to response personnel rather than
// the public. Unknown roles are not staff: authorization fails closed.
func (r Role) Staff() bool {
	switch r {
	case RoleVolunteer, RoleFieldOfficer, RoleNGO, RoleCoordinator, RoleCityManager:
		return true
	}
	return false
}

// CanManageRequests reports whether the role may assign help requests.
func (r Role) CanManageRequests() bool {
	switch r {
	case RoleCoordinator, RoleCityManager, RoleFieldOfficer:
		return true
	}
	return false
}

// Coordinator reports whether the role has incident-wide authority.
func (r Role) Coordinator() bool {
	return r == RoleCoordinator || r == RoleCityManager
}

// Actor is the identity snapshot of whoever performs an operation, as
// resolved by the surrounding auth layer.
type Actor struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Role          Role      `json:"role"`
	InstitutionID uuid.UUID `json:"institution_id,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
}
