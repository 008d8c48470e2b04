package broadcast

import (
	"testing"

	"github.com/google/uuid"

	"github.com/afetops/coordcore/core/model"
)

func TestAuthorizeTeamRoom(t *testing.T) {
	room := TeamRoom(uuid.New())
	allowed := map[model.Role]bool{
		model.RoleCoordinator:  true,
		model.RoleCityManager:  true,
		model.RoleFieldOfficer: true,
		model.RoleNGO:          false,
		model.RoleVolunteer:    false,
		model.RoleCitizen:      false,
	}
	for role, want := range allowed {
		actor := model.Actor{ID: uuid.New(), Role: role}
		if got := Authorize(actor, room); got != want {
			t.Errorf("role %s: got %v want %v", role, got, want)
		}
	}
}

func TestAuthorizeDisasterRoomOpen(t *testing.T) {
	actor := model.Actor{ID: uuid.New(), Role: model.RoleCitizen}
	if !Authorize(actor, DisasterRoom(uuid.New())) {
		t.Error("disaster rooms should be open to authenticated connections")
	}
}

func TestAuthorizeInstitutionRoom(t *testing.T) {
	inst := uuid.New()
	member := model.Actor{ID: uuid.New(), Role: model.RoleFieldOfficer, InstitutionID: inst}
	outsider := model.Actor{ID: uuid.New(), Role: model.RoleFieldOfficer, InstitutionID: uuid.New()}
	coordinator := model.Actor{ID: uuid.New(), Role: model.RoleCoordinator}

	room := InstitutionRoom(inst)
	if !Authorize(member, room) {
		t.Error("member denied own institution room")
	}
	if Authorize(outsider, room) {
		t.Error("outsider allowed into foreign institution room")
	}
	if !Authorize(coordinator, room) {
		t.Error("coordinator denied institution room")
	}
}

func TestAuthorizeFailsClosed(t *testing.T) {
	actor := model.Actor{ID: uuid.New(), Role: model.RoleCoordinator}
	if Authorize(actor, Room{Kind: "warehouse", ID: "1"}) {
		t.Error("unknown room kind must deny")
	}
	weird := model.Actor{ID: uuid.New(), Role: "superadmin"}
	if Authorize(weird, TeamRoom(uuid.New())) {
		t.Error("unknown role must deny team rooms")
	}
}

func TestFixedRooms(t *testing.T) {
	inst := uuid.New()
	actor := model.Actor{ID: uuid.New(), Role: model.RoleFieldOfficer, InstitutionID: inst}
	rooms := FixedRooms(actor)
	if len(rooms) != 3 {
		t.Fatalf("expected 3 fixed rooms, got %d", len(rooms))
	}
	noInst := model.Actor{ID: uuid.New(), Role: model.RoleCitizen}
	if len(FixedRooms(noInst)) != 2 {
		t.Error("citizen without institution should join user and role rooms only")
	}
}
