package broadcast

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	corebc "github.com/afetops/coordcore/core/broadcast"
	"github.com/afetops/coordcore/core/model"
	"github.com/afetops/coordcore/infra/logger"
)

func drain(t *testing.T, c *Client) corebc.Event {
	t.Helper()
	select {
	case data := <-c.Send:
		var ev corebc.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatalf("no event delivered")
		return corebc.Event{}
	}
}

func TestHubRoomDelivery(t *testing.T) {
	h := NewHub(logger.NopLogger{}, 8)
	coordinator := model.Actor{ID: uuid.New(), Role: model.RoleCoordinator}
	disaster := uuid.New()

	c := h.Connect("conn-1", coordinator)
	if err := h.Subscribe(c.ID, coordinator, corebc.DisasterRoom(disaster)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ev := corebc.Event{Name: corebc.EventRequestCreated, DisasterID: disaster, Timestamp: time.Now()}
	h.Publish(corebc.DisasterRoom(disaster), ev)
	got := drain(t, c)
	if got.Name != corebc.EventRequestCreated || got.DisasterID != disaster {
		t.Fatalf("event %+v", got)
	}

	// Other rooms stay silent.
	h.Publish(corebc.DisasterRoom(uuid.New()), ev)
	select {
	case <-c.Send:
		t.Fatalf("received event from foreign room")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubFixedRooms(t *testing.T) {
	h := NewHub(logger.NopLogger{}, 8)
	inst := uuid.New()
	actor := model.Actor{ID: uuid.New(), Role: model.RoleNGO, InstitutionID: inst}
	c := h.Connect("", actor)

	h.Publish(corebc.UserRoom(actor.ID), corebc.Event{Name: "direct"})
	if got := drain(t, c); got.Name != "direct" {
		t.Fatalf("user room event %+v", got)
	}
	h.PublishRoles([]model.Role{model.RoleNGO}, corebc.Event{Name: "role"})
	if got := drain(t, c); got.Name != "role" {
		t.Fatalf("role room event %+v", got)
	}
	h.Publish(corebc.InstitutionRoom(inst), corebc.Event{Name: "inst"})
	if got := drain(t, c); got.Name != "inst" {
		t.Fatalf("institution room event %+v", got)
	}
}

func TestHubDeniesUnauthorizedSubscription(t *testing.T) {
	h := NewHub(logger.NopLogger{}, 8)
	volunteer := model.Actor{ID: uuid.New(), Role: model.RoleVolunteer}
	c := h.Connect("conn-1", volunteer)

	err := h.Subscribe(c.ID, volunteer, corebc.TeamRoom(uuid.New()))
	if !errors.Is(err, corebc.ErrDenied) {
		t.Fatalf("got %v, want denial", err)
	}
}

func TestHubJoinBypassesPolicy(t *testing.T) {
	h := NewHub(logger.NopLogger{}, 8)
	citizen := model.Actor{ID: uuid.New(), Role: model.RoleCitizen}
	c := h.Connect("conn-1", citizen)
	room := corebc.RequestRoom(uuid.New())

	if err := h.Subscribe(c.ID, citizen, room); !errors.Is(err, corebc.ErrDenied) {
		t.Fatalf("citizen subscribe should be denied, got %v", err)
	}
	h.Join(c.ID, room)
	h.Publish(room, corebc.Event{Name: corebc.EventRequestStatusChanged})
	if got := drain(t, c); got.Name != corebc.EventRequestStatusChanged {
		t.Fatalf("event %+v", got)
	}
}

func TestHubDropOnFullBuffer(t *testing.T) {
	h := NewHub(logger.NopLogger{}, 1)
	actor := model.Actor{ID: uuid.New(), Role: model.RoleCoordinator}
	c := h.Connect("conn-1", actor)
	room := corebc.DisasterRoom(uuid.New())
	if err := h.Subscribe(c.ID, actor, room); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	h.Publish(room, corebc.Event{Name: "first"})
	h.Publish(room, corebc.Event{Name: "second"})
	if got := drain(t, c); got.Name != "first" {
		t.Fatalf("event %+v", got)
	}
	select {
	case data := <-c.Send:
		t.Fatalf("second event should be dropped, got %s", data)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubDisconnect(t *testing.T) {
	h := NewHub(logger.NopLogger{}, 8)
	actor := model.Actor{ID: uuid.New(), Role: model.RoleCoordinator}
	c := h.Connect("conn-1", actor)
	room := corebc.DisasterRoom(uuid.New())
	if err := h.Subscribe(c.ID, actor, room); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	h.Disconnect(c.ID)
	if _, ok := <-c.Send; ok {
		t.Fatalf("send channel must be closed")
	}
	if h.ClientCount() != 0 || h.RoomCount(room) != 0 {
		t.Fatalf("hub not cleaned up")
	}
	// Publishing to the empty room is a no-op.
	h.Publish(room, corebc.Event{Name: "late"})
}

func TestHubReconnectReplacesSession(t *testing.T) {
	h := NewHub(logger.NopLogger{}, 8)
	actor := model.Actor{ID: uuid.New(), Role: model.RoleCoordinator}
	old := h.Connect("conn-1", actor)
	room := corebc.DisasterRoom(uuid.New())
	if err := h.Subscribe("conn-1", actor, room); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	fresh := h.Connect("conn-1", actor)
	if _, ok := <-old.Send; ok {
		t.Fatalf("old session must be closed on reconnect")
	}
	// Dynamic membership does not survive the reconnect.
	if h.RoomCount(room) != 0 {
		t.Fatalf("dynamic room membership survived reconnect")
	}
	h.Publish(corebc.UserRoom(actor.ID), corebc.Event{Name: "direct"})
	if got := drain(t, fresh); got.Name != "direct" {
		t.Fatalf("fresh session missed fixed-room event: %+v", got)
	}
}

func TestParseRoom(t *testing.T) {
	id := uuid.New()
	room, err := parseRoom("disaster:" + id.String())
	if err != nil || room != corebc.DisasterRoom(id) {
		t.Fatalf("room %v err %v", room, err)
	}
	for _, bad := range []string{"disaster", "disaster:", "galaxy:42", ""} {
		if _, err := parseRoom(bad); err == nil {
			t.Fatalf("parse %q should fail", bad)
		}
	}
}
