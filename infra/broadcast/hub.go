// Package broadcast implements the room-scoped fan-out hub behind the core
// Broadcaster interface. Clients subscribe to rooms and receive events
// published to those rooms; delivery is non-blocking and at-most-once.
package broadcast

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	corebc "github.com/afetops/coordcore/core/broadcast"
	"github.com/afetops/coordcore/core/logger"
	"github.com/afetops/coordcore/core/model"
)

// Client is one connected operator or citizen session.
type Client struct {
	ID    string
	Actor model.Actor
	Send  chan []byte
}

// Hub is the central connection manager. All operations are thread-safe via
// sync.RWMutex. Room membership lives only for the connection's lifetime;
// nothing survives a reconnect.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[corebc.Room]map[*Client]struct{}
	clients map[string]*Client
	log     logger.Logger
	buffer  int
}

// NewHub creates a hub with the given per-client send buffer.
func NewHub(log logger.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 256
	}
	return &Hub{
		rooms:   make(map[corebc.Room]map[*Client]struct{}),
		clients: make(map[string]*Client),
		log:     log,
		buffer:  buffer,
	}
}

// Connect registers a session and joins it to the fixed rooms derived from
// its identity. An empty connID is replaced with a fresh one.
func (h *Hub) Connect(connID string, actor model.Actor) *Client {
	if connID == "" {
		connID = uuid.NewString()
	}
	c := &Client{
		ID:    connID,
		Actor: actor,
		Send:  make(chan []byte, h.buffer),
	}
	h.mu.Lock()
	if prev, ok := h.clients[connID]; ok {
		h.removeLocked(prev)
	}
	h.clients[connID] = c
	for _, room := range corebc.FixedRooms(actor) {
		h.joinLocked(c, room)
	}
	h.mu.Unlock()
	return c
}

// Disconnect removes the session from every room and closes its channel.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[connID]; ok {
		h.removeLocked(c)
	}
}

// Subscribe joins the session to a dynamic room after the role policy.
func (h *Hub) Subscribe(connID string, actor model.Actor, room corebc.Room) error {
	if !corebc.Authorize(actor, room) {
		return fmt.Errorf("%w: role %q for room %s", corebc.ErrDenied, actor.Role, room)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return fmt.Errorf("unknown connection %q", connID)
	}
	h.joinLocked(c, room)
	return nil
}

// Join adds the session to a room without a policy check. Callers perform
// their own eligibility check before calling.
func (h *Hub) Join(connID string, room corebc.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[connID]; ok {
		h.joinLocked(c, room)
	}
}

// Unsubscribe removes the session from the room.
func (h *Hub) Unsubscribe(connID string, room corebc.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish sends the event to every session in the room. A session with a
// full buffer misses the event.
func (h *Hub) Publish(room corebc.Room, event corebc.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Errorf("marshal event %s: %v", event.Name, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	for c := range members {
		select {
		case c.Send <- data:
		default:
			// Buffer full; the client is too slow and misses the event.
		}
	}
}

// PublishRoles sends the event to the role rooms of the given roles.
func (h *Hub) PublishRoles(roles []model.Role, event corebc.Event) {
	for _, role := range roles {
		h.Publish(corebc.RoleRoom(role), event)
	}
}

// ClientCount returns the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of sessions in a room.
func (h *Hub) RoomCount(room corebc.Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) joinLocked(c *Client, room corebc.Room) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
}

func (h *Hub) removeLocked(c *Client) {
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.clients, c.ID)
	close(c.Send)
}
