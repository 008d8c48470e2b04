package broadcast

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	gorillawebsocket "github.com/gorilla/websocket"

	corebc "github.com/afetops/coordcore/core/broadcast"
	"github.com/afetops/coordcore/core/logger"
	"github.com/afetops/coordcore/core/model"
)

// ClientMessage is an inbound subscription command from a session. Rooms are
// addressed as "kind:id", e.g. "disaster:5b2f...".
type ClientMessage struct {
	Action string   `json:"action"`
	Rooms  []string `json:"rooms"`
}

// AuthFunc resolves the connecting request to an identity. Token
// verification itself belongs to the surrounding auth layer.
type AuthFunc func(r *http.Request) (model.Actor, error)

// parseRoom converts the wire form back into a typed room.
func parseRoom(s string) (corebc.Room, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return corebc.Room{}, fmt.Errorf("malformed room %q", s)
	}
	switch corebc.RoomKind(kind) {
	case corebc.RoomDisaster, corebc.RoomTeam, corebc.RoomRequest,
		corebc.RoomUser, corebc.RoomInstitution, corebc.RoomRole:
		return corebc.Room{Kind: corebc.RoomKind(kind), ID: id}, nil
	}
	return corebc.Room{}, fmt.Errorf("unknown room kind %q", kind)
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades HTTP connections to WebSocket sessions on the hub.
type Handler struct {
	hub  *Hub
	auth AuthFunc
	log  logger.Logger
}

// NewHandler binds a WebSocket endpoint to the hub.
func NewHandler(hub *Hub, auth AuthFunc, log logger.Logger) *Handler {
	return &Handler{hub: hub, auth: auth, log: log}
}

// ServeHTTP upgrades the request, registers the session and starts the
// read/write pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, err := h.auth(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade: %v", err)
		return
	}
	client := h.hub.Connect("", actor)
	go h.writePump(client, ws)
	go h.readPump(client, ws)
}

// readPump consumes subscription commands until the connection drops.
func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Disconnect(client.ID)
		_ = ws.Close()
	}()
	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		h.process(client, msg)
	}
}

func (h *Handler) process(client *Client, msg ClientMessage) {
	for _, raw := range msg.Rooms {
		room, err := parseRoom(raw)
		if err != nil {
			h.log.Debugf("client %s: %v", client.ID, err)
			continue
		}
		switch msg.Action {
		case "subscribe":
			if err := h.hub.Subscribe(client.ID, client.Actor, room); err != nil {
				h.log.Debugf("client %s subscribe %s: %v", client.ID, room, err)
			}
		case "unsubscribe":
			h.hub.Unsubscribe(client.ID, room)
		}
	}
}

// writePump drains the client's send channel into the socket.
func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() { _ = ws.Close() }()
	for message := range client.Send {
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}
