// Package hub provides room membership and event fan-out for live
// connections. Membership is in-memory only and rebuilt on reconnect.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SessionRoom is the room key for a consultation session.
func SessionRoom(sessionID string) string { return "session:" + sessionID }

// UserRoom is the key of a user's private channel.
func UserRoom(userID string) string { return "user:" + userID }

// Connection represents a single live endpoint.
type Connection struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
	hub    *Hub
	mu     sync.Mutex
}

// roomEvent is a publish (or teardown) delivered through the hub loop.
type roomEvent struct {
	Room     string
	Data     []byte
	Teardown bool
}

// Hub manages all live connections and their room memberships. All
// publishes flow through one loop, so events for a room are delivered to
// every member in the order they were submitted.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// rooms maps a room key to the set of member connection IDs
	rooms map[string]map[string]bool

	// joined maps a connection ID to the set of rooms it joined
	joined map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	events     chan *roomEvent

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		rooms:       make(map[string]map[string]bool),
		joined:      make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		events:      make(chan *roomEvent, 256),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			h.mu.Unlock()
			if conn.UserID != "" {
				// Private channel membership follows the connection itself.
				h.Join(UserRoom(conn.UserID), conn)
			}
			slog.Info("connection registered", "conn_id", conn.ID, "user_id", conn.UserID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				for room := range h.joined[conn.ID] {
					h.removeMember(room, conn.ID)
				}
				delete(h.joined, conn.ID)
				close(conn.Send)
			}
			h.mu.Unlock()
			slog.Info("connection unregistered", "conn_id", conn.ID)

		case ev := <-h.events:
			h.dispatch(ev)
		}
	}
}

// dispatch delivers an event to the room's current members. Delivery is
// best-effort: a member whose buffer is full is dropped, never retried.
func (h *Hub) dispatch(ev *roomEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for connID := range h.rooms[ev.Room] {
		conn, ok := h.connections[connID]
		if !ok {
			continue
		}
		select {
		case conn.Send <- ev.Data:
		default:
			slog.Warn("connection buffer full, dropping from room",
				"conn_id", connID, "room", ev.Room)
			h.removeMember(ev.Room, connID)
			delete(h.joined[connID], ev.Room)
		}
	}

	if ev.Teardown {
		for connID := range h.rooms[ev.Room] {
			delete(h.joined[connID], ev.Room)
		}
		delete(h.rooms, ev.Room)
	}
}

// removeMember must be called with h.mu held.
func (h *Hub) removeMember(room, connID string) {
	if members := h.rooms[room]; members != nil {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// NewConnection creates a connection bound to a verified user.
func (h *Hub) NewConnection(ws *websocket.Conn, userID string) *Connection {
	return &Connection{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   ws,
		Send:   make(chan []byte, 256),
		hub:    h,
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister unregisters a connection; it leaves every joined room.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Join adds the connection to a room. Joining twice is a no-op.
func (h *Hub) Join(room string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]bool)
	}
	h.rooms[room][conn.ID] = true
	if h.joined[conn.ID] == nil {
		h.joined[conn.ID] = make(map[string]bool)
	}
	h.joined[conn.ID][room] = true
}

// Leave removes the connection from a room. Leaving a room the connection
// never joined is a no-op.
func (h *Hub) Leave(room string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeMember(room, conn.ID)
	delete(h.joined[conn.ID], room)
}

// Publish delivers data to every current member of the room.
func (h *Hub) Publish(room string, data []byte) {
	h.events <- &roomEvent{Room: room, Data: data}
}

// PublishJSON marshals v and publishes it to the room.
func (h *Hub) PublishJSON(room string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Publish(room, data)
	return nil
}

// TeardownRoom delivers a final event to the room's members and then
// removes every remaining member, in order with preceding publishes.
func (h *Hub) TeardownRoom(room string, finalEvent []byte) {
	h.events <- &roomEvent{Room: room, Data: finalEvent, Teardown: true}
}

// SendToConnection queues data on one connection.
func (h *Hub) SendToConnection(conn *Connection, data []byte) error {
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendJSONToConnection marshals v and queues it on one connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.SendToConnection(conn, data)
}

// RoomSize returns the number of current members of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// HasActiveConnections reports whether a room has any members.
func (h *Hub) HasActiveConnections(room string) bool {
	return h.RoomSize(room) > 0
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// WriteMessage writes to the underlying socket with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the underlying socket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}
