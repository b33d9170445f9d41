package rooms

import (
	"sync"
	"time"
)

// connection is the registry's record of one live transport client.
type connection struct {
	id        string
	roomID    string
	createdAt time.Time
}

// Registry tracks live connections and their room membership. It is the sole
// owner of both: rooms are created implicitly on first join and removed when
// membership drains to empty.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*connection
	rooms       map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]*connection),
		rooms:       make(map[string]map[string]struct{}),
	}
}

// Register adds a connection. Registering an already-known id is a no-op.
func (r *Registry) Register(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.connections[connectionID]; ok {
		return
	}
	r.connections[connectionID] = &connection{
		id:        connectionID,
		createdAt: time.Now(),
	}
}

// Unregister removes a connection and its room membership. Unknown ids are a
// no-op, not an error.
func (r *Registry) Unregister(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[connectionID]
	if !ok {
		return
	}
	r.leaveRoomLocked(conn)
	delete(r.connections, connectionID)
}

// JoinRoom moves the connection into roomID, leaving any prior room. Joining
// the same room twice is a no-op. Unknown connections are ignored.
func (r *Registry) JoinRoom(connectionID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[connectionID]
	if !ok {
		return
	}
	if conn.roomID == roomID {
		return
	}
	r.leaveRoomLocked(conn)
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	members[connectionID] = struct{}{}
	conn.roomID = roomID
}

// RoomOf returns the room a connection currently belongs to, if any.
func (r *Registry) RoomOf(connectionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[connectionID]
	if !ok || conn.roomID == "" {
		return "", false
	}
	return conn.roomID, true
}

// MembersOf returns a snapshot of the connection ids in a room.
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// Known reports whether a connection id is registered.
func (r *Registry) Known(connectionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.connections[connectionID]
	return ok
}

func (r *Registry) leaveRoomLocked(conn *connection) {
	if conn.roomID == "" {
		return
	}
	if members, ok := r.rooms[conn.roomID]; ok {
		delete(members, conn.id)
		if len(members) == 0 {
			delete(r.rooms, conn.roomID)
		}
	}
	conn.roomID = ""
}
