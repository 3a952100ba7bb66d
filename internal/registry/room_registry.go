// Package registry tracks which connections are present in which chat room.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Member is one connection present in a room. An identity with two connections is
// two members.
type Member struct {
	ConnID      string    `json:"conn_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// RoomRegistry is the in-process presence table. Empty rooms are dropped.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Member // room -> connID -> member
	conns map[string]string            // connID -> room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]map[string]Member),
		conns: make(map[string]string),
	}
}

// Join adds member to room and returns the room's members after the join. A
// connection already registered elsewhere is moved.
func (r *RoomRegistry) Join(room string, member Member) []Member {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.conns[member.ConnID]; ok && prev != room {
		r.removeLocked(prev, member.ConnID)
	}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]Member)
		r.rooms[room] = members
	}
	members[member.ConnID] = member
	r.conns[member.ConnID] = room
	return snapshot(members)
}

// Leave removes a connection from whatever room it is in.
func (r *RoomRegistry) Leave(connID string) (string, Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.conns[connID]
	if !ok {
		return "", Member{}, false
	}
	member := r.rooms[room][connID]
	r.removeLocked(room, connID)
	return room, member, true
}

func (r *RoomRegistry) removeLocked(room, connID string) {
	delete(r.conns, connID)
	members := r.rooms[room]
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// Members returns the room's members ordered by join time.
func (r *RoomRegistry) Members(room string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.rooms[room])
}

// Rooms returns the names of non-empty rooms.
func (r *RoomRegistry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.rooms)
	sort.Strings(names)
	return names
}

func (r *RoomRegistry) Count(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// RoomOf returns the room a connection is registered in.
func (r *RoomRegistry) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.conns[connID]
	return room, ok
}

func snapshot(members map[string]Member) []Member {
	out := lo.Values(members)
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ConnID < out[j].ConnID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}
