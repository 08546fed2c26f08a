package ws

import (
	"sync"

	"github.com/google/uuid"
)

// RoomTracker maps room ids to member connections. A room is a broadcast
// scope: a chat conversation, or a call room keyed "call:<chatId>". The
// reverse index by connection exists so disconnects can cascade without
// scanning every room.
type RoomTracker struct {
	mu      sync.RWMutex
	members map[string]map[uuid.UUID]*Client
	byConn  map[uuid.UUID]map[string]struct{}
}

func NewRoomTracker() *RoomTracker {
	return &RoomTracker{
		members: make(map[string]map[uuid.UUID]*Client),
		byConn:  make(map[uuid.UUID]map[string]struct{}),
	}
}

// Join is idempotent: joining a room twice leaves membership unchanged.
func (t *RoomTracker) Join(roomID string, c *Client) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room := t.members[roomID]
	if room == nil {
		room = make(map[uuid.UUID]*Client)
		t.members[roomID] = room
	}
	room[c.ID] = c

	rooms := t.byConn[c.ID]
	if rooms == nil {
		rooms = make(map[string]struct{})
		t.byConn[c.ID] = rooms
	}
	rooms[roomID] = struct{}{}
}

// Leave removes the connection from the room and returns the remaining
// member count.
func (t *RoomTracker) Leave(roomID string, c *Client) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leaveLocked(roomID, c)
}

func (t *RoomTracker) leaveLocked(roomID string, c *Client) int {
	room := t.members[roomID]
	if room == nil {
		return 0
	}
	delete(room, c.ID)
	if rooms := t.byConn[c.ID]; rooms != nil {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(t.byConn, c.ID)
		}
	}
	if len(room) == 0 {
		delete(t.members, roomID)
		return 0
	}
	return len(room)
}

// LeaveAll removes the connection from every room it belongs to and returns
// the ids of the rooms it left. No room may retain a disconnected client.
func (t *RoomTracker) LeaveAll(c *Client) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	rooms := t.byConn[c.ID]
	left := make([]string, 0, len(rooms))
	for roomID := range rooms {
		left = append(left, roomID)
	}
	for _, roomID := range left {
		t.leaveLocked(roomID, c)
	}
	return left
}

func (t *RoomTracker) MembersOf(roomID string) []*Client {
	t.mu.RLock()
	defer t.mu.RUnlock()

	room := t.members[roomID]
	out := make([]*Client, 0, len(room))
	for _, c := range room {
		out = append(out, c)
	}
	return out
}

// OtherMembers returns the room members excluding the given connection.
func (t *RoomTracker) OtherMembers(roomID string, exclude *Client) []*Client {
	t.mu.RLock()
	defer t.mu.RUnlock()

	room := t.members[roomID]
	out := make([]*Client, 0, len(room))
	for id, c := range room {
		if id == exclude.ID {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (t *RoomTracker) RoomsOf(c *Client) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rooms := t.byConn[c.ID]
	out := make([]string, 0, len(rooms))
	for roomID := range rooms {
		out = append(out, roomID)
	}
	return out
}
