package realtime

import "sync"

// ══════════════════════════════════════════════════════════════════════════════
// HUB
// ══════════════════════════════════════════════════════════════════════════════

// Hub tracks which connections have joined which conversation rooms and fans
// frames out to them. Room membership is transport-level state; the
// application-level membership check happens before Join.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	presence *PresenceTracker
}

// NewHub creates a Hub backed by the given presence tracker.
func NewHub(presence *PresenceTracker) *Hub {
	return &Hub{
		rooms:    make(map[string]map[*Client]struct{}),
		presence: presence,
	}
}

// Join adds the connection to the room.
func (h *Hub) Join(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
}

// Leave removes the connection from the room, dropping empty rooms.
func (h *Hub) Leave(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members := h.rooms[roomID]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// LeaveAll removes the connection from every room it joined.
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// InRoom reports whether the connection has joined the room.
func (h *Hub) InRoom(roomID string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.rooms[roomID][c]
	return ok
}

// EmitToRoom sends the frame to every member of the room except the excluded
// connection (pass nil to reach everyone).
func (h *Hub) EmitToRoom(roomID string, frame []byte, exclude *Client) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		if c != exclude {
			members = append(members, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.Send(frame)
	}
}

// EmitToConversation sends the frame to every room member plus every connected
// participant who has not joined the room, each at most once. This is how a
// new message reaches a participant whose client is online but looking at a
// different screen.
func (h *Hub) EmitToConversation(roomID string, participants []string, frame []byte) {
	seen := make(map[*Client]struct{})

	h.mu.RLock()
	for c := range h.rooms[roomID] {
		seen[c] = struct{}{}
	}
	h.mu.RUnlock()

	for _, identity := range participants {
		if c := h.presence.Get(identity); c != nil {
			seen[c] = struct{}{}
		}
	}

	for c := range seen {
		c.Send(frame)
	}
}

// EmitToIdentity sends the frame to the identity's live connection, if any.
func (h *Hub) EmitToIdentity(identity string, frame []byte) {
	if c := h.presence.Get(identity); c != nil {
		c.Send(frame)
	}
}

// Broadcast sends the frame to every live connection.
func (h *Hub) Broadcast(frame []byte) {
	for _, identity := range h.presence.Online() {
		h.EmitToIdentity(identity, frame)
	}
}
