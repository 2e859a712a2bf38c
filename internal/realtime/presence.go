package realtime

import "sync"

// ══════════════════════════════════════════════════════════════════════════════
// PRESENCE TRACKER
// ══════════════════════════════════════════════════════════════════════════════

// PresenceTracker maps each identity to its single live connection.
// Last connect wins: registering a new connection for an identity returns the
// superseded one so the caller can close it.
type PresenceTracker struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{clients: make(map[string]*Client)}
}

// Register binds the connection to the identity and returns the connection it
// superseded, if any.
func (t *PresenceTracker) Register(identity string, c *Client) (superseded *Client) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.clients[identity]
	t.clients[identity] = c
	if prev == c {
		return nil
	}
	return prev
}

// Unregister removes the binding, but only if the identity is still bound to
// this exact connection. Reports whether the identity went offline: a
// superseded connection unregistering does not take the fresh one down.
func (t *PresenceTracker) Unregister(identity string, c *Client) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.clients[identity] != c {
		return false
	}
	delete(t.clients, identity)
	return true
}

// Get returns the live connection for the identity, or nil.
func (t *PresenceTracker) Get(identity string) *Client {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.clients[identity]
}

// IsOnline reports whether the identity has a live connection.
func (t *PresenceTracker) IsOnline(identity string) bool {
	return t.Get(identity) != nil
}

// Online returns the identities with a live connection.
func (t *PresenceTracker) Online() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	identities := make([]string, 0, len(t.clients))
	for identity := range t.clients {
		identities = append(identities, identity)
	}
	return identities
}
