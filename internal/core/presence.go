package core

import "sync"

// Presence is the process-wide directory mapping a user identity to its live
// connection. At most one connection per user; a later register for the same
// user silently replaces the earlier binding (last-register-wins).
//
// Mutations are serialized by the mutex; the raw map is never exposed.
type Presence struct {
	mu     sync.Mutex
	byUser map[string]*Client
}

// PresenceEntry pairs a registered user with its client.
type PresenceEntry struct {
	UserID string
	Client *Client
}

// NewPresence constructs an empty presence directory.
func NewPresence() *Presence {
	return &Presence{byUser: make(map[string]*Client)}
}

// Register unconditionally binds userID to the client, replacing any prior
// binding for that user. The replaced connection, if any, becomes unreachable
// by that user id even while still alive.
func (p *Presence) Register(userID string, c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUser[userID] = c
}

// Resolve looks up the client currently bound to userID.
// Absence is a normal outcome: the user is simply not present.
func (p *Presence) Resolve(userID string) (*Client, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.byUser[userID]
	return c, ok
}

// Unregister removes the entry whose connection id equals connID, if one
// exists, and returns the user that owned it. A connection that registered
// under several ids only releases the first match, mirroring disconnect
// semantics where one connection owns one identity.
func (p *Presence) Unregister(connID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for userID, c := range p.byUser {
		if c.ConnID == connID {
			delete(p.byUser, userID)
			return userID, true
		}
	}
	return "", false
}

// Entries returns a snapshot of all current bindings.
func (p *Presence) Entries() []PresenceEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := make([]PresenceEntry, 0, len(p.byUser))
	for userID, c := range p.byUser {
		entries = append(entries, PresenceEntry{UserID: userID, Client: c})
	}
	return entries
}

// Len reports the number of registered users.
func (p *Presence) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byUser)
}
