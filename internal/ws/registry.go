package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps user identities to their open connections. It is the only
// owner of connection lifetime bookkeeping; presence derives from the counts
// it reports.
type Registry struct {
	mu     sync.RWMutex
	byConn map[uuid.UUID]*Client
	byUser map[uuid.UUID]map[uuid.UUID]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[uuid.UUID]*Client),
		byUser: make(map[uuid.UUID]map[uuid.UUID]*Client),
	}
}

// Register inserts the client and returns the user's connection count after
// the insert. Registering the same client twice is a no-op.
func (r *Registry) Register(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[c.ID]; ok {
		return len(r.byUser[c.UserID])
	}

	r.byConn[c.ID] = c
	conns := r.byUser[c.UserID]
	if conns == nil {
		conns = make(map[uuid.UUID]*Client)
		r.byUser[c.UserID] = conns
	}
	conns[c.ID] = c
	return len(conns)
}

// Unregister removes the client and returns the user's remaining connection
// count. It is idempotent.
func (r *Registry) Unregister(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[c.ID]; !ok {
		return len(r.byUser[c.UserID])
	}
	delete(r.byConn, c.ID)

	conns := r.byUser[c.UserID]
	delete(conns, c.ID)
	if len(conns) == 0 {
		delete(r.byUser, c.UserID)
		return 0
	}
	return len(conns)
}

// ConnectionsFor returns a snapshot of the user's open connections; it may
// be empty.
func (r *Registry) ConnectionsFor(userID uuid.UUID) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	out := make([]*Client, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// All snapshots every registered connection, for process-wide broadcasts.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.byConn))
	for _, c := range r.byConn {
		out = append(out, c)
	}
	return out
}
