package ws

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/rswarnkar/converse/internal/models"
)

// PresenceStore is the storage collaborator slice the presence manager
// needs: persisting status transitions and reading the online snapshot.
type PresenceStore interface {
	UpdateUserStatus(ctx context.Context, userID uuid.UUID, status models.UserStatus) error
	OnlineUsers(ctx context.Context) ([]models.UserPresence, error)
}

// PresenceManager derives user-level status from connection counts. Status
// is OFFLINE iff the user has zero open connections; AWAY and DO_NOT_DISTURB
// are explicit overrides that require at least one connection.
type PresenceManager struct {
	registry  *Registry
	store     PresenceStore
	broadcast func(event string, data any)
}

func NewPresenceManager(registry *Registry, store PresenceStore, broadcast func(event string, data any)) *PresenceManager {
	return &PresenceManager{
		registry:  registry,
		store:     store,
		broadcast: broadcast,
	}
}

// ConnectionOpened reacts to a freshly registered connection. count is the
// user's connection count after registration; only the zero-to-one
// transition flips the user ONLINE. Every new connection receives the
// current online-users snapshot so the client has initial state without
// racing future broadcasts.
func (p *PresenceManager) ConnectionOpened(ctx context.Context, c *Client, count int) {
	if count == 1 {
		if err := p.store.UpdateUserStatus(ctx, c.UserID, models.StatusOnline); err != nil {
			log.Printf("[presence] failed to persist ONLINE for %s: %v", c.UserID, err)
		}
		p.broadcast(EventUserStatusChange, statusChangeEvent{UserID: c.UserID, Status: models.StatusOnline})
	}

	snapshot, err := p.store.OnlineUsers(ctx)
	if err != nil {
		log.Printf("[presence] failed to load online users: %v", err)
		return
	}
	c.Send(EventOnlineUsers, snapshot)
}

// ConnectionClosed reacts to an unregistered connection. remaining is the
// user's connection count after removal; only the one-to-zero transition
// flips the user OFFLINE and records last seen.
func (p *PresenceManager) ConnectionClosed(ctx context.Context, c *Client, remaining int) {
	if remaining > 0 {
		return
	}
	if err := p.store.UpdateUserStatus(ctx, c.UserID, models.StatusOffline); err != nil {
		log.Printf("[presence] failed to persist OFFLINE for %s: %v", c.UserID, err)
	}
	p.broadcast(EventUserStatusChange, statusChangeEvent{UserID: c.UserID, Status: models.StatusOffline})
}

// SetStatus applies an explicit client-requested status. Requests from users
// with no open connections are dropped, and explicit OFFLINE is rejected:
// OFFLINE is derived from connection count only.
func (p *PresenceManager) SetStatus(ctx context.Context, userID uuid.UUID, status models.UserStatus) error {
	if status == models.StatusOffline || !status.Valid() {
		return nil
	}
	if !p.registry.IsOnline(userID) {
		return nil
	}

	if err := p.store.UpdateUserStatus(ctx, userID, status); err != nil {
		return err
	}
	p.broadcast(EventUserStatusChange, statusChangeEvent{UserID: userID, Status: status})
	return nil
}
