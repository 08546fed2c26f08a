package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rswarnkar/converse/internal/models"
)

// ChatStore is the full storage collaborator surface the gateway consumes.
type ChatStore interface {
	SendMessage(ctx context.Context, chatID, senderID uuid.UUID, content string, msgType models.MessageType) (*models.Message, error)
	MarkMessageAsRead(ctx context.Context, messageID, userID uuid.UUID) (*models.MessageReceipt, error)
	PresenceStore
	ChatDirectory
}

type handlerFunc func(ctx context.Context, c *Client, data json.RawMessage)

// Hub wires the registry, room tracker, presence manager, and call signaler
// together and routes inbound frames to typed handlers.
type Hub struct {
	registry *Registry
	rooms    *RoomTracker
	presence *PresenceManager
	signals  *CallSignaler
	store    ChatStore
	validate *validator.Validate
	handlers map[string]handlerFunc
}

func NewHub(store ChatStore, calls CallStore) *Hub {
	h := &Hub{
		registry: NewRegistry(),
		rooms:    NewRoomTracker(),
		store:    store,
		validate: validator.New(),
	}
	h.presence = NewPresenceManager(h.registry, store, h.Broadcast)
	h.signals = NewCallSignaler(h.registry, h.rooms, calls, store)

	h.handlers = map[string]handlerFunc{
		EventJoinChat:           h.handleJoinChat,
		EventSendMessage:        h.handleSendMessage,
		EventTyping:             h.handleTyping,
		EventStopTyping:         h.handleStopTyping,
		EventUpdateStatus:       h.handleUpdateStatus,
		EventMarkAsRead:         h.handleMarkAsRead,
		EventInitiateCall:       h.handleInitiateCall,
		EventAcceptCall:         h.handleAcceptCall,
		EventRejectCall:         h.handleRejectCall,
		EventCancelCall:         h.handleCancelCall,
		EventJoinCall:           h.handleJoinCall,
		EventLeaveCall:          h.handleLeaveCall,
		EventOffer:              h.handleSignal(EventOffer),
		EventAnswer:             h.handleSignal(EventAnswer),
		EventIceCandidate:       h.handleSignal(EventIceCandidate),
		EventScreenShareStarted: h.handleScreenShare(EventScreenShareStarted),
		EventScreenShareStopped: h.handleScreenShare(EventScreenShareStopped),
	}
	return h
}

// Connect registers an authenticated connection and runs the presence
// reaction. The caller must have verified identity first: no
// unauthenticated connection may be registered.
func (h *Hub) Connect(ctx context.Context, c *Client) {
	count := h.registry.Register(c)
	h.presence.ConnectionOpened(ctx, c, count)
}

// Disconnect runs the full cascade for a dying connection: removal from
// every room, registry cleanup, call-room departure notices, and the
// presence transition. It is safe to call more than once.
func (h *Hub) Disconnect(ctx context.Context, c *Client) {
	left := h.rooms.LeaveAll(c)
	remaining := h.registry.Unregister(c)

	for _, roomID := range left {
		h.signals.HandleDeparture(roomID, c)
	}

	h.presence.ConnectionClosed(ctx, c, remaining)
	c.shutdown()
}

// Broadcast delivers an event to every registered connection process-wide.
func (h *Hub) Broadcast(event string, data any) {
	for _, peer := range h.registry.All() {
		peer.Send(event, data)
	}
}

// HandleFrame parses and dispatches one inbound frame. Frames from sockets
// without an authenticated identity are dropped without error.
func (h *Hub) HandleFrame(ctx context.Context, c *Client, raw []byte) {
	if c.UserID == uuid.Nil {
		return
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("[ws] malformed frame from %s: %v", c.ID, err)
		return
	}

	handler, ok := h.handlers[env.Event]
	if !ok {
		log.Printf("[ws] unknown event %q from %s", env.Event, c.ID)
		return
	}
	handler(ctx, c, env.Data)
}

// reject surfaces a request-level failure to the emitting connection only.
func (h *Hub) reject(c *Client, event string, err error) {
	c.Send(EventError, errorEvent{Event: event, Message: err.Error()})
}

func decodePayload[T any](h *Hub, raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, err
	}
	if err := h.validate.Struct(&v); err != nil {
		return v, err
	}
	return v, nil
}
