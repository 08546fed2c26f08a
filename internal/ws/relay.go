package ws

import (
	"context"
	"encoding/json"
	"time"
)

// Chat rooms are keyed by the bare chat id; call rooms get the call: prefix.

func (h *Hub) handleJoinChat(ctx context.Context, c *Client, data json.RawMessage) {
	payload, err := decodePayload[joinChatPayload](h, data)
	if err != nil {
		h.reject(c, EventJoinChat, err)
		return
	}
	h.rooms.Join(payload.ChatID.String(), c)
}

// handleSendMessage persists first, then fans the hydrated message out to
// every connection currently in the chat room. The sender's own connections
// receive the echo too, which keeps multiple devices consistent.
func (h *Hub) handleSendMessage(ctx context.Context, c *Client, data json.RawMessage) {
	payload, err := decodePayload[sendMessagePayload](h, data)
	if err != nil {
		h.reject(c, EventSendMessage, err)
		return
	}

	message, err := h.store.SendMessage(ctx, payload.ChatID, c.UserID, payload.Content, payload.Type)
	if err != nil {
		h.reject(c, EventSendMessage, err)
		return
	}

	for _, peer := range h.rooms.MembersOf(payload.ChatID.String()) {
		peer.Send(EventNewMessage, message)
	}
}

func (h *Hub) handleTyping(ctx context.Context, c *Client, data json.RawMessage) {
	payload, err := decodePayload[chatScopedPayload](h, data)
	if err != nil {
		return
	}
	notice := typingEvent{ChatID: payload.ChatID, UserID: c.UserID, UserName: c.Name}
	for _, peer := range h.rooms.OtherMembers(payload.ChatID.String(), c) {
		peer.Send(EventUserTyping, notice)
	}
}

func (h *Hub) handleStopTyping(ctx context.Context, c *Client, data json.RawMessage) {
	payload, err := decodePayload[chatScopedPayload](h, data)
	if err != nil {
		return
	}
	notice := typingEvent{ChatID: payload.ChatID, UserID: c.UserID}
	for _, peer := range h.rooms.OtherMembers(payload.ChatID.String(), c) {
		peer.Send(EventUserStoppedTyping, notice)
	}
}

func (h *Hub) handleUpdateStatus(ctx context.Context, c *Client, data json.RawMessage) {
	payload, err := decodePayload[updateStatusPayload](h, data)
	if err != nil {
		h.reject(c, EventUpdateStatus, err)
		return
	}
	if err := h.presence.SetStatus(ctx, c.UserID, payload.Status); err != nil {
		h.reject(c, EventUpdateStatus, err)
	}
}

func (h *Hub) handleMarkAsRead(ctx context.Context, c *Client, data json.RawMessage) {
	payload, err := decodePayload[markAsReadPayload](h, data)
	if err != nil {
		h.reject(c, EventMarkAsRead, err)
		return
	}

	receipt, err := h.store.MarkMessageAsRead(ctx, payload.MessageID, c.UserID)
	if err != nil {
		h.reject(c, EventMarkAsRead, err)
		return
	}

	notice := messageReadEvent{
		MessageID: payload.MessageID,
		UserID:    c.UserID,
		ReadAt:    receipt.ReadAt.Format(time.RFC3339),
	}
	for _, peer := range h.rooms.MembersOf(payload.ChatID.String()) {
		peer.Send(EventMessageRead, notice)
	}
}

func (h *Hub) handleInitiateCall(ctx context.Context, c *Client, data json.RawMessage) {
	payload, err := decodePayload[initiateCallPayload](h, data)
	if err != nil {
		h.reject(c, EventInitiateCall, err)
		return
	}
	if err := h.signals.Initiate(ctx, c, payload.ChatID, payload.IsVideo); err != nil {
		h.reject(c, EventInitiateCall, err)
	}
}

func (h *Hub) handleAcceptCall(ctx context.Context, c *Client, data json.RawMessage) {
	payload, err := decodePayload[callReplyPayload](h, data)
	if err != nil {
		h.reject(c, EventAcceptCall, err)
		return
	}
	if err := h.signals.Accept(ctx, c, payload.ChatID, payload.CallerID); err != nil {
		h.reject(c, EventAcceptCall, err)
	}
}

func (h *Hub) handleRejectCall(ctx context.Context, c *Client, data json.RawMessage) {
	payload, err := decodePayload[callReplyPayload](h, data)
	if err != nil {
		h.reject(c, EventRejectCall, err)
		return
	}
	if err := h.signals.Reject(ctx, c, payload.ChatID, payload.CallerID); err != nil {
		h.reject(c, EventRejectCall, err)
	}
}

func (h *Hub) handleCancelCall(ctx context.Context, c *Client, data json.RawMessage) {
	payload, err := decodePayload[chatScopedPayload](h, data)
	if err != nil {
		h.reject(c, EventCancelCall, err)
		return
	}
	if err := h.signals.Cancel(ctx, c, payload.ChatID); err != nil {
		h.reject(c, EventCancelCall, err)
	}
}

func (h *Hub) handleJoinCall(ctx context.Context, c *Client, data json.RawMessage) {
	payload, err := decodePayload[chatScopedPayload](h, data)
	if err != nil {
		return
	}
	h.signals.JoinRoom(c, payload.ChatID)
}

func (h *Hub) handleLeaveCall(ctx context.Context, c *Client, data json.RawMessage) {
	payload, err := decodePayload[chatScopedPayload](h, data)
	if err != nil {
		return
	}
	h.signals.LeaveRoom(c, payload.ChatID)
}

func (h *Hub) handleSignal(event string) handlerFunc {
	return func(ctx context.Context, c *Client, data json.RawMessage) {
		payload, err := decodePayload[signalPayload](h, data)
		if err != nil {
			return
		}
		h.signals.RelaySignal(c, event, payload)
	}
}

func (h *Hub) handleScreenShare(event string) handlerFunc {
	return func(ctx context.Context, c *Client, data json.RawMessage) {
		payload, err := decodePayload[chatScopedPayload](h, data)
		if err != nil {
			return
		}
		h.signals.ScreenShare(c, event, payload.ChatID)
	}
}
