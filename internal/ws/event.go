package ws

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rswarnkar/converse/internal/models"
)

// Event names are the wire contract shared with the clients. Do not rename.
const (
	// Inbound
	EventJoinChat           = "joinChat"
	EventSendMessage        = "sendMessage"
	EventJoinCall           = "joinCall"
	EventOffer              = "offer"
	EventAnswer             = "answer"
	EventIceCandidate       = "iceCandidate"
	EventLeaveCall          = "leaveCall"
	EventScreenShareStarted = "screenShareStarted"
	EventScreenShareStopped = "screenShareStopped"
	EventTyping             = "typing"
	EventStopTyping         = "stopTyping"
	EventUpdateStatus       = "updateStatus"
	EventMarkAsRead         = "markAsRead"
	EventInitiateCall       = "initiateCall"
	EventAcceptCall         = "acceptCall"
	EventRejectCall         = "rejectCall"
	EventCancelCall         = "cancelCall"

	// Outbound
	EventNewMessage           = "newMessage"
	EventUserStatusChange     = "userStatusChange"
	EventOnlineUsers          = "onlineUsers"
	EventExistingParticipants = "existingParticipants"
	EventUserJoinedCall       = "userJoinedCall"
	EventUserLeftCall         = "userLeftCall"
	EventUserTyping           = "userTyping"
	EventUserStoppedTyping    = "userStoppedTyping"
	EventMessageRead          = "messageRead"
	EventIncomingCall         = "incomingCall"
	EventCallAccepted         = "callAccepted"
	EventCallRejected         = "callRejected"
	EventCallCancelled        = "callCancelled"
	EventError                = "error"
)

// Envelope is the frame shape in both directions: an event name plus a
// payload whose shape depends on the event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Inbound payloads.

type joinChatPayload struct {
	ChatID uuid.UUID `json:"chatId" validate:"required"`
}

type sendMessagePayload struct {
	ChatID  uuid.UUID          `json:"chatId" validate:"required"`
	Content string             `json:"content" validate:"required"`
	Type    models.MessageType `json:"type" validate:"required"`
}

type chatScopedPayload struct {
	ChatID uuid.UUID `json:"chatId" validate:"required"`
}

type signalPayload struct {
	ChatID       uuid.UUID       `json:"chatId" validate:"required"`
	TargetUserID uuid.UUID       `json:"targetUserId" validate:"required"`
	Offer        json.RawMessage `json:"offer,omitempty"`
	Answer       json.RawMessage `json:"answer,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

type updateStatusPayload struct {
	Status models.UserStatus `json:"status" validate:"required"`
}

type markAsReadPayload struct {
	ChatID    uuid.UUID `json:"chatId" validate:"required"`
	MessageID uuid.UUID `json:"messageId" validate:"required"`
}

type initiateCallPayload struct {
	ChatID  uuid.UUID `json:"chatId" validate:"required"`
	IsVideo bool      `json:"isVideo"`
}

type callReplyPayload struct {
	ChatID   uuid.UUID `json:"chatId" validate:"required"`
	CallerID uuid.UUID `json:"callerId" validate:"required"`
}

// Outbound payloads.

type statusChangeEvent struct {
	UserID uuid.UUID         `json:"userId"`
	Status models.UserStatus `json:"status"`
}

type typingEvent struct {
	ChatID   uuid.UUID `json:"chatId"`
	UserID   uuid.UUID `json:"userId"`
	UserName string    `json:"userName,omitempty"`
}

type messageReadEvent struct {
	MessageID uuid.UUID `json:"messageId"`
	UserID    uuid.UUID `json:"userId"`
	ReadAt    string    `json:"readAt"`
}

type incomingCallEvent struct {
	ChatID       uuid.UUID `json:"chatId"`
	CallerID     uuid.UUID `json:"callerId"`
	CallerName   string    `json:"callerName,omitempty"`
	CallerAvatar string    `json:"callerAvatar,omitempty"`
	IsVideo      bool      `json:"isVideo"`
}

type callAcceptedEvent struct {
	ChatID     uuid.UUID `json:"chatId"`
	AcceptedBy uuid.UUID `json:"acceptedBy"`
}

type callRejectedEvent struct {
	ChatID     uuid.UUID `json:"chatId"`
	RejectedBy uuid.UUID `json:"rejectedBy"`
}

type callCancelledEvent struct {
	ChatID uuid.UUID `json:"chatId"`
}

type screenShareEvent struct {
	ChatID uuid.UUID `json:"chatId"`
	UserID uuid.UUID `json:"userId"`
}

type signalRelayEvent struct {
	FromUserID uuid.UUID       `json:"fromUserId"`
	Offer      json.RawMessage `json:"offer,omitempty"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Candidate  json.RawMessage `json:"candidate,omitempty"`
}

type errorEvent struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}
