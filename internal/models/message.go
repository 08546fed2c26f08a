package models

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText     MessageType = "TEXT"
	MessageImage    MessageType = "IMAGE"
	MessageVideo    MessageType = "VIDEO"
	MessageAudio    MessageType = "AUDIO"
	MessageFile     MessageType = "FILE"
	MessageLocation MessageType = "LOCATION"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageVideo, MessageAudio, MessageFile, MessageLocation:
		return true
	}
	return false
}

// Message is immutable after creation; the gateway only reads it back once
// to confirm persistence before fan-out.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	ChatID    uuid.UUID   `json:"chatId"`
	SenderID  uuid.UUID   `json:"senderId"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	Sender    UserSummary `json:"sender"`
	CreatedAt time.Time   `json:"createdAt"`
}

type Reaction struct {
	ID        uuid.UUID `json:"id"`
	MessageID uuid.UUID `json:"messageId"`
	UserID    uuid.UUID `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessageReceipt struct {
	ID        uuid.UUID `json:"id"`
	MessageID uuid.UUID `json:"messageId"`
	UserID    uuid.UUID `json:"userId"`
	ReadAt    time.Time `json:"readAt"`
}
