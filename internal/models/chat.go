package models

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	ID         uuid.UUID     `json:"id"`
	Name       string        `json:"name,omitempty"`
	IsGroup    bool          `json:"is_group"`
	IsArchived bool          `json:"is_archived"`
	Users      []UserSummary `json:"users,omitempty"`
	// LastMessage is filled by list queries as a preview; nil elsewhere.
	LastMessage *Message  `json:"last_message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
