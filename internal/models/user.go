package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID  `json:"id"`
	Phone     string     `json:"phone"`
	Name      string     `json:"name"`
	Avatar    string     `json:"avatar,omitempty"`
	Status    UserStatus `json:"status"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UserStatus values are part of the wire contract; keep them stable.
type UserStatus string

const (
	StatusOnline       UserStatus = "ONLINE"
	StatusAway         UserStatus = "AWAY"
	StatusDoNotDisturb UserStatus = "DO_NOT_DISTURB"
	StatusOffline      UserStatus = "OFFLINE"
)

func (s UserStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusDoNotDisturb, StatusOffline:
		return true
	}
	return false
}

// UserSummary carries the display fields attached to messages and call
// notifications.
type UserSummary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar,omitempty"`
}

// UserPresence is the shape sent in onlineUsers snapshots.
type UserPresence struct {
	UserID   uuid.UUID  `json:"userId"`
	Status   UserStatus `json:"status"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}
