package models

import (
	"time"

	"github.com/google/uuid"
)

// CallStatus is the persisted lifecycle state of a call record. MISSED is
// the pessimistic default on initiate and is flipped on acceptance.
type CallStatus string

const (
	CallMissed    CallStatus = "MISSED"
	CallCompleted CallStatus = "COMPLETED"
	CallRejected  CallStatus = "REJECTED"
	CallCancelled CallStatus = "CANCELLED"
)

type CallRecord struct {
	ID       uuid.UUID `json:"id"`
	ChatID   uuid.UUID `json:"chat_id"`
	CallerID uuid.UUID `json:"caller_id"`
	// TargetID is nil for group calls.
	TargetID  *uuid.UUID `json:"target_id,omitempty"`
	IsVideo   bool       `json:"is_video"`
	Status    CallStatus `json:"status"`
	Duration  int        `json:"duration"`
	Caller    *UserSummary `json:"caller,omitempty"`
	Target    *UserSummary `json:"target,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
