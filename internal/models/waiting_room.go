package models

import (
	"time"

	"github.com/google/uuid"
)

// Waiting room entry statuses. An entry starts waiting and moves to exactly
// one terminal state; terminal entries are never mutated again.
const (
	EntryWaiting  = "waiting"
	EntryAdmitted = "admitted"
	EntryDenied   = "denied"
	EntryTimedOut = "timed_out"
)

// WaitingRoomEntry is one client's attempt to join a session. At most one
// waiting entry exists per (session, user); enforced by a partial unique index.
type WaitingRoomEntry struct {
	ID          uuid.UUID  `json:"id"`
	SessionID   uuid.UUID  `json:"session_id"`
	UserID      uuid.UUID  `json:"user_id"`
	DisplayName string     `json:"display_name"`
	Status      string     `json:"status"`
	JoinedAt    time.Time  `json:"joined_at"`
	AdmittedAt  *time.Time `json:"admitted_at,omitempty"`
	AdmittedBy  *uuid.UUID `json:"admitted_by,omitempty"`
	DeniedAt    *time.Time `json:"denied_at,omitempty"`
	DeniedBy    *uuid.UUID `json:"denied_by,omitempty"`
	TimedOutAt  *time.Time `json:"timed_out_at,omitempty"`
}

// Terminal reports whether the entry has reached a final status.
func (e *WaitingRoomEntry) Terminal() bool {
	return e.Status != EntryWaiting
}
