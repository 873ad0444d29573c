package models

import (
	"time"

	"github.com/google/uuid"
)

// Session lifecycle phases.
const (
	SessionScheduled = "scheduled"
	SessionActive    = "active"
	SessionEnded     = "ended"
)

// TelehealthSession is a scheduled telehealth encounter. Created when an
// appointment is converted to a telehealth visit; scheduling owns deletion.
type TelehealthSession struct {
	ID              uuid.UUID  `json:"id"`
	PracticeID      uuid.UUID  `json:"practice_id"`
	HostID          uuid.UUID  `json:"host_id"`
	AppointmentID   *uuid.UUID `json:"appointment_id,omitempty"`
	MaxParticipants int        `json:"max_participants"`
	Status          string     `json:"status"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Participant connection states.
const (
	ConnectionNew          = "new"
	ConnectionConnected    = "connected"
	ConnectionReconnecting = "reconnecting"
	ConnectionDisconnected = "disconnected"
)

// SessionParticipant is a connected session member. Live occupancy is the
// count of participants whose connection state is not disconnected.
type SessionParticipant struct {
	SessionID       uuid.UUID  `json:"session_id"`
	UserID          uuid.UUID  `json:"user_id"`
	ConnectionState string     `json:"connection_state"`
	JoinedAt        time.Time  `json:"joined_at"`
	LeftAt          *time.Time `json:"left_at,omitempty"`
}
