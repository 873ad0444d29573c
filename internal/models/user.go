package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleClinician = "clinician"
	RoleClient    = "client"
	RoleAdmin     = "admin"
)

// User is an authenticated account (clinician, client, or practice admin).
type User struct {
	ID           uuid.UUID `json:"id"`
	PracticeID   uuid.UUID `json:"practice_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Practice is a tenant: one clinical practice with its own settings.
type Practice struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// PracticeSettings holds the per-practice telehealth configuration. Absent
// rows fall back to service defaults (timeout 30 minutes, 2 participants).
type PracticeSettings struct {
	PracticeID                uuid.UUID `json:"practice_id"`
	WaitingRoomTimeoutMinutes int       `json:"waiting_room_timeout_minutes"`
	MaxParticipants           int       `json:"max_participants"`
	UpdatedAt                 time.Time `json:"updated_at"`
}
