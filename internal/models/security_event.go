package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Known security event types reported by the session client.
const (
	EventScreenshotAttempt  = "screenshot_attempt"
	EventContextMenuAttempt = "context_menu_attempt"
	EventSessionTabHidden   = "session_tab_hidden"
	EventDevtoolsOpen       = "devtools_open"
)

// Security event severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SecurityEvent is a logged client-side abuse signal. Append-only; never
// mutated or deleted by this service.
type SecurityEvent struct {
	ID          uuid.UUID       `json:"id"`
	SessionID   uuid.UUID       `json:"session_id"`
	UserID      uuid.UUID       `json:"user_id"`
	EventType   string          `json:"event_type"`
	Description string          `json:"description"`
	Severity    string          `json:"severity"`
	Metadata    json.RawMessage `json:"metadata,omitempty"` // user agent etc.
	CreatedAt   time.Time       `json:"created_at"`
}
