package quality

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the latest classification for one participant's connection.
type Status struct {
	UserID    uuid.UUID `json:"user_id"`
	Level     Level     `json:"level"`
	Bars      int       `json:"bars"`
	Label     string    `json:"label"`
	Color     string    `json:"color"`
	Sample    Sample    `json:"sample"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Monitor tracks the latest quality classification per participant per
// session. Safe for concurrent use; holds no history, only the most recent
// sample's result. Callers decide sampling cadence.
type Monitor struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[uuid.UUID]Status
}

// NewMonitor creates a connection quality monitor.
func NewMonitor() *Monitor {
	return &Monitor{sessions: make(map[uuid.UUID]map[uuid.UUID]Status)}
}

// Observe classifies a sample and records it as the participant's current
// status, returning the classification.
func (m *Monitor) Observe(sessionID, userID uuid.UUID, s Sample) Status {
	level := Classify(s)
	st := Status{
		UserID:    userID,
		Level:     level,
		Bars:      level.Bars(),
		Label:     level.Label(),
		Color:     level.Color(),
		Sample:    s,
		UpdatedAt: time.Now(),
	}
	m.mu.Lock()
	if m.sessions[sessionID] == nil {
		m.sessions[sessionID] = make(map[uuid.UUID]Status)
	}
	m.sessions[sessionID][userID] = st
	m.mu.Unlock()
	return st
}

// Current returns the latest status for one participant.
func (m *Monitor) Current(sessionID, userID uuid.UUID) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[sessionID][userID]
	return st, ok
}

// Snapshot returns the latest status for every tracked participant in a session.
func (m *Monitor) Snapshot(sessionID uuid.UUID) []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	participants := m.sessions[sessionID]
	out := make([]Status, 0, len(participants))
	for _, st := range participants {
		out = append(out, st)
	}
	return out
}

// Forget drops a participant's status (on leave).
func (m *Monitor) Forget(sessionID, userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if participants, ok := m.sessions[sessionID]; ok {
		delete(participants, userID)
		if len(participants) == 0 {
			delete(m.sessions, sessionID)
		}
	}
}
