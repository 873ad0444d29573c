package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-health/telehealth-backend/internal/models"
	"github.com/lumen-health/telehealth-backend/internal/waitingroom"
)

// clockedStore is an in-memory Store driven by an explicit clock so tests can
// move time without sleeping. Every entry uses the default timeout.
type clockedStore struct {
	mu      sync.Mutex
	now     time.Time
	entries []*models.WaitingRoomEntry
	err     error
}

func (s *clockedStore) add(sessionID uuid.UUID, age time.Duration) *models.WaitingRoomEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &models.WaitingRoomEntry{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    uuid.New(),
		Status:    models.EntryWaiting,
		JoinedAt:  s.now.Add(-age),
	}
	s.entries = append(s.entries, e)
	return e
}

func (s *clockedStore) status(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e.Status
		}
	}
	return ""
}

func (s *clockedStore) SweepExpired(ctx context.Context, defaultTimeoutMinutes int) ([]models.WaitingRoomEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	cutoff := s.now.Add(-time.Duration(defaultTimeoutMinutes) * time.Minute)
	var swept []models.WaitingRoomEntry
	for _, e := range s.entries {
		if e.Status == models.EntryWaiting && e.JoinedAt.Before(cutoff) {
			e.Status = models.EntryTimedOut
			ts := s.now
			e.TimedOutAt = &ts
			swept = append(swept, *e)
		}
	}
	return swept, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []uuid.UUID
	names  []string
}

func (n *recordingNotifier) NotifySession(sessionID uuid.UUID, event string, payload interface{}) {
	n.mu.Lock()
	n.events = append(n.events, sessionID)
	n.names = append(n.names, event)
	n.mu.Unlock()
}

func TestSweepExpiresOnlyOverdueEntries(t *testing.T) {
	store := &clockedStore{now: time.Now()}
	session := uuid.New()
	overdue := store.add(session, 31*time.Minute)
	fresh := store.add(session, 29*time.Minute)

	notifier := &recordingNotifier{}
	sw := New(store, notifier, 30, time.Minute, nil)

	n, err := sw.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d entries, want 1", n)
	}
	if got := store.status(overdue.ID); got != models.EntryTimedOut {
		t.Errorf("overdue entry status = %q, want timed_out", got)
	}
	if got := store.status(fresh.ID); got != models.EntryWaiting {
		t.Errorf("fresh entry status = %q, want waiting", got)
	}
	if len(notifier.events) != 1 || notifier.events[0] != session {
		t.Errorf("notifications = %v, want one for session %s", notifier.events, session)
	}
	if notifier.names[0] != waitingroom.EventWaitingRoomUpdate {
		t.Errorf("notification event = %q, want %q", notifier.names[0], waitingroom.EventWaitingRoomUpdate)
	}
}

func TestSweepIdempotent(t *testing.T) {
	store := &clockedStore{now: time.Now()}
	store.add(uuid.New(), time.Hour)
	sw := New(store, nil, 30, time.Minute, nil)

	first, err := sw.Sweep(context.Background())
	if err != nil {
		t.Fatalf("first Sweep: %v", err)
	}
	if first != 1 {
		t.Fatalf("first sweep timed out %d entries, want 1", first)
	}

	second, err := sw.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if second != 0 {
		t.Errorf("second sweep timed out %d entries, want 0", second)
	}
}

func TestSweepStoreError(t *testing.T) {
	boom := errors.New("pool closed")
	store := &clockedStore{now: time.Now(), err: boom}
	sw := New(store, nil, 30, time.Minute, nil)

	if _, err := sw.Sweep(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Sweep err = %v, want wrapped %v", err, boom)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &clockedStore{now: time.Now()}
	sw := New(store, nil, 30, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
