package waitingroom

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-health/telehealth-backend/internal/models"
)

// mockStore is an in-memory Store with the same transition semantics as the
// SQL repository: inserts reject a second waiting entry per (session, user),
// and MarkAdmitted/MarkDenied succeed only from the waiting status.
type mockStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.TelehealthSession
	entries  map[uuid.UUID]*models.WaitingRoomEntry
	live     map[uuid.UUID]int
}

func newMockStore() *mockStore {
	return &mockStore{
		sessions: make(map[uuid.UUID]*models.TelehealthSession),
		entries:  make(map[uuid.UUID]*models.WaitingRoomEntry),
		live:     make(map[uuid.UUID]int),
	}
}

func (m *mockStore) addSession(status string, maxParticipants int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.sessions[id] = &models.TelehealthSession{ID: id, Status: status, MaxParticipants: maxParticipants}
	return id
}

func (m *mockStore) Insert(ctx context.Context, sessionID, userID uuid.UUID, displayName string) (*models.WaitingRoomEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.SessionID == sessionID && e.UserID == userID && e.Status == models.EntryWaiting {
			return nil, ErrDuplicateEntry
		}
	}
	entry := &models.WaitingRoomEntry{
		ID:          uuid.New(),
		SessionID:   sessionID,
		UserID:      userID,
		DisplayName: displayName,
		Status:      models.EntryWaiting,
		JoinedAt:    time.Now(),
	}
	m.entries[entry.ID] = entry
	return entry, nil
}

func (m *mockStore) Get(ctx context.Context, entryID uuid.UUID) (*models.WaitingRoomEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *mockStore) MarkAdmitted(ctx context.Context, entryID, actorID uuid.UUID) (*models.WaitingRoomEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok || e.Status != models.EntryWaiting {
		return nil, nil
	}
	now := time.Now()
	e.Status = models.EntryAdmitted
	e.AdmittedAt = &now
	e.AdmittedBy = &actorID
	m.live[e.SessionID]++
	cp := *e
	return &cp, nil
}

func (m *mockStore) MarkDenied(ctx context.Context, entryID, actorID uuid.UUID) (*models.WaitingRoomEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryID]
	if !ok || e.Status != models.EntryWaiting {
		return nil, nil
	}
	now := time.Now()
	e.Status = models.EntryDenied
	e.DeniedAt = &now
	e.DeniedBy = &actorID
	cp := *e
	return &cp, nil
}

func (m *mockStore) ListWaiting(ctx context.Context, sessionID uuid.UUID) ([]models.WaitingRoomEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WaitingRoomEntry
	for _, e := range m.entries {
		if e.SessionID == sessionID && e.Status == models.EntryWaiting {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.TelehealthSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockStore) CountLiveParticipants(ctx context.Context, sessionID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[sessionID], nil
}

// recordingNotifier captures every published event for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) NotifySession(sessionID uuid.UUID, event string, payload interface{}) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func TestJoinThenAdmit(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier, nil)
	session := store.addSession(models.SessionScheduled, 2)
	client := uuid.New()
	host := uuid.New()

	entry, err := svc.Join(context.Background(), session, client, "Jamie R")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if entry.Status != models.EntryWaiting {
		t.Fatalf("joined entry status = %q, want waiting", entry.Status)
	}

	admitted, err := svc.Admit(context.Background(), entry.ID, host)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if admitted.Status != models.EntryAdmitted {
		t.Errorf("admitted entry status = %q, want admitted", admitted.Status)
	}
	if admitted.AdmittedBy == nil || *admitted.AdmittedBy != host {
		t.Error("admitted entry does not record the admitting host")
	}
	if admitted.AdmittedAt == nil {
		t.Error("admitted entry has no admitted_at timestamp")
	}

	// One event for the join, one for the admit.
	if got := notifier.count(); got != 2 {
		t.Errorf("notifier saw %d events, want 2", got)
	}
}

func TestJoinDuplicateWhileWaiting(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, nil)
	session := store.addSession(models.SessionScheduled, 2)
	client := uuid.New()

	if _, err := svc.Join(context.Background(), session, client, "Jamie R"); err != nil {
		t.Fatalf("first Join: %v", err)
	}
	if _, err := svc.Join(context.Background(), session, client, "Jamie R"); !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("second Join err = %v, want ErrDuplicateEntry", err)
	}
}

func TestJoinRejectsBadSessions(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, nil)

	if _, err := svc.Join(context.Background(), uuid.New(), uuid.New(), "x"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("join to unknown session err = %v, want ErrSessionNotFound", err)
	}

	ended := store.addSession(models.SessionEnded, 2)
	if _, err := svc.Join(context.Background(), ended, uuid.New(), "x"); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("join to ended session err = %v, want ErrSessionEnded", err)
	}
}

func TestAdmitTerminalEntryFails(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, nil)
	session := store.addSession(models.SessionActive, 5)
	host := uuid.New()

	entry, err := svc.Join(context.Background(), session, uuid.New(), "x")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := svc.Deny(context.Background(), entry.ID, host); err != nil {
		t.Fatalf("Deny: %v", err)
	}

	if _, err := svc.Admit(context.Background(), entry.ID, host); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("admit of denied entry err = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.Deny(context.Background(), entry.ID, host); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second deny err = %v, want ErrInvalidTransition", err)
	}
}

func TestAdmitTerminalEntryInFullRoom(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, nil)
	session := store.addSession(models.SessionActive, 1)
	host := uuid.New()

	entry, err := svc.Join(context.Background(), session, uuid.New(), "x")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := svc.Admit(context.Background(), entry.ID, host); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	// The room is now full. A repeat admit of the same entry is still an
	// invalid transition, not a capacity problem.
	if _, err := svc.Admit(context.Background(), entry.ID, host); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("repeat admit in full room err = %v, want ErrInvalidTransition", err)
	}
}

func TestConcurrentAdmitSingleWinner(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &recordingNotifier{}, nil)
	session := store.addSession(models.SessionActive, 10)

	entry, err := svc.Join(context.Background(), session, uuid.New(), "x")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	const racers = 8
	results := make(chan error, racers)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < racers; i++ {
		go func() {
			start.Wait()
			_, err := svc.Admit(context.Background(), entry.ID, uuid.New())
			results <- err
		}()
	}
	start.Done()

	var wins, losses int
	for i := 0; i < racers; i++ {
		switch err := <-results; {
		case err == nil:
			wins++
		case errors.Is(err, ErrInvalidTransition):
			losses++
		default:
			t.Fatalf("unexpected admit error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("%d admits succeeded, want exactly 1", wins)
	}
	if losses != racers-1 {
		t.Errorf("%d admits lost the race, want %d", losses, racers-1)
	}
	if live, _ := store.CountLiveParticipants(context.Background(), session); live != 1 {
		t.Errorf("live participants = %d, want 1", live)
	}
}

func TestAdmitAtCapacity(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, nil)
	session := store.addSession(models.SessionActive, 2)
	host := uuid.New()

	for i := 0; i < 2; i++ {
		e, err := svc.Join(context.Background(), session, uuid.New(), "x")
		if err != nil {
			t.Fatalf("Join %d: %v", i, err)
		}
		if _, err := svc.Admit(context.Background(), e.ID, host); err != nil {
			t.Fatalf("Admit %d: %v", i, err)
		}
	}

	overflow, err := svc.Join(context.Background(), session, uuid.New(), "x")
	if err != nil {
		t.Fatalf("overflow Join: %v", err)
	}
	if _, err := svc.Admit(context.Background(), overflow.ID, host); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("admit past capacity err = %v, want ErrCapacityExceeded", err)
	}

	// The blocked entry is still waiting and can be admitted once space frees up.
	waiting, err := svc.ListWaiting(context.Background(), session)
	if err != nil {
		t.Fatalf("ListWaiting: %v", err)
	}
	if len(waiting) != 1 || waiting[0].ID != overflow.ID {
		t.Errorf("waiting queue = %v, want just the overflow entry", waiting)
	}
}

func TestOccupancy(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, nil, nil)
	session := store.addSession(models.SessionActive, 3)
	host := uuid.New()

	current, max, err := svc.Occupancy(context.Background(), session)
	if err != nil {
		t.Fatalf("Occupancy: %v", err)
	}
	if current != 0 || max != 3 {
		t.Errorf("occupancy = %d/%d, want 0/3", current, max)
	}

	e, _ := svc.Join(context.Background(), session, uuid.New(), "x")
	if _, err := svc.Admit(context.Background(), e.ID, host); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	current, _, err = svc.Occupancy(context.Background(), session)
	if err != nil {
		t.Fatalf("Occupancy: %v", err)
	}
	if current != 1 {
		t.Errorf("occupancy after admit = %d, want 1", current)
	}

	if _, _, err := svc.Occupancy(context.Background(), uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("occupancy of unknown session err = %v, want ErrSessionNotFound", err)
	}
}
