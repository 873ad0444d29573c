package waitingroom

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-health/telehealth-backend/internal/models"
)

// Store is the persistence surface the admission service needs. Implemented
// by Repository; mocked in tests.
type Store interface {
	Insert(ctx context.Context, sessionID, userID uuid.UUID, displayName string) (*models.WaitingRoomEntry, error)
	Get(ctx context.Context, entryID uuid.UUID) (*models.WaitingRoomEntry, error)
	MarkAdmitted(ctx context.Context, entryID, actorID uuid.UUID) (*models.WaitingRoomEntry, error)
	MarkDenied(ctx context.Context, entryID, actorID uuid.UUID) (*models.WaitingRoomEntry, error)
	ListWaiting(ctx context.Context, sessionID uuid.UUID) ([]models.WaitingRoomEntry, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.TelehealthSession, error)
	CountLiveParticipants(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// Notifier delivers waiting-room change events to all watchers of a session.
type Notifier interface {
	NotifySession(sessionID uuid.UUID, event string, payload interface{})
}

// Realtime event published on every waiting-room transition.
const EventWaitingRoomUpdate = "waiting_room_update"

// Service is the admission gate between a session's waiting state and live
// participation. Entries are created by the joining client and transitioned
// only by the host (admit/deny) or the timeout sweeper.
type Service struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates a waiting room service.
func NewService(store Store, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, logger: logger}
}

// Join creates a waiting entry for (session, user). Returns ErrDuplicateEntry
// if one already exists, ErrSessionNotFound/ErrSessionEnded for bad targets.
func (s *Service) Join(ctx context.Context, sessionID, userID uuid.UUID, displayName string) (*models.WaitingRoomEntry, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status == models.SessionEnded {
		return nil, ErrSessionEnded
	}
	entry, err := s.store.Insert(ctx, sessionID, userID, displayName)
	if err != nil {
		return nil, err
	}
	s.notify(sessionID, entry)
	s.logger.Info("waiting room join",
		zap.String("session_id", sessionID.String()),
		zap.String("user_id", userID.String()))
	return entry, nil
}

// Admit transitions an entry waiting -> admitted. The capacity check against
// live participants is advisory (read-then-act); the conditional update in
// the store is what guarantees a single winner per entry.
func (s *Service) Admit(ctx context.Context, entryID, actorID uuid.UUID) (*models.WaitingRoomEntry, error) {
	current, err := s.store.Get(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if current == nil || current.Terminal() {
		return nil, ErrInvalidTransition
	}
	session, err := s.store.GetSession(ctx, current.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	occupancy, err := s.store.CountLiveParticipants(ctx, current.SessionID)
	if err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	if occupancy >= session.MaxParticipants {
		return nil, ErrCapacityExceeded
	}
	entry, err := s.store.MarkAdmitted(ctx, entryID, actorID)
	if err != nil {
		return nil, fmt.Errorf("mark admitted: %w", err)
	}
	if entry == nil {
		return nil, ErrInvalidTransition
	}
	s.notify(entry.SessionID, entry)
	s.logger.Info("waiting room admit",
		zap.String("entry_id", entryID.String()),
		zap.String("actor_id", actorID.String()))
	return entry, nil
}

// Deny transitions an entry waiting -> denied, symmetric to Admit but with
// no capacity check.
func (s *Service) Deny(ctx context.Context, entryID, actorID uuid.UUID) (*models.WaitingRoomEntry, error) {
	entry, err := s.store.MarkDenied(ctx, entryID, actorID)
	if err != nil {
		return nil, fmt.Errorf("mark denied: %w", err)
	}
	if entry == nil {
		return nil, ErrInvalidTransition
	}
	s.notify(entry.SessionID, entry)
	s.logger.Info("waiting room deny",
		zap.String("entry_id", entryID.String()),
		zap.String("actor_id", actorID.String()))
	return entry, nil
}

// ListWaiting returns the session's queue in FIFO order by joined_at.
func (s *Service) ListWaiting(ctx context.Context, sessionID uuid.UUID) ([]models.WaitingRoomEntry, error) {
	return s.store.ListWaiting(ctx, sessionID)
}

// Occupancy returns current live participants and the session's maximum.
func (s *Service) Occupancy(ctx context.Context, sessionID uuid.UUID) (current, max int, err error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return 0, 0, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return 0, 0, ErrSessionNotFound
	}
	current, err = s.store.CountLiveParticipants(ctx, sessionID)
	if err != nil {
		return 0, 0, fmt.Errorf("count participants: %w", err)
	}
	return current, session.MaxParticipants, nil
}

func (s *Service) notify(sessionID uuid.UUID, entry *models.WaitingRoomEntry) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifySession(sessionID, EventWaitingRoomUpdate, entry)
}
