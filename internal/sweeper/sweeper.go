package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-health/telehealth-backend/internal/models"
	"github.com/lumen-health/telehealth-backend/internal/waitingroom"
)

// Store is the persistence surface the sweeper needs.
type Store interface {
	// SweepExpired transitions every waiting entry older than its practice's
	// timeout (fallback defaultTimeoutMinutes) to timed_out and returns the
	// affected entries. Must be atomic and idempotent: a run with no newly
	// expired entries changes nothing.
	SweepExpired(ctx context.Context, defaultTimeoutMinutes int) ([]models.WaitingRoomEntry, error)
}

// Notifier fans swept transitions out to session watchers.
type Notifier interface {
	NotifySession(sessionID uuid.UUID, event string, payload interface{})
}

// Sweeper bounds how long a client may sit in waiting status. It is the only
// component besides the host allowed to transition an entry out of waiting.
type Sweeper struct {
	store                 Store
	notifier              Notifier
	defaultTimeoutMinutes int
	interval              time.Duration
	logger                *zap.Logger
}

// New creates a sweeper. defaultTimeoutMinutes applies to practices without a
// settings row; interval is the cadence for Run.
func New(store Store, notifier Notifier, defaultTimeoutMinutes int, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTimeoutMinutes <= 0 {
		defaultTimeoutMinutes = 30
	}
	return &Sweeper{
		store:                 store,
		notifier:              notifier,
		defaultTimeoutMinutes: defaultTimeoutMinutes,
		interval:              interval,
		logger:                logger,
	}
}

// Sweep runs one pass and returns how many entries were timed out.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	swept, err := s.store.SweepExpired(ctx, s.defaultTimeoutMinutes)
	if err != nil {
		return 0, fmt.Errorf("sweep expired: %w", err)
	}
	for i := range swept {
		entry := &swept[i]
		if s.notifier != nil {
			s.notifier.NotifySession(entry.SessionID, waitingroom.EventWaitingRoomUpdate, entry)
		}
	}
	if len(swept) > 0 {
		s.logger.Info("waiting room sweep", zap.Int("timed_out", len(swept)))
	}
	return len(swept), nil
}

// Run sweeps on a fixed cadence until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("sweep failed", zap.Error(err))
			}
		}
	}
}
