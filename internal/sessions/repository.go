package sessions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-health/telehealth-backend/internal/models"
)

const sessionColumns = `id, practice_id, host_id, appointment_id, max_participants, status,
	started_at, ended_at, created_at`

// Repository persists telehealth sessions and their participants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a session. Max participants falls back to the practice
// setting, then the given default.
func (r *Repository) Create(ctx context.Context, s *models.TelehealthSession, defaultMax int) error {
	const q = `INSERT INTO telehealth_sessions (practice_id, host_id, appointment_id, max_participants)
		VALUES ($1, $2, $3, COALESCE(
			NULLIF($4, 0),
			(SELECT max_participants FROM practice_settings WHERE practice_id = $1),
			$5))
		RETURNING ` + sessionColumns
	return r.pool.QueryRow(ctx, q, s.PracticeID, s.HostID, s.AppointmentID, s.MaxParticipants, defaultMax).
		Scan(&s.ID, &s.PracticeID, &s.HostID, &s.AppointmentID, &s.MaxParticipants, &s.Status,
			&s.StartedAt, &s.EndedAt, &s.CreatedAt)
}

// GetByID returns a session, or nil if not found.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.TelehealthSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM telehealth_sessions WHERE id = $1`
	var s models.TelehealthSession
	err := r.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.PracticeID, &s.HostID, &s.AppointmentID,
		&s.MaxParticipants, &s.Status, &s.StartedAt, &s.EndedAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Start marks a scheduled session active. Idempotent: an already-active
// session is returned unchanged.
func (r *Repository) Start(ctx context.Context, id uuid.UUID) (*models.TelehealthSession, error) {
	const q = `UPDATE telehealth_sessions
		SET status = 'active', started_at = COALESCE(started_at, NOW())
		WHERE id = $1 AND status <> 'ended'
		RETURNING ` + sessionColumns
	var s models.TelehealthSession
	err := r.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.PracticeID, &s.HostID, &s.AppointmentID,
		&s.MaxParticipants, &s.Status, &s.StartedAt, &s.EndedAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// End marks a session ended. Returns nil if the session was already ended or
// does not exist, so ending is single-shot for side effects like the audit
// export.
func (r *Repository) End(ctx context.Context, id uuid.UUID) (*models.TelehealthSession, error) {
	const q = `UPDATE telehealth_sessions
		SET status = 'ended', ended_at = NOW()
		WHERE id = $1 AND status <> 'ended'
		RETURNING ` + sessionColumns
	var s models.TelehealthSession
	err := r.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.PracticeID, &s.HostID, &s.AppointmentID,
		&s.MaxParticipants, &s.Status, &s.StartedAt, &s.EndedAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertParticipant records a member's connection state, reopening the row if
// a previous attendance was closed.
func (r *Repository) UpsertParticipant(ctx context.Context, sessionID, userID uuid.UUID, state string) error {
	const q = `INSERT INTO session_participants (session_id, user_id, connection_state)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, user_id)
		DO UPDATE SET connection_state = EXCLUDED.connection_state, left_at = NULL`
	_, err := r.pool.Exec(ctx, q, sessionID, userID, state)
	return err
}

// MarkParticipantLeft closes a member's attendance.
func (r *Repository) MarkParticipantLeft(ctx context.Context, sessionID, userID uuid.UUID) error {
	const q = `UPDATE session_participants
		SET connection_state = 'disconnected', left_at = NOW()
		WHERE session_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, q, sessionID, userID)
	return err
}

// ListParticipants returns a session's participants, live first.
func (r *Repository) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]models.SessionParticipant, error) {
	const q = `SELECT session_id, user_id, connection_state, joined_at, left_at
		FROM session_participants WHERE session_id = $1
		ORDER BY left_at IS NOT NULL, joined_at ASC`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SessionParticipant
	for rows.Next() {
		var p models.SessionParticipant
		if err := rows.Scan(&p.SessionID, &p.UserID, &p.ConnectionState, &p.JoinedAt, &p.LeftAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
