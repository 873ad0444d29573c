package waitingroom

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-health/telehealth-backend/internal/models"
)

const entryColumns = `id, session_id, user_id, display_name, status, joined_at,
	admitted_at, admitted_by, denied_at, denied_by, timed_out_at`

// Repository persists waiting room entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a waiting room repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanEntry(row pgx.Row) (*models.WaitingRoomEntry, error) {
	var e models.WaitingRoomEntry
	err := row.Scan(&e.ID, &e.SessionID, &e.UserID, &e.DisplayName, &e.Status, &e.JoinedAt,
		&e.AdmittedAt, &e.AdmittedBy, &e.DeniedAt, &e.DeniedBy, &e.TimedOutAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Insert creates a waiting entry. The partial unique index on
// (session_id, user_id) WHERE status = 'waiting' maps a second concurrent
// join to ErrDuplicateEntry.
func (r *Repository) Insert(ctx context.Context, sessionID, userID uuid.UUID, displayName string) (*models.WaitingRoomEntry, error) {
	const q = `INSERT INTO waiting_room_entries (session_id, user_id, display_name)
		VALUES ($1, $2, $3)
		RETURNING ` + entryColumns
	entry, err := scanEntry(r.pool.QueryRow(ctx, q, sessionID, userID, displayName))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEntry
		}
		return nil, err
	}
	return entry, nil
}

// Get returns an entry by ID, or nil if not found.
func (r *Repository) Get(ctx context.Context, entryID uuid.UUID) (*models.WaitingRoomEntry, error) {
	const q = `SELECT ` + entryColumns + ` FROM waiting_room_entries WHERE id = $1`
	entry, err := scanEntry(r.pool.QueryRow(ctx, q, entryID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

// MarkAdmitted transitions an entry waiting -> admitted. The status guard in
// the WHERE clause makes concurrent admit/deny single-winner: the loser sees
// zero rows and gets nil, nil.
func (r *Repository) MarkAdmitted(ctx context.Context, entryID, actorID uuid.UUID) (*models.WaitingRoomEntry, error) {
	const q = `UPDATE waiting_room_entries
		SET status = 'admitted', admitted_at = NOW(), admitted_by = $2
		WHERE id = $1 AND status = 'waiting'
		RETURNING ` + entryColumns
	entry, err := scanEntry(r.pool.QueryRow(ctx, q, entryID, actorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

// MarkDenied transitions an entry waiting -> denied, symmetric to MarkAdmitted.
func (r *Repository) MarkDenied(ctx context.Context, entryID, actorID uuid.UUID) (*models.WaitingRoomEntry, error) {
	const q = `UPDATE waiting_room_entries
		SET status = 'denied', denied_at = NOW(), denied_by = $2
		WHERE id = $1 AND status = 'waiting'
		RETURNING ` + entryColumns
	entry, err := scanEntry(r.pool.QueryRow(ctx, q, entryID, actorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

// ListWaiting returns a session's waiting entries in FIFO order.
func (r *Repository) ListWaiting(ctx context.Context, sessionID uuid.UUID) ([]models.WaitingRoomEntry, error) {
	const q = `SELECT ` + entryColumns + ` FROM waiting_room_entries
		WHERE session_id = $1 AND status = 'waiting'
		ORDER BY joined_at ASC`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.WaitingRoomEntry
	for rows.Next() {
		var e models.WaitingRoomEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.DisplayName, &e.Status, &e.JoinedAt,
			&e.AdmittedAt, &e.AdmittedBy, &e.DeniedAt, &e.DeniedBy, &e.TimedOutAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// GetSession returns the owning session, or nil if not found.
func (r *Repository) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.TelehealthSession, error) {
	const q = `SELECT id, practice_id, host_id, appointment_id, max_participants, status,
		started_at, ended_at, created_at
		FROM telehealth_sessions WHERE id = $1`
	var s models.TelehealthSession
	err := r.pool.QueryRow(ctx, q, sessionID).Scan(&s.ID, &s.PracticeID, &s.HostID, &s.AppointmentID,
		&s.MaxParticipants, &s.Status, &s.StartedAt, &s.EndedAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountLiveParticipants returns the session's live occupancy (participants
// whose connection is not disconnected).
func (r *Repository) CountLiveParticipants(ctx context.Context, sessionID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM session_participants
		WHERE session_id = $1 AND connection_state <> 'disconnected' AND left_at IS NULL`
	var n int
	err := r.pool.QueryRow(ctx, q, sessionID).Scan(&n)
	return n, err
}
