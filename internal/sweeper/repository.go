package sweeper

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-health/telehealth-backend/internal/models"
)

// Repository implements Store over PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sweeper repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SweepExpired times out stale waiting entries in a single statement, joining
// each entry's session to its practice settings for the timeout, falling back
// to the service default. One UPDATE keeps the read-then-update atomic; a
// retry after failure simply picks up whatever is still waiting.
func (r *Repository) SweepExpired(ctx context.Context, defaultTimeoutMinutes int) ([]models.WaitingRoomEntry, error) {
	const q = `UPDATE waiting_room_entries e
		SET status = 'timed_out', timed_out_at = NOW()
		FROM telehealth_sessions s
		LEFT JOIN practice_settings p ON p.practice_id = s.practice_id
		WHERE e.session_id = s.id
		  AND e.status = 'waiting'
		  AND e.joined_at < NOW() - (COALESCE(p.waiting_room_timeout_minutes, $1) * INTERVAL '1 minute')
		RETURNING e.id, e.session_id, e.user_id, e.display_name, e.status, e.joined_at,
			e.admitted_at, e.admitted_by, e.denied_at, e.denied_by, e.timed_out_at`
	rows, err := r.pool.Query(ctx, q, defaultTimeoutMinutes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var swept []models.WaitingRoomEntry
	for rows.Next() {
		var e models.WaitingRoomEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.DisplayName, &e.Status, &e.JoinedAt,
			&e.AdmittedAt, &e.AdmittedBy, &e.DeniedAt, &e.DeniedBy, &e.TimedOutAt); err != nil {
			return nil, err
		}
		swept = append(swept, e)
	}
	return swept, rows.Err()
}
