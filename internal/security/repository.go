package security

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-health/telehealth-backend/internal/models"
)

// Repository persists security events. The table is append-only: nothing in
// this service updates or deletes a logged event.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a security event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one event and fills generated fields.
func (r *Repository) Insert(ctx context.Context, e *models.SecurityEvent) error {
	const q = `INSERT INTO security_events (session_id, user_id, event_type, description, severity, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, e.SessionID, e.UserID, e.EventType, e.Description, e.Severity, e.Metadata).
		Scan(&e.ID, &e.CreatedAt)
}

// ListBySession returns a session's events, newest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.SecurityEvent, error) {
	const q = `SELECT id, session_id, user_id, event_type, description, severity, metadata, created_at
		FROM security_events WHERE session_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SecurityEvent
	for rows.Next() {
		var e models.SecurityEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &e.EventType, &e.Description,
			&e.Severity, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
