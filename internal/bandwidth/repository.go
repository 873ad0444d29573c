package bandwidth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-health/telehealth-backend/internal/models"
)

// Repository persists bandwidth test results.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a bandwidth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a completed test result and fills generated fields.
func (r *Repository) Insert(ctx context.Context, t *models.BandwidthTestResult) error {
	const q = `INSERT INTO bandwidth_tests
		(session_id, user_id, download_mbps, upload_mbps, duration_ms, quality, recommended_tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, t.SessionID, t.UserID, t.DownloadMbps, t.UploadMbps,
		t.DurationMs, t.Quality, t.RecommendedTier).
		Scan(&t.ID, &t.CreatedAt)
}

// RecordDecision stores whether the user proceeded and which tier they chose.
func (r *Repository) RecordDecision(ctx context.Context, testID uuid.UUID, proceeded bool, chosenTier string) error {
	const q = `UPDATE bandwidth_tests SET proceeded = $2, chosen_tier = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, testID, proceeded, chosenTier)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetByID returns a test result, or nil if not found.
func (r *Repository) GetByID(ctx context.Context, testID uuid.UUID) (*models.BandwidthTestResult, error) {
	const q = `SELECT id, session_id, user_id, download_mbps, upload_mbps, duration_ms,
		quality, recommended_tier, proceeded, chosen_tier, created_at
		FROM bandwidth_tests WHERE id = $1`
	var t models.BandwidthTestResult
	err := r.pool.QueryRow(ctx, q, testID).Scan(&t.ID, &t.SessionID, &t.UserID, &t.DownloadMbps,
		&t.UploadMbps, &t.DurationMs, &t.Quality, &t.RecommendedTier, &t.Proceeded, &t.ChosenTier, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListBySession returns a session's test results, newest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.BandwidthTestResult, error) {
	const q = `SELECT id, session_id, user_id, download_mbps, upload_mbps, duration_ms,
		quality, recommended_tier, proceeded, chosen_tier, created_at
		FROM bandwidth_tests WHERE session_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.BandwidthTestResult
	for rows.Next() {
		var t models.BandwidthTestResult
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserID, &t.DownloadMbps, &t.UploadMbps,
			&t.DurationMs, &t.Quality, &t.RecommendedTier, &t.Proceeded, &t.ChosenTier, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
