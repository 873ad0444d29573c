package models

import (
	"time"

	"github.com/google/uuid"
)

// Bandwidth quality grades and the media tier recommended for each.
const (
	BandwidthGood = "good"
	BandwidthFair = "fair"
	BandwidthPoor = "poor"

	TierHD        = "hd"
	TierSD        = "sd"
	TierAudioOnly = "audio_only"
)

// BandwidthTestResult is a one-shot pre-join throughput measurement, persisted
// per user/session for audit. Proceeded and ChosenTier are recorded by a
// follow-up call once the user decides.
type BandwidthTestResult struct {
	ID              uuid.UUID `json:"id"`
	SessionID       uuid.UUID `json:"session_id"`
	UserID          uuid.UUID `json:"user_id"`
	DownloadMbps    float64   `json:"download_mbps"`
	UploadMbps      float64   `json:"upload_mbps"`
	DurationMs      int64     `json:"duration_ms"`
	Quality         string    `json:"quality"`
	RecommendedTier string    `json:"recommended_tier"`
	Proceeded       *bool     `json:"proceeded,omitempty"`
	ChosenTier      *string   `json:"chosen_tier,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
