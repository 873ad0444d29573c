package bandwidth

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/lumen-health/telehealth-backend/internal/middleware"
	"github.com/lumen-health/telehealth-backend/internal/models"
	"github.com/lumen-health/telehealth-backend/pkg/response"
)

// MaxPayloadBytes caps the probe payload size a client may request.
const MaxPayloadBytes = 16 * 1024 * 1024

// Handler serves the probe endpoints and result persistence.
type Handler struct {
	repo           *Repository
	defaultPayload int64
	logger         *zap.Logger
}

// NewHandler creates a bandwidth handler.
func NewHandler(repo *Repository, defaultPayload int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, defaultPayload: defaultPayload, logger: logger}
}

// Payload handles GET /bandwidth/payload?bytes=N: streams N pattern bytes for
// clients to time a download against.
func (h *Handler) Payload(c *gin.Context) {
	n := h.defaultPayload
	if v := c.Query("bytes"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			response.BadRequest(c, "invalid bytes")
			return
		}
		n = parsed
	}
	if n > MaxPayloadBytes {
		n = MaxPayloadBytes
	}
	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Length", strconv.FormatInt(n, 10))
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)

	chunk := make([]byte, 64*1024)
	for i := range chunk {
		chunk[i] = byte(i)
	}
	for n > 0 {
		w := chunk
		if n < int64(len(chunk)) {
			w = chunk[:n]
		}
		if _, err := c.Writer.Write(w); err != nil {
			return
		}
		n -= int64(len(w))
	}
}

// Sink handles POST /bandwidth/sink: discards the body so clients can time an
// upload.
func (h *Handler) Sink(c *gin.Context) {
	n, err := io.Copy(io.Discard, io.LimitReader(c.Request.Body, MaxPayloadBytes+1))
	if err != nil {
		response.BadRequest(c, "read failed")
		return
	}
	if n > MaxPayloadBytes {
		response.BadRequest(c, "payload too large")
		return
	}
	c.Status(http.StatusNoContent)
}

// RecordRequest is the body for POST /sessions/:id/bandwidth-tests.
type RecordRequest struct {
	DownloadMbps float64 `json:"download_mbps" binding:"min=0"`
	UploadMbps   float64 `json:"upload_mbps" binding:"min=0"`
	DurationMs   int64   `json:"duration_ms" binding:"min=0"`
}

// Record handles POST /sessions/:id/bandwidth-tests: persists a completed
// measurement. Quality and recommended tier are derived server-side.
func (h *Handler) Record(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	quality, tier := Grade(req.DownloadMbps, req.UploadMbps)
	result := &models.BandwidthTestResult{
		SessionID:       sessionID,
		UserID:          userID,
		DownloadMbps:    req.DownloadMbps,
		UploadMbps:      req.UploadMbps,
		DurationMs:      req.DurationMs,
		Quality:         quality,
		RecommendedTier: tier,
	}
	if err := h.repo.Insert(c.Request.Context(), result); err != nil {
		h.logger.Error("insert bandwidth test failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to record test")
		return
	}
	response.Created(c, result)
}

// DecisionRequest is the body for POST /bandwidth-tests/:id/decision.
type DecisionRequest struct {
	Proceeded  bool   `json:"proceeded"`
	ChosenTier string `json:"chosen_tier" binding:"required,oneof=hd sd audio_only"`
}

// Decision handles POST /bandwidth-tests/:id/decision: records whether the
// user proceeded and which quality they ultimately chose.
func (h *Handler) Decision(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid test id")
		return
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	err = h.repo.RecordDecision(c.Request.Context(), testID, req.Proceeded, req.ChosenTier)
	if errors.Is(err, pgx.ErrNoRows) {
		response.NotFound(c, "test not found")
		return
	}
	if err != nil {
		h.logger.Error("record decision failed", zap.Error(err), zap.String("test_id", testID.String()))
		response.Internal(c, "failed to record decision")
		return
	}
	response.OK(c, gin.H{"recorded": true})
}

// ListBySession handles GET /sessions/:id/bandwidth-tests (host/admin audit).
func (h *Handler) ListBySession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	list, err := h.repo.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("list bandwidth tests failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to list tests")
		return
	}
	response.OK(c, list)
}
