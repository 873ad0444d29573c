package security

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-health/telehealth-backend/internal/middleware"
	"github.com/lumen-health/telehealth-backend/internal/models"
	"github.com/lumen-health/telehealth-backend/pkg/response"
)

// Handler handles security event HTTP endpoints.
type Handler struct {
	repo    *Repository
	limiter *Limiter
	logger  *zap.Logger
}

// NewHandler creates a security handler.
func NewHandler(repo *Repository, limiter *Limiter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, limiter: limiter, logger: logger}
}

// ReportRequest is the body for POST /sessions/:id/security-events.
type ReportRequest struct {
	EventType   string            `json:"event_type" binding:"required"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Report handles POST /sessions/:id/security-events. Ingestion is
// best-effort: persistence failures are logged server-side and the client
// still gets 202, so a logging failure can never disturb the session. Each
// report is independent; one failed write does not affect the next.
func (h *Handler) Report(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	if h.limiter != nil && !h.limiter.Allow(c.Request.Context(), userID.String(), req.EventType) {
		response.TooManyRequests(c, "too many events")
		return
	}

	meta := req.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	if ua := c.GetHeader("User-Agent"); ua != "" {
		meta["user_agent"] = ua
	}
	raw, _ := json.Marshal(meta)

	event := &models.SecurityEvent{
		SessionID:   sessionID,
		UserID:      userID,
		EventType:   req.EventType,
		Description: req.Description,
		Severity:    SeverityFor(req.EventType),
		Metadata:    raw,
	}
	if err := h.repo.Insert(c.Request.Context(), event); err != nil {
		h.logger.Error("security event insert failed", zap.Error(err),
			zap.String("session_id", sessionID.String()),
			zap.String("event_type", req.EventType))
		response.Accepted(c, gin.H{"logged": false})
		return
	}
	response.Accepted(c, gin.H{"logged": true, "id": event.ID, "severity": event.Severity})
}

// ListBySession handles GET /sessions/:id/security-events (host/admin review).
func (h *Handler) ListBySession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	list, err := h.repo.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("list security events failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}
