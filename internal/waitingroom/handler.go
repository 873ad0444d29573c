package waitingroom

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-health/telehealth-backend/internal/middleware"
	"github.com/lumen-health/telehealth-backend/internal/models"
	"github.com/lumen-health/telehealth-backend/pkg/response"
)

// Handler handles waiting room HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a waiting room handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// JoinRequest is the body for POST /sessions/:id/waiting-room/join.
type JoinRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// Join handles POST /sessions/:id/waiting-room/join (the joining client).
func (h *Handler) Join(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	entry, err := h.svc.Join(c.Request.Context(), sessionID, userID, req.DisplayName)
	switch {
	case errors.Is(err, ErrDuplicateEntry):
		response.Conflict(c, "already waiting for this session")
	case errors.Is(err, ErrSessionNotFound):
		response.NotFound(c, "session not found")
	case errors.Is(err, ErrSessionEnded):
		response.Conflict(c, "session has ended")
	case err != nil:
		h.logger.Error("waiting room join failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to join waiting room")
	default:
		response.Created(c, entry)
	}
}

// List handles GET /sessions/:id/waiting-room (host view: queue + occupancy).
func (h *Handler) List(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	entries, err := h.svc.ListWaiting(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("list waiting failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to list waiting room")
		return
	}
	current, max, err := h.svc.Occupancy(c.Request.Context(), sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		response.NotFound(c, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("occupancy failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to read occupancy")
		return
	}
	response.OK(c, gin.H{
		"entries":              entries,
		"current_participants": current,
		"max_participants":     max,
	})
}

// Admit handles POST /waiting-room/:id/admit (host action).
func (h *Handler) Admit(c *gin.Context) {
	h.resolve(c, "admit", h.svc.Admit)
}

// Deny handles POST /waiting-room/:id/deny (host action).
func (h *Handler) Deny(c *gin.Context) {
	h.resolve(c, "deny", h.svc.Deny)
}

func (h *Handler) resolve(c *gin.Context, name string,
	action func(ctx context.Context, entryID, actorID uuid.UUID) (*models.WaitingRoomEntry, error)) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid entry id")
		return
	}
	actorID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	entry, err := action(c.Request.Context(), entryID, actorID)
	switch {
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(c, "entry is no longer waiting")
	case errors.Is(err, ErrCapacityExceeded):
		response.Conflict(c, "session is at capacity")
	case errors.Is(err, ErrSessionNotFound):
		response.NotFound(c, "session not found")
	case err != nil:
		h.logger.Error("waiting room "+name+" failed", zap.Error(err), zap.String("entry_id", entryID.String()))
		response.Internal(c, "failed to "+name)
	default:
		response.OK(c, entry)
	}
}
