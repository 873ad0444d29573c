package sessions

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	webrtc "github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/lumen-health/telehealth-backend/internal/middleware"
	"github.com/lumen-health/telehealth-backend/internal/models"
	"github.com/lumen-health/telehealth-backend/internal/quality"
	"github.com/lumen-health/telehealth-backend/pkg/queue"
	"github.com/lumen-health/telehealth-backend/pkg/response"
)

// Handler handles session HTTP endpoints.
type Handler struct {
	repo            *Repository
	monitor         *quality.Monitor
	jobs            *queue.Queue
	iceServers      []webrtc.ICEServer
	defaultMaxParts int
	logger          *zap.Logger
}

// NewHandler creates a sessions handler. jobs may be nil when no audit export
// worker is deployed. defaultMaxParticipants applies when neither the request
// nor the practice settings specify a capacity.
func NewHandler(repo *Repository, monitor *quality.Monitor, jobs *queue.Queue, iceServers []webrtc.ICEServer, defaultMaxParticipants int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultMaxParticipants <= 0 {
		defaultMaxParticipants = 2
	}
	return &Handler{
		repo:            repo,
		monitor:         monitor,
		jobs:            jobs,
		iceServers:      iceServers,
		defaultMaxParts: defaultMaxParticipants,
		logger:          logger,
	}
}

// CreateRequest is the body for POST /sessions.
type CreateRequest struct {
	AppointmentID   *uuid.UUID `json:"appointment_id,omitempty"`
	MaxParticipants int        `json:"max_participants"`
}

// Create handles POST /sessions: converts an appointment into a telehealth
// encounter hosted by the caller.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	hostID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	practiceID := c.MustGet(middleware.ContextPracticeID).(uuid.UUID)

	s := &models.TelehealthSession{
		PracticeID:      practiceID,
		HostID:          hostID,
		AppointmentID:   req.AppointmentID,
		MaxParticipants: req.MaxParticipants,
	}
	if err := h.repo.Create(c.Request.Context(), s, h.defaultMaxParts); err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		response.Internal(c, "failed to create session")
		return
	}
	response.Created(c, s)
}

// Get handles GET /sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	s, ok := h.load(c)
	if !ok {
		return
	}
	participants, err := h.repo.ListParticipants(c.Request.Context(), s.ID)
	if err != nil {
		h.logger.Error("list participants failed", zap.Error(err), zap.String("session_id", s.ID.String()))
		response.Internal(c, "failed to load session")
		return
	}
	response.OK(c, gin.H{"session": s, "participants": participants})
}

// Start handles POST /sessions/:id/start (host).
func (h *Handler) Start(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	s, err := h.repo.Start(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("start session failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to start session")
		return
	}
	if s == nil {
		response.Conflict(c, "session has ended")
		return
	}
	response.OK(c, s)
}

// End handles POST /sessions/:id/end (host). Ending enqueues the session's
// security-audit export; enqueue failure is logged but does not fail the end.
func (h *Handler) End(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	s, err := h.repo.End(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("end session failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to end session")
		return
	}
	if s == nil {
		response.Conflict(c, "session already ended or not found")
		return
	}
	if h.jobs != nil && s.EndedAt != nil {
		err := h.jobs.EnqueueAuditExport(context.WithoutCancel(c.Request.Context()), queue.AuditExportPayload{
			SessionID:  s.ID,
			PracticeID: s.PracticeID,
			EndedAt:    *s.EndedAt,
		})
		if err != nil {
			h.logger.Warn("audit export enqueue failed", zap.Error(err), zap.String("session_id", s.ID.String()))
		}
	}
	response.OK(c, s)
}

// Quality handles GET /sessions/:id/quality: the latest classification for
// every tracked participant.
func (h *Handler) Quality(c *gin.Context) {
	s, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{"session_id": s.ID, "participants": h.monitor.Snapshot(s.ID)})
}

// RTCConfig handles GET /sessions/:id/rtc-config: the ICE servers an admitted
// client needs to bootstrap its media connection.
func (h *Handler) RTCConfig(c *gin.Context) {
	s, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{"session_id": s.ID, "ice_servers": h.iceServers})
}

func (h *Handler) load(c *gin.Context) (*models.TelehealthSession, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return nil, false
	}
	s, err := h.repo.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("get session failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to load session")
		return nil, false
	}
	if s == nil {
		response.NotFound(c, "session not found")
		return nil, false
	}
	return s, true
}
