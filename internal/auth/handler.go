package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-health/telehealth-backend/internal/models"
	"github.com/lumen-health/telehealth-backend/pkg/response"
	"github.com/lumen-health/telehealth-backend/pkg/utils"
)

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("login lookup failed", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	if u == nil || !utils.CheckPassword(req.Password, u.PasswordHash) {
		response.Unauthorized(c, "invalid credentials")
		return
	}
	token, err := h.jwt.Generate(u.ID, u.PracticeID, u.Role)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	response.OK(c, gin.H{
		"token": token,
		"user": gin.H{
			"id":          u.ID,
			"email":       u.Email,
			"full_name":   u.FullName,
			"role":        u.Role,
			"practice_id": u.PracticeID,
		},
	})
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	PracticeID uuid.UUID `json:"practice_id" binding:"required"`
	Email      string    `json:"email" binding:"required,email"`
	Password   string    `json:"password" binding:"required,min=8"`
	FullName   string    `json:"full_name" binding:"required"`
	Role       string    `json:"role" binding:"required,oneof=clinician client admin"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password failed", zap.Error(err))
		response.Internal(c, "registration failed")
		return
	}
	u := &models.User{
		PracticeID:   req.PracticeID,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         req.Role,
	}
	if err := h.repo.Create(c.Request.Context(), u); err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Conflict(c, "email already registered")
		return
	}
	response.Created(c, gin.H{"id": u.ID, "email": u.Email})
}
