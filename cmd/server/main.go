// Package main runs the telehealth coordination HTTP server with WebSocket
// realtime and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	webrtc "github.com/pion/webrtc/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumen-health/telehealth-backend/config"
	"github.com/lumen-health/telehealth-backend/internal/auth"
	"github.com/lumen-health/telehealth-backend/internal/bandwidth"
	"github.com/lumen-health/telehealth-backend/internal/middleware"
	"github.com/lumen-health/telehealth-backend/internal/models"
	"github.com/lumen-health/telehealth-backend/internal/quality"
	"github.com/lumen-health/telehealth-backend/internal/realtime"
	"github.com/lumen-health/telehealth-backend/internal/security"
	"github.com/lumen-health/telehealth-backend/internal/sessions"
	"github.com/lumen-health/telehealth-backend/internal/waitingroom"
	"github.com/lumen-health/telehealth-backend/pkg/database"
	"github.com/lumen-health/telehealth-backend/pkg/queue"
	"github.com/lumen-health/telehealth-backend/pkg/redis"
	"github.com/lumen-health/telehealth-backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	monitor := quality.NewMonitor()

	iceServers := make([]webrtc.ICEServer, 0, len(cfg.WebRTC.ICEUrls))
	for _, u := range cfg.WebRTC.ICEUrls {
		if u != "" {
			iceServers = append(iceServers, webrtc.ICEServer{URLs: []string{u}})
		}
	}

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Sessions + participants
	sessionRepo := sessions.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	sessionHandler := sessions.NewHandler(sessionRepo, monitor, jobQueue, iceServers, cfg.Telehealth.MaxParticipants, logger)

	// Waiting room
	wrRepo := waitingroom.NewRepository(pool)
	wrService := waitingroom.NewService(wrRepo, hub, logger)
	wrHandler := waitingroom.NewHandler(wrService, logger)

	// Bandwidth probe
	bwRepo := bandwidth.NewRepository(pool)
	bwHandler := bandwidth.NewHandler(bwRepo, cfg.Telehealth.ProbePayloadBytes, logger)

	// Security events
	secRepo := security.NewRepository(pool)
	limiter := security.NewLimiter(
		security.NewRedisCounter(rdb.Client),
		cfg.Telehealth.SecurityEventRateLimit,
		time.Duration(cfg.Telehealth.SecurityEventRateWindow)*time.Second,
	)
	secHandler := security.NewHandler(secRepo, limiter, logger)

	// Participant rows follow WS presence: connected on register,
	// disconnected on unregister, reconnecting via client signal.
	hub.SetPresenceHandlers(
		func(sessionID, userID uuid.UUID) {
			_ = sessionRepo.UpsertParticipant(context.Background(), sessionID, userID, models.ConnectionConnected)
		},
		func(sessionID, userID uuid.UUID) {
			_ = sessionRepo.MarkParticipantLeft(context.Background(), sessionID, userID)
		},
	)
	onState := func(sessionID, userID uuid.UUID, state string) {
		switch state {
		case models.ConnectionNew, models.ConnectionConnected, models.ConnectionReconnecting, models.ConnectionDisconnected:
			_ = sessionRepo.UpsertParticipant(context.Background(), sessionID, userID, state)
		}
	}

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Probe transfer endpoints (public: they carry no data, and the probe
	// runs before the client has joined anything)
	router.GET("/bandwidth/payload", bwHandler.Payload)
	router.POST("/bandwidth/sink", bwHandler.Sink)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Sessions
		api.POST("/sessions", middleware.RequireRole(models.RoleClinician, models.RoleAdmin), sessionHandler.Create)
		api.GET("/sessions/:id", sessionHandler.Get)
		api.POST("/sessions/:id/start", middleware.RequireRole(models.RoleClinician, models.RoleAdmin), sessionHandler.Start)
		api.POST("/sessions/:id/end", middleware.RequireRole(models.RoleClinician, models.RoleAdmin), sessionHandler.End)
		api.GET("/sessions/:id/quality", sessionHandler.Quality)
		api.GET("/sessions/:id/rtc-config", sessionHandler.RTCConfig)

		// Waiting room
		api.POST("/sessions/:id/waiting-room/join", wrHandler.Join)
		api.GET("/sessions/:id/waiting-room", middleware.RequireRole(models.RoleClinician, models.RoleAdmin), wrHandler.List)
		api.POST("/waiting-room/:id/admit", middleware.RequireRole(models.RoleClinician, models.RoleAdmin), wrHandler.Admit)
		api.POST("/waiting-room/:id/deny", middleware.RequireRole(models.RoleClinician, models.RoleAdmin), wrHandler.Deny)

		// Bandwidth tests
		api.POST("/sessions/:id/bandwidth-tests", bwHandler.Record)
		api.GET("/sessions/:id/bandwidth-tests", middleware.RequireRole(models.RoleClinician, models.RoleAdmin), bwHandler.ListBySession)
		api.POST("/bandwidth-tests/:id/decision", bwHandler.Decision)

		// Security events
		api.POST("/sessions/:id/security-events", secHandler.Report)
		api.GET("/sessions/:id/security-events", middleware.RequireRole(models.RoleClinician, models.RoleAdmin), secHandler.ListBySession)
	}

	// WebSocket (token in query; no Authorization header on browser WS dials)
	router.GET("/ws", func(c *gin.Context) {
		realtime.ServeWs(hub, monitor, logger, jwtValidate, onState)(c)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
