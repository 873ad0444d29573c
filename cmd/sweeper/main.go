// Package main runs the background worker: the waiting-room timeout sweep on
// a fixed cadence and the security-audit export consumer.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumen-health/telehealth-backend/config"
	"github.com/lumen-health/telehealth-backend/internal/realtime"
	"github.com/lumen-health/telehealth-backend/internal/security"
	"github.com/lumen-health/telehealth-backend/internal/sweeper"
	"github.com/lumen-health/telehealth-backend/internal/worker"
	"github.com/lumen-health/telehealth-backend/pkg/database"
	"github.com/lumen-health/telehealth-backend/pkg/queue"
	"github.com/lumen-health/telehealth-backend/pkg/redis"
	"github.com/lumen-health/telehealth-backend/pkg/storage"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Swept entries still need to reach session watchers on the server
	// instances; publishing through Redis covers every instance.
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)

	sweepRepo := sweeper.NewRepository(pool)
	sw := sweeper.New(
		sweepRepo,
		publisherNotifier{redisPubSub},
		cfg.Telehealth.WaitingRoomTimeoutMinutes,
		time.Duration(cfg.Telehealth.SweepIntervalSeconds)*time.Second,
		logger,
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sw.Run(workerCtx)
	logger.Info("sweeper started",
		zap.Int("interval_sec", cfg.Telehealth.SweepIntervalSeconds),
		zap.Int("default_timeout_min", cfg.Telehealth.WaitingRoomTimeoutMinutes))

	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			AuditBucket:     cfg.AWS.AuditBucket,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		secRepo := security.NewRepository(pool)
		jobQueue := queue.NewQueue(rdb.Client, logger)
		exporter := worker.NewAuditExporter(secRepo, s3Client, jobQueue, logger)
		go exporter.Run(workerCtx)
		logger.Info("audit export worker started", zap.String("bucket", cfg.AWS.AuditBucket))
	} else {
		logger.Warn("audit export worker disabled (AWS_REGION not set)")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

// publisherNotifier adapts the Redis publisher to the sweeper's Notifier: the
// worker has no local WebSocket clients, so every notification goes through
// Redis.
type publisherNotifier struct {
	pub *realtime.RedisPubSub
}

func (n publisherNotifier) NotifySession(sessionID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = n.pub.PublishSessionEvent(sessionID, event, data)
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
