package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-health/telehealth-backend/internal/models"
	"github.com/lumen-health/telehealth-backend/internal/security"
	"github.com/lumen-health/telehealth-backend/pkg/queue"
	"github.com/lumen-health/telehealth-backend/pkg/storage"
)

// auditDocument is the JSON object written to the audit bucket per session.
type auditDocument struct {
	SessionID  string                 `json:"session_id"`
	PracticeID string                 `json:"practice_id"`
	EndedAt    time.Time              `json:"ended_at"`
	ExportedAt time.Time              `json:"exported_at"`
	EventCount int                    `json:"event_count"`
	Events     []models.SecurityEvent `json:"events"`
}

// AuditExporter processes security-audit export jobs: read the ended
// session's security events, upload them as a JSON document to the audit
// bucket.
type AuditExporter struct {
	events *security.Repository
	s3     *storage.S3
	queue  *queue.Queue
	logger *zap.Logger
}

// NewAuditExporter creates an audit export processor.
func NewAuditExporter(events *security.Repository, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *AuditExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditExporter{events: events, s3: s3, queue: q, logger: logger}
}

// Process executes one export job.
func (p *AuditExporter) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAuditExport {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.AuditExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	key := storage.AuditKey(payload.PracticeID.String(), payload.SessionID.String(), payload.EndedAt)
	if _, err := p.s3.HeadObject(ctx, p.s3.AuditBucket(), key); err == nil {
		p.logger.Info("audit export already present", zap.String("s3_key", key))
		return nil
	}

	events, err := p.events.ListBySession(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	doc := auditDocument{
		SessionID:  payload.SessionID.String(),
		PracticeID: payload.PracticeID.String(),
		EndedAt:    payload.EndedAt,
		ExportedAt: time.Now().UTC(),
		EventCount: len(events),
		Events:     events,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	if _, err := p.s3.Upload(ctx, p.s3.AuditBucket(), key, "application/json", bytes.NewReader(body)); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	p.logger.Info("audit export completed",
		zap.String("session_id", payload.SessionID.String()),
		zap.String("s3_key", key),
		zap.Int("events", len(events)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *AuditExporter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("audit export worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("audit export failed", zap.Error(err), zap.String("job_id", job.ID))
			_ = p.queue.Retry(ctx, job)
		}
	}
}
