package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
	"project-review-api/internal/repository"
)

// OutboxWriter enqueues notification events inside workflow transactions.
// The dispatcher job delivers them after commit; the core only decides when
// an event exists, never how it is delivered.
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx *gorm.DB, eventName string, projectID uuid.UUID, payload map[string]interface{}) error
}

// outboxWriterImpl is the implementation of OutboxWriter
type outboxWriterImpl struct {
	outboxRepo repository.OutboxRepository
	logger     *zap.Logger
}

// NewOutboxWriter creates a new instance of OutboxWriter
func NewOutboxWriter(outboxRepo repository.OutboxRepository, logger *zap.Logger) OutboxWriter {
	return &outboxWriterImpl{outboxRepo: outboxRepo, logger: logger}
}

// Enqueue writes one pending outbox row in the caller's transaction
func (w *outboxWriterImpl) Enqueue(ctx context.Context, tx *gorm.DB, eventName string, projectID uuid.UUID, payload map[string]interface{}) error {
	var raw datatypes.JSON
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			w.logger.Error("Failed to marshal outbox payload",
				zap.String("event", eventName),
				zap.Error(err))
			return err
		}
		raw = datatypes.JSON(b)
	}

	repo := w.outboxRepo
	if tx != nil {
		repo = w.outboxRepo.WithTx(tx)
	}
	return repo.Create(ctx, &domain.OutboxEvent{
		EventName: eventName,
		ProjectID: projectID,
		Payload:   raw,
		Status:    domain.OutboxStatusPending,
	})
}
