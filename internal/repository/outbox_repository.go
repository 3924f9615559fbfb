package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
)

// OutboxRepository defines the interface for notification outbox rows
type OutboxRepository interface {
	WithTx(tx *gorm.DB) OutboxRepository
	Create(ctx context.Context, event *domain.OutboxEvent) error
	FindPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailedAttempt(ctx context.Context, id uuid.UUID, terminal bool) error
}

// outboxRepositoryImpl is the GORM implementation of OutboxRepository
type outboxRepositoryImpl struct {
	db *gorm.DB
}

// NewOutboxRepository creates a new instance of OutboxRepository
func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepositoryImpl{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *outboxRepositoryImpl) WithTx(tx *gorm.DB) OutboxRepository {
	return &outboxRepositoryImpl{db: tx}
}

// Create inserts an outbox row; callers do this inside the transaction of
// the transition the event announces
func (r *outboxRepositoryImpl) Create(ctx context.Context, event *domain.OutboxEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// FindPending returns the oldest pending events up to limit
func (r *outboxRepositoryImpl) FindPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var events []*domain.OutboxEvent
	if err := r.db.WithContext(ctx).
		Where("status = ?", domain.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// MarkPublished records successful delivery
func (r *outboxRepositoryImpl) MarkPublished(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&domain.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       domain.OutboxStatusPublished,
			"published_at": now,
		}).Error
}

// MarkFailedAttempt bumps the attempt counter; terminal failures stop retrying
func (r *outboxRepositoryImpl) MarkFailedAttempt(ctx context.Context, id uuid.UUID, terminal bool) error {
	updates := map[string]interface{}{
		"attempts": gorm.Expr("attempts + 1"),
	}
	if terminal {
		updates["status"] = domain.OutboxStatusFailed
	}
	return r.db.WithContext(ctx).
		Model(&domain.OutboxEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}
