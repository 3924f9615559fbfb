package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
)

// HistoryRepository defines the interface for the append-only audit trail.
// Rows are only ever inserted; there is no update or delete path.
type HistoryRepository interface {
	WithTx(tx *gorm.DB) HistoryRepository
	Create(ctx context.Context, entry *domain.ProjectHistory) error
	ListByProject(ctx context.Context, projectID uuid.UUID, page, limit int) ([]*domain.ProjectHistory, int64, error)
}

// historyRepositoryImpl is the GORM implementation of HistoryRepository
type historyRepositoryImpl struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new instance of HistoryRepository
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepositoryImpl{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *historyRepositoryImpl) WithTx(tx *gorm.DB) HistoryRepository {
	return &historyRepositoryImpl{db: tx}
}

// Create appends an audit entry
func (r *historyRepositoryImpl) Create(ctx context.Context, entry *domain.ProjectHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByProject returns a page of audit entries, newest first
func (r *historyRepositoryImpl) ListByProject(ctx context.Context, projectID uuid.UUID, page, limit int) ([]*domain.ProjectHistory, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.ProjectHistory{}).
		Where("project_id = ?", projectID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*domain.ProjectHistory
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
