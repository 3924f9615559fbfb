package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
)

// FeedbackRepository defines the interface for feedback data access
type FeedbackRepository interface {
	WithTx(tx *gorm.DB) FeedbackRepository
	Create(ctx context.Context, feedback *domain.ProjectFeedback) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ProjectFeedback, error)
	Update(ctx context.Context, feedback *domain.ProjectFeedback) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.ProjectFeedback, error)
	ListUnresolvedBlocking(ctx context.Context, projectID uuid.UUID, stageID *uuid.UUID) ([]*domain.ProjectFeedback, error)
}

// feedbackRepositoryImpl is the GORM implementation of FeedbackRepository
type feedbackRepositoryImpl struct {
	db *gorm.DB
}

// NewFeedbackRepository creates a new instance of FeedbackRepository
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepositoryImpl{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *feedbackRepositoryImpl) WithTx(tx *gorm.DB) FeedbackRepository {
	return &feedbackRepositoryImpl{db: tx}
}

// Create inserts a new feedback item
func (r *feedbackRepositoryImpl) Create(ctx context.Context, feedback *domain.ProjectFeedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}

// FindByID finds a feedback item by its ID
func (r *feedbackRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProjectFeedback, error) {
	var feedback domain.ProjectFeedback
	if err := r.db.WithContext(ctx).First(&feedback, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &feedback, nil
}

// Update saves all fields of a feedback item
func (r *feedbackRepositoryImpl) Update(ctx context.Context, feedback *domain.ProjectFeedback) error {
	return r.db.WithContext(ctx).Save(feedback).Error
}

// ListByProject returns the project's root feedback items with their replies
func (r *feedbackRepositoryImpl) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.ProjectFeedback, error) {
	var feedback []*domain.ProjectFeedback
	if err := r.db.WithContext(ctx).
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("project_id = ? AND parent_feedback_id IS NULL", projectID).
		Order("created_at DESC").
		Find(&feedback).Error; err != nil {
		return nil, err
	}
	return feedback, nil
}

// ListUnresolvedBlocking returns unresolved critical or requirement items,
// optionally restricted to one stage. Advisory input for summaries.
func (r *feedbackRepositoryImpl) ListUnresolvedBlocking(ctx context.Context, projectID uuid.UUID, stageID *uuid.UUID) ([]*domain.ProjectFeedback, error) {
	query := r.db.WithContext(ctx).
		Where("project_id = ? AND is_resolved = ?", projectID, false).
		Where("priority = ? OR type = ?", domain.FeedbackPriorityCritical, domain.FeedbackTypeRequirement)
	if stageID != nil {
		query = query.Where("stage_id = ?", *stageID)
	}

	var feedback []*domain.ProjectFeedback
	if err := query.Order("created_at ASC").Find(&feedback).Error; err != nil {
		return nil, err
	}
	return feedback, nil
}
