package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
)

// StageRepository defines the interface for pipeline stage data access
type StageRepository interface {
	WithTx(tx *gorm.DB) StageRepository
	CreateBatch(ctx context.Context, stages []*domain.ProjectStage) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ProjectStage, error)
	FindByProjectID(ctx context.Context, projectID uuid.UUID) ([]*domain.ProjectStage, error)
	FindFirstByProject(ctx context.Context, projectID uuid.UUID) (*domain.ProjectStage, error)
	FindNextPending(ctx context.Context, projectID uuid.UUID, afterSeq int) (*domain.ProjectStage, error)
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, expected domain.StageStatus, updates map[string]interface{}) error
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	CountActiveByReviewer(ctx context.Context, reviewerID uuid.UUID) (int64, error)
	CountUnfinished(ctx context.Context, projectID uuid.UUID) (int64, error)
	ReassignActive(ctx context.Context, fromReviewerID, toReviewerID uuid.UUID, area *domain.ReviewArea) ([]*domain.ProjectStage, error)
	FindOverdueInProgress(ctx context.Context, now time.Time) ([]*domain.ProjectStage, error)
}

// stageRepositoryImpl is the GORM implementation of StageRepository
type stageRepositoryImpl struct {
	db *gorm.DB
}

// NewStageRepository creates a new instance of StageRepository
func NewStageRepository(db *gorm.DB) StageRepository {
	return &stageRepositoryImpl{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *stageRepositoryImpl) WithTx(tx *gorm.DB) StageRepository {
	return &stageRepositoryImpl{db: tx}
}

// CreateBatch inserts the full pipeline of a new project
func (r *stageRepositoryImpl) CreateBatch(ctx context.Context, stages []*domain.ProjectStage) error {
	if len(stages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(stages).Error
}

// FindByID finds a stage by its ID
func (r *stageRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProjectStage, error) {
	var stage domain.ProjectStage
	if err := r.db.WithContext(ctx).First(&stage, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &stage, nil
}

// FindByProjectID returns all stages of a project in pipeline order
func (r *stageRepositoryImpl) FindByProjectID(ctx context.Context, projectID uuid.UUID) ([]*domain.ProjectStage, error) {
	var stages []*domain.ProjectStage
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("order_sequence ASC").
		Find(&stages).Error; err != nil {
		return nil, err
	}
	return stages, nil
}

// FindFirstByProject returns the stage with the lowest order sequence
func (r *stageRepositoryImpl) FindFirstByProject(ctx context.Context, projectID uuid.UUID) (*domain.ProjectStage, error) {
	var stage domain.ProjectStage
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("order_sequence ASC").
		First(&stage).Error; err != nil {
		return nil, err
	}
	return &stage, nil
}

// FindNextPending returns the first pending stage strictly after the given
// sequence, or gorm.ErrRecordNotFound when the pipeline has none left
func (r *stageRepositoryImpl) FindNextPending(ctx context.Context, projectID uuid.UUID, afterSeq int) (*domain.ProjectStage, error) {
	var stage domain.ProjectStage
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND order_sequence > ? AND status = ?",
			projectID, afterSeq, domain.StageStatusPending).
		Order("order_sequence ASC").
		First(&stage).Error; err != nil {
		return nil, err
	}
	return &stage, nil
}

// UpdateStatusCAS applies updates only while the stage still holds the
// expected status
func (r *stageRepositoryImpl) UpdateStatusCAS(ctx context.Context, id uuid.UUID, expected domain.StageStatus, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&domain.ProjectStage{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// UpdateFields applies a partial update without a status precondition
func (r *stageRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&domain.ProjectStage{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CountActiveByReviewer returns the reviewer's workload: assigned stages
// still pending or in progress
func (r *stageRepositoryImpl) CountActiveByReviewer(ctx context.Context, reviewerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ProjectStage{}).
		Where("assigned_reviewer_id = ? AND status IN ?",
			reviewerID, []domain.StageStatus{domain.StageStatusPending, domain.StageStatusInProgress}).
		Count(&count).Error
	return count, err
}

// CountUnfinished counts the project's stages not yet completed
func (r *stageRepositoryImpl) CountUnfinished(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ProjectStage{}).
		Where("project_id = ? AND status <> ?", projectID, domain.StageStatusCompleted).
		Count(&count).Error
	return count, err
}

// ReassignActive moves all pending/in-progress stages from one reviewer to
// another, optionally restricted to one area, and returns the rows moved
func (r *stageRepositoryImpl) ReassignActive(ctx context.Context, fromReviewerID, toReviewerID uuid.UUID, area *domain.ReviewArea) ([]*domain.ProjectStage, error) {
	query := r.db.WithContext(ctx).
		Where("assigned_reviewer_id = ? AND status IN ?",
			fromReviewerID, []domain.StageStatus{domain.StageStatusPending, domain.StageStatusInProgress})
	if area != nil {
		query = query.Where("area = ?", *area)
	}

	var stages []*domain.ProjectStage
	if err := query.Find(&stages).Error; err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return stages, nil
	}

	ids := make([]uuid.UUID, len(stages))
	for i, s := range stages {
		ids[i] = s.ID
	}
	if err := r.db.WithContext(ctx).
		Model(&domain.ProjectStage{}).
		Where("id IN ?", ids).
		Update("assigned_reviewer_id", toReviewerID).Error; err != nil {
		return nil, err
	}
	for _, s := range stages {
		s.AssignedReviewerID = &toReviewerID
	}
	return stages, nil
}

// FindOverdueInProgress returns in-progress stages past their due date
func (r *stageRepositoryImpl) FindOverdueInProgress(ctx context.Context, now time.Time) ([]*domain.ProjectStage, error) {
	var stages []*domain.ProjectStage
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?",
			domain.StageStatusInProgress, now).
		Find(&stages).Error; err != nil {
		return nil, err
	}
	return stages, nil
}
