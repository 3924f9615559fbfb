package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
)

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	WithTx(tx *gorm.DB) ProjectRepository
	Create(ctx context.Context, project *domain.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	FindByIDWithStages(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	FindByCode(ctx context.Context, code string) (*domain.Project, error)
	Update(ctx context.Context, project *domain.Project) error
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, expected domain.ProjectStatus, updates map[string]interface{}) error
	UpdateStatusGuarded(ctx context.Context, id uuid.UUID, allowed []domain.ProjectStatus, updates map[string]interface{}) error
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	List(ctx context.Context, status *domain.ProjectStatus, priority *domain.ProjectPriority, ownerID *uuid.UUID, page, limit int) ([]*domain.Project, int64, error)
	NextCodeSeq(ctx context.Context, year int) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindStaleDrafts(ctx context.Context, before time.Time) ([]*domain.Project, error)
}

// projectRepositoryImpl is the GORM implementation of ProjectRepository
type projectRepositoryImpl struct {
	db *gorm.DB
}

// NewProjectRepository creates a new instance of ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepositoryImpl{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *projectRepositoryImpl) WithTx(tx *gorm.DB) ProjectRepository {
	return &projectRepositoryImpl{db: tx}
}

// Create creates a new project
func (r *projectRepositoryImpl) Create(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// FindByID finds a project by its ID
func (r *projectRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project domain.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// FindByIDWithStages finds a project with its pipeline stages in order
func (r *projectRepositoryImpl) FindByIDWithStages(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project domain.Project
	if err := r.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_sequence ASC")
		}).
		First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// FindByCode finds a project by its human-readable code
func (r *projectRepositoryImpl) FindByCode(ctx context.Context, code string) (*domain.Project, error) {
	var project domain.Project
	if err := r.db.WithContext(ctx).First(&project, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Update saves all fields of a project
func (r *projectRepositoryImpl) Update(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

// UpdateStatusCAS applies updates only while the project still holds the
// expected status. The caller always includes the new status in updates.
func (r *projectRepositoryImpl) UpdateStatusCAS(ctx context.Context, id uuid.UUID, expected domain.ProjectStatus, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Project{}).
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

// UpdateStatusGuarded applies updates only while the project status is one
// of the allowed values. Same stale-write contract as UpdateStatusCAS.
func (r *projectRepositoryImpl) UpdateStatusGuarded(ctx context.Context, id uuid.UUID, allowed []domain.ProjectStatus, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ? AND status IN ?", id, allowed).
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
func (r *projectRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// List returns a filtered page of projects plus the total match count
func (r *projectRepositoryImpl) List(ctx context.Context, status *domain.ProjectStatus, priority *domain.ProjectPriority, ownerID *uuid.UUID, page, limit int) ([]*domain.Project, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Project{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if priority != nil {
		query = query.Where("priority = ?", *priority)
	}
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []*domain.Project
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// NextCodeSeq returns the next per-year code sequence.
// Callers run this inside the creation transaction so two concurrent
// creations cannot both observe the same maximum.
func (r *projectRepositoryImpl) NextCodeSeq(ctx context.Context, year int) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("code_year = ?", year).
		Select("COALESCE(MAX(code_seq), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// Delete removes a project row permanently. Only draft projects without
// documents ever reach this path; everything else is immutable history.
func (r *projectRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&domain.Project{}, "id = ?", id).Error
}

// FindStaleDrafts returns drafts created before the cutoff, for the cleanup job
func (r *projectRepositoryImpl) FindStaleDrafts(ctx context.Context, before time.Time) ([]*domain.Project, error) {
	var projects []*domain.Project
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.ProjectStatusDraft, before).
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}
