package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
)

// DocumentRepository defines the interface for document data access
type DocumentRepository interface {
	WithTx(tx *gorm.DB) DocumentRepository
	Create(ctx context.Context, document *domain.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	FindLatest(ctx context.Context, projectID uuid.UUID, area domain.ReviewArea, name string) (*domain.Document, error)
	MarkSuperseded(ctx context.Context, id uuid.UUID) error
	Update(ctx context.Context, document *domain.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProject(ctx context.Context, projectID uuid.UUID, latestOnly bool) ([]*domain.Document, error)
	ListVersions(ctx context.Context, projectID uuid.UUID, area domain.ReviewArea, name string) ([]*domain.Document, error)
	CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
}

// documentRepositoryImpl is the GORM implementation of DocumentRepository
type documentRepositoryImpl struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new instance of DocumentRepository
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepositoryImpl{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *documentRepositoryImpl) WithTx(tx *gorm.DB) DocumentRepository {
	return &documentRepositoryImpl{db: tx}
}

// Create inserts a new document version row
func (r *documentRepositoryImpl) Create(ctx context.Context, document *domain.Document) error {
	return r.db.WithContext(ctx).Create(document).Error
}

// FindByID finds a document by its ID
func (r *documentRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	var document domain.Document
	if err := r.db.WithContext(ctx).First(&document, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &document, nil
}

// FindLatest returns the current authoritative version of a named document
// within a project/area, or gorm.ErrRecordNotFound for a fresh chain
func (r *documentRepositoryImpl) FindLatest(ctx context.Context, projectID uuid.UUID, area domain.ReviewArea, name string) (*domain.Document, error) {
	var document domain.Document
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND area = ? AND name = ? AND is_latest = ?",
			projectID, area, name, true).
		First(&document).Error; err != nil {
		return nil, err
	}
	return &document, nil
}

// MarkSuperseded flips is_latest off on a prior version. File content and
// review fields of the old row stay untouched.
func (r *documentRepositoryImpl) MarkSuperseded(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Update("is_latest", false).Error
}

// Update saves all fields of a document
func (r *documentRepositoryImpl) Update(ctx context.Context, document *domain.Document) error {
	return r.db.WithContext(ctx).Save(document).Error
}

// Delete removes a document version row permanently
func (r *documentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&domain.Document{}, "id = ?", id).Error
}

// ListByProject returns a project's documents, optionally only latest versions
func (r *documentRepositoryImpl) ListByProject(ctx context.Context, projectID uuid.UUID, latestOnly bool) ([]*domain.Document, error) {
	query := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if latestOnly {
		query = query.Where("is_latest = ?", true)
	}

	var documents []*domain.Document
	if err := query.
		Order("area ASC, name ASC, version DESC").
		Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}

// ListVersions returns the full version chain of one named document
func (r *documentRepositoryImpl) ListVersions(ctx context.Context, projectID uuid.UUID, area domain.ReviewArea, name string) ([]*domain.Document, error) {
	var documents []*domain.Document
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND area = ? AND name = ?", projectID, area, name).
		Order("version DESC").
		Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}

// CountByProject counts all document rows of a project
func (r *documentRepositoryImpl) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	return count, err
}
