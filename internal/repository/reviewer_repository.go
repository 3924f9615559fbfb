package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
)

// ReviewerRepository defines the interface for reviewer data access
type ReviewerRepository interface {
	WithTx(tx *gorm.DB) ReviewerRepository
	Create(ctx context.Context, reviewer *domain.Reviewer) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Reviewer, error)
	FindByEmail(ctx context.Context, email string) (*domain.Reviewer, error)
	Update(ctx context.Context, reviewer *domain.Reviewer) error
	ReplaceAreas(ctx context.Context, reviewerID uuid.UUID, areas []domain.ReviewArea) error
	FindActiveByArea(ctx context.Context, area domain.ReviewArea) ([]*domain.Reviewer, error)
	List(ctx context.Context) ([]*domain.Reviewer, error)
}

// reviewerRepositoryImpl is the GORM implementation of ReviewerRepository
type reviewerRepositoryImpl struct {
	db *gorm.DB
}

// NewReviewerRepository creates a new instance of ReviewerRepository
func NewReviewerRepository(db *gorm.DB) ReviewerRepository {
	return &reviewerRepositoryImpl{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *reviewerRepositoryImpl) WithTx(tx *gorm.DB) ReviewerRepository {
	return &reviewerRepositoryImpl{db: tx}
}

// Create inserts a reviewer with its area grant rows
func (r *reviewerRepositoryImpl) Create(ctx context.Context, reviewer *domain.Reviewer) error {
	return r.db.WithContext(ctx).Create(reviewer).Error
}

// FindByID finds a reviewer with area grants preloaded
func (r *reviewerRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Reviewer, error) {
	var reviewer domain.Reviewer
	if err := r.db.WithContext(ctx).
		Preload("Areas").
		First(&reviewer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reviewer, nil
}

// FindByEmail finds a reviewer by email
func (r *reviewerRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.Reviewer, error) {
	var reviewer domain.Reviewer
	if err := r.db.WithContext(ctx).
		Preload("Areas").
		First(&reviewer, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &reviewer, nil
}

// Update saves reviewer metadata (area rows are replaced separately)
func (r *reviewerRepositoryImpl) Update(ctx context.Context, reviewer *domain.Reviewer) error {
	return r.db.WithContext(ctx).Omit("Areas").Save(reviewer).Error
}

// ReplaceAreas swaps the reviewer's area grant rows for the given set
func (r *reviewerRepositoryImpl) ReplaceAreas(ctx context.Context, reviewerID uuid.UUID, areas []domain.ReviewArea) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reviewer_id = ?", reviewerID).
			Delete(&domain.ReviewerArea{}).Error; err != nil {
			return err
		}
		rows := make([]domain.ReviewerArea, 0, len(areas))
		for _, area := range areas {
			rows = append(rows, domain.ReviewerArea{
				ID:         uuid.New(),
				ReviewerID: reviewerID,
				Area:       area,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

// FindActiveByArea returns active reviewers holding an explicit grant for
// the area or the wildcard grant
func (r *reviewerRepositoryImpl) FindActiveByArea(ctx context.Context, area domain.ReviewArea) ([]*domain.Reviewer, error) {
	var reviewers []*domain.Reviewer
	if err := r.db.WithContext(ctx).
		Preload("Areas").
		Joins("JOIN reviewer_areas ON reviewer_areas.reviewer_id = reviewers.id").
		Where("reviewers.is_active = ? AND reviewer_areas.area IN ?",
			true, []domain.ReviewArea{area, domain.AreaAll}).
		Distinct("reviewers.*").
		Find(&reviewers).Error; err != nil {
		return nil, err
	}
	return reviewers, nil
}

// List returns all reviewers with area grants preloaded
func (r *reviewerRepositoryImpl) List(ctx context.Context) ([]*domain.Reviewer, error) {
	var reviewers []*domain.Reviewer
	if err := r.db.WithContext(ctx).
		Preload("Areas").
		Order("name ASC").
		Find(&reviewers).Error; err != nil {
		return nil, err
	}
	return reviewers, nil
}
