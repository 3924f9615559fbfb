package dto

import (
	"github.com/google/uuid"

	"project-review-api/internal/domain"
)

// CreateReviewerRequest is the payload for registering a reviewer
type CreateReviewerRequest struct {
	Name  string              `json:"name" binding:"required,max=255"`
	Email string              `json:"email" binding:"required,email"`
	Role  domain.ReviewerRole `json:"role"`
	Areas []domain.ReviewArea `json:"areas"`
}

// UpdateReviewerRequest updates reviewer metadata and area grants
type UpdateReviewerRequest struct {
	Name     *string              `json:"name,omitempty"`
	Role     *domain.ReviewerRole `json:"role,omitempty"`
	IsActive *bool                `json:"is_active,omitempty"`
	Areas    *[]domain.ReviewArea `json:"areas,omitempty"`
}

// ReassignStagesRequest bulk-moves active stages between reviewers
type ReassignStagesRequest struct {
	FromReviewerID uuid.UUID          `json:"from_reviewer_id" binding:"required"`
	ToReviewerID   uuid.UUID          `json:"to_reviewer_id" binding:"required"`
	Area           *domain.ReviewArea `json:"area,omitempty"`
}

// ReviewerResponse is the API view of a reviewer with current workload
type ReviewerResponse struct {
	ID       uuid.UUID           `json:"id"`
	Name     string              `json:"name"`
	Email    string              `json:"email"`
	Role     domain.ReviewerRole `json:"role"`
	IsActive bool                `json:"is_active"`
	Areas    []domain.ReviewArea `json:"areas"`
	Workload int64               `json:"workload"`
}
