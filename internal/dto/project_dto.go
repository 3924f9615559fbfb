package dto

import (
	"time"

	"github.com/google/uuid"

	"project-review-api/internal/domain"
)

// CreateProjectRequest is the payload for creating a draft project
type CreateProjectRequest struct {
	Title                   string                 `json:"title" binding:"required,max=255"`
	Description             string                 `json:"description"`
	Priority                domain.ProjectPriority `json:"priority"`
	EstimatedCompletionDate *time.Time             `json:"estimated_completion_date,omitempty"`
}

// UpdateProjectRequest is the payload for editing a draft/rejected project
type UpdateProjectRequest struct {
	Title                   *string                 `json:"title,omitempty"`
	Description             *string                 `json:"description,omitempty"`
	Priority                *domain.ProjectPriority `json:"priority,omitempty"`
	EstimatedCompletionDate *time.Time              `json:"estimated_completion_date,omitempty"`
}

// ChangeProjectStatusRequest is the payload for admin-forced status moves
type ChangeProjectStatusRequest struct {
	Status domain.ProjectStatus `json:"status" binding:"required"`
	Reason string               `json:"reason"`
}

// ProjectResponse is the API view of a project
type ProjectResponse struct {
	ID                      uuid.UUID              `json:"id"`
	Code                    string                 `json:"code"`
	Title                   string                 `json:"title"`
	Description             string                 `json:"description"`
	Status                  domain.ProjectStatus   `json:"status"`
	Priority                domain.ProjectPriority `json:"priority"`
	CurrentArea             *domain.ReviewArea     `json:"current_area,omitempty"`
	ProgressPercentage      float64                `json:"progress_percentage"`
	EstimatedCompletionDate *time.Time             `json:"estimated_completion_date,omitempty"`
	ActualCompletionDate    *time.Time             `json:"actual_completion_date,omitempty"`
	OwnerID                 uuid.UUID              `json:"owner_id"`
	CanBeEdited             bool                   `json:"can_be_edited"`
	CanBeSubmitted          bool                   `json:"can_be_submitted"`
	Stages                  []StageResponse        `json:"stages,omitempty"`
	CreatedAt               time.Time              `json:"created_at"`
	UpdatedAt               time.Time              `json:"updated_at"`
}

// PaginatedProjectsResponse wraps a project list page
type PaginatedProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// ProjectListFilter carries the list query parameters
type ProjectListFilter struct {
	Status   *domain.ProjectStatus
	Priority *domain.ProjectPriority
	OwnerID  *uuid.UUID
	Page     int
	Limit    int
}
