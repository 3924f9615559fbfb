package dto

import (
	"time"

	"github.com/google/uuid"

	"project-review-api/internal/domain"
)

// CompleteStageRequest is the payload for completing an in-progress stage
type CompleteStageRequest struct {
	Notes string `json:"notes"`
}

// FailStageRequest is the payload for failing an in-progress stage
type FailStageRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// UpdateStageProgressRequest updates completion percentage only
type UpdateStageProgressRequest struct {
	Percentage float64 `json:"percentage" binding:"min=0"`
	Notes      string  `json:"notes"`
}

// ExtendDueDateRequest moves a stage due date
type ExtendDueDateRequest struct {
	DueDate time.Time `json:"due_date" binding:"required"`
	Reason  string    `json:"reason"`
}

// StageResponse is the API view of a pipeline stage
type StageResponse struct {
	ID                   uuid.UUID          `json:"id"`
	ProjectID            uuid.UUID          `json:"project_id"`
	Area                 domain.ReviewArea  `json:"area"`
	Name                 string             `json:"name"`
	Status               domain.StageStatus `json:"status"`
	OrderSequence        int                `json:"order_sequence"`
	AssignedReviewerID   *uuid.UUID         `json:"assigned_reviewer_id,omitempty"`
	StartDate            *time.Time         `json:"start_date,omitempty"`
	EndDate              *time.Time         `json:"end_date,omitempty"`
	DueDate              *time.Time         `json:"due_date,omitempty"`
	CompletionPercentage float64            `json:"completion_percentage"`
	ActualHours          float64            `json:"actual_hours"`
	ReviewerNotes        string             `json:"reviewer_notes"`
	IsOverdue            bool               `json:"is_overdue"`
}

// CompleteStageResponse reports the result of a stage completion, including
// what the pipeline did next and any advisory blocking feedback left open
type CompleteStageResponse struct {
	Stage            StageResponse      `json:"stage"`
	NextStage        *StageResponse     `json:"next_stage,omitempty"`
	ProjectApproved  bool               `json:"project_approved"`
	BlockingFeedback []FeedbackResponse `json:"blocking_feedback,omitempty"`
}
