package dto

import (
	"time"

	"github.com/google/uuid"

	"project-review-api/internal/domain"
)

// AddFeedbackRequest is the payload for creating a feedback item or reply
type AddFeedbackRequest struct {
	StageID          *uuid.UUID              `json:"stage_id,omitempty"`
	ParentFeedbackID *uuid.UUID              `json:"parent_feedback_id,omitempty"`
	Type             domain.FeedbackType     `json:"type" binding:"required"`
	Priority         domain.FeedbackPriority `json:"priority"`
	Content          string                  `json:"content" binding:"required"`
}

// ResolveFeedbackRequest is the payload for resolving a feedback item
type ResolveFeedbackRequest struct {
	Note string `json:"note"`
}

// ReopenFeedbackRequest is the payload for reopening a resolved item
type ReopenFeedbackRequest struct {
	Reason string `json:"reason"`
}

// FeedbackResponse is the API view of a feedback item
type FeedbackResponse struct {
	ID               uuid.UUID               `json:"id"`
	ProjectID        uuid.UUID               `json:"project_id"`
	StageID          *uuid.UUID              `json:"stage_id,omitempty"`
	ParentFeedbackID *uuid.UUID              `json:"parent_feedback_id,omitempty"`
	AuthorID         uuid.UUID               `json:"author_id"`
	Type             domain.FeedbackType     `json:"type"`
	Priority         domain.FeedbackPriority `json:"priority"`
	Content          string                  `json:"content"`
	IsResolved       bool                    `json:"is_resolved"`
	ResolvedBy       *uuid.UUID              `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time              `json:"resolved_at,omitempty"`
	ResolutionNote   string                  `json:"resolution_note,omitempty"`
	IsBlocking       bool                    `json:"is_blocking"`
	Replies          []FeedbackResponse      `json:"replies,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}
