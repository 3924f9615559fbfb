package domain

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackType classifies a feedback item
type FeedbackType string

const (
	FeedbackTypeComment     FeedbackType = "comment"
	FeedbackTypeRequirement FeedbackType = "requirement"
	FeedbackTypeSuggestion  FeedbackType = "suggestion"
	FeedbackTypeWarning     FeedbackType = "warning"
	FeedbackTypeError       FeedbackType = "error"
)

// IsValid reports whether the type is a known enum value
func (t FeedbackType) IsValid() bool {
	switch t {
	case FeedbackTypeComment, FeedbackTypeRequirement, FeedbackTypeSuggestion,
		FeedbackTypeWarning, FeedbackTypeError:
		return true
	}
	return false
}

// FeedbackPriority represents the urgency of a feedback item
type FeedbackPriority string

const (
	FeedbackPriorityLow      FeedbackPriority = "low"
	FeedbackPriorityMedium   FeedbackPriority = "medium"
	FeedbackPriorityHigh     FeedbackPriority = "high"
	FeedbackPriorityCritical FeedbackPriority = "critical"
)

// IsValid reports whether the priority is a known enum value
func (p FeedbackPriority) IsValid() bool {
	switch p {
	case FeedbackPriorityLow, FeedbackPriorityMedium, FeedbackPriorityHigh, FeedbackPriorityCritical:
		return true
	}
	return false
}

// ProjectFeedback represents a reviewer comment or requirement on a project,
// optionally tied to a stage. Threading is a single level: replies reference
// a root item and must belong to the same project.
type ProjectFeedback struct {
	BaseModel
	ProjectID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_feedback_project_id" json:"project_id"`
	StageID          *uuid.UUID       `gorm:"type:uuid;index:idx_feedback_stage_id" json:"stage_id,omitempty"`
	ParentFeedbackID *uuid.UUID       `gorm:"type:uuid;index:idx_feedback_parent_id" json:"parent_feedback_id,omitempty"`
	AuthorID         uuid.UUID        `gorm:"type:uuid;not null" json:"author_id"`
	Type             FeedbackType     `gorm:"type:varchar(20);not null;default:'comment'" json:"type"`
	Priority         FeedbackPriority `gorm:"type:varchar(20);not null;default:'medium';index:idx_feedback_priority" json:"priority"`
	Content          string           `gorm:"type:text;not null" json:"content"`
	IsResolved       bool             `gorm:"not null;default:false;index:idx_feedback_resolved" json:"is_resolved"`
	ResolvedBy       *uuid.UUID       `gorm:"type:uuid" json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time       `gorm:"type:timestamp" json:"resolved_at,omitempty"`
	ResolutionNote   string            `gorm:"type:text" json:"resolution_note"`
	Replies          []ProjectFeedback `gorm:"foreignKey:ParentFeedbackID" json:"replies,omitempty"`
}

// TableName specifies the table name for ProjectFeedback
func (ProjectFeedback) TableName() string {
	return "project_feedback"
}

// IsBlocking reports whether an unresolved item is a blocking signal:
// critical priority or requirement type. Advisory only; it never gates a
// transition programmatically.
func (f *ProjectFeedback) IsBlocking() bool {
	if f.IsResolved {
		return false
	}
	return f.Priority == FeedbackPriorityCritical || f.Type == FeedbackTypeRequirement
}
