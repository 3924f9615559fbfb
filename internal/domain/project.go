package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProjectStatus represents the lifecycle status of a project
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusSubmitted ProjectStatus = "submitted"
	ProjectStatusInReview  ProjectStatus = "in_review"
	ProjectStatusApproved  ProjectStatus = "approved"
	ProjectStatusRejected  ProjectStatus = "rejected"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
)

// ProjectPriority represents the priority of a project
type ProjectPriority string

const (
	PriorityLow      ProjectPriority = "low"
	PriorityMedium   ProjectPriority = "medium"
	PriorityHigh     ProjectPriority = "high"
	PriorityCritical ProjectPriority = "critical"
)

// projectTransitions is the set of allowed status transitions.
// approved and rejected are terminal.
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusDraft:     {ProjectStatusSubmitted},
	ProjectStatusSubmitted: {ProjectStatusInReview, ProjectStatusRejected, ProjectStatusOnHold},
	ProjectStatusInReview:  {ProjectStatusApproved, ProjectStatusRejected, ProjectStatusOnHold},
	ProjectStatusOnHold:    {ProjectStatusInReview, ProjectStatusRejected},
}

// Project represents a project moving through the departmental review pipeline
type Project struct {
	BaseModel
	Code                    string          `gorm:"type:varchar(32);not null;uniqueIndex:uq_projects_code" json:"code"`
	CodeYear                int             `gorm:"not null;index:idx_projects_code_year" json:"code_year"`
	CodeSeq                 int             `gorm:"not null" json:"code_seq"`
	Title                   string          `gorm:"type:varchar(255);not null" json:"title"`
	Description             string          `gorm:"type:text" json:"description"`
	Status                  ProjectStatus   `gorm:"type:varchar(20);not null;default:'draft';index:idx_projects_status" json:"status"`
	Priority                ProjectPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	CurrentArea             *ReviewArea     `gorm:"type:varchar(50)" json:"current_area,omitempty"`
	ProgressPercentage      float64         `gorm:"not null;default:0" json:"progress_percentage"`
	EstimatedCompletionDate *time.Time      `gorm:"type:timestamp" json:"estimated_completion_date,omitempty"`
	ActualCompletionDate    *time.Time      `gorm:"type:timestamp" json:"actual_completion_date,omitempty"`
	OwnerID                 uuid.UUID       `gorm:"type:uuid;not null;index:idx_projects_owner_id" json:"owner_id"`
	Stages                  []ProjectStage  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"stages,omitempty"`
}

// TableName specifies the table name for Project
func (Project) TableName() string {
	return "projects"
}

// BuildProjectCode formats the human-readable project code: PROJ-<year>-<seq>
func BuildProjectCode(year, seq int) string {
	return fmt.Sprintf("PROJ-%d-%03d", year, seq)
}

// CanTransitionTo reports whether the project status may move to target
func (p *Project) CanTransitionTo(target ProjectStatus) bool {
	for _, allowed := range projectTransitions[p.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectStatusApproved || s == ProjectStatusRejected
}

// IsValid reports whether the status is a known enum value
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusSubmitted, ProjectStatusInReview,
		ProjectStatusApproved, ProjectStatusRejected, ProjectStatusOnHold:
		return true
	}
	return false
}

// IsValid reports whether the priority is a known enum value
func (p ProjectPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// CanBeEdited reports whether the project contents may still be modified
func (p *Project) CanBeEdited() bool {
	return p.Status == ProjectStatusDraft || p.Status == ProjectStatusRejected
}

// CanBeSubmitted reports whether the project may enter the review pipeline
func (p *Project) CanBeSubmitted() bool {
	return p.Status == ProjectStatusDraft
}
