package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit action tags recorded by the history trail
const (
	ActionProjectCreated   = "project_created"
	ActionProjectSubmitted = "project_submitted"
	ActionStatusChanged    = "status_changed"
	ActionProjectDeleted   = "project_deleted"
	ActionStageStarted     = "stage_started"
	ActionStageCompleted   = "stage_completed"
	ActionStageFailed      = "stage_failed"
	ActionStageProgress    = "stage_progress_updated"
	ActionStageExtended    = "stage_due_date_extended"
	ActionStageReassigned  = "stage_reassigned"
	ActionDocumentUploaded = "document_uploaded"
	ActionDocumentStatus   = "document_status_changed"
	ActionDocumentDeleted  = "document_deleted"
	ActionFeedbackAdded    = "feedback_added"
	ActionFeedbackResolved = "feedback_resolved"
	ActionFeedbackReopened = "feedback_reopened"
)

// ActorType identifies what kind of actor performed an audited action
type ActorType string

const (
	ActorTypeUser     ActorType = "user"
	ActorTypeReviewer ActorType = "reviewer"
	ActorTypeSystem   ActorType = "system"
)

// ProjectHistory is the append-only audit trail. Rows are never updated or
// deleted; before/after snapshots are stored as JSON.
type ProjectHistory struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_project_history_project" json:"project_id"`
	ActorID     uuid.UUID      `gorm:"type:uuid;not null" json:"actor_id"`
	ActorType   ActorType      `gorm:"type:varchar(20);not null;default:'user'" json:"actor_type"`
	Action      string         `gorm:"type:varchar(50);not null;index:idx_project_history_action" json:"action"`
	Description string         `gorm:"type:text" json:"description"`
	BeforeValue datatypes.JSON `gorm:"type:jsonb" json:"before_value,omitempty"`
	AfterValue  datatypes.JSON `gorm:"type:jsonb" json:"after_value,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index:idx_project_history_created" json:"created_at"`
}

// TableName specifies the table name for ProjectHistory
func (ProjectHistory) TableName() string {
	return "project_history"
}

// BeforeCreate assigns the row ID application-side
func (h *ProjectHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
