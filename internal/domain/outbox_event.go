package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification event names emitted through the outbox
const (
	EventProjectSubmitted = "project_submitted"
	EventProjectApproved  = "project_approved"
	EventProjectRejected  = "project_rejected"
	EventProjectOnHold    = "project_on_hold"
	EventProjectResumed   = "project_resumed"
	EventProjectAssigned  = "project_assigned"
	EventStageCompleted   = "stage_completed"
	EventStageOverdue     = "stage_overdue"
	EventDocumentUploaded = "document_uploaded"
	EventFeedbackAdded    = "feedback_added"
)

// OutboxStatus represents the delivery state of an outbox event
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxEvent is a notification written in the same transaction as the
// workflow transition it announces. A background dispatcher delivers pending
// rows through the configured sink and marks them published.
type OutboxEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventName   string         `gorm:"type:varchar(50);not null;index:idx_outbox_event_name" json:"event_name"`
	ProjectID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_outbox_project" json:"project_id"`
	Payload     datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Status      OutboxStatus   `gorm:"type:varchar(20);not null;default:'pending';index:idx_outbox_status" json:"status"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	PublishedAt *time.Time     `gorm:"type:timestamp" json:"published_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for OutboxEvent
func (OutboxEvent) TableName() string {
	return "outbox_events"
}

// BeforeCreate assigns the row ID application-side
func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
