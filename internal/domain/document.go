package domain

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus represents the review state of a document version
type DocumentStatus string

const (
	DocumentStatusUploaded        DocumentStatus = "uploaded"
	DocumentStatusUnderReview     DocumentStatus = "under_review"
	DocumentStatusApproved        DocumentStatus = "approved"
	DocumentStatusRejected        DocumentStatus = "rejected"
	DocumentStatusRequiresChanges DocumentStatus = "requires_changes"
)

// IsValid reports whether the status is a known enum value
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusUnderReview, DocumentStatusApproved,
		DocumentStatusRejected, DocumentStatusRequiresChanges:
		return true
	}
	return false
}

// Document represents one version of a named document within a project/area.
// Exactly one row per (project, area, name) triple has is_latest = true.
// File content is immutable; a resubmission inserts a new version row.
type Document struct {
	BaseModel
	ProjectID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_documents_project_id;index:idx_documents_chain,priority:1" json:"project_id"`
	Area        ReviewArea     `gorm:"type:varchar(50);not null;index:idx_documents_chain,priority:2" json:"area"`
	Name        string         `gorm:"type:varchar(255);not null;index:idx_documents_chain,priority:3" json:"name"`
	TemplateID  *uuid.UUID     `gorm:"type:uuid" json:"template_id,omitempty"`
	Version     int            `gorm:"not null;default:1" json:"version"`
	// No default tag: GORM would drop a zero-valued field on insert and
	// resurrect superseded versions as latest. The service always sets it.
	IsLatest bool `gorm:"not null;index:idx_documents_is_latest" json:"is_latest"`
	FileKey     string         `gorm:"type:text;not null" json:"file_key"`
	FileSize    int64          `gorm:"not null" json:"file_size"`
	MimeType    string         `gorm:"type:varchar(100)" json:"mime_type"`
	Checksum    string         `gorm:"type:varchar(64);not null" json:"checksum"`
	Status      DocumentStatus `gorm:"type:varchar(20);not null;default:'uploaded';index:idx_documents_status" json:"status"`
	UploadedBy  uuid.UUID      `gorm:"type:uuid;not null" json:"uploaded_by"`
	ReviewerID  *uuid.UUID     `gorm:"type:uuid" json:"reviewer_id,omitempty"`
	ReviewNotes string         `gorm:"type:text" json:"review_notes"`
	ReviewedAt  *time.Time     `gorm:"type:timestamp" json:"reviewed_at,omitempty"`
}

// TableName specifies the table name for Document
func (Document) TableName() string {
	return "documents"
}

// CanBeDeleted reports whether the document version may be removed
func (d *Document) CanBeDeleted() bool {
	return d.Status != DocumentStatusApproved
}
