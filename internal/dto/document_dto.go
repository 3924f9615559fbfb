package dto

import (
	"time"

	"github.com/google/uuid"

	"project-review-api/internal/domain"
)

// UploadDocumentRequest carries the metadata fields of a multipart upload
type UploadDocumentRequest struct {
	Area       domain.ReviewArea `form:"area" binding:"required"`
	Name       string            `form:"name" binding:"required,max=255"`
	TemplateID *uuid.UUID        `form:"template_id"`
}

// ChangeDocumentStatusRequest is the payload for document review decisions
type ChangeDocumentStatusRequest struct {
	Status domain.DocumentStatus `json:"status" binding:"required"`
	Notes  string                `json:"notes"`
}

// DocumentResponse is the API view of a document version
type DocumentResponse struct {
	ID          uuid.UUID             `json:"id"`
	ProjectID   uuid.UUID             `json:"project_id"`
	Area        domain.ReviewArea     `json:"area"`
	Name        string                `json:"name"`
	TemplateID  *uuid.UUID            `json:"template_id,omitempty"`
	Version     int                   `json:"version"`
	IsLatest    bool                  `json:"is_latest"`
	FileSize    int64                 `json:"file_size"`
	MimeType    string                `json:"mime_type"`
	Checksum    string                `json:"checksum"`
	Status      domain.DocumentStatus `json:"status"`
	UploadedBy  uuid.UUID             `json:"uploaded_by"`
	ReviewerID  *uuid.UUID            `json:"reviewer_id,omitempty"`
	ReviewNotes string                `json:"review_notes"`
	ReviewedAt  *time.Time            `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}
