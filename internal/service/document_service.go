package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
	"project-review-api/internal/dto"
	"project-review-api/internal/metrics"
	"project-review-api/internal/repository"
	"project-review-api/internal/response"
)

// DocumentService manages versioned project documents and their review state
type DocumentService interface {
	UploadDocument(ctx context.Context, actor domain.Actor, projectID uuid.UUID, req dto.UploadDocumentRequest, fileName, contentType string, file io.Reader) (*dto.DocumentResponse, *response.AppError)
	ChangeDocumentStatus(ctx context.Context, actor domain.Actor, documentID uuid.UUID, req dto.ChangeDocumentStatusRequest) (*dto.DocumentResponse, *response.AppError)
	DeleteDocument(ctx context.Context, actor domain.Actor, documentID uuid.UUID) *response.AppError
	VerifyDocumentIntegrity(ctx context.Context, documentID uuid.UUID) (*dto.DocumentResponse, *response.AppError)
	ListProjectDocuments(ctx context.Context, projectID uuid.UUID, latestOnly bool) ([]dto.DocumentResponse, *response.AppError)
	ListDocumentVersions(ctx context.Context, projectID uuid.UUID, area domain.ReviewArea, name string) ([]dto.DocumentResponse, *response.AppError)
}

// documentServiceImpl is the implementation of DocumentService
type documentServiceImpl struct {
	db           *gorm.DB
	documentRepo repository.DocumentRepository
	projectRepo  repository.ProjectRepository
	fileService  FileService
	recorder     HistoryRecorder
	outbox       OutboxWriter
	logger       *zap.Logger
}

// NewDocumentService creates a new instance of DocumentService
func NewDocumentService(
	db *gorm.DB,
	documentRepo repository.DocumentRepository,
	projectRepo repository.ProjectRepository,
	fileService FileService,
	recorder HistoryRecorder,
	outbox OutboxWriter,
	logger *zap.Logger,
) DocumentService {
	return &documentServiceImpl{
		db:           db,
		documentRepo: documentRepo,
		projectRepo:  projectRepo,
		fileService:  fileService,
		recorder:     recorder,
		outbox:       outbox,
		logger:       logger,
	}
}

// UploadDocument stores the file and inserts a new version row. When the
// (project, area, name) chain already exists, the prior latest version is
// superseded in the same transaction; its content and review fields stay
// untouched.
func (s *documentServiceImpl) UploadDocument(ctx context.Context, actor domain.Actor, projectID uuid.UUID, req dto.UploadDocumentRequest, fileName, contentType string, file io.Reader) (*dto.DocumentResponse, *response.AppError) {
	if !req.Area.IsValid() {
		return nil, response.NewValidationError("Invalid review area", string(req.Area))
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Project not found", projectID.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch project", err.Error())
	}
	if project.Status == domain.ProjectStatusApproved {
		return nil, response.NewInvalidTransitionError("Approved projects are frozen", project.Code)
	}

	stored, err := s.fileService.SaveFile(ctx, req.Area, projectID, fileName, contentType, file)
	if err != nil {
		s.logger.Error("Failed to store document file",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to store document file", err.Error())
	}

	document := &domain.Document{
		ProjectID:  projectID,
		Area:       req.Area,
		Name:       req.Name,
		TemplateID: req.TemplateID,
		Version:    1,
		IsLatest:   true,
		FileKey:    stored.Key,
		FileSize:   stored.Size,
		MimeType:   stored.MimeType,
		Checksum:   stored.Checksum,
		Status:     domain.DocumentStatusUploaded,
		UploadedBy: actor.ID,
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		docRepo := s.documentRepo.WithTx(tx)
		previous, err := docRepo.FindLatest(ctx, projectID, req.Area, req.Name)
		if err != nil && !isNotFound(err) {
			return err
		}
		if previous != nil && err == nil {
			if err := docRepo.MarkSuperseded(ctx, previous.ID); err != nil {
				return err
			}
			document.Version = previous.Version + 1
		}
		if err := docRepo.Create(ctx, document); err != nil {
			return err
		}
		if err := s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   projectID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeUser,
			Action:      domain.ActionDocumentUploaded,
			Description: fmt.Sprintf("Document %q uploaded (v%d, %s)", document.Name, document.Version, document.Area),
			After:       document,
		}); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, domain.EventDocumentUploaded, projectID, map[string]interface{}{
			"document_id": document.ID,
			"area":        document.Area,
			"name":        document.Name,
			"version":     document.Version,
			"uploaded_by": actor.ID,
		})
	})
	if txErr != nil {
		// The version row never existed; remove the orphaned file.
		if delErr := s.fileService.DeleteFile(ctx, stored.Key); delErr != nil {
			s.logger.Warn("Failed to remove orphaned file after rollback",
				zap.String("file_key", stored.Key),
				zap.Error(delErr))
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to register document", txErr.Error())
	}

	metrics.IncrementDocumentUploaded()
	s.logger.Info("Document uploaded",
		zap.String("project_id", projectID.String()),
		zap.String("document_id", document.ID.String()),
		zap.Int("version", document.Version))

	resp := toDocumentResponse(document)
	return &resp, nil
}

// ChangeDocumentStatus applies a review decision to a document version
func (s *documentServiceImpl) ChangeDocumentStatus(ctx context.Context, actor domain.Actor, documentID uuid.UUID, req dto.ChangeDocumentStatusRequest) (*dto.DocumentResponse, *response.AppError) {
	if !req.Status.IsValid() {
		return nil, response.NewValidationError("Invalid document status", string(req.Status))
	}

	document, err := s.documentRepo.FindByID(ctx, documentID)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Document not found", documentID.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch document", err.Error())
	}
	if !actor.HasAreaAccess(document.Area) {
		return nil, response.NewForbiddenError("No access to the document's review area", string(document.Area))
	}
	if !document.IsLatest {
		return nil, response.NewInvalidTransitionError("Only the latest version can be reviewed", documentID.String())
	}

	before := *document
	now := nowUTC()
	document.Status = req.Status
	document.ReviewerID = &actor.ID
	document.ReviewNotes = req.Notes
	document.ReviewedAt = &now

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.documentRepo.WithTx(tx).Update(ctx, document); err != nil {
			return err
		}
		return s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   document.ProjectID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeReviewer,
			Action:      domain.ActionDocumentStatus,
			Description: fmt.Sprintf("Document %q moved to %s", document.Name, document.Status),
			Before:      &before,
			After:       document,
		})
	})
	if txErr != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update document status", txErr.Error())
	}

	resp := toDocumentResponse(document)
	return &resp, nil
}

// DeleteDocument removes a non-approved document version and its stored file
func (s *documentServiceImpl) DeleteDocument(ctx context.Context, actor domain.Actor, documentID uuid.UUID) *response.AppError {
	document, err := s.documentRepo.FindByID(ctx, documentID)
	if err != nil {
		if isNotFound(err) {
			return response.NewNotFoundError("Document not found", documentID.String())
		}
		return response.NewAppError(response.ErrCodeInternal, "Failed to fetch document", err.Error())
	}
	if !document.CanBeDeleted() {
		return response.NewInvalidTransitionError("Approved documents cannot be deleted", documentID.String())
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.documentRepo.WithTx(tx).Delete(ctx, documentID); err != nil {
			return err
		}
		return s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   document.ProjectID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeUser,
			Action:      domain.ActionDocumentDeleted,
			Description: fmt.Sprintf("Document %q v%d deleted", document.Name, document.Version),
			Before:      document,
		})
	})
	if txErr != nil {
		return response.NewAppError(response.ErrCodeInternal, "Failed to delete document", txErr.Error())
	}

	// File removal after commit; a leftover object is harmless.
	if err := s.fileService.DeleteFile(ctx, document.FileKey); err != nil {
		s.logger.Warn("Failed to delete stored file",
			zap.String("file_key", document.FileKey),
			zap.Error(err))
	}
	return nil
}

// VerifyDocumentIntegrity re-hashes the stored file against the recorded
// checksum and fails with INTEGRITY_FAILURE on mismatch
func (s *documentServiceImpl) VerifyDocumentIntegrity(ctx context.Context, documentID uuid.UUID) (*dto.DocumentResponse, *response.AppError) {
	document, err := s.documentRepo.FindByID(ctx, documentID)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Document not found", documentID.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch document", err.Error())
	}

	ok, err := s.fileService.VerifyIntegrity(ctx, document.FileKey, document.Checksum)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to verify document integrity", err.Error())
	}
	if !ok {
		s.logger.Error("Document checksum mismatch",
			zap.String("document_id", documentID.String()),
			zap.String("file_key", document.FileKey))
		return nil, response.NewIntegrityError("Stored file does not match the recorded checksum", documentID.String())
	}

	resp := toDocumentResponse(document)
	return &resp, nil
}

// ListProjectDocuments returns a project's documents, optionally only the
// latest version of each chain
func (s *documentServiceImpl) ListProjectDocuments(ctx context.Context, projectID uuid.UUID, latestOnly bool) ([]dto.DocumentResponse, *response.AppError) {
	documents, err := s.documentRepo.ListByProject(ctx, projectID, latestOnly)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to list documents", err.Error())
	}
	responses := make([]dto.DocumentResponse, len(documents))
	for i, d := range documents {
		responses[i] = toDocumentResponse(d)
	}
	return responses, nil
}

// ListDocumentVersions returns the full version chain of one named document
func (s *documentServiceImpl) ListDocumentVersions(ctx context.Context, projectID uuid.UUID, area domain.ReviewArea, name string) ([]dto.DocumentResponse, *response.AppError) {
	if !area.IsValid() {
		return nil, response.NewValidationError("Invalid review area", string(area))
	}
	documents, err := s.documentRepo.ListVersions(ctx, projectID, area, name)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to list document versions", err.Error())
	}
	responses := make([]dto.DocumentResponse, len(documents))
	for i, d := range documents {
		responses[i] = toDocumentResponse(d)
	}
	return responses, nil
}
