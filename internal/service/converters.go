package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
	"project-review-api/internal/dto"
)

// isNotFound reports whether err is the GORM missing-row sentinel
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// nowUTC returns the current wall clock in UTC. All persisted timestamps go
// through this so rows compare consistently across hosts.
func nowUTC() time.Time {
	return time.Now().UTC()
}

// acquireProjectLock takes the best-effort per-project lock. A lock failure
// is logged and ignored; the repository compare-and-swap guards correctness.
func acquireProjectLock(ctx context.Context, locker ProjectLocker, projectID uuid.UUID, logger *zap.Logger) func() {
	if locker == nil {
		return func() {}
	}
	release, err := locker.Acquire(ctx, projectID)
	if err != nil {
		logger.Warn("Failed to acquire project lock, relying on status guard",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
		return func() {}
	}
	return release
}

// toProjectResponse converts a project entity to its API view
func toProjectResponse(p *domain.Project, now time.Time) dto.ProjectResponse {
	resp := dto.ProjectResponse{
		ID:                      p.ID,
		Code:                    p.Code,
		Title:                   p.Title,
		Description:             p.Description,
		Status:                  p.Status,
		Priority:                p.Priority,
		CurrentArea:             p.CurrentArea,
		ProgressPercentage:      p.ProgressPercentage,
		EstimatedCompletionDate: p.EstimatedCompletionDate,
		ActualCompletionDate:    p.ActualCompletionDate,
		OwnerID:                 p.OwnerID,
		CanBeEdited:             p.CanBeEdited(),
		CanBeSubmitted:          p.CanBeSubmitted(),
		CreatedAt:               p.CreatedAt,
		UpdatedAt:               p.UpdatedAt,
	}
	if len(p.Stages) > 0 {
		resp.Stages = make([]dto.StageResponse, len(p.Stages))
		for i := range p.Stages {
			resp.Stages[i] = toStageResponse(&p.Stages[i], now)
		}
	}
	return resp
}

// toStageResponse converts a stage entity to its API view
func toStageResponse(s *domain.ProjectStage, now time.Time) dto.StageResponse {
	return dto.StageResponse{
		ID:                   s.ID,
		ProjectID:            s.ProjectID,
		Area:                 s.Area,
		Name:                 s.Name,
		Status:               s.Status,
		OrderSequence:        s.OrderSequence,
		AssignedReviewerID:   s.AssignedReviewerID,
		StartDate:            s.StartDate,
		EndDate:              s.EndDate,
		DueDate:              s.DueDate,
		CompletionPercentage: s.CompletionPercentage,
		ActualHours:          s.ActualHours,
		ReviewerNotes:        s.ReviewerNotes,
		IsOverdue:            s.IsOverdue(now),
	}
}

// toFeedbackResponse converts a feedback entity (and its loaded replies)
// to its API view
func toFeedbackResponse(f *domain.ProjectFeedback) dto.FeedbackResponse {
	resp := dto.FeedbackResponse{
		ID:               f.ID,
		ProjectID:        f.ProjectID,
		StageID:          f.StageID,
		ParentFeedbackID: f.ParentFeedbackID,
		AuthorID:         f.AuthorID,
		Type:             f.Type,
		Priority:         f.Priority,
		Content:          f.Content,
		IsResolved:       f.IsResolved,
		ResolvedBy:       f.ResolvedBy,
		ResolvedAt:       f.ResolvedAt,
		ResolutionNote:   f.ResolutionNote,
		IsBlocking:       f.IsBlocking(),
		CreatedAt:        f.CreatedAt,
	}
	if len(f.Replies) > 0 {
		resp.Replies = make([]dto.FeedbackResponse, len(f.Replies))
		for i := range f.Replies {
			resp.Replies[i] = toFeedbackResponse(&f.Replies[i])
		}
	}
	return resp
}

// toDocumentResponse converts a document entity to its API view
func toDocumentResponse(d *domain.Document) dto.DocumentResponse {
	return dto.DocumentResponse{
		ID:          d.ID,
		ProjectID:   d.ProjectID,
		Area:        d.Area,
		Name:        d.Name,
		TemplateID:  d.TemplateID,
		Version:     d.Version,
		IsLatest:    d.IsLatest,
		FileSize:    d.FileSize,
		MimeType:    d.MimeType,
		Checksum:    d.Checksum,
		Status:      d.Status,
		UploadedBy:  d.UploadedBy,
		ReviewerID:  d.ReviewerID,
		ReviewNotes: d.ReviewNotes,
		ReviewedAt:  d.ReviewedAt,
		CreatedAt:   d.CreatedAt,
	}
}

// toReviewerResponse converts a reviewer entity to its API view
func toReviewerResponse(r *domain.Reviewer, workload int64) dto.ReviewerResponse {
	areas := make([]domain.ReviewArea, len(r.Areas))
	for i, a := range r.Areas {
		areas[i] = a.Area
	}
	return dto.ReviewerResponse{
		ID:       r.ID,
		Name:     r.Name,
		Email:    r.Email,
		Role:     r.Role,
		IsActive: r.IsActive,
		Areas:    areas,
		Workload: workload,
	}
}
