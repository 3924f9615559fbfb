package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
	"project-review-api/internal/dto"
	"project-review-api/internal/metrics"
	"project-review-api/internal/repository"
	"project-review-api/internal/response"
)

// FeedbackService manages threaded reviewer feedback on projects
type FeedbackService interface {
	AddFeedback(ctx context.Context, actor domain.Actor, projectID uuid.UUID, req dto.AddFeedbackRequest) (*dto.FeedbackResponse, *response.AppError)
	ResolveFeedback(ctx context.Context, actor domain.Actor, feedbackID uuid.UUID, req dto.ResolveFeedbackRequest) (*dto.FeedbackResponse, *response.AppError)
	ReopenFeedback(ctx context.Context, actor domain.Actor, feedbackID uuid.UUID, req dto.ReopenFeedbackRequest) (*dto.FeedbackResponse, *response.AppError)
	ListProjectFeedback(ctx context.Context, projectID uuid.UUID) ([]dto.FeedbackResponse, *response.AppError)
	BlockingSummary(ctx context.Context, projectID uuid.UUID, stageID *uuid.UUID) ([]dto.FeedbackResponse, *response.AppError)
}

// feedbackServiceImpl is the implementation of FeedbackService
type feedbackServiceImpl struct {
	db           *gorm.DB
	feedbackRepo repository.FeedbackRepository
	projectRepo  repository.ProjectRepository
	stageRepo    repository.StageRepository
	recorder     HistoryRecorder
	outbox       OutboxWriter
	logger       *zap.Logger
}

// NewFeedbackService creates a new instance of FeedbackService
func NewFeedbackService(
	db *gorm.DB,
	feedbackRepo repository.FeedbackRepository,
	projectRepo repository.ProjectRepository,
	stageRepo repository.StageRepository,
	recorder HistoryRecorder,
	outbox OutboxWriter,
	logger *zap.Logger,
) FeedbackService {
	return &feedbackServiceImpl{
		db:           db,
		feedbackRepo: feedbackRepo,
		projectRepo:  projectRepo,
		stageRepo:    stageRepo,
		recorder:     recorder,
		outbox:       outbox,
		logger:       logger,
	}
}

// AddFeedback creates a feedback item or a reply. Replies must reference a
// root item of the same project; threading stays one level deep.
func (s *feedbackServiceImpl) AddFeedback(ctx context.Context, actor domain.Actor, projectID uuid.UUID, req dto.AddFeedbackRequest) (*dto.FeedbackResponse, *response.AppError) {
	if !req.Type.IsValid() {
		return nil, response.NewValidationError("Invalid feedback type", string(req.Type))
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.FeedbackPriorityMedium
	}
	if !priority.IsValid() {
		return nil, response.NewValidationError("Invalid feedback priority", string(priority))
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Project not found", projectID.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch project", err.Error())
	}

	if req.StageID != nil {
		stage, err := s.stageRepo.FindByID(ctx, *req.StageID)
		if err != nil {
			if isNotFound(err) {
				return nil, response.NewNotFoundError("Stage not found", req.StageID.String())
			}
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch stage", err.Error())
		}
		if stage.ProjectID != projectID {
			return nil, response.NewValidationError("Stage does not belong to the project", req.StageID.String())
		}
	}

	if req.ParentFeedbackID != nil {
		parent, err := s.feedbackRepo.FindByID(ctx, *req.ParentFeedbackID)
		if err != nil {
			if isNotFound(err) {
				return nil, response.NewNotFoundError("Parent feedback not found", req.ParentFeedbackID.String())
			}
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch parent feedback", err.Error())
		}
		if parent.ProjectID != projectID {
			return nil, response.NewValidationError("Parent feedback belongs to a different project", parent.ID.String())
		}
		if parent.ParentFeedbackID != nil {
			return nil, response.NewValidationError("Replies to replies are not allowed", parent.ID.String())
		}
	}

	feedback := &domain.ProjectFeedback{
		ProjectID:        projectID,
		StageID:          req.StageID,
		ParentFeedbackID: req.ParentFeedbackID,
		AuthorID:         actor.ID,
		Type:             req.Type,
		Priority:         priority,
		Content:          req.Content,
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.feedbackRepo.WithTx(tx).Create(ctx, feedback); err != nil {
			return err
		}
		if err := s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   projectID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeReviewer,
			Action:      domain.ActionFeedbackAdded,
			Description: fmt.Sprintf("Feedback added (%s, %s)", feedback.Type, feedback.Priority),
			After:       feedback,
		}); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, domain.EventFeedbackAdded, projectID, map[string]interface{}{
			"feedback_id": feedback.ID,
			"author_id":   actor.ID,
			"type":        feedback.Type,
			"priority":    feedback.Priority,
			"owner_id":    project.OwnerID,
		})
	})
	if txErr != nil {
		s.logger.Error("Failed to add feedback",
			zap.String("project_id", projectID.String()),
			zap.Error(txErr))
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to add feedback", txErr.Error())
	}

	resp := toFeedbackResponse(feedback)
	return &resp, nil
}

// ResolveFeedback marks an item resolved. Resolving an already-resolved item
// is a no-op: the stored resolution is returned unchanged and no history or
// notification is produced.
func (s *feedbackServiceImpl) ResolveFeedback(ctx context.Context, actor domain.Actor, feedbackID uuid.UUID, req dto.ResolveFeedbackRequest) (*dto.FeedbackResponse, *response.AppError) {
	feedback, err := s.feedbackRepo.FindByID(ctx, feedbackID)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Feedback not found", feedbackID.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch feedback", err.Error())
	}

	if feedback.IsResolved {
		resp := toFeedbackResponse(feedback)
		return &resp, nil
	}

	now := nowUTC()
	feedback.IsResolved = true
	feedback.ResolvedBy = &actor.ID
	feedback.ResolvedAt = &now
	feedback.ResolutionNote = req.Note

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.feedbackRepo.WithTx(tx).Update(ctx, feedback); err != nil {
			return err
		}
		return s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   feedback.ProjectID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeReviewer,
			Action:      domain.ActionFeedbackResolved,
			Description: "Feedback resolved",
			After:       feedback,
		})
	})
	if txErr != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to resolve feedback", txErr.Error())
	}

	metrics.IncrementFeedbackResolved()
	resp := toFeedbackResponse(feedback)
	return &resp, nil
}

// ReopenFeedback clears the resolution of a resolved item. Reopening an
// unresolved item is a no-op.
func (s *feedbackServiceImpl) ReopenFeedback(ctx context.Context, actor domain.Actor, feedbackID uuid.UUID, req dto.ReopenFeedbackRequest) (*dto.FeedbackResponse, *response.AppError) {
	feedback, err := s.feedbackRepo.FindByID(ctx, feedbackID)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Feedback not found", feedbackID.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch feedback", err.Error())
	}

	if !feedback.IsResolved {
		resp := toFeedbackResponse(feedback)
		return &resp, nil
	}

	feedback.IsResolved = false
	feedback.ResolvedBy = nil
	feedback.ResolvedAt = nil
	feedback.ResolutionNote = ""

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.feedbackRepo.WithTx(tx).Update(ctx, feedback); err != nil {
			return err
		}
		description := "Feedback reopened"
		if req.Reason != "" {
			description = fmt.Sprintf("Feedback reopened: %s", req.Reason)
		}
		return s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   feedback.ProjectID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeReviewer,
			Action:      domain.ActionFeedbackReopened,
			Description: description,
			After:       feedback,
		})
	})
	if txErr != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to reopen feedback", txErr.Error())
	}

	resp := toFeedbackResponse(feedback)
	return &resp, nil
}

// ListProjectFeedback returns the project's feedback threads, roots newest
// first with replies oldest first
func (s *feedbackServiceImpl) ListProjectFeedback(ctx context.Context, projectID uuid.UUID) ([]dto.FeedbackResponse, *response.AppError) {
	items, err := s.feedbackRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to list feedback", err.Error())
	}
	responses := make([]dto.FeedbackResponse, len(items))
	for i, item := range items {
		responses[i] = toFeedbackResponse(item)
	}
	return responses, nil
}

// BlockingSummary lists the unresolved items that would block approval:
// critical priority or requirement type, optionally narrowed to one stage.
// The summary is advisory; nothing refuses a transition over it.
func (s *feedbackServiceImpl) BlockingSummary(ctx context.Context, projectID uuid.UUID, stageID *uuid.UUID) ([]dto.FeedbackResponse, *response.AppError) {
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Project not found", projectID.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch project", err.Error())
	}

	items, err := s.feedbackRepo.ListUnresolvedBlocking(ctx, projectID, stageID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to list blocking feedback", err.Error())
	}
	responses := make([]dto.FeedbackResponse, len(items))
	for i, item := range items {
		responses[i] = toFeedbackResponse(item)
	}
	return responses, nil
}
