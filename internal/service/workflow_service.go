package service

import (
	"context"
	"errors"
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

// WorkflowService manages the project lifecycle: creation, editing,
// submission into the review pipeline and administrative status moves
type WorkflowService interface {
	CreateProject(ctx context.Context, actor domain.Actor, req dto.CreateProjectRequest) (*dto.ProjectResponse, *response.AppError)
	UpdateProject(ctx context.Context, actor domain.Actor, projectID uuid.UUID, req dto.UpdateProjectRequest) (*dto.ProjectResponse, *response.AppError)
	SubmitProject(ctx context.Context, actor domain.Actor, projectID uuid.UUID) (*dto.ProjectResponse, *response.AppError)
	ChangeStatus(ctx context.Context, actor domain.Actor, projectID uuid.UUID, req dto.ChangeProjectStatusRequest) (*dto.ProjectResponse, *response.AppError)
	DeleteDraft(ctx context.Context, actor domain.Actor, projectID uuid.UUID) *response.AppError
	GetProject(ctx context.Context, projectID uuid.UUID) (*dto.ProjectResponse, *response.AppError)
	GetProjectByCode(ctx context.Context, code string) (*dto.ProjectResponse, *response.AppError)
	ListProjects(ctx context.Context, filter dto.ProjectListFilter) (*dto.PaginatedProjectsResponse, *response.AppError)
}

// workflowServiceImpl is the implementation of WorkflowService
type workflowServiceImpl struct {
	db           *gorm.DB
	projectRepo  repository.ProjectRepository
	documentRepo repository.DocumentRepository
	pipeline     PipelineService
	recorder     HistoryRecorder
	outbox       OutboxWriter
	locker       ProjectLocker
	logger       *zap.Logger
}

// NewWorkflowService creates a new instance of WorkflowService
func NewWorkflowService(
	db *gorm.DB,
	projectRepo repository.ProjectRepository,
	documentRepo repository.DocumentRepository,
	pipeline PipelineService,
	recorder HistoryRecorder,
	outbox OutboxWriter,
	locker ProjectLocker,
	logger *zap.Logger,
) WorkflowService {
	return &workflowServiceImpl{
		db:           db,
		projectRepo:  projectRepo,
		documentRepo: documentRepo,
		pipeline:     pipeline,
		recorder:     recorder,
		outbox:       outbox,
		locker:       locker,
		logger:       logger,
	}
}

// CreateProject creates a draft with a per-year sequential code and its full
// pending pipeline in one transaction
func (s *workflowServiceImpl) CreateProject(ctx context.Context, actor domain.Actor, req dto.CreateProjectRequest) (*dto.ProjectResponse, *response.AppError) {
	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, response.NewValidationError("Invalid project priority", string(priority))
	}

	now := nowUTC()
	project := &domain.Project{
		Title:                   req.Title,
		Description:             req.Description,
		Status:                  domain.ProjectStatusDraft,
		Priority:                priority,
		EstimatedCompletionDate: req.EstimatedCompletionDate,
		OwnerID:                 actor.ID,
		CodeYear:                now.Year(),
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		projectRepo := s.projectRepo.WithTx(tx)
		seq, err := projectRepo.NextCodeSeq(ctx, now.Year())
		if err != nil {
			return err
		}
		project.CodeSeq = seq
		project.Code = domain.BuildProjectCode(now.Year(), seq)

		if err := projectRepo.Create(ctx, project); err != nil {
			return err
		}
		if err := s.pipeline.CreateStagesTx(ctx, tx, project); err != nil {
			return err
		}
		return s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   project.ID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeUser,
			Action:      domain.ActionProjectCreated,
			Description: fmt.Sprintf("Project %s created", project.Code),
			After:       project,
		})
	})
	if txErr != nil {
		s.logger.Error("Failed to create project", zap.Error(txErr))
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to create project", txErr.Error())
	}

	metrics.IncrementProjectCreated()
	s.logger.Info("Project created",
		zap.String("project_id", project.ID.String()),
		zap.String("code", project.Code))

	resp := toProjectResponse(project, now)
	return &resp, nil
}

// UpdateProject edits a draft or rejected project
func (s *workflowServiceImpl) UpdateProject(ctx context.Context, actor domain.Actor, projectID uuid.UUID, req dto.UpdateProjectRequest) (*dto.ProjectResponse, *response.AppError) {
	project, appErr := s.fetchProject(ctx, projectID)
	if appErr != nil {
		return nil, appErr
	}
	if appErr := s.requireOwnerOrAdmin(actor, project); appErr != nil {
		return nil, appErr
	}
	if !project.CanBeEdited() {
		return nil, response.NewInvalidTransitionError(
			fmt.Sprintf("Project cannot be edited while %s", project.Status), project.Code)
	}

	before := *project
	if req.Title != nil {
		project.Title = *req.Title
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Priority != nil {
		if !req.Priority.IsValid() {
			return nil, response.NewValidationError("Invalid project priority", string(*req.Priority))
		}
		project.Priority = *req.Priority
	}
	if req.EstimatedCompletionDate != nil {
		project.EstimatedCompletionDate = req.EstimatedCompletionDate
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.projectRepo.WithTx(tx).Update(ctx, project); err != nil {
			return err
		}
		return s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   project.ID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeUser,
			Action:      domain.ActionStatusChanged,
			Description: "Project details updated",
			Before:      &before,
			After:       project,
		})
	})
	if txErr != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update project", txErr.Error())
	}

	resp := toProjectResponse(project, nowUTC())
	return &resp, nil
}

// SubmitProject moves a draft into the pipeline: status submitted, every
// stage assigned a reviewer, first stage in progress. The project shows as
// submitted until pipeline advancement moves it to in_review.
func (s *workflowServiceImpl) SubmitProject(ctx context.Context, actor domain.Actor, projectID uuid.UUID) (*dto.ProjectResponse, *response.AppError) {
	project, appErr := s.fetchProject(ctx, projectID)
	if appErr != nil {
		return nil, appErr
	}
	if appErr := s.requireOwnerOrAdmin(actor, project); appErr != nil {
		return nil, appErr
	}
	if !project.CanBeSubmitted() {
		return nil, response.NewInvalidTransitionError(
			fmt.Sprintf("Project cannot be submitted while %s", project.Status), project.Code)
	}

	release := acquireProjectLock(ctx, s.locker, projectID, s.logger)
	defer release()

	now := nowUTC()
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		firstArea := domain.PipelineAreas[0]
		if err := s.projectRepo.WithTx(tx).UpdateStatusCAS(ctx, projectID, domain.ProjectStatusDraft, map[string]interface{}{
			"status":       domain.ProjectStatusSubmitted,
			"current_area": firstArea,
		}); err != nil {
			return err
		}
		project.Status = domain.ProjectStatusSubmitted
		project.CurrentArea = &firstArea

		if _, err := s.pipeline.StartPipelineTx(ctx, tx, actor, project, now); err != nil {
			return err
		}
		if err := s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   project.ID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeUser,
			Action:      domain.ActionProjectSubmitted,
			Description: fmt.Sprintf("Project %s submitted for review", project.Code),
			After:       project,
		}); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, domain.EventProjectSubmitted, project.ID, map[string]interface{}{
			"code":     project.Code,
			"owner_id": project.OwnerID,
		})
	})
	if txErr != nil {
		return nil, s.mapTxError(txErr, "Failed to submit project")
	}

	metrics.IncrementProjectSubmitted()
	s.logger.Info("Project submitted",
		zap.String("project_id", project.ID.String()),
		zap.String("code", project.Code))

	return s.GetProject(ctx, projectID)
}

// ChangeStatus applies an administrative status move through the transition
// table: hold, resume or reject. Approval normally comes from pipeline
// completion, but the table also admits a forced in_review to approved move.
func (s *workflowServiceImpl) ChangeStatus(ctx context.Context, actor domain.Actor, projectID uuid.UUID, req dto.ChangeProjectStatusRequest) (*dto.ProjectResponse, *response.AppError) {
	if !actor.IsAdmin() {
		return nil, response.NewForbiddenError("Only administrators can change project status directly", "")
	}
	if !req.Status.IsValid() {
		return nil, response.NewValidationError("Invalid project status", string(req.Status))
	}

	project, appErr := s.fetchProject(ctx, projectID)
	if appErr != nil {
		return nil, appErr
	}
	if !project.CanTransitionTo(req.Status) {
		return nil, response.NewInvalidTransitionError(
			fmt.Sprintf("Cannot move project from %s to %s", project.Status, req.Status), project.Code)
	}

	release := acquireProjectLock(ctx, s.locker, projectID, s.logger)
	defer release()

	now := nowUTC()
	from := project.Status
	updates := map[string]interface{}{
		"status": req.Status,
	}
	if req.Status == domain.ProjectStatusApproved {
		updates["progress_percentage"] = 100.0
		updates["actual_completion_date"] = now
		updates["current_area"] = nil
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.projectRepo.WithTx(tx).UpdateStatusCAS(ctx, projectID, from, updates); err != nil {
			return err
		}
		description := fmt.Sprintf("Status changed from %s to %s", from, req.Status)
		if req.Reason != "" {
			description += ": " + req.Reason
		}
		if err := s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   project.ID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeUser,
			Action:      domain.ActionStatusChanged,
			Description: description,
			Before:      map[string]interface{}{"status": from},
			After:       map[string]interface{}{"status": req.Status},
		}); err != nil {
			return err
		}
		if event := statusChangeEvent(from, req.Status); event != "" {
			return s.outbox.Enqueue(ctx, tx, event, project.ID, map[string]interface{}{
				"from":   from,
				"to":     req.Status,
				"reason": req.Reason,
			})
		}
		return nil
	})
	if txErr != nil {
		return nil, s.mapTxError(txErr, "Failed to change project status")
	}

	switch req.Status {
	case domain.ProjectStatusApproved:
		metrics.IncrementProjectApproved()
	case domain.ProjectStatusRejected:
		metrics.IncrementProjectRejected()
	}

	return s.GetProject(ctx, projectID)
}

// DeleteDraft permanently removes a draft that has no documents
func (s *workflowServiceImpl) DeleteDraft(ctx context.Context, actor domain.Actor, projectID uuid.UUID) *response.AppError {
	project, appErr := s.fetchProject(ctx, projectID)
	if appErr != nil {
		return appErr
	}
	if appErr := s.requireOwnerOrAdmin(actor, project); appErr != nil {
		return appErr
	}
	if project.Status != domain.ProjectStatusDraft {
		return response.NewInvalidTransitionError("Only draft projects can be deleted", project.Code)
	}

	count, err := s.documentRepo.CountByProject(ctx, projectID)
	if err != nil {
		return response.NewAppError(response.ErrCodeInternal, "Failed to count project documents", err.Error())
	}
	if count > 0 {
		return response.NewInvalidTransitionError("Projects with documents cannot be deleted", project.Code)
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		// The audit row outlives the project; there is no FK back to it.
		if err := s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   project.ID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeUser,
			Action:      domain.ActionProjectDeleted,
			Description: fmt.Sprintf("Draft %s deleted", project.Code),
			Before:      project,
		}); err != nil {
			return err
		}
		return s.projectRepo.WithTx(tx).Delete(ctx, projectID)
	})
	if txErr != nil {
		return response.NewAppError(response.ErrCodeInternal, "Failed to delete draft", txErr.Error())
	}

	s.logger.Info("Draft deleted",
		zap.String("project_id", projectID.String()),
		zap.String("code", project.Code))
	return nil
}

// GetProject returns a project with its pipeline stages
func (s *workflowServiceImpl) GetProject(ctx context.Context, projectID uuid.UUID) (*dto.ProjectResponse, *response.AppError) {
	project, err := s.projectRepo.FindByIDWithStages(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Project not found", projectID.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch project", err.Error())
	}
	resp := toProjectResponse(project, nowUTC())
	return &resp, nil
}

// GetProjectByCode returns a project by its human-readable code
func (s *workflowServiceImpl) GetProjectByCode(ctx context.Context, code string) (*dto.ProjectResponse, *response.AppError) {
	project, err := s.projectRepo.FindByCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Project not found", code)
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch project", err.Error())
	}
	return s.GetProject(ctx, project.ID)
}

// ListProjects returns a filtered page of projects
func (s *workflowServiceImpl) ListProjects(ctx context.Context, filter dto.ProjectListFilter) (*dto.PaginatedProjectsResponse, *response.AppError) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	projects, total, err := s.projectRepo.List(ctx, filter.Status, filter.Priority, filter.OwnerID, page, limit)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to list projects", err.Error())
	}

	now := nowUTC()
	responses := make([]dto.ProjectResponse, len(projects))
	for i, project := range projects {
		responses[i] = toProjectResponse(project, now)
	}
	return &dto.PaginatedProjectsResponse{
		Projects: responses,
		Total:    total,
		Page:     page,
		Limit:    limit,
	}, nil
}

// fetchProject loads a project mapping missing rows to NOT_FOUND
func (s *workflowServiceImpl) fetchProject(ctx context.Context, projectID uuid.UUID) (*domain.Project, *response.AppError) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Project not found", projectID.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch project", err.Error())
	}
	return project, nil
}

// requireOwnerOrAdmin rejects actors who neither own the project nor hold an
// administrative role
func (s *workflowServiceImpl) requireOwnerOrAdmin(actor domain.Actor, project *domain.Project) *response.AppError {
	if actor.IsAdmin() || actor.ID == project.OwnerID {
		return nil
	}
	return response.NewForbiddenError("Project belongs to another owner", project.Code)
}

// mapTxError converts transaction failures to AppErrors, preserving typed
// service errors and turning stale status writes into conflicts
func (s *workflowServiceImpl) mapTxError(err error, message string) *response.AppError {
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repository.ErrStaleStatus) {
		return response.NewConflictError("The project changed concurrently, retry the operation", err.Error())
	}
	s.logger.Error(message, zap.Error(err))
	return response.NewAppError(response.ErrCodeInternal, message, err.Error())
}

// statusChangeEvent maps an administrative transition to its notification
// event, or "" when none applies
func statusChangeEvent(from, to domain.ProjectStatus) string {
	switch to {
	case domain.ProjectStatusOnHold:
		return domain.EventProjectOnHold
	case domain.ProjectStatusRejected:
		return domain.EventProjectRejected
	case domain.ProjectStatusApproved:
		return domain.EventProjectApproved
	case domain.ProjectStatusInReview:
		if from == domain.ProjectStatusOnHold {
			return domain.EventProjectResumed
		}
	}
	return ""
}
