package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
	"project-review-api/internal/dto"
	"project-review-api/internal/metrics"
	"project-review-api/internal/repository"
	"project-review-api/internal/response"
)

// defaultStageDuration is the review window granted when a stage starts
const defaultStageDuration = 7 * 24 * time.Hour

// PipelineService runs the fixed departmental review pipeline: stage
// start/complete/fail, automatic advancement and final approval
type PipelineService interface {
	CreateStagesTx(ctx context.Context, tx *gorm.DB, project *domain.Project) error
	StartPipelineTx(ctx context.Context, tx *gorm.DB, actor domain.Actor, project *domain.Project, now time.Time) (*domain.ProjectStage, error)
	StartStage(ctx context.Context, actor domain.Actor, stageID uuid.UUID) (*dto.StageResponse, *response.AppError)
	CompleteStage(ctx context.Context, actor domain.Actor, stageID uuid.UUID, req dto.CompleteStageRequest) (*dto.CompleteStageResponse, *response.AppError)
	FailStage(ctx context.Context, actor domain.Actor, stageID uuid.UUID, req dto.FailStageRequest) (*dto.StageResponse, *response.AppError)
	UpdateProgress(ctx context.Context, actor domain.Actor, stageID uuid.UUID, req dto.UpdateStageProgressRequest) (*dto.StageResponse, *response.AppError)
	ExtendDueDate(ctx context.Context, actor domain.Actor, stageID uuid.UUID, req dto.ExtendDueDateRequest) (*dto.StageResponse, *response.AppError)
	GetProjectStages(ctx context.Context, projectID uuid.UUID) ([]dto.StageResponse, *response.AppError)
}

// pipelineServiceImpl is the implementation of PipelineService
type pipelineServiceImpl struct {
	db           *gorm.DB
	stageRepo    repository.StageRepository
	projectRepo  repository.ProjectRepository
	feedbackRepo repository.FeedbackRepository
	directory    DirectoryService
	recorder     HistoryRecorder
	outbox       OutboxWriter
	locker       ProjectLocker
	logger       *zap.Logger
}

// NewPipelineService creates a new instance of PipelineService
func NewPipelineService(
	db *gorm.DB,
	stageRepo repository.StageRepository,
	projectRepo repository.ProjectRepository,
	feedbackRepo repository.FeedbackRepository,
	directory DirectoryService,
	recorder HistoryRecorder,
	outbox OutboxWriter,
	locker ProjectLocker,
	logger *zap.Logger,
) PipelineService {
	return &pipelineServiceImpl{
		db:           db,
		stageRepo:    stageRepo,
		projectRepo:  projectRepo,
		feedbackRepo: feedbackRepo,
		directory:    directory,
		recorder:     recorder,
		outbox:       outbox,
		locker:       locker,
		logger:       logger,
	}
}

// CreateStagesTx inserts the full pending pipeline for a new project inside
// the caller's transaction. Stages stay unassigned until submission.
func (s *pipelineServiceImpl) CreateStagesTx(ctx context.Context, tx *gorm.DB, project *domain.Project) error {
	stages := make([]*domain.ProjectStage, len(domain.PipelineAreas))
	for i, area := range domain.PipelineAreas {
		stages[i] = &domain.ProjectStage{
			ProjectID:     project.ID,
			Area:          area,
			Name:          domain.StageNameFor(area),
			Status:        domain.StageStatusPending,
			OrderSequence: i + 1,
		}
	}
	return s.stageRepo.WithTx(tx).CreateBatch(ctx, stages)
}

// StartPipelineTx assigns every stage a least-busy reviewer and puts the
// first stage in progress, inside the submission transaction. Returns the
// started stage.
func (s *pipelineServiceImpl) StartPipelineTx(ctx context.Context, tx *gorm.DB, actor domain.Actor, project *domain.Project, now time.Time) (*domain.ProjectStage, error) {
	stageRepo := s.stageRepo.WithTx(tx)
	stages, err := stageRepo.FindByProjectID(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("project %s has no pipeline stages", project.ID)
	}

	for _, stage := range stages {
		reviewer, err := s.directory.LeastBusyReviewerTx(ctx, tx, stage.Area)
		if err != nil {
			return nil, err
		}
		if reviewer == nil {
			continue
		}
		if err := stageRepo.UpdateFields(ctx, stage.ID, map[string]interface{}{
			"assigned_reviewer_id": reviewer.ID,
		}); err != nil {
			return nil, err
		}
		stage.AssignedReviewerID = &reviewer.ID
	}

	first := stages[0]
	due := now.Add(defaultStageDuration)
	if err := stageRepo.UpdateStatusCAS(ctx, first.ID, domain.StageStatusPending, map[string]interface{}{
		"status":     domain.StageStatusInProgress,
		"start_date": now,
		"due_date":   due,
	}); err != nil {
		return nil, err
	}
	first.Status = domain.StageStatusInProgress
	first.StartDate = &now
	first.DueDate = &due

	if first.AssignedReviewerID != nil {
		if err := s.outbox.Enqueue(ctx, tx, domain.EventProjectAssigned, project.ID, map[string]interface{}{
			"stage_id":    first.ID,
			"area":        first.Area,
			"reviewer_id": *first.AssignedReviewerID,
		}); err != nil {
			return nil, err
		}
	}

	if err := s.recorder.Record(ctx, tx, HistoryEntry{
		ProjectID:   project.ID,
		ActorID:     actor.ID,
		ActorType:   domain.ActorTypeSystem,
		Action:      domain.ActionStageStarted,
		Description: fmt.Sprintf("Stage %q started", first.Name),
		After:       first,
	}); err != nil {
		return nil, err
	}
	return first, nil
}

// StartStage manually starts a pending stage. The stage must be the next one
// in order: every earlier stage has to be completed.
func (s *pipelineServiceImpl) StartStage(ctx context.Context, actor domain.Actor, stageID uuid.UUID) (*dto.StageResponse, *response.AppError) {
	stage, appErr := s.fetchStage(ctx, stageID)
	if appErr != nil {
		return nil, appErr
	}
	if !actor.IsAdmin() && !s.actorMayWork(actor, stage) {
		return nil, response.NewForbiddenError("Stage belongs to another reviewer", stageID.String())
	}
	if stage.Status != domain.StageStatusPending {
		return nil, response.NewInvalidTransitionError(
			fmt.Sprintf("Stage cannot start from status %s", stage.Status), stageID.String())
	}

	release := acquireProjectLock(ctx, s.locker, stage.ProjectID, s.logger)
	defer release()

	now := nowUTC()
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		stageRepo := s.stageRepo.WithTx(tx)
		siblings, err := stageRepo.FindByProjectID(ctx, stage.ProjectID)
		if err != nil {
			return err
		}
		for _, sibling := range siblings {
			if sibling.OrderSequence < stage.OrderSequence && sibling.Status != domain.StageStatusCompleted {
				return response.NewInvalidTransitionError(
					fmt.Sprintf("Stage %q must complete first", sibling.Name), sibling.ID.String())
			}
		}
		return s.startStageTx(ctx, tx, actor, stage, now)
	})
	if txErr != nil {
		return nil, s.mapTxError(txErr, "Failed to start stage")
	}

	resp := toStageResponse(stage, now)
	return &resp, nil
}

// CompleteStage finishes an in-progress stage and advances the pipeline:
// the next pending stage starts, or, when none is left, the project is
// approved. Unresolved blocking feedback never gates the transition; it is
// surfaced in the response for the reviewer to judge.
func (s *pipelineServiceImpl) CompleteStage(ctx context.Context, actor domain.Actor, stageID uuid.UUID, req dto.CompleteStageRequest) (*dto.CompleteStageResponse, *response.AppError) {
	stage, appErr := s.fetchStage(ctx, stageID)
	if appErr != nil {
		return nil, appErr
	}
	if !s.actorMayWork(actor, stage) {
		return nil, response.NewForbiddenError("Stage belongs to another reviewer", stageID.String())
	}
	if stage.Status != domain.StageStatusInProgress {
		return nil, response.NewInvalidTransitionError(
			fmt.Sprintf("Stage cannot complete from status %s", stage.Status), stageID.String())
	}

	release := acquireProjectLock(ctx, s.locker, stage.ProjectID, s.logger)
	defer release()

	now := nowUTC()
	var next *domain.ProjectStage
	var approved bool

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		stageRepo := s.stageRepo.WithTx(tx)

		updates := map[string]interface{}{
			"status":                domain.StageStatusCompleted,
			"end_date":              now,
			"completion_percentage": 100.0,
		}
		if req.Notes != "" {
			updates["reviewer_notes"] = req.Notes
		}
		if stage.StartDate != nil {
			updates["actual_hours"] = now.Sub(*stage.StartDate).Hours()
		}
		if err := stageRepo.UpdateStatusCAS(ctx, stage.ID, domain.StageStatusInProgress, updates); err != nil {
			return err
		}
		stage.Status = domain.StageStatusCompleted
		stage.EndDate = &now
		stage.CompletionPercentage = 100
		if req.Notes != "" {
			stage.ReviewerNotes = req.Notes
		}
		if stage.StartDate != nil {
			stage.ActualHours = now.Sub(*stage.StartDate).Hours()
		}

		if err := s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   stage.ProjectID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeReviewer,
			Action:      domain.ActionStageCompleted,
			Description: fmt.Sprintf("Stage %q completed", stage.Name),
			After:       stage,
		}); err != nil {
			return err
		}
		if err := s.outbox.Enqueue(ctx, tx, domain.EventStageCompleted, stage.ProjectID, map[string]interface{}{
			"stage_id": stage.ID,
			"area":     stage.Area,
			"sequence": stage.OrderSequence,
		}); err != nil {
			return err
		}

		var err error
		next, err = stageRepo.FindNextPending(ctx, stage.ProjectID, stage.OrderSequence)
		if err != nil && !isNotFound(err) {
			return err
		}
		if next != nil && err == nil {
			if err := s.startStageTx(ctx, tx, actor, next, now); err != nil {
				return err
			}
			return s.recalcProgressTx(ctx, tx, stage.ProjectID)
		}
		next = nil

		unfinished, err := stageRepo.CountUnfinished(ctx, stage.ProjectID)
		if err != nil {
			return err
		}
		if unfinished > 0 {
			// A later stage failed or is still active; nothing to advance.
			return s.recalcProgressTx(ctx, tx, stage.ProjectID)
		}

		if err := s.approveProjectTx(ctx, tx, actor, stage.ProjectID, now); err != nil {
			return err
		}
		approved = true
		return nil
	})
	if txErr != nil {
		return nil, s.mapTxError(txErr, "Failed to complete stage")
	}

	metrics.IncrementStageCompleted(string(stage.Area))
	if approved {
		metrics.IncrementProjectApproved()
	}
	s.logger.Info("Stage completed",
		zap.String("stage_id", stage.ID.String()),
		zap.String("project_id", stage.ProjectID.String()),
		zap.Bool("project_approved", approved))

	result := &dto.CompleteStageResponse{
		Stage:           toStageResponse(stage, now),
		ProjectApproved: approved,
	}
	if next != nil {
		nextResp := toStageResponse(next, now)
		result.NextStage = &nextResp
	}

	blocking, err := s.feedbackRepo.ListUnresolvedBlocking(ctx, stage.ProjectID, nil)
	if err != nil {
		s.logger.Warn("Failed to load blocking feedback summary", zap.Error(err))
	} else {
		for _, item := range blocking {
			result.BlockingFeedback = append(result.BlockingFeedback, toFeedbackResponse(item))
		}
	}
	return result, nil
}

// FailStage fails an in-progress stage and rejects the whole project
func (s *pipelineServiceImpl) FailStage(ctx context.Context, actor domain.Actor, stageID uuid.UUID, req dto.FailStageRequest) (*dto.StageResponse, *response.AppError) {
	stage, appErr := s.fetchStage(ctx, stageID)
	if appErr != nil {
		return nil, appErr
	}
	if !s.actorMayWork(actor, stage) {
		return nil, response.NewForbiddenError("Stage belongs to another reviewer", stageID.String())
	}
	if stage.Status != domain.StageStatusInProgress {
		return nil, response.NewInvalidTransitionError(
			fmt.Sprintf("Stage cannot fail from status %s", stage.Status), stageID.String())
	}

	release := acquireProjectLock(ctx, s.locker, stage.ProjectID, s.logger)
	defer release()

	now := nowUTC()
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.stageRepo.WithTx(tx).UpdateStatusCAS(ctx, stage.ID, domain.StageStatusInProgress, map[string]interface{}{
			"status":         domain.StageStatusFailed,
			"end_date":       now,
			"reviewer_notes": req.Reason,
		}); err != nil {
			return err
		}
		stage.Status = domain.StageStatusFailed
		stage.EndDate = &now
		stage.ReviewerNotes = req.Reason

		if err := s.projectRepo.WithTx(tx).UpdateStatusGuarded(ctx, stage.ProjectID,
			[]domain.ProjectStatus{domain.ProjectStatusSubmitted, domain.ProjectStatusInReview},
			map[string]interface{}{
				"status": domain.ProjectStatusRejected,
			}); err != nil {
			return err
		}

		if err := s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   stage.ProjectID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeReviewer,
			Action:      domain.ActionStageFailed,
			Description: fmt.Sprintf("Stage %q failed: %s", stage.Name, req.Reason),
			After:       stage,
		}); err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, domain.EventProjectRejected, stage.ProjectID, map[string]interface{}{
			"stage_id": stage.ID,
			"area":     stage.Area,
			"reason":   req.Reason,
		})
	})
	if txErr != nil {
		return nil, s.mapTxError(txErr, "Failed to fail stage")
	}

	metrics.IncrementProjectRejected()
	s.logger.Info("Stage failed, project rejected",
		zap.String("stage_id", stage.ID.String()),
		zap.String("project_id", stage.ProjectID.String()))

	resp := toStageResponse(stage, now)
	return &resp, nil
}

// UpdateProgress sets a stage's completion percentage, clamped to 0..100,
// and recalculates the project progress. Any stage state accepts the update;
// the stage status never changes.
func (s *pipelineServiceImpl) UpdateProgress(ctx context.Context, actor domain.Actor, stageID uuid.UUID, req dto.UpdateStageProgressRequest) (*dto.StageResponse, *response.AppError) {
	stage, appErr := s.fetchStage(ctx, stageID)
	if appErr != nil {
		return nil, appErr
	}
	if !s.actorMayWork(actor, stage) {
		return nil, response.NewForbiddenError("Stage belongs to another reviewer", stageID.String())
	}

	pct := req.Percentage
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"completion_percentage": pct,
		}
		if req.Notes != "" {
			updates["reviewer_notes"] = req.Notes
		}
		if err := s.stageRepo.WithTx(tx).UpdateFields(ctx, stage.ID, updates); err != nil {
			return err
		}
		stage.CompletionPercentage = pct
		if req.Notes != "" {
			stage.ReviewerNotes = req.Notes
		}

		if err := s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   stage.ProjectID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeReviewer,
			Action:      domain.ActionStageProgress,
			Description: fmt.Sprintf("Stage %q progress set to %.0f%%", stage.Name, pct),
		}); err != nil {
			return err
		}
		return s.recalcProgressTx(ctx, tx, stage.ProjectID)
	})
	if txErr != nil {
		return nil, s.mapTxError(txErr, "Failed to update stage progress")
	}

	resp := toStageResponse(stage, nowUTC())
	return &resp, nil
}

// ExtendDueDate moves a stage's due date. A pure metadata change recorded
// in history; any stage state accepts it.
func (s *pipelineServiceImpl) ExtendDueDate(ctx context.Context, actor domain.Actor, stageID uuid.UUID, req dto.ExtendDueDateRequest) (*dto.StageResponse, *response.AppError) {
	stage, appErr := s.fetchStage(ctx, stageID)
	if appErr != nil {
		return nil, appErr
	}

	before := *stage
	due := req.DueDate.UTC()
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.stageRepo.WithTx(tx).UpdateFields(ctx, stage.ID, map[string]interface{}{
			"due_date": due,
		}); err != nil {
			return err
		}
		stage.DueDate = &due

		description := fmt.Sprintf("Stage %q due date moved to %s", stage.Name, due.Format(time.RFC3339))
		if req.Reason != "" {
			description += ": " + req.Reason
		}
		return s.recorder.Record(ctx, tx, HistoryEntry{
			ProjectID:   stage.ProjectID,
			ActorID:     actor.ID,
			ActorType:   domain.ActorTypeUser,
			Action:      domain.ActionStageExtended,
			Description: description,
			Before:      &before,
			After:       stage,
		})
	})
	if txErr != nil {
		return nil, s.mapTxError(txErr, "Failed to extend stage due date")
	}

	resp := toStageResponse(stage, nowUTC())
	return &resp, nil
}

// GetProjectStages returns a project's pipeline in order
func (s *pipelineServiceImpl) GetProjectStages(ctx context.Context, projectID uuid.UUID) ([]dto.StageResponse, *response.AppError) {
	stages, err := s.stageRepo.FindByProjectID(ctx, projectID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to list project stages", err.Error())
	}
	now := nowUTC()
	responses := make([]dto.StageResponse, len(stages))
	for i, stage := range stages {
		responses[i] = toStageResponse(stage, now)
	}
	return responses, nil
}

// startStageTx moves a pending stage to in progress inside a transaction,
// assigning a reviewer if none is set, and pushes the project to in_review
func (s *pipelineServiceImpl) startStageTx(ctx context.Context, tx *gorm.DB, actor domain.Actor, stage *domain.ProjectStage, now time.Time) error {
	stageRepo := s.stageRepo.WithTx(tx)

	assigned := false
	if stage.AssignedReviewerID == nil {
		reviewer, err := s.directory.LeastBusyReviewerTx(ctx, tx, stage.Area)
		if err != nil {
			return err
		}
		if reviewer != nil {
			stage.AssignedReviewerID = &reviewer.ID
			assigned = true
		}
	}

	due := now.Add(defaultStageDuration)
	updates := map[string]interface{}{
		"status":     domain.StageStatusInProgress,
		"start_date": now,
		"due_date":   due,
	}
	if stage.AssignedReviewerID != nil {
		updates["assigned_reviewer_id"] = *stage.AssignedReviewerID
	}
	if err := stageRepo.UpdateStatusCAS(ctx, stage.ID, domain.StageStatusPending, updates); err != nil {
		return err
	}
	stage.Status = domain.StageStatusInProgress
	stage.StartDate = &now
	stage.DueDate = &due

	if assigned {
		if err := s.outbox.Enqueue(ctx, tx, domain.EventProjectAssigned, stage.ProjectID, map[string]interface{}{
			"stage_id":    stage.ID,
			"area":        stage.Area,
			"reviewer_id": *stage.AssignedReviewerID,
		}); err != nil {
			return err
		}
	}

	if err := s.projectRepo.WithTx(tx).UpdateStatusGuarded(ctx, stage.ProjectID,
		[]domain.ProjectStatus{domain.ProjectStatusSubmitted, domain.ProjectStatusInReview},
		map[string]interface{}{
			"status":       domain.ProjectStatusInReview,
			"current_area": stage.Area,
		}); err != nil {
		return err
	}

	return s.recorder.Record(ctx, tx, HistoryEntry{
		ProjectID:   stage.ProjectID,
		ActorID:     actor.ID,
		ActorType:   domain.ActorTypeSystem,
		Action:      domain.ActionStageStarted,
		Description: fmt.Sprintf("Stage %q started", stage.Name),
		After:       stage,
	})
}

// approveProjectTx finishes the pipeline: project approved, progress 100,
// completion date set, approval event enqueued
func (s *pipelineServiceImpl) approveProjectTx(ctx context.Context, tx *gorm.DB, actor domain.Actor, projectID uuid.UUID, now time.Time) error {
	if err := s.projectRepo.WithTx(tx).UpdateStatusGuarded(ctx, projectID,
		[]domain.ProjectStatus{domain.ProjectStatusSubmitted, domain.ProjectStatusInReview},
		map[string]interface{}{
			"status":                 domain.ProjectStatusApproved,
			"current_area":           nil,
			"progress_percentage":    100.0,
			"actual_completion_date": now,
		}); err != nil {
		return err
	}

	if err := s.recorder.Record(ctx, tx, HistoryEntry{
		ProjectID:   projectID,
		ActorID:     actor.ID,
		ActorType:   domain.ActorTypeSystem,
		Action:      domain.ActionStatusChanged,
		Description: "All pipeline stages completed, project approved",
	}); err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, tx, domain.EventProjectApproved, projectID, map[string]interface{}{
		"approved_at": now,
	})
}

// recalcProgressTx recomputes project progress as the average stage
// completion, counting completed stages as 100
func (s *pipelineServiceImpl) recalcProgressTx(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
	stages, err := s.stageRepo.WithTx(tx).FindByProjectID(ctx, projectID)
	if err != nil {
		return err
	}
	if len(stages) == 0 {
		return nil
	}
	var sum float64
	for _, stage := range stages {
		if stage.Status == domain.StageStatusCompleted {
			sum += 100
		} else {
			sum += stage.CompletionPercentage
		}
	}
	return s.projectRepo.WithTx(tx).UpdateFields(ctx, projectID, map[string]interface{}{
		"progress_percentage": sum / float64(len(stages)),
	})
}

// fetchStage loads a stage mapping missing rows to NOT_FOUND
func (s *pipelineServiceImpl) fetchStage(ctx context.Context, stageID uuid.UUID) (*domain.ProjectStage, *response.AppError) {
	stage, err := s.stageRepo.FindByID(ctx, stageID)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Stage not found", stageID.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch stage", err.Error())
	}
	return stage, nil
}

// actorMayWork reports whether the actor may operate on the stage: admins
// always, the assigned reviewer, or any reviewer with area access while the
// stage is unassigned
func (s *pipelineServiceImpl) actorMayWork(actor domain.Actor, stage *domain.ProjectStage) bool {
	if actor.IsAdmin() {
		return true
	}
	if stage.AssignedReviewerID != nil {
		return *stage.AssignedReviewerID == actor.ID
	}
	return actor.HasAreaAccess(stage.Area)
}

// mapTxError converts transaction failures to AppErrors, preserving typed
// service errors and turning stale status writes into conflicts
func (s *pipelineServiceImpl) mapTxError(err error, message string) *response.AppError {
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, repository.ErrStaleStatus) {
		return response.NewConflictError("The stage or project changed concurrently, retry the operation", err.Error())
	}
	s.logger.Error(message, zap.Error(err))
	return response.NewAppError(response.ErrCodeInternal, message, err.Error())
}
