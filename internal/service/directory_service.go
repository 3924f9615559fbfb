package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
	"project-review-api/internal/dto"
	"project-review-api/internal/repository"
	"project-review-api/internal/response"
)

// DirectoryService manages reviewer accounts, area grants and load-balanced
// stage assignment
type DirectoryService interface {
	CreateReviewer(ctx context.Context, actor domain.Actor, req dto.CreateReviewerRequest) (*dto.ReviewerResponse, *response.AppError)
	GetReviewer(ctx context.Context, id uuid.UUID) (*dto.ReviewerResponse, *response.AppError)
	UpdateReviewer(ctx context.Context, actor domain.Actor, id uuid.UUID, req dto.UpdateReviewerRequest) (*dto.ReviewerResponse, *response.AppError)
	ListReviewers(ctx context.Context) ([]dto.ReviewerResponse, *response.AppError)
	LeastBusyReviewer(ctx context.Context, area domain.ReviewArea) (*domain.Reviewer, error)
	LeastBusyReviewerTx(ctx context.Context, tx *gorm.DB, area domain.ReviewArea) (*domain.Reviewer, error)
	ReassignStages(ctx context.Context, actor domain.Actor, req dto.ReassignStagesRequest) ([]dto.StageResponse, *response.AppError)
}

// directoryServiceImpl is the implementation of DirectoryService
type directoryServiceImpl struct {
	db           *gorm.DB
	reviewerRepo repository.ReviewerRepository
	stageRepo    repository.StageRepository
	recorder     HistoryRecorder
	logger       *zap.Logger
}

// NewDirectoryService creates a new instance of DirectoryService
func NewDirectoryService(
	db *gorm.DB,
	reviewerRepo repository.ReviewerRepository,
	stageRepo repository.StageRepository,
	recorder HistoryRecorder,
	logger *zap.Logger,
) DirectoryService {
	return &directoryServiceImpl{
		db:           db,
		reviewerRepo: reviewerRepo,
		stageRepo:    stageRepo,
		recorder:     recorder,
		logger:       logger,
	}
}

// CreateReviewer registers a reviewer account with its area grants
func (s *directoryServiceImpl) CreateReviewer(ctx context.Context, actor domain.Actor, req dto.CreateReviewerRequest) (*dto.ReviewerResponse, *response.AppError) {
	if !actor.IsAdmin() {
		return nil, response.NewForbiddenError("Only administrators can manage reviewers", "")
	}

	role := req.Role
	if role == "" {
		role = domain.RoleReviewer
	}
	if !role.IsValid() {
		return nil, response.NewValidationError("Invalid reviewer role", string(role))
	}
	if err := validateAreaGrants(req.Areas); err != nil {
		return nil, err
	}

	if existing, err := s.reviewerRepo.FindByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, response.NewConflictError("A reviewer with this email already exists", req.Email)
	} else if err != nil && !isNotFound(err) {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to check reviewer email", err.Error())
	}

	reviewer := &domain.Reviewer{
		Name:     req.Name,
		Email:    req.Email,
		Role:     role,
		IsActive: true,
	}
	for _, area := range req.Areas {
		reviewer.Areas = append(reviewer.Areas, domain.ReviewerArea{
			ID:   uuid.New(),
			Area: area,
		})
	}

	if err := s.reviewerRepo.Create(ctx, reviewer); err != nil {
		s.logger.Error("Failed to create reviewer", zap.Error(err))
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to create reviewer", err.Error())
	}

	s.logger.Info("Reviewer created",
		zap.String("reviewer_id", reviewer.ID.String()),
		zap.String("role", string(reviewer.Role)))
	resp := toReviewerResponse(reviewer, 0)
	return &resp, nil
}

// GetReviewer returns a reviewer with its current workload
func (s *directoryServiceImpl) GetReviewer(ctx context.Context, id uuid.UUID) (*dto.ReviewerResponse, *response.AppError) {
	reviewer, err := s.reviewerRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Reviewer not found", id.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch reviewer", err.Error())
	}

	workload, err := s.stageRepo.CountActiveByReviewer(ctx, id)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to compute reviewer workload", err.Error())
	}
	resp := toReviewerResponse(reviewer, workload)
	return &resp, nil
}

// UpdateReviewer updates reviewer metadata and, when given, replaces the
// area grant set
func (s *directoryServiceImpl) UpdateReviewer(ctx context.Context, actor domain.Actor, id uuid.UUID, req dto.UpdateReviewerRequest) (*dto.ReviewerResponse, *response.AppError) {
	if !actor.IsAdmin() {
		return nil, response.NewForbiddenError("Only administrators can manage reviewers", "")
	}

	reviewer, err := s.reviewerRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Reviewer not found", id.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch reviewer", err.Error())
	}

	if req.Name != nil {
		reviewer.Name = *req.Name
	}
	if req.Role != nil {
		if !req.Role.IsValid() {
			return nil, response.NewValidationError("Invalid reviewer role", string(*req.Role))
		}
		reviewer.Role = *req.Role
	}
	if req.IsActive != nil {
		reviewer.IsActive = *req.IsActive
	}
	if req.Areas != nil {
		if appErr := validateAreaGrants(*req.Areas); appErr != nil {
			return nil, appErr
		}
	}

	if err := s.reviewerRepo.Update(ctx, reviewer); err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update reviewer", err.Error())
	}
	if req.Areas != nil {
		if err := s.reviewerRepo.ReplaceAreas(ctx, id, *req.Areas); err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update reviewer areas", err.Error())
		}
		reviewer, err = s.reviewerRepo.FindByID(ctx, id)
		if err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to reload reviewer", err.Error())
		}
	}

	workload, err := s.stageRepo.CountActiveByReviewer(ctx, id)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to compute reviewer workload", err.Error())
	}
	resp := toReviewerResponse(reviewer, workload)
	return &resp, nil
}

// ListReviewers returns all reviewers with workloads
func (s *directoryServiceImpl) ListReviewers(ctx context.Context) ([]dto.ReviewerResponse, *response.AppError) {
	reviewers, err := s.reviewerRepo.List(ctx)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to list reviewers", err.Error())
	}

	responses := make([]dto.ReviewerResponse, len(reviewers))
	for i, r := range reviewers {
		workload, err := s.stageRepo.CountActiveByReviewer(ctx, r.ID)
		if err != nil {
			return nil, response.NewAppError(response.ErrCodeInternal, "Failed to compute reviewer workload", err.Error())
		}
		responses[i] = toReviewerResponse(r, workload)
	}
	return responses, nil
}

// LeastBusyReviewer picks the active reviewer with area access holding the
// fewest pending or in-progress stages. Ties break deterministically on the
// lowest reviewer ID, so concurrent assignments converge on the same choice.
// Returns (nil, nil) when no reviewer covers the area; the stage stays
// unassigned rather than failing the workflow.
func (s *directoryServiceImpl) LeastBusyReviewer(ctx context.Context, area domain.ReviewArea) (*domain.Reviewer, error) {
	return s.leastBusy(ctx, s.reviewerRepo, s.stageRepo, area)
}

// LeastBusyReviewerTx is LeastBusyReviewer reading through the caller's
// transaction, so assignment decisions made inside a workflow transaction
// see its uncommitted writes.
func (s *directoryServiceImpl) LeastBusyReviewerTx(ctx context.Context, tx *gorm.DB, area domain.ReviewArea) (*domain.Reviewer, error) {
	return s.leastBusy(ctx, s.reviewerRepo.WithTx(tx), s.stageRepo.WithTx(tx), area)
}

func (s *directoryServiceImpl) leastBusy(ctx context.Context, reviewerRepo repository.ReviewerRepository, stageRepo repository.StageRepository, area domain.ReviewArea) (*domain.Reviewer, error) {
	candidates, err := reviewerRepo.FindActiveByArea(ctx, area)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		s.logger.Warn("No active reviewer covers area, leaving stage unassigned",
			zap.String("area", string(area)))
		return nil, nil
	}

	var best *domain.Reviewer
	var bestLoad int64
	for _, candidate := range candidates {
		load, err := stageRepo.CountActiveByReviewer(ctx, candidate.ID)
		if err != nil {
			return nil, err
		}
		if best == nil || load < bestLoad ||
			(load == bestLoad && candidate.ID.String() < best.ID.String()) {
			best = candidate
			bestLoad = load
		}
	}
	return best, nil
}

// ReassignStages bulk-moves active stages between reviewers and records an
// audit entry for every project touched
func (s *directoryServiceImpl) ReassignStages(ctx context.Context, actor domain.Actor, req dto.ReassignStagesRequest) ([]dto.StageResponse, *response.AppError) {
	if !actor.IsAdmin() {
		return nil, response.NewForbiddenError("Only administrators can reassign stages", "")
	}
	if req.FromReviewerID == req.ToReviewerID {
		return nil, response.NewValidationError("Source and target reviewer must differ", "")
	}
	if req.Area != nil && !req.Area.IsValid() {
		return nil, response.NewValidationError("Invalid review area", string(*req.Area))
	}

	if _, err := s.reviewerRepo.FindByID(ctx, req.FromReviewerID); err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Source reviewer not found", req.FromReviewerID.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch source reviewer", err.Error())
	}
	target, err := s.reviewerRepo.FindByID(ctx, req.ToReviewerID)
	if err != nil {
		if isNotFound(err) {
			return nil, response.NewNotFoundError("Target reviewer not found", req.ToReviewerID.String())
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to fetch target reviewer", err.Error())
	}
	if !target.IsActive {
		return nil, response.NewValidationError("Target reviewer is inactive", target.ID.String())
	}
	if req.Area != nil && !target.HasAreaAccess(*req.Area) {
		return nil, response.NewValidationError("Target reviewer has no access to the area", string(*req.Area))
	}

	var moved []*domain.ProjectStage
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		moved, err = s.stageRepo.WithTx(tx).ReassignActive(ctx, req.FromReviewerID, req.ToReviewerID, req.Area)
		if err != nil {
			return err
		}
		seen := make(map[uuid.UUID]bool)
		for _, stage := range moved {
			if seen[stage.ProjectID] {
				continue
			}
			seen[stage.ProjectID] = true
			if err := s.recorder.Record(ctx, tx, HistoryEntry{
				ProjectID:   stage.ProjectID,
				ActorID:     actor.ID,
				ActorType:   domain.ActorTypeUser,
				Action:      domain.ActionStageReassigned,
				Description: fmt.Sprintf("Stages reassigned from reviewer %s to %s", req.FromReviewerID, req.ToReviewerID),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		s.logger.Error("Failed to reassign stages", zap.Error(txErr))
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to reassign stages", txErr.Error())
	}

	s.logger.Info("Stages reassigned",
		zap.String("from", req.FromReviewerID.String()),
		zap.String("to", req.ToReviewerID.String()),
		zap.Int("count", len(moved)))

	now := nowUTC()
	responses := make([]dto.StageResponse, len(moved))
	for i, stage := range moved {
		responses[i] = toStageResponse(stage, now)
	}
	return responses, nil
}

// validateAreaGrants checks every grant is a pipeline area or the wildcard
func validateAreaGrants(areas []domain.ReviewArea) *response.AppError {
	for _, area := range areas {
		if area != domain.AreaAll && !area.IsValid() {
			return response.NewValidationError("Invalid review area", string(area))
		}
	}
	return nil
}
