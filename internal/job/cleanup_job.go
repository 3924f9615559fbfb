package job

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
	"project-review-api/internal/repository"
	"project-review-api/internal/service"
)

// DraftCleanupJob removes draft projects that were never submitted and have
// sat untouched past the retention window. Drafts with uploaded documents
// are left alone; someone put work into those.
type DraftCleanupJob struct {
	db           *gorm.DB
	projectRepo  repository.ProjectRepository
	documentRepo repository.DocumentRepository
	recorder     service.HistoryRecorder
	retention    time.Duration
	logger       *zap.Logger
}

// NewDraftCleanupJob creates a new stale draft cleanup job
func NewDraftCleanupJob(
	db *gorm.DB,
	projectRepo repository.ProjectRepository,
	documentRepo repository.DocumentRepository,
	recorder service.HistoryRecorder,
	retentionDays int,
	logger *zap.Logger,
) *DraftCleanupJob {
	return &DraftCleanupJob{
		db:           db,
		projectRepo:  projectRepo,
		documentRepo: documentRepo,
		recorder:     recorder,
		retention:    time.Duration(retentionDays) * 24 * time.Hour,
		logger:       logger,
	}
}

// Run deletes stale empty drafts, writing an audit row for each
func (j *DraftCleanupJob) Run() {
	ctx := context.Background()
	cutoff := time.Now().UTC().Add(-j.retention)

	drafts, err := j.projectRepo.FindStaleDrafts(ctx, cutoff)
	if err != nil {
		j.logger.Error("Failed to find stale drafts", zap.Error(err))
		return
	}
	if len(drafts) == 0 {
		return
	}

	j.logger.Info("Found stale drafts",
		zap.Int("count", len(drafts)),
		zap.Time("cutoff", cutoff))

	deleted := 0
	skipped := 0
	for _, draft := range drafts {
		count, err := j.documentRepo.CountByProject(ctx, draft.ID)
		if err != nil {
			j.logger.Error("Failed to count documents for draft",
				zap.String("project_id", draft.ID.String()),
				zap.Error(err))
			continue
		}
		if count > 0 {
			skipped++
			continue
		}

		if err := j.deleteDraft(ctx, draft.ID, draft.Code); err != nil {
			j.logger.Error("Failed to delete stale draft",
				zap.String("project_id", draft.ID.String()),
				zap.Error(err))
			continue
		}
		deleted++
	}

	j.logger.Info("Draft cleanup job completed",
		zap.Int("stale", len(drafts)),
		zap.Int("deleted", deleted),
		zap.Int("skipped_with_documents", skipped))
}

func (j *DraftCleanupJob) deleteDraft(ctx context.Context, projectID uuid.UUID, code string) error {
	return j.db.Transaction(func(tx *gorm.DB) error {
		// The audit row outlives the project; there is no FK back to it.
		if err := j.recorder.Record(ctx, tx, service.HistoryEntry{
			ProjectID:   projectID,
			ActorID:     uuid.Nil,
			ActorType:   domain.ActorTypeSystem,
			Action:      domain.ActionProjectDeleted,
			Description: fmt.Sprintf("Stale draft %s removed by retention cleanup", code),
		}); err != nil {
			return err
		}
		return j.projectRepo.WithTx(tx).Delete(ctx, projectID)
	})
}
