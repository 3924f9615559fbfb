package job

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
	"project-review-api/internal/repository"
	"project-review-api/internal/service"
)

// OverdueReminderJob enqueues a reminder event for every in-progress stage
// that has passed its due date. Reminders repeat on each run until the stage
// is finished or its due date is extended.
type OverdueReminderJob struct {
	db        *gorm.DB
	stageRepo repository.StageRepository
	outbox    service.OutboxWriter
	logger    *zap.Logger
}

// NewOverdueReminderJob creates a new overdue stage reminder job
func NewOverdueReminderJob(
	db *gorm.DB,
	stageRepo repository.StageRepository,
	outboxWriter service.OutboxWriter,
	logger *zap.Logger,
) *OverdueReminderJob {
	return &OverdueReminderJob{
		db:        db,
		stageRepo: stageRepo,
		outbox:    outboxWriter,
		logger:    logger,
	}
}

// Run finds overdue stages and enqueues one reminder event per stage
func (j *OverdueReminderJob) Run() {
	ctx := context.Background()
	now := time.Now().UTC()

	stages, err := j.stageRepo.FindOverdueInProgress(ctx, now)
	if err != nil {
		j.logger.Error("Failed to find overdue stages", zap.Error(err))
		return
	}
	if len(stages) == 0 {
		return
	}

	j.logger.Info("Found overdue stages", zap.Int("count", len(stages)))

	enqueued := 0
	for _, stage := range stages {
		payload := map[string]interface{}{
			"stage_id": stage.ID,
			"area":     stage.Area,
			"name":     stage.Name,
		}
		if stage.DueDate != nil {
			payload["due_date"] = stage.DueDate.Format(time.RFC3339)
		}
		if stage.AssignedReviewerID != nil {
			payload["assigned_reviewer_id"] = stage.AssignedReviewerID
		}

		if err := j.outbox.Enqueue(ctx, j.db, domain.EventStageOverdue, stage.ProjectID, payload); err != nil {
			j.logger.Error("Failed to enqueue overdue reminder",
				zap.String("stage_id", stage.ID.String()),
				zap.Error(err))
			continue
		}
		enqueued++
	}

	j.logger.Info("Overdue reminder job completed",
		zap.Int("overdue", len(stages)),
		zap.Int("enqueued", enqueued))
}
