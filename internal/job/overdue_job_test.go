package job

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
	"project-review-api/internal/repository"
	"project-review-api/internal/service"
)

func seedOverdueStage(t *testing.T, db *gorm.DB, projectID uuid.UUID, order int, due time.Time) *domain.ProjectStage {
	t.Helper()
	area := domain.PipelineAreas[order-1]
	stage := &domain.ProjectStage{
		ProjectID:     projectID,
		Area:          area,
		Name:          domain.StageNameFor(area),
		Status:        domain.StageStatusInProgress,
		OrderSequence: order,
		DueDate:       &due,
	}
	require.NoError(t, db.Create(stage).Error)
	return stage
}

func TestOverdueReminderJob(t *testing.T) {
	db := newJobTestDB(t)
	logger := zap.NewNop()

	stageRepo := repository.NewStageRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	outboxWriter := service.NewOutboxWriter(outboxRepo, logger)

	project := seedDraft(t, db, 1, time.Hour)
	overdue := seedOverdueStage(t, db, project.ID, 1, time.Now().UTC().Add(-time.Hour))
	seedOverdueStage(t, db, project.ID, 2, time.Now().UTC().Add(24*time.Hour))

	job := NewOverdueReminderJob(db, stageRepo, outboxWriter, logger)
	job.Run()

	var events []domain.OutboxEvent
	require.NoError(t, db.Where("event_name = ?", domain.EventStageOverdue).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, project.ID, events[0].ProjectID)
	assert.Equal(t, domain.OutboxStatusPending, events[0].Status)
	assert.Contains(t, string(events[0].Payload), overdue.ID.String())

	t.Run("reminders repeat while the stage stays overdue", func(t *testing.T) {
		job.Run()
		var count int64
		require.NoError(t, db.Model(&domain.OutboxEvent{}).
			Where("event_name = ?", domain.EventStageOverdue).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})
}
