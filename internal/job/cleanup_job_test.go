package job

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"project-review-api/internal/database"
	"project-review-api/internal/domain"
	"project-review-api/internal/repository"
	"project-review-api/internal/service"
)

// newJobTestDB opens a named shared-cache in-memory database capped at one
// connection, so every pooled handle sees the same schema.
func newJobTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func seedDraft(t *testing.T, db *gorm.DB, seq int, age time.Duration) *domain.Project {
	t.Helper()
	project := &domain.Project{
		Code:     domain.BuildProjectCode(2026, seq),
		CodeYear: 2026,
		CodeSeq:  seq,
		Title:    "Draft",
		Status:   domain.ProjectStatusDraft,
		Priority: domain.PriorityMedium,
		OwnerID:  uuid.New(),
	}
	require.NoError(t, db.Create(project).Error)
	require.NoError(t, db.Model(&domain.Project{}).Where("id = ?", project.ID).
		Update("created_at", time.Now().UTC().Add(-age)).Error)
	return project
}

func TestDraftCleanupJob(t *testing.T) {
	db := newJobTestDB(t)
	logger := zap.NewNop()

	projectRepo := repository.NewProjectRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	recorder := service.NewHistoryRecorder(historyRepo, logger)

	staleEmpty := seedDraft(t, db, 1, 120*24*time.Hour)
	freshDraft := seedDraft(t, db, 2, time.Hour)

	staleWithDocs := seedDraft(t, db, 3, 120*24*time.Hour)
	require.NoError(t, db.Create(&domain.Document{
		ProjectID:  staleWithDocs.ID,
		Area:       domain.AreaArquitectura,
		Name:       "diagram",
		Version:    1,
		IsLatest:   true,
		FileKey:    "documents/key",
		FileSize:   10,
		Checksum:   "abc",
		Status:     domain.DocumentStatusUploaded,
		UploadedBy: uuid.New(),
	}).Error)

	job := NewDraftCleanupJob(db, projectRepo, documentRepo, recorder, 90, logger)
	job.Run()

	t.Run("stale empty draft is removed with an audit row", func(t *testing.T) {
		var count int64
		require.NoError(t, db.Unscoped().Model(&domain.Project{}).
			Where("id = ?", staleEmpty.ID).Count(&count).Error)
		assert.Zero(t, count)

		var entries []domain.ProjectHistory
		require.NoError(t, db.Where("project_id = ?", staleEmpty.ID).Find(&entries).Error)
		require.Len(t, entries, 1)
		assert.Equal(t, domain.ActionProjectDeleted, entries[0].Action)
		assert.Equal(t, domain.ActorTypeSystem, entries[0].ActorType)
	})

	t.Run("fresh draft survives", func(t *testing.T) {
		var count int64
		require.NoError(t, db.Model(&domain.Project{}).
			Where("id = ?", freshDraft.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("stale draft with documents survives", func(t *testing.T) {
		var count int64
		require.NoError(t, db.Model(&domain.Project{}).
			Where("id = ?", staleWithDocs.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("a second run is a no-op", func(t *testing.T) {
		job.Run()
		var entries []domain.ProjectHistory
		require.NoError(t, db.Where("project_id = ?", staleEmpty.ID).Find(&entries).Error)
		assert.Len(t, entries, 1)
	})
}
