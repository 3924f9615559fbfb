package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"project-review-api/internal/database"
	"project-review-api/internal/domain"
)

// newTestDB opens a named shared-cache in-memory database capped at one
// connection, so every pooled handle sees the same schema.
func newTestDB(t *testing.T) *gorm.DB {
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

// seedProject inserts a draft project with a valid code
func seedProject(t *testing.T, db *gorm.DB, year, seq int) *domain.Project {
	t.Helper()
	project := &domain.Project{
		Code:     domain.BuildProjectCode(year, seq),
		CodeYear: year,
		CodeSeq:  seq,
		Title:    "Seed project",
		Status:   domain.ProjectStatusDraft,
		Priority: domain.PriorityMedium,
		OwnerID:  uuid.New(),
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

// seedStage inserts a stage row for a project
func seedStage(t *testing.T, db *gorm.DB, projectID uuid.UUID, order int, status domain.StageStatus, reviewerID *uuid.UUID) *domain.ProjectStage {
	t.Helper()
	area := domain.PipelineAreas[(order-1)%len(domain.PipelineAreas)]
	stage := &domain.ProjectStage{
		ProjectID:          projectID,
		Area:               area,
		Name:               domain.StageNameFor(area),
		Status:             status,
		OrderSequence:      order,
		AssignedReviewerID: reviewerID,
	}
	require.NoError(t, db.Create(stage).Error)
	return stage
}

// seedDocument inserts one document version row
func seedDocument(t *testing.T, db *gorm.DB, projectID uuid.UUID, area domain.ReviewArea, name string, version int, isLatest bool) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ProjectID:  projectID,
		Area:       area,
		Name:       name,
		Version:    version,
		IsLatest:   isLatest,
		FileKey:    uuid.NewString(),
		FileSize:   42,
		MimeType:   "application/pdf",
		Checksum:   "0000000000000000000000000000000000000000000000000000000000000000",
		Status:     domain.DocumentStatusUploaded,
		UploadedBy: uuid.New(),
	}
	require.NoError(t, db.Create(doc).Error)
	return doc
}

func ctx() context.Context {
	return context.Background()
}
