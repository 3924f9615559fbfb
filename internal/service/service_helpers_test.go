package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"project-review-api/internal/database"
	"project-review-api/internal/domain"
	"project-review-api/internal/dto"
	"project-review-api/internal/repository"
)

// testEnv wires real repositories against an in-memory database so service
// tests exercise the full transaction paths.
type testEnv struct {
	db        *gorm.DB
	workflow  WorkflowService
	pipeline  PipelineService
	documents DocumentService
	feedback  FeedbackService
	directory DirectoryService
	recorder  HistoryRecorder

	projectRepo  repository.ProjectRepository
	stageRepo    repository.StageRepository
	documentRepo repository.DocumentRepository
	feedbackRepo repository.FeedbackRepository
	reviewerRepo repository.ReviewerRepository
	historyRepo  repository.HistoryRepository
	outboxRepo   repository.OutboxRepository

	files  *fakeFileService
	locker *fakeLocker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := openTestDB(t)

	logger := zap.NewNop()

	env := &testEnv{
		db:           db,
		projectRepo:  repository.NewProjectRepository(db),
		stageRepo:    repository.NewStageRepository(db),
		documentRepo: repository.NewDocumentRepository(db),
		feedbackRepo: repository.NewFeedbackRepository(db),
		reviewerRepo: repository.NewReviewerRepository(db),
		historyRepo:  repository.NewHistoryRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
		files:        newFakeFileService(),
		locker:       &fakeLocker{},
	}

	env.recorder = NewHistoryRecorder(env.historyRepo, logger)
	outboxWriter := NewOutboxWriter(env.outboxRepo, logger)
	env.directory = NewDirectoryService(db, env.reviewerRepo, env.stageRepo, env.recorder, logger)
	env.pipeline = NewPipelineService(db, env.stageRepo, env.projectRepo, env.feedbackRepo,
		env.directory, env.recorder, outboxWriter, env.locker, logger)
	env.workflow = NewWorkflowService(db, env.projectRepo, env.documentRepo, env.pipeline,
		env.recorder, outboxWriter, env.locker, logger)
	env.documents = NewDocumentService(db, env.documentRepo, env.projectRepo, env.files,
		env.recorder, outboxWriter, logger)
	env.feedback = NewFeedbackService(db, env.feedbackRepo, env.projectRepo, env.stageRepo,
		env.recorder, outboxWriter, logger)
	return env
}

// openTestDB opens a named shared-cache in-memory database capped at one
// connection. Plain ":memory:" gives every pooled connection its own empty
// database, so queries issued while a transaction holds the connection would
// otherwise land on a database without the schema.
func openTestDB(t *testing.T) *gorm.DB {
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

// adminActor returns an actor that passes every permission check
func adminActor() domain.Actor {
	return domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
}

func reviewerActor(areas ...domain.ReviewArea) domain.Actor {
	return domain.Actor{ID: uuid.New(), Role: domain.RoleReviewer, Areas: areas}
}

// createDraft creates a draft project owned by the given actor
func (e *testEnv) createDraft(t *testing.T, owner domain.Actor, title string) *dto.ProjectResponse {
	t.Helper()
	project, appErr := e.workflow.CreateProject(context.Background(), owner, dto.CreateProjectRequest{
		Title: title,
	})
	require.Nil(t, appErr)
	return project
}

// createReviewer registers an active reviewer covering the given areas
func (e *testEnv) createReviewer(t *testing.T, areas ...domain.ReviewArea) *dto.ReviewerResponse {
	t.Helper()
	reviewer, appErr := e.directory.CreateReviewer(context.Background(), adminActor(), dto.CreateReviewerRequest{
		Name:  "Reviewer " + uuid.NewString()[:8],
		Email: uuid.NewString()[:8] + "@example.com",
		Areas: areas,
	})
	require.Nil(t, appErr)
	return reviewer
}

// submitProject moves a draft into the review pipeline
func (e *testEnv) submitProject(t *testing.T, owner domain.Actor, projectID uuid.UUID) *dto.ProjectResponse {
	t.Helper()
	project, appErr := e.workflow.SubmitProject(context.Background(), owner, projectID)
	require.Nil(t, appErr)
	return project
}

// stageByOrder returns the stage with the given 1-based order sequence
func (e *testEnv) stageByOrder(t *testing.T, projectID uuid.UUID, order int) *domain.ProjectStage {
	t.Helper()
	stages, err := e.stageRepo.FindByProjectID(context.Background(), projectID)
	require.NoError(t, err)
	for _, stage := range stages {
		if stage.OrderSequence == order {
			return stage
		}
	}
	t.Fatalf("no stage with order %d", order)
	return nil
}

func (e *testEnv) reloadProject(t *testing.T, id uuid.UUID) *domain.Project {
	t.Helper()
	project, err := e.projectRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return project
}

// historyActions returns the recorded action names for a project in order
func (e *testEnv) historyActions(t *testing.T, projectID uuid.UUID) []string {
	t.Helper()
	page, err := e.recorder.ListByProject(context.Background(), projectID, 1, 100)
	require.NoError(t, err)
	actions := make([]string, len(page.Entries))
	for i, entry := range page.Entries {
		actions[i] = entry.Action
	}
	return actions
}

// outboxEvents returns the event names enqueued for a project in order
func (e *testEnv) outboxEvents(t *testing.T, projectID uuid.UUID) []string {
	t.Helper()
	var rows []domain.OutboxEvent
	require.NoError(t, e.db.Order("created_at ASC").
		Find(&rows, "project_id = ?", projectID).Error)
	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.EventName
	}
	return names
}

// fakeFileService is an in-memory FileService for tests
type fakeFileService struct {
	files   map[string][]byte
	saveErr error
	saved   int
	deleted []string
}

func newFakeFileService() *fakeFileService {
	return &fakeFileService{files: map[string][]byte{}}
}

func (f *fakeFileService) SaveFile(ctx context.Context, area domain.ReviewArea, projectID uuid.UUID, fileName, contentType string, file io.Reader) (*StoredFile, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("documents/%s/%s/%s", projectID, area, fileName)
	f.files[key] = content
	f.saved++

	sum := sha256.Sum256(content)
	return &StoredFile{
		Key:      key,
		Size:     int64(len(content)),
		MimeType: contentType,
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}

func (f *fakeFileService) VerifyIntegrity(ctx context.Context, key, checksum string) (bool, error) {
	content, ok := f.files[key]
	if !ok {
		return false, fmt.Errorf("file not found: %s", key)
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]) == checksum, nil
}

func (f *fakeFileService) DeleteFile(ctx context.Context, key string) error {
	delete(f.files, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// tamper replaces stored content without touching the recorded checksum
func (f *fakeFileService) tamper(key string, content []byte) {
	f.files[key] = content
}

// fakeLocker counts acquisitions and can simulate contention
type fakeLocker struct {
	acquireErr error
	acquired   int
}

func (l *fakeLocker) Acquire(ctx context.Context, projectID uuid.UUID) (func(), error) {
	if l.acquireErr != nil {
		return nil, l.acquireErr
	}
	l.acquired++
	return func() {}, nil
}
