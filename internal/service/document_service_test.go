package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-review-api/internal/domain"
	"project-review-api/internal/dto"
	"project-review-api/internal/response"
)

func uploadDoc(t *testing.T, env *testEnv, actor domain.Actor, projectID uuid.UUID, area domain.ReviewArea, name, content string) *dto.DocumentResponse {
	t.Helper()
	doc, appErr := env.documents.UploadDocument(context.Background(), actor, projectID,
		dto.UploadDocumentRequest{Area: area, Name: name},
		name+".pdf", "application/pdf", strings.NewReader(content))
	require.Nil(t, appErr)
	return doc
}

func TestUploadDocument_VersionChain(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()
	project := env.createDraft(t, owner, "Documented")

	v1 := uploadDoc(t, env, owner, project.ID, domain.AreaArquitectura, "diagram", "v1 content")
	assert.Equal(t, 1, v1.Version)
	assert.True(t, v1.IsLatest)
	assert.Equal(t, domain.DocumentStatusUploaded, v1.Status)
	assert.NotEmpty(t, v1.Checksum)

	v2 := uploadDoc(t, env, owner, project.ID, domain.AreaArquitectura, "diagram", "v2 content")
	assert.Equal(t, 2, v2.Version)
	assert.True(t, v2.IsLatest)

	t.Run("prior version is superseded", func(t *testing.T) {
		versions, appErr := env.documents.ListDocumentVersions(context.Background(), project.ID, domain.AreaArquitectura, "diagram")
		require.Nil(t, appErr)
		require.Len(t, versions, 2)

		byVersion := map[int]dto.DocumentResponse{}
		for _, v := range versions {
			byVersion[v.Version] = v
		}
		assert.False(t, byVersion[1].IsLatest)
		assert.True(t, byVersion[2].IsLatest)
	})

	t.Run("same name in another area is its own chain", func(t *testing.T) {
		other := uploadDoc(t, env, owner, project.ID, domain.AreaSeguridad, "diagram", "security view")
		assert.Equal(t, 1, other.Version)
	})

	t.Run("latest-only listing returns one per chain", func(t *testing.T) {
		docs, appErr := env.documents.ListProjectDocuments(context.Background(), project.ID, true)
		require.Nil(t, appErr)
		assert.Len(t, docs, 2)
		for _, doc := range docs {
			assert.True(t, doc.IsLatest)
		}
	})
}

func TestUploadDocument_ApprovedProjectIsFrozen(t *testing.T) {
	env := newTestEnv(t)
	actor, projectID := submitWithReviewer(t, env)
	for order := 1; order <= len(domain.PipelineAreas); order++ {
		stage := env.stageByOrder(t, projectID, order)
		_, appErr := env.pipeline.CompleteStage(context.Background(), actor, stage.ID, dto.CompleteStageRequest{})
		require.Nil(t, appErr)
	}

	_, appErr := env.documents.UploadDocument(context.Background(), actor, projectID,
		dto.UploadDocumentRequest{Area: domain.AreaPruebas, Name: "late"},
		"late.pdf", "application/pdf", strings.NewReader("too late"))
	require.NotNil(t, appErr)
	assert.Equal(t, response.ErrCodeInvalidTransition, appErr.Code)
}

func TestUploadDocument_StorageFailure(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()
	project := env.createDraft(t, owner, "Flaky storage")

	env.files.saveErr = errors.New("bucket unavailable")
	_, appErr := env.documents.UploadDocument(context.Background(), owner, project.ID,
		dto.UploadDocumentRequest{Area: domain.AreaArquitectura, Name: "doc"},
		"doc.pdf", "application/pdf", strings.NewReader("content"))
	require.NotNil(t, appErr)

	env.files.saveErr = nil
	docs, listErr := env.documents.ListProjectDocuments(context.Background(), project.ID, false)
	require.Nil(t, listErr)
	assert.Empty(t, docs)
}

func TestChangeDocumentStatus(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()
	project := env.createDraft(t, owner, "Review docs")
	doc := uploadDoc(t, env, owner, project.ID, domain.AreaSeguridad, "audit", "findings")

	t.Run("area access is required", func(t *testing.T) {
		wrongArea := reviewerActor(domain.AreaPruebas)
		_, appErr := env.documents.ChangeDocumentStatus(context.Background(), wrongArea, doc.ID, dto.ChangeDocumentStatusRequest{
			Status: domain.DocumentStatusApproved,
		})
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeForbidden, appErr.Code)
	})

	t.Run("area reviewer approves", func(t *testing.T) {
		securityReviewer := reviewerActor(domain.AreaSeguridad)
		updated, appErr := env.documents.ChangeDocumentStatus(context.Background(), securityReviewer, doc.ID, dto.ChangeDocumentStatusRequest{
			Status: domain.DocumentStatusApproved,
			Notes:  "Clean",
		})
		require.Nil(t, appErr)
		assert.Equal(t, domain.DocumentStatusApproved, updated.Status)
		require.NotNil(t, updated.ReviewerID)
		assert.Equal(t, securityReviewer.ID, *updated.ReviewerID)
	})

	t.Run("superseded versions are immutable", func(t *testing.T) {
		uploadDoc(t, env, owner, project.ID, domain.AreaSeguridad, "audit", "findings v2")
		securityReviewer := reviewerActor(domain.AreaSeguridad)
		_, appErr := env.documents.ChangeDocumentStatus(context.Background(), securityReviewer, doc.ID, dto.ChangeDocumentStatusRequest{
			Status: domain.DocumentStatusRejected,
		})
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeInvalidTransition, appErr.Code)
	})
}

func TestDeleteDocument(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()
	project := env.createDraft(t, owner, "Deletable docs")
	doc := uploadDoc(t, env, owner, project.ID, domain.AreaAmbientes, "plan", "environments plan")

	t.Run("approved documents cannot be deleted", func(t *testing.T) {
		reviewer := reviewerActor(domain.AreaAmbientes)
		_, appErr := env.documents.ChangeDocumentStatus(context.Background(), reviewer, doc.ID, dto.ChangeDocumentStatusRequest{
			Status: domain.DocumentStatusApproved,
		})
		require.Nil(t, appErr)

		appErr = env.documents.DeleteDocument(context.Background(), adminActor(), doc.ID)
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeInvalidTransition, appErr.Code)
	})

	t.Run("other documents are removed along with their file", func(t *testing.T) {
		victim := uploadDoc(t, env, owner, project.ID, domain.AreaAmbientes, "scratch", "temp notes")
		stored, err := env.documentRepo.FindByID(context.Background(), victim.ID)
		require.NoError(t, err)

		appErr := env.documents.DeleteDocument(context.Background(), owner, victim.ID)
		require.Nil(t, appErr)
		assert.Contains(t, env.files.deleted, stored.FileKey)
	})
}

func TestVerifyDocumentIntegrity(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()
	project := env.createDraft(t, owner, "Integrity")
	doc := uploadDoc(t, env, owner, project.ID, domain.AreaBaseDatos, "schema", "CREATE TABLE ...")

	t.Run("pristine file verifies", func(t *testing.T) {
		verified, appErr := env.documents.VerifyDocumentIntegrity(context.Background(), doc.ID)
		require.Nil(t, appErr)
		assert.Equal(t, doc.Checksum, verified.Checksum)
	})

	t.Run("tampered file fails verification", func(t *testing.T) {
		stored, err := env.documentRepo.FindByID(context.Background(), doc.ID)
		require.NoError(t, err)
		env.files.tamper(stored.FileKey, []byte("DROP TABLE ..."))
		_, appErr := env.documents.VerifyDocumentIntegrity(context.Background(), doc.ID)
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeIntegrityFailure, appErr.Code)
	})
}
