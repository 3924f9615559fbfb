package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-review-api/internal/domain"
	"project-review-api/internal/dto"
	"project-review-api/internal/response"
)

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()

	project, appErr := env.workflow.CreateProject(context.Background(), owner, dto.CreateProjectRequest{
		Title:       "Payment gateway migration",
		Description: "Move the gateway to the new platform",
	})
	require.Nil(t, appErr)

	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("PROJ-%d-001", year), project.Code)
	assert.Equal(t, domain.ProjectStatusDraft, project.Status)
	assert.Equal(t, domain.PriorityMedium, project.Priority)
	assert.Equal(t, owner.ID, project.OwnerID)
	assert.True(t, project.CanBeEdited)
	assert.True(t, project.CanBeSubmitted)

	// The full pipeline exists up front, pending and unassigned
	stages, appErr := env.pipeline.GetProjectStages(context.Background(), project.ID)
	require.Nil(t, appErr)
	require.Len(t, stages, len(domain.PipelineAreas))
	for i, stage := range stages {
		assert.Equal(t, i+1, stage.OrderSequence)
		assert.Equal(t, domain.PipelineAreas[i], stage.Area)
		assert.Equal(t, domain.StageStatusPending, stage.Status)
		assert.Nil(t, stage.AssignedReviewerID)
	}

	assert.Contains(t, env.historyActions(t, project.ID), domain.ActionProjectCreated)
}

func TestCreateProject_SequentialCodes(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()

	first := env.createDraft(t, owner, "First")
	second := env.createDraft(t, owner, "Second")

	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("PROJ-%d-001", year), first.Code)
	assert.Equal(t, fmt.Sprintf("PROJ-%d-002", year), second.Code)
}

func TestCreateProject_InvalidPriority(t *testing.T) {
	env := newTestEnv(t)

	_, appErr := env.workflow.CreateProject(context.Background(), reviewerActor(), dto.CreateProjectRequest{
		Title:    "Bad priority",
		Priority: domain.ProjectPriority("urgent"),
	})
	require.NotNil(t, appErr)
	assert.Equal(t, response.ErrCodeValidation, appErr.Code)
}

func TestUpdateProject(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()
	project := env.createDraft(t, owner, "Original title")

	newTitle := "Renamed project"
	updated, appErr := env.workflow.UpdateProject(context.Background(), owner, project.ID, dto.UpdateProjectRequest{
		Title: &newTitle,
	})
	require.Nil(t, appErr)
	assert.Equal(t, newTitle, updated.Title)

	t.Run("non-owner is rejected", func(t *testing.T) {
		other := reviewerActor()
		title := "Hijacked"
		_, appErr := env.workflow.UpdateProject(context.Background(), other, project.ID, dto.UpdateProjectRequest{
			Title: &title,
		})
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeForbidden, appErr.Code)
	})

	t.Run("submitted project is frozen", func(t *testing.T) {
		env.submitProject(t, owner, project.ID)
		title := "Too late"
		_, appErr := env.workflow.UpdateProject(context.Background(), owner, project.ID, dto.UpdateProjectRequest{
			Title: &title,
		})
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeInvalidTransition, appErr.Code)
	})
}

func TestSubmitProject(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()
	reviewer := env.createReviewer(t, domain.AreaAll)
	project := env.createDraft(t, owner, "Submit me")

	submitted := env.submitProject(t, owner, project.ID)

	assert.Equal(t, domain.ProjectStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.CurrentArea)
	assert.Equal(t, domain.PipelineAreas[0], *submitted.CurrentArea)

	// First stage started and assigned to the only reviewer
	first := env.stageByOrder(t, project.ID, 1)
	assert.Equal(t, domain.StageStatusInProgress, first.Status)
	require.NotNil(t, first.AssignedReviewerID)
	assert.Equal(t, reviewer.ID, *first.AssignedReviewerID)
	require.NotNil(t, first.DueDate)
	require.NotNil(t, first.StartDate)

	// Remaining stages assigned but still pending
	for order := 2; order <= len(domain.PipelineAreas); order++ {
		stage := env.stageByOrder(t, project.ID, order)
		assert.Equal(t, domain.StageStatusPending, stage.Status)
		assert.NotNil(t, stage.AssignedReviewerID)
	}

	actions := env.historyActions(t, project.ID)
	assert.Contains(t, actions, domain.ActionProjectSubmitted)
	assert.Contains(t, actions, domain.ActionStageStarted)
}

func TestSubmitProject_WithoutReviewers(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()
	project := env.createDraft(t, owner, "No reviewers yet")

	submitted := env.submitProject(t, owner, project.ID)
	assert.Equal(t, domain.ProjectStatusSubmitted, submitted.Status)

	// The pipeline still starts; the stage just has nobody assigned
	first := env.stageByOrder(t, project.ID, 1)
	assert.Equal(t, domain.StageStatusInProgress, first.Status)
	assert.Nil(t, first.AssignedReviewerID)
}

func TestSubmitProject_Twice(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()
	project := env.createDraft(t, owner, "Double submit")
	env.submitProject(t, owner, project.ID)

	_, appErr := env.workflow.SubmitProject(context.Background(), owner, project.ID)
	require.NotNil(t, appErr)
	assert.Equal(t, response.ErrCodeInvalidTransition, appErr.Code)
}

func TestChangeStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := adminActor()
	owner := reviewerActor()

	t.Run("only admins may force a status", func(t *testing.T) {
		project := env.createDraft(t, owner, "Status by reviewer")
		env.submitProject(t, owner, project.ID)

		_, appErr := env.workflow.ChangeStatus(context.Background(), owner, project.ID, dto.ChangeProjectStatusRequest{
			Status: domain.ProjectStatusOnHold,
		})
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeForbidden, appErr.Code)
	})

	t.Run("hold and resume", func(t *testing.T) {
		project := env.createDraft(t, owner, "Hold me")
		env.submitProject(t, owner, project.ID)

		held, appErr := env.workflow.ChangeStatus(context.Background(), admin, project.ID, dto.ChangeProjectStatusRequest{
			Status: domain.ProjectStatusOnHold,
			Reason: "Budget review",
		})
		require.Nil(t, appErr)
		assert.Equal(t, domain.ProjectStatusOnHold, held.Status)

		resumed, appErr := env.workflow.ChangeStatus(context.Background(), admin, project.ID, dto.ChangeProjectStatusRequest{
			Status: domain.ProjectStatusInReview,
		})
		require.Nil(t, appErr)
		assert.Equal(t, domain.ProjectStatusInReview, resumed.Status)
	})

	t.Run("illegal transition is rejected", func(t *testing.T) {
		project := env.createDraft(t, owner, "Draft to approved")

		_, appErr := env.workflow.ChangeStatus(context.Background(), admin, project.ID, dto.ChangeProjectStatusRequest{
			Status: domain.ProjectStatusApproved,
		})
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeInvalidTransition, appErr.Code)
	})

	t.Run("terminal states admit nothing", func(t *testing.T) {
		project := env.createDraft(t, owner, "Reject then resume")
		env.submitProject(t, owner, project.ID)

		_, appErr := env.workflow.ChangeStatus(context.Background(), admin, project.ID, dto.ChangeProjectStatusRequest{
			Status: domain.ProjectStatusRejected,
			Reason: "Out of scope",
		})
		require.Nil(t, appErr)

		_, appErr = env.workflow.ChangeStatus(context.Background(), admin, project.ID, dto.ChangeProjectStatusRequest{
			Status: domain.ProjectStatusInReview,
		})
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeInvalidTransition, appErr.Code)
	})
}

func TestDeleteDraft(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()

	t.Run("empty draft is removed", func(t *testing.T) {
		project := env.createDraft(t, owner, "Throwaway")

		appErr := env.workflow.DeleteDraft(context.Background(), owner, project.ID)
		require.Nil(t, appErr)

		_, appErr = env.workflow.GetProject(context.Background(), project.ID)
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeNotFound, appErr.Code)
	})

	t.Run("submitted project cannot be deleted", func(t *testing.T) {
		project := env.createDraft(t, owner, "Committed")
		env.submitProject(t, owner, project.ID)

		appErr := env.workflow.DeleteDraft(context.Background(), owner, project.ID)
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeInvalidTransition, appErr.Code)
	})
}

func TestGetProjectByCode(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()
	project := env.createDraft(t, owner, "Lookup by code")

	found, appErr := env.workflow.GetProjectByCode(context.Background(), project.Code)
	require.Nil(t, appErr)
	assert.Equal(t, project.ID, found.ID)

	_, appErr = env.workflow.GetProjectByCode(context.Background(), "PROJ-1999-999")
	require.NotNil(t, appErr)
	assert.Equal(t, response.ErrCodeNotFound, appErr.Code)
}

func TestListProjects(t *testing.T) {
	env := newTestEnv(t)
	owner := reviewerActor()
	other := reviewerActor()

	for i := 0; i < 3; i++ {
		env.createDraft(t, owner, fmt.Sprintf("Owned %d", i))
	}
	submitted := env.createDraft(t, other, "Submitted one")
	env.submitProject(t, other, submitted.ID)

	t.Run("filter by owner", func(t *testing.T) {
		page, appErr := env.workflow.ListProjects(context.Background(), dto.ProjectListFilter{OwnerID: &owner.ID})
		require.Nil(t, appErr)
		assert.Equal(t, int64(3), page.Total)
	})

	t.Run("filter by status", func(t *testing.T) {
		status := domain.ProjectStatusSubmitted
		page, appErr := env.workflow.ListProjects(context.Background(), dto.ProjectListFilter{Status: &status})
		require.Nil(t, appErr)
		require.Equal(t, int64(1), page.Total)
		assert.Equal(t, submitted.ID, page.Projects[0].ID)
	})

	t.Run("out-of-range page size falls back to the default", func(t *testing.T) {
		page, appErr := env.workflow.ListProjects(context.Background(), dto.ProjectListFilter{Limit: 1000})
		require.Nil(t, appErr)
		assert.Equal(t, 20, page.Limit)
	})
}
