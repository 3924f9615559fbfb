package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-review-api/internal/domain"
	"project-review-api/internal/dto"
	"project-review-api/internal/response"
)

func TestCreateReviewer(t *testing.T) {
	env := newTestEnv(t)
	admin := adminActor()

	reviewer, appErr := env.directory.CreateReviewer(context.Background(), admin, dto.CreateReviewerRequest{
		Name:  "Ana Torres",
		Email: "ana@example.com",
		Areas: []domain.ReviewArea{domain.AreaSeguridad, domain.AreaBaseDatos},
	})
	require.Nil(t, appErr)
	assert.Equal(t, domain.RoleReviewer, reviewer.Role)
	assert.True(t, reviewer.IsActive)
	assert.ElementsMatch(t, []domain.ReviewArea{domain.AreaSeguridad, domain.AreaBaseDatos}, reviewer.Areas)
	assert.Zero(t, reviewer.Workload)

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, appErr := env.directory.CreateReviewer(context.Background(), admin, dto.CreateReviewerRequest{
			Name:  "Ana Again",
			Email: "ana@example.com",
		})
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeConflict, appErr.Code)
	})

	t.Run("unknown area grant is rejected", func(t *testing.T) {
		_, appErr := env.directory.CreateReviewer(context.Background(), admin, dto.CreateReviewerRequest{
			Name:  "Bad Areas",
			Email: "bad@example.com",
			Areas: []domain.ReviewArea{"astrologia"},
		})
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeValidation, appErr.Code)
	})

	t.Run("non-admins may not manage reviewers", func(t *testing.T) {
		_, appErr := env.directory.CreateReviewer(context.Background(), reviewerActor(), dto.CreateReviewerRequest{
			Name:  "Self Service",
			Email: "self@example.com",
		})
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeForbidden, appErr.Code)
	})
}

func TestUpdateReviewer(t *testing.T) {
	env := newTestEnv(t)
	admin := adminActor()
	reviewer := env.createReviewer(t, domain.AreaPruebas)

	inactive := false
	newAreas := []domain.ReviewArea{domain.AreaMonitoreo}
	updated, appErr := env.directory.UpdateReviewer(context.Background(), admin, reviewer.ID, dto.UpdateReviewerRequest{
		IsActive: &inactive,
		Areas:    &newAreas,
	})
	require.Nil(t, appErr)
	assert.False(t, updated.IsActive)
	assert.Equal(t, newAreas, updated.Areas)
}

func TestLeastBusyReviewer(t *testing.T) {
	env := newTestEnv(t)

	t.Run("no candidates yields no assignment", func(t *testing.T) {
		reviewer, err := env.directory.LeastBusyReviewer(context.Background(), domain.AreaSeguridad)
		require.NoError(t, err)
		assert.Nil(t, reviewer)
	})

	t.Run("picks the lowest load", func(t *testing.T) {
		busy := env.createReviewer(t, domain.AreaAll)
		// Give the first reviewer an active stage
		owner := reviewerActor()
		project := env.createDraft(t, owner, "Load generator")
		env.submitProject(t, owner, project.ID)

		idle := env.createReviewer(t, domain.AreaAll)

		picked, err := env.directory.LeastBusyReviewer(context.Background(), domain.AreaArquitectura)
		require.NoError(t, err)
		require.NotNil(t, picked)
		assert.Equal(t, idle.ID, picked.ID)
		assert.NotEqual(t, busy.ID, picked.ID)
	})

	t.Run("inactive reviewers are never candidates", func(t *testing.T) {
		env := newTestEnv(t)
		reviewer := env.createReviewer(t, domain.AreaAll)
		inactive := false
		_, appErr := env.directory.UpdateReviewer(context.Background(), adminActor(), reviewer.ID, dto.UpdateReviewerRequest{
			IsActive: &inactive,
		})
		require.Nil(t, appErr)

		picked, err := env.directory.LeastBusyReviewer(context.Background(), domain.AreaArquitectura)
		require.NoError(t, err)
		assert.Nil(t, picked)
	})

	t.Run("area grants bound candidacy", func(t *testing.T) {
		env := newTestEnv(t)
		env.createReviewer(t, domain.AreaSeguridad)

		picked, err := env.directory.LeastBusyReviewer(context.Background(), domain.AreaSeguridad)
		require.NoError(t, err)
		require.NotNil(t, picked)

		none, err := env.directory.LeastBusyReviewer(context.Background(), domain.AreaPruebas)
		require.NoError(t, err)
		assert.Nil(t, none)
	})
}

func TestReassignStages(t *testing.T) {
	env := newTestEnv(t)
	admin := adminActor()
	from := env.createReviewer(t, domain.AreaAll)

	owner := reviewerActor()
	project := env.createDraft(t, owner, "Reassignable")
	env.submitProject(t, owner, project.ID)

	to := env.createReviewer(t, domain.AreaAll)

	t.Run("moves active stages and records history", func(t *testing.T) {
		moved, appErr := env.directory.ReassignStages(context.Background(), admin, dto.ReassignStagesRequest{
			FromReviewerID: from.ID,
			ToReviewerID:   to.ID,
		})
		require.Nil(t, appErr)
		require.NotEmpty(t, moved)
		for _, stage := range moved {
			require.NotNil(t, stage.AssignedReviewerID)
			assert.Equal(t, to.ID, *stage.AssignedReviewerID)
		}
		assert.Contains(t, env.historyActions(t, project.ID), domain.ActionStageReassigned)
	})

	t.Run("requires admin", func(t *testing.T) {
		_, appErr := env.directory.ReassignStages(context.Background(), reviewerActor(), dto.ReassignStagesRequest{
			FromReviewerID: from.ID,
			ToReviewerID:   to.ID,
		})
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeForbidden, appErr.Code)
	})

	t.Run("rejects self-reassignment", func(t *testing.T) {
		_, appErr := env.directory.ReassignStages(context.Background(), admin, dto.ReassignStagesRequest{
			FromReviewerID: from.ID,
			ToReviewerID:   from.ID,
		})
		require.NotNil(t, appErr)
		assert.Equal(t, response.ErrCodeValidation, appErr.Code)
	})
}
