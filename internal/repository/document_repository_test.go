package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"project-review-api/internal/domain"
)

func TestDocumentVersionChain(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	project := seedProject(t, db, 2026, 1)

	v1 := seedDocument(t, db, project.ID, domain.AreaArquitectura, "diagram", 1, true)

	latest, err := repo.FindLatest(ctx(), project.ID, domain.AreaArquitectura, "diagram")
	require.NoError(t, err)
	assert.Equal(t, v1.ID, latest.ID)

	require.NoError(t, repo.MarkSuperseded(ctx(), v1.ID))
	v2 := seedDocument(t, db, project.ID, domain.AreaArquitectura, "diagram", 2, true)

	latest, err = repo.FindLatest(ctx(), project.ID, domain.AreaArquitectura, "diagram")
	require.NoError(t, err)
	assert.Equal(t, v2.ID, latest.ID)

	t.Run("superseding preserves the old row", func(t *testing.T) {
		old, err := repo.FindByID(ctx(), v1.ID)
		require.NoError(t, err)
		assert.False(t, old.IsLatest)
		assert.Equal(t, 1, old.Version)
	})

	t.Run("versions come back newest first", func(t *testing.T) {
		versions, err := repo.ListVersions(ctx(), project.ID, domain.AreaArquitectura, "diagram")
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 2, versions[0].Version)
		assert.Equal(t, 1, versions[1].Version)
	})

	t.Run("fresh chain has no latest", func(t *testing.T) {
		_, err := repo.FindLatest(ctx(), project.ID, domain.AreaArquitectura, "nonexistent")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestDocumentListByProject(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	project := seedProject(t, db, 2026, 1)

	superseded := seedDocument(t, db, project.ID, domain.AreaArquitectura, "diagram", 1, false)
	seedDocument(t, db, project.ID, domain.AreaArquitectura, "diagram", 2, true)
	seedDocument(t, db, project.ID, domain.AreaSeguridad, "audit", 1, true)

	t.Run("inserting a superseded row keeps it superseded", func(t *testing.T) {
		row, err := repo.FindByID(ctx(), superseded.ID)
		require.NoError(t, err)
		assert.False(t, row.IsLatest)
	})

	t.Run("latest only", func(t *testing.T) {
		docs, err := repo.ListByProject(ctx(), project.ID, true)
		require.NoError(t, err)
		assert.Len(t, docs, 2)
		for _, doc := range docs {
			assert.True(t, doc.IsLatest)
		}
	})

	t.Run("full listing includes superseded rows", func(t *testing.T) {
		docs, err := repo.ListByProject(ctx(), project.ID, false)
		require.NoError(t, err)
		assert.Len(t, docs, 3)
	})

	count, err := repo.CountByProject(ctx(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
