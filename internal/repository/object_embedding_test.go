//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larpforge/storyai/internal/domain"
	"github.com/larpforge/storyai/internal/service"
	"github.com/larpforge/storyai/internal/testutil"
)

func sampleObjectEmbedding(larpID, entityID string, axis int) *domain.ObjectEmbedding {
	now := time.Now().UTC().Truncate(time.Microsecond)
	canonical := "character: " + entityID + "\ndescription: A test entity."
	return &domain.ObjectEmbedding{
		ID:            uuid.NewString(),
		LARPID:        larpID,
		EntityID:      entityID,
		EntityType:    domain.EntityTypeCharacter,
		Title:         "Entity " + entityID,
		CanonicalText: canonical,
		ContentHash:   service.ContentHash(canonical),
		Embedding:     axisVector(axis),
		Model:         "text-embedding-3-small",
		Dimensions:    1536,
		TokenCount:    10,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestObjectEmbeddingRepository_UpsertAndHash(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	larp := createLARP(ctx, t, pool, "vasterholt")
	repo := NewObjectEmbeddingRepository(pool)

	row := sampleObjectEmbedding(larp.ID, "char-1", 0)
	require.NoError(t, repo.Upsert(ctx, row))

	hash, err := repo.GetHashByEntity(ctx, "char-1")
	require.NoError(t, err)
	assert.Equal(t, row.ContentHash, hash)
}

func TestObjectEmbeddingRepository_UpsertReplacesByEntity(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	larp := createLARP(ctx, t, pool, "vasterholt")
	repo := NewObjectEmbeddingRepository(pool)

	require.NoError(t, repo.Upsert(ctx, sampleObjectEmbedding(larp.ID, "char-1", 0)))

	replacement := sampleObjectEmbedding(larp.ID, "char-1", 1)
	replacement.CanonicalText = "character: char-1\ndescription: Rewritten."
	replacement.ContentHash = service.ContentHash(replacement.CanonicalText)
	require.NoError(t, repo.Upsert(ctx, replacement))

	hash, err := repo.GetHashByEntity(ctx, "char-1")
	require.NoError(t, err)
	assert.Equal(t, replacement.ContentHash, hash)

	// Still exactly one row for the entity.
	results, err := repo.NearestObjects(ctx, larp.ID, axisVector(1), 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestObjectEmbeddingRepository_GetHashByEntity_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewObjectEmbeddingRepository(pool)

	_, err := repo.GetHashByEntity(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrObjectEmbeddingNotFound)
}

func TestObjectEmbeddingRepository_DeleteByEntity(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	larp := createLARP(ctx, t, pool, "vasterholt")
	repo := NewObjectEmbeddingRepository(pool)

	require.NoError(t, repo.Upsert(ctx, sampleObjectEmbedding(larp.ID, "char-1", 0)))
	require.NoError(t, repo.DeleteByEntity(ctx, "char-1"))

	_, err := repo.GetHashByEntity(ctx, "char-1")
	assert.ErrorIs(t, err, domain.ErrObjectEmbeddingNotFound)

	assert.ErrorIs(t, repo.DeleteByEntity(ctx, "char-1"), domain.ErrObjectEmbeddingNotFound)
}

func TestObjectEmbeddingRepository_NearestObjects_ScopedToLARP(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	larp := createLARP(ctx, t, pool, "vasterholt")
	other := createLARP(ctx, t, pool, "ironmoor")
	repo := NewObjectEmbeddingRepository(pool)

	require.NoError(t, repo.Upsert(ctx, sampleObjectEmbedding(larp.ID, "char-1", 0)))
	require.NoError(t, repo.Upsert(ctx, sampleObjectEmbedding(larp.ID, "char-2", 1)))
	// Exact match vector, wrong LARP: must never surface.
	require.NoError(t, repo.Upsert(ctx, sampleObjectEmbedding(other.ID, "char-3", 0)))

	results, err := repo.NearestObjects(ctx, larp.ID, axisVector(0), 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Entity char-1", results[0].Title)
	assert.InDelta(t, 1.0, float64(results[0].Similarity), 0.001)
	for _, r := range results {
		assert.Equal(t, larp.ID, r.LARPID)
		assert.Equal(t, domain.UnitKindObject, r.Kind)
		assert.Equal(t, "character", r.TypeLabel)
		assert.Equal(t, -1, r.ChunkIndex)
	}
}
