package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larpforge/storyai/internal/domain"
)

// VectorSearchRepository aggregates the scoped searches the retriever runs
// across both knowledge-unit tables.
type VectorSearchRepository struct {
	objects *ObjectEmbeddingRepository
	chunks  *LoreChunkRepository
	docs    *LoreDocumentRepository
}

func NewVectorSearchRepository(pool *pgxpool.Pool) *VectorSearchRepository {
	return &VectorSearchRepository{
		objects: NewObjectEmbeddingRepository(pool),
		chunks:  NewLoreChunkRepository(pool),
		docs:    NewLoreDocumentRepository(pool),
	}
}

func (r *VectorSearchRepository) NearestObjects(ctx context.Context, larpID string, vector []float32, k int) ([]*domain.RetrievalResult, error) {
	return r.objects.NearestObjects(ctx, larpID, vector, k)
}

func (r *VectorSearchRepository) NearestLoreChunks(ctx context.Context, larpID string, vector []float32, k int) ([]*domain.RetrievalResult, error) {
	return r.chunks.NearestLoreChunks(ctx, larpID, vector, k)
}

func (r *VectorSearchRepository) ListAlwaysInclude(ctx context.Context, larpID string) ([]*domain.RetrievalResult, error) {
	return r.docs.ListAlwaysInclude(ctx, larpID)
}
