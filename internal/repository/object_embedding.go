package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/larpforge/storyai/internal/domain"
	"github.com/larpforge/storyai/internal/service"
)

// ObjectEmbeddingRepository persists embeddings of structured story entities.
type ObjectEmbeddingRepository struct {
	db dbtx
}

func NewObjectEmbeddingRepository(pool *pgxpool.Pool) *ObjectEmbeddingRepository {
	return &ObjectEmbeddingRepository{db: pool}
}

// GetHashByEntity returns the stored content hash for an entity's current
// embedding row.
func (r *ObjectEmbeddingRepository) GetHashByEntity(ctx context.Context, entityID string) (string, error) {
	var hash string
	err := r.db.QueryRow(ctx,
		`SELECT content_hash FROM object_embeddings WHERE entity_id = $1`,
		entityID,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrObjectEmbeddingNotFound
		}
		return "", err
	}
	return hash, nil
}

// Upsert replaces the entity's embedding row. Keyed by entity identity, so
// concurrent reindexes of the same entity cannot produce two rows.
func (r *ObjectEmbeddingRepository) Upsert(ctx context.Context, row *domain.ObjectEmbedding) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO object_embeddings
			(id, larp_id, entity_id, entity_type, title, canonical_text, content_hash,
			 embedding, model, dimensions, token_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (entity_id) DO UPDATE SET
			larp_id = EXCLUDED.larp_id,
			entity_type = EXCLUDED.entity_type,
			title = EXCLUDED.title,
			canonical_text = EXCLUDED.canonical_text,
			content_hash = EXCLUDED.content_hash,
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			dimensions = EXCLUDED.dimensions,
			token_count = EXCLUDED.token_count,
			updated_at = EXCLUDED.updated_at`,
		row.ID, row.LARPID, row.EntityID, row.EntityType, row.Title,
		row.CanonicalText, row.ContentHash,
		pgvector.NewVector(row.Embedding), row.Model, row.Dimensions,
		row.TokenCount, row.CreatedAt, row.UpdatedAt,
	)
	return err
}

// DeleteByEntity removes the embedding row for a deleted entity.
func (r *ObjectEmbeddingRepository) DeleteByEntity(ctx context.Context, entityID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM object_embeddings WHERE entity_id = $1`,
		entityID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrObjectEmbeddingNotFound
	}
	return nil
}

// NearestObjects runs a scoped cosine kNN search over object embeddings.
// The larp_id predicate enforces scope in the query itself, not by
// post-filtering.
func (r *ObjectEmbeddingRepository) NearestObjects(ctx context.Context, larpID string, vector []float32, k int) ([]*domain.RetrievalResult, error) {
	if k <= 0 {
		k = 20
	}
	vec := pgvector.NewVector(vector)

	rows, err := r.db.Query(ctx,
		`SELECT id, larp_id, entity_type, title, canonical_text,
		        1 - (embedding <=> $1) AS similarity
		 FROM object_embeddings
		 WHERE larp_id = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, larpID, k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.RetrievalResult
	for rows.Next() {
		var res domain.RetrievalResult
		var entityType string
		if err := rows.Scan(&res.ID, &res.LARPID, &entityType, &res.Title, &res.Content, &res.Similarity); err != nil {
			return nil, err
		}
		res.Kind = domain.UnitKindObject
		res.TypeLabel = entityType
		res.Preview = service.MakeSnippet(res.Content)
		res.ChunkIndex = -1
		results = append(results, &res)
	}
	return results, rows.Err()
}
