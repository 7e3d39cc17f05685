package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/larpforge/storyai/internal/domain"
	"github.com/larpforge/storyai/internal/service"
)

// LoreChunkRepository persists chunked lore document embeddings.
type LoreChunkRepository struct {
	db dbtx
}

func NewLoreChunkRepository(pool *pgxpool.Pool) *LoreChunkRepository {
	return &LoreChunkRepository{db: pool}
}

func NewLoreChunkRepositoryWithTx(tx pgx.Tx) *LoreChunkRepository {
	return &LoreChunkRepository{db: tx}
}

// GetChunkHashes returns the stored content hash per chunk index for one
// document; the ingestion coordinator diffs against it to skip unchanged
// chunks.
func (r *LoreChunkRepository) GetChunkHashes(ctx context.Context, documentID string) (map[int]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT chunk_index, content_hash FROM lore_chunks WHERE document_id = $1`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hashes := make(map[int]string)
	for rows.Next() {
		var idx int
		var hash string
		if err := rows.Scan(&idx, &hash); err != nil {
			return nil, err
		}
		hashes[idx] = hash
	}
	return hashes, rows.Err()
}

// UpsertChunk writes one chunk row, keyed by (document_id, chunk_index).
// An index beyond the document's current contiguous range is rejected as a
// stale write rather than silently creating a gap.
func (r *LoreChunkRepository) UpsertChunk(ctx context.Context, c *domain.LoreChunk) error {
	var count int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM lore_chunks WHERE document_id = $1`,
		c.DocumentID,
	).Scan(&count); err != nil {
		return err
	}
	if c.ChunkIndex > count {
		return &domain.StaleIndexError{
			DocumentID: c.DocumentID,
			ChunkIndex: c.ChunkIndex,
			ChunkCount: count,
		}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO lore_chunks
			(id, document_id, larp_id, chunk_index, content, content_hash,
			 embedding, model, dimensions, token_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (document_id, chunk_index) DO UPDATE SET
			content = EXCLUDED.content,
			content_hash = EXCLUDED.content_hash,
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			dimensions = EXCLUDED.dimensions,
			token_count = EXCLUDED.token_count,
			updated_at = EXCLUDED.updated_at`,
		c.ID, c.DocumentID, c.LARPID, c.ChunkIndex, c.Content, c.ContentHash,
		pgvector.NewVector(c.Embedding), c.Model, c.Dimensions, c.TokenCount,
		c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// DeleteFromIndex removes all chunks of a document with index >= fromIndex.
// Run after re-chunking so a shrunken document leaves no stale tail.
func (r *LoreChunkRepository) DeleteFromIndex(ctx context.Context, documentID string, fromIndex int) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM lore_chunks WHERE document_id = $1 AND chunk_index >= $2`,
		documentID, fromIndex,
	)
	return err
}

// CountByDocument returns the number of stored chunks for a document.
func (r *LoreChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM lore_chunks WHERE document_id = $1`,
		documentID,
	).Scan(&count)
	return count, err
}

// NearestLoreChunks runs a scoped cosine kNN search over lore chunks.
// Inactive documents are excluded in the predicate, as is anything outside
// the requested LARP.
func (r *LoreChunkRepository) NearestLoreChunks(ctx context.Context, larpID string, vector []float32, k int) ([]*domain.RetrievalResult, error) {
	if k <= 0 {
		k = 20
	}
	vec := pgvector.NewVector(vector)

	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.document_id, c.larp_id, c.chunk_index, c.content,
		        d.title, d.priority, d.always_include,
		        1 - (c.embedding <=> $1) AS similarity
		 FROM lore_chunks c
		 JOIN lore_documents d ON d.id = c.document_id
		 WHERE c.larp_id = $2 AND d.active
		 ORDER BY c.embedding <=> $1
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
		if err := rows.Scan(&res.ID, &res.DocumentID, &res.LARPID, &res.ChunkIndex,
			&res.Content, &res.Title, &res.Priority, &res.AlwaysInclude, &res.Similarity); err != nil {
			return nil, err
		}
		res.Kind = domain.UnitKindLore
		res.TypeLabel = "lore"
		res.Preview = service.MakeSnippet(res.Content)
		results = append(results, &res)
	}
	return results, rows.Err()
}
