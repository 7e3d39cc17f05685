package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/larpforge/storyai/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) (*domain.Embedding, error)
	EmbedBatch(ctx context.Context, texts []string) ([]*domain.Embedding, error)
}

// ObjectEmbeddingRepository defines the repository interface for structured
// entity embeddings
type ObjectEmbeddingRepository interface {
	GetHashByEntity(ctx context.Context, entityID string) (string, error)
	Upsert(ctx context.Context, row *domain.ObjectEmbedding) error
	DeleteByEntity(ctx context.Context, entityID string) error
}

// IngestLoreDocumentRepository defines the document lookups the coordinator needs
type IngestLoreDocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.LoreDocument, error)
}

// LoreChunkReader reads stored chunk state for diffing
type LoreChunkReader interface {
	GetChunkHashes(ctx context.Context, documentID string) (map[int]string, error)
}

// LoreChunkTxRepository mutates chunk rows inside a transaction
type LoreChunkTxRepository interface {
	UpsertChunk(ctx context.Context, chunk *domain.LoreChunk) error
	DeleteFromIndex(ctx context.Context, documentID string, fromIndex int) error
}

// TxRepositories exposes transactional repositories to a WithTx callback
type TxRepositories interface {
	LoreChunks() LoreChunkTxRepository
}

// TxRunner runs a function inside one database transaction
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// IngestService orchestrates incremental re-indexing. The content hash is
// the unit of change detection: unchanged canonical text never reaches the
// embedding provider.
type IngestService struct {
	client   EmbeddingClient
	objects  ObjectEmbeddingRepository
	docs     IngestLoreDocumentRepository
	chunks   LoreChunkReader
	tx       TxRunner
	chunkCfg ChunkConfig
}

// NewIngestService creates a new IngestService instance
func NewIngestService(
	client EmbeddingClient,
	objects ObjectEmbeddingRepository,
	docs IngestLoreDocumentRepository,
	chunks LoreChunkReader,
	tx TxRunner,
	chunkCfg ChunkConfig,
) *IngestService {
	if chunkCfg.MaxTokens <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &IngestService{
		client:   client,
		objects:  objects,
		docs:     docs,
		chunks:   chunks,
		tx:       tx,
		chunkCfg: chunkCfg,
	}
}

// ReindexObject re-indexes one structured story entity. Unchanged canonical
// text returns ReindexSkipped without calling the embedding provider; a
// changed hash replaces the entity's single embedding row. The upsert is
// keyed by entity identity, which makes concurrent reindexes of the same
// entity safe to retry.
func (s *IngestService) ReindexObject(ctx context.Context, src *domain.StoryObjectSource) (domain.ReindexOutcome, error) {
	if err := domain.ValidateStoryObjectSource(src); err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid story object source", err)
	}

	canonical := CanonicalText(src)
	hash := ContentHash(canonical)

	stored, err := s.objects.GetHashByEntity(ctx, src.EntityID)
	exists := true
	if err != nil {
		if !errors.Is(err, domain.ErrObjectEmbeddingNotFound) {
			return "", err
		}
		exists = false
	}
	if exists && stored == hash {
		return domain.ReindexSkipped, nil
	}

	embedding, err := s.client.Embed(ctx, canonical)
	if err != nil {
		return "", fmt.Errorf("failed to embed object %s: %w", src.EntityID, err)
	}

	now := time.Now().UTC()
	row := &domain.ObjectEmbedding{
		ID:            uuid.NewString(),
		LARPID:        src.LARPID,
		EntityID:      src.EntityID,
		EntityType:    src.EntityType,
		Title:         src.Title,
		CanonicalText: canonical,
		ContentHash:   hash,
		Embedding:     embedding.Vector,
		Model:         embedding.Model,
		Dimensions:    embedding.Dimensions,
		TokenCount:    embedding.TokenCount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.objects.Upsert(ctx, row); err != nil {
		return "", fmt.Errorf("failed to upsert object embedding: %w", err)
	}

	if exists {
		return domain.ReindexReplaced, nil
	}
	return domain.ReindexCreated, nil
}

// RemoveObject deletes the embedding row for a deleted story entity.
func (s *IngestService) RemoveObject(ctx context.Context, entityID string) error {
	err := s.objects.DeleteByEntity(ctx, entityID)
	if errors.Is(err, domain.ErrObjectEmbeddingNotFound) {
		return nil
	}
	return err
}

// ReindexDocument re-chunks and re-embeds one lore document. Chunks whose
// content hash is unchanged are not re-embedded; chunks with index beyond the
// new chunk count are deleted. All chunk writes for a document happen in one
// transaction, so a failure leaves the document at its pre-reindex state.
func (s *IngestService) ReindexDocument(ctx context.Context, documentID string) (domain.ReindexOutcome, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return "", err
	}

	// Inactive documents are excluded from retrieval; their rows may persist
	// until the next reindex after reactivation.
	if !doc.Active {
		return domain.ReindexSkipped, nil
	}

	texts := ChunkText(doc.Body, s.chunkCfg)
	hashes := make([]string, len(texts))
	for i, t := range texts {
		hashes[i] = ContentHash(t)
	}

	stored, err := s.chunks.GetChunkHashes(ctx, documentID)
	if err != nil {
		return "", err
	}

	changed := make([]int, 0, len(texts))
	for i, h := range hashes {
		if stored[i] != h {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 && len(stored) == len(texts) {
		return domain.ReindexSkipped, nil
	}

	var embeddings []*domain.Embedding
	if len(changed) > 0 {
		batch := make([]string, len(changed))
		for i, idx := range changed {
			batch[i] = texts[idx]
		}
		embeddings, err = s.client.EmbedBatch(ctx, batch)
		if err != nil {
			return "", fmt.Errorf("failed to embed chunks for document %s: %w", documentID, err)
		}
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		chunkRepo := repos.LoreChunks()
		for i, idx := range changed {
			chunk := &domain.LoreChunk{
				ID:          uuid.NewString(),
				DocumentID:  documentID,
				LARPID:      doc.LARPID,
				ChunkIndex:  idx,
				Content:     texts[idx],
				ContentHash: hashes[idx],
				Embedding:   embeddings[i].Vector,
				Model:       embeddings[i].Model,
				Dimensions:  embeddings[i].Dimensions,
				TokenCount:  embeddings[i].TokenCount,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := chunkRepo.UpsertChunk(ctx, chunk); err != nil {
				return err
			}
		}
		return chunkRepo.DeleteFromIndex(ctx, documentID, len(texts))
	})
	if err != nil {
		return "", fmt.Errorf("failed to replace chunks for document %s: %w", documentID, err)
	}

	if len(stored) == 0 {
		return domain.ReindexCreated, nil
	}
	return domain.ReindexReplaced, nil
}
