package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/larpforge/storyai/internal/domain"
)

// MockEmbeddingClient mocks the embedding provider client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) Embed(ctx context.Context, text string) (*domain.Embedding, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Embedding), args.Error(1)
}

func (m *MockEmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([]*domain.Embedding, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Embedding), args.Error(1)
}

// MockObjectRepo mocks the object embedding repository
type MockObjectRepo struct {
	mock.Mock
}

func (m *MockObjectRepo) GetHashByEntity(ctx context.Context, entityID string) (string, error) {
	args := m.Called(ctx, entityID)
	return args.String(0), args.Error(1)
}

func (m *MockObjectRepo) Upsert(ctx context.Context, row *domain.ObjectEmbedding) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *MockObjectRepo) DeleteByEntity(ctx context.Context, entityID string) error {
	args := m.Called(ctx, entityID)
	return args.Error(0)
}

// MockDocRepo mocks the lore document lookups
type MockDocRepo struct {
	mock.Mock
}

func (m *MockDocRepo) GetByID(ctx context.Context, id string) (*domain.LoreDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoreDocument), args.Error(1)
}

// MockChunkReader mocks the stored chunk hash lookups
type MockChunkReader struct {
	mock.Mock
}

func (m *MockChunkReader) GetChunkHashes(ctx context.Context, documentID string) (map[int]string, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]string), args.Error(1)
}

// fakeTxRunner runs the callback against an in-memory chunk repository,
// recording every write.
type fakeTxRunner struct {
	chunks *fakeChunkTxRepo
	err    error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(f)
}

func (f *fakeTxRunner) LoreChunks() LoreChunkTxRepository {
	return f.chunks
}

type fakeChunkTxRepo struct {
	upserts     []*domain.LoreChunk
	deleteFrom  int
	deleteCalls int
}

func (f *fakeChunkTxRepo) UpsertChunk(ctx context.Context, chunk *domain.LoreChunk) error {
	f.upserts = append(f.upserts, chunk)
	return nil
}

func (f *fakeChunkTxRepo) DeleteFromIndex(ctx context.Context, documentID string, fromIndex int) error {
	f.deleteFrom = fromIndex
	f.deleteCalls++
	return nil
}

func testObjectSource() *domain.StoryObjectSource {
	return &domain.StoryObjectSource{
		LARPID:     "larp-1",
		EntityID:   "char-1",
		EntityType: domain.EntityTypeCharacter,
		Title:      "Lady Ashblood",
		Fields: []domain.EntityField{
			{Name: "description", Value: "Matriarch of the Ashblood family."},
		},
	}
}

func testEmbedding() *domain.Embedding {
	return &domain.Embedding{
		Vector:     make([]float32, 1536),
		Dimensions: 1536,
		Model:      "text-embedding-3-small",
		TokenCount: 12,
	}
}

func newIngestService(client *MockEmbeddingClient, objects *MockObjectRepo, docs *MockDocRepo, chunks *MockChunkReader, tx TxRunner) *IngestService {
	return NewIngestService(client, objects, docs, chunks, tx, ChunkConfig{MaxTokens: 40, OverlapTokens: 0})
}

func TestReindexObject_SkipsUnchanged(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockObjects := new(MockObjectRepo)
	svc := newIngestService(mockClient, mockObjects, nil, nil, nil)

	ctx := context.Background()
	src := testObjectSource()
	hash := ContentHash(CanonicalText(src))

	mockObjects.On("GetHashByEntity", ctx, "char-1").Return(hash, nil)

	outcome, err := svc.ReindexObject(ctx, src)

	require.NoError(t, err)
	assert.Equal(t, domain.ReindexSkipped, outcome)
	mockClient.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
	mockObjects.AssertExpectations(t)
}

func TestReindexObject_CreatesWhenMissing(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockObjects := new(MockObjectRepo)
	svc := newIngestService(mockClient, mockObjects, nil, nil, nil)

	ctx := context.Background()
	src := testObjectSource()
	canonical := CanonicalText(src)

	mockObjects.On("GetHashByEntity", ctx, "char-1").Return("", domain.ErrObjectEmbeddingNotFound)
	mockClient.On("Embed", ctx, canonical).Return(testEmbedding(), nil)
	mockObjects.On("Upsert", ctx, mock.MatchedBy(func(row *domain.ObjectEmbedding) bool {
		return row.EntityID == "char-1" &&
			row.LARPID == "larp-1" &&
			row.CanonicalText == canonical &&
			row.ContentHash == ContentHash(canonical)
	})).Return(nil)

	outcome, err := svc.ReindexObject(ctx, src)

	require.NoError(t, err)
	assert.Equal(t, domain.ReindexCreated, outcome)
	mockClient.AssertExpectations(t)
	mockObjects.AssertExpectations(t)
}

func TestReindexObject_ReplacesOnHashChange(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockObjects := new(MockObjectRepo)
	svc := newIngestService(mockClient, mockObjects, nil, nil, nil)

	ctx := context.Background()
	src := testObjectSource()

	mockObjects.On("GetHashByEntity", ctx, "char-1").Return("stale-hash", nil)
	mockClient.On("Embed", ctx, mock.Anything).Return(testEmbedding(), nil)
	mockObjects.On("Upsert", ctx, mock.Anything).Return(nil)

	outcome, err := svc.ReindexObject(ctx, src)

	require.NoError(t, err)
	assert.Equal(t, domain.ReindexReplaced, outcome)
}

func TestReindexObject_InvalidSource(t *testing.T) {
	svc := newIngestService(new(MockEmbeddingClient), new(MockObjectRepo), nil, nil, nil)

	_, err := svc.ReindexObject(context.Background(), &domain.StoryObjectSource{})

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestRemoveObject_IgnoresMissing(t *testing.T) {
	mockObjects := new(MockObjectRepo)
	svc := newIngestService(new(MockEmbeddingClient), mockObjects, nil, nil, nil)

	ctx := context.Background()
	mockObjects.On("DeleteByEntity", ctx, "char-9").Return(domain.ErrObjectEmbeddingNotFound)

	assert.NoError(t, svc.RemoveObject(ctx, "char-9"))
}

func loreDoc(body string, active bool) *domain.LoreDocument {
	return &domain.LoreDocument{
		ID:     "doc-1",
		LARPID: "larp-1",
		Title:  "House Ashblood",
		Body:   body,
		Active: active,
	}
}

func TestReindexDocument_InactiveSkipped(t *testing.T) {
	mockDocs := new(MockDocRepo)
	svc := newIngestService(new(MockEmbeddingClient), nil, mockDocs, nil, nil)

	ctx := context.Background()
	mockDocs.On("GetByID", ctx, "doc-1").Return(loreDoc("anything", false), nil)

	outcome, err := svc.ReindexDocument(ctx, "doc-1")

	require.NoError(t, err)
	assert.Equal(t, domain.ReindexSkipped, outcome)
}

func TestReindexDocument_FirstIndexCreates(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockDocs := new(MockDocRepo)
	mockChunks := new(MockChunkReader)
	tx := &fakeTxRunner{chunks: &fakeChunkTxRepo{}}
	svc := newIngestService(mockClient, nil, mockDocs, mockChunks, tx)

	ctx := context.Background()
	body := strings.Repeat("A sentence about the keep and its masters. ", 20)
	doc := loreDoc(body, true)
	texts := ChunkText(body, ChunkConfig{MaxTokens: 40, OverlapTokens: 0})
	require.Greater(t, len(texts), 1)

	embeddings := make([]*domain.Embedding, len(texts))
	for i := range embeddings {
		embeddings[i] = testEmbedding()
	}

	mockDocs.On("GetByID", ctx, "doc-1").Return(doc, nil)
	mockChunks.On("GetChunkHashes", ctx, "doc-1").Return(map[int]string{}, nil)
	mockClient.On("EmbedBatch", ctx, texts).Return(embeddings, nil)

	outcome, err := svc.ReindexDocument(ctx, "doc-1")

	require.NoError(t, err)
	assert.Equal(t, domain.ReindexCreated, outcome)
	assert.Len(t, tx.chunks.upserts, len(texts))
	assert.Equal(t, len(texts), tx.chunks.deleteFrom)

	// Indices are contiguous and ascending.
	for i, c := range tx.chunks.upserts {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, ContentHash(texts[i]), c.ContentHash)
		assert.Equal(t, "larp-1", c.LARPID)
	}
}

func TestReindexDocument_UnchangedSkipped(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockDocs := new(MockDocRepo)
	mockChunks := new(MockChunkReader)
	tx := &fakeTxRunner{chunks: &fakeChunkTxRepo{}}
	svc := newIngestService(mockClient, nil, mockDocs, mockChunks, tx)

	ctx := context.Background()
	body := strings.Repeat("Stable lore text that never changes between runs. ", 20)
	doc := loreDoc(body, true)
	texts := ChunkText(body, ChunkConfig{MaxTokens: 40, OverlapTokens: 0})

	stored := make(map[int]string, len(texts))
	for i, txt := range texts {
		stored[i] = ContentHash(txt)
	}

	mockDocs.On("GetByID", ctx, "doc-1").Return(doc, nil)
	mockChunks.On("GetChunkHashes", ctx, "doc-1").Return(stored, nil)

	outcome, err := svc.ReindexDocument(ctx, "doc-1")

	require.NoError(t, err)
	assert.Equal(t, domain.ReindexSkipped, outcome)
	mockClient.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
	assert.Empty(t, tx.chunks.upserts)
}

func TestReindexDocument_OnlyChangedChunksEmbedded(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockDocs := new(MockDocRepo)
	mockChunks := new(MockChunkReader)
	tx := &fakeTxRunner{chunks: &fakeChunkTxRepo{}}
	svc := newIngestService(mockClient, nil, mockDocs, mockChunks, tx)

	ctx := context.Background()
	body := strings.Repeat("Another run of lore text for the chronicle of the realm. ", 20)
	doc := loreDoc(body, true)
	texts := ChunkText(body, ChunkConfig{MaxTokens: 40, OverlapTokens: 0})
	require.Greater(t, len(texts), 2)

	// All chunks match except index 1.
	stored := make(map[int]string, len(texts))
	for i, txt := range texts {
		stored[i] = ContentHash(txt)
	}
	stored[1] = "stale-hash"

	mockDocs.On("GetByID", ctx, "doc-1").Return(doc, nil)
	mockChunks.On("GetChunkHashes", ctx, "doc-1").Return(stored, nil)
	mockClient.On("EmbedBatch", ctx, []string{texts[1]}).Return([]*domain.Embedding{testEmbedding()}, nil)

	outcome, err := svc.ReindexDocument(ctx, "doc-1")

	require.NoError(t, err)
	assert.Equal(t, domain.ReindexReplaced, outcome)
	require.Len(t, tx.chunks.upserts, 1)
	assert.Equal(t, 1, tx.chunks.upserts[0].ChunkIndex)
	mockClient.AssertExpectations(t)
}

func TestReindexDocument_ShrinkDeletesTail(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockDocs := new(MockDocRepo)
	mockChunks := new(MockChunkReader)
	tx := &fakeTxRunner{chunks: &fakeChunkTxRepo{}}
	svc := newIngestService(mockClient, nil, mockDocs, mockChunks, tx)

	ctx := context.Background()
	body := "A short document now."
	doc := loreDoc(body, true)
	texts := ChunkText(body, ChunkConfig{MaxTokens: 40, OverlapTokens: 0})
	require.Len(t, texts, 1)

	// Five chunks stored from a longer previous version.
	stored := map[int]string{
		0: "h0", 1: "h1", 2: "h2", 3: "h3", 4: "h4",
	}

	mockDocs.On("GetByID", ctx, "doc-1").Return(doc, nil)
	mockChunks.On("GetChunkHashes", ctx, "doc-1").Return(stored, nil)
	mockClient.On("EmbedBatch", ctx, texts).Return([]*domain.Embedding{testEmbedding()}, nil)

	outcome, err := svc.ReindexDocument(ctx, "doc-1")

	require.NoError(t, err)
	assert.Equal(t, domain.ReindexReplaced, outcome)
	assert.Equal(t, 1, tx.chunks.deleteFrom)
	assert.Equal(t, 1, tx.chunks.deleteCalls)
}

func TestReindexDocument_EmbedFailurePropagates(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockDocs := new(MockDocRepo)
	mockChunks := new(MockChunkReader)
	tx := &fakeTxRunner{chunks: &fakeChunkTxRepo{}}
	svc := newIngestService(mockClient, nil, mockDocs, mockChunks, tx)

	ctx := context.Background()
	body := strings.Repeat("Failing lore text for the embedding provider. ", 20)
	doc := loreDoc(body, true)

	provErr := domain.NewProviderError("openai", "embed", true, errors.New("rate limited"))
	mockDocs.On("GetByID", ctx, "doc-1").Return(doc, nil)
	mockChunks.On("GetChunkHashes", ctx, "doc-1").Return(map[int]string{}, nil)
	mockClient.On("EmbedBatch", ctx, mock.Anything).Return(nil, provErr)

	_, err := svc.ReindexDocument(ctx, "doc-1")

	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
	assert.Empty(t, tx.chunks.upserts, "no chunk writes on embed failure")
}
