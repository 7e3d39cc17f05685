package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/larpforge/storyai/internal/domain"
	"github.com/larpforge/storyai/internal/pagination"
)

// LorePageResult is one page of lore documents.
type LorePageResult struct {
	Items      []*domain.LoreDocument
	NextCursor string
	HasMore    bool
}

// LoreDocumentRepository defines the persistence interface for lore documents
type LoreDocumentRepository interface {
	Create(ctx context.Context, doc *domain.LoreDocument) error
	GetByID(ctx context.Context, id string) (*domain.LoreDocument, error)
	Update(ctx context.Context, doc *domain.LoreDocument) error
	Delete(ctx context.Context, id string) error
	ListByLARPWithCursor(ctx context.Context, larpID string, cursor *pagination.Cursor, limit int) (*LorePageResult, error)
}

// ReindexQueue defines the interface for enqueueing asynchronous reindex work
type ReindexQueue interface {
	EnqueueDocument(ctx context.Context, larpID, documentID string) error
	EnqueueObject(ctx context.Context, src *domain.StoryObjectSource) error
}

// CreateLoreInput carries the fields for a new lore document.
type CreateLoreInput struct {
	LARPID        string
	Title         string
	Body          string
	Category      string
	Priority      int
	AlwaysInclude bool
	Active        bool
	Tags          []string
}

// UpdateLoreInput carries the fields for a lore document update.
type UpdateLoreInput struct {
	Title         string
	Body          string
	Category      string
	Priority      int
	AlwaysInclude bool
	Active        bool
	Tags          []string
}

// LoreService manages lore documents. Every mutation that can change a
// document's canonical text enqueues a reindex job; embedding work never
// happens on the request path.
type LoreService struct {
	repo  LoreDocumentRepository
	queue ReindexQueue
}

// NewLoreService creates a new LoreService instance
func NewLoreService(repo LoreDocumentRepository, queue ReindexQueue) *LoreService {
	return &LoreService{repo: repo, queue: queue}
}

// Create stores a new lore document and queues its first indexing pass.
func (s *LoreService) Create(ctx context.Context, input CreateLoreInput) (*domain.LoreDocument, error) {
	now := time.Now().UTC()
	doc := &domain.LoreDocument{
		ID:            uuid.NewString(),
		LARPID:        input.LARPID,
		Title:         input.Title,
		Body:          input.Body,
		Category:      input.Category,
		Priority:      input.Priority,
		AlwaysInclude: input.AlwaysInclude,
		Active:        input.Active,
		Tags:          input.Tags,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := domain.ValidateLoreDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid lore document", err)
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create lore document: %w", err)
	}

	if err := s.queue.EnqueueDocument(ctx, doc.LARPID, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to enqueue reindex: %w", err)
	}

	return doc, nil
}

// Get returns one lore document.
func (s *LoreService) Get(ctx context.Context, id string) (*domain.LoreDocument, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of lore documents for one LARP.
func (s *LoreService) List(ctx context.Context, larpID, cursor string, limit int) (*LorePageResult, error) {
	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.repo.ListByLARPWithCursor(ctx, larpID, decoded, limit)
}

// Update replaces a document's editable fields and queues a reindex.
func (s *LoreService) Update(ctx context.Context, id string, input UpdateLoreInput) (*domain.LoreDocument, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	doc.Title = input.Title
	doc.Body = input.Body
	doc.Category = input.Category
	doc.Priority = input.Priority
	doc.AlwaysInclude = input.AlwaysInclude
	doc.Active = input.Active
	doc.Tags = input.Tags
	doc.UpdatedAt = time.Now().UTC()

	if err := domain.ValidateLoreDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid lore document", err)
	}

	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.queue.EnqueueDocument(ctx, doc.LARPID, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to enqueue reindex: %w", err)
	}

	return doc, nil
}

// Delete removes a document; its chunk rows cascade with it.
func (s *LoreService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// RequestObjectReindex queues an object reindex for a structured story
// entity saved elsewhere in the platform.
func (s *LoreService) RequestObjectReindex(ctx context.Context, src *domain.StoryObjectSource) error {
	if err := domain.ValidateStoryObjectSource(src); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid story object source", err)
	}
	return s.queue.EnqueueObject(ctx, src)
}
