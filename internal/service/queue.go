package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/larpforge/storyai/internal/domain"
)

// ReindexJobStore defines the persistence interface for reindex jobs
type ReindexJobStore interface {
	Create(ctx context.Context, job *domain.ReindexJob) error
}

// ReindexEnqueuer queues reindex work for the background worker.
type ReindexEnqueuer struct {
	store ReindexJobStore
}

// NewReindexEnqueuer creates a new ReindexEnqueuer instance
func NewReindexEnqueuer(store ReindexJobStore) *ReindexEnqueuer {
	return &ReindexEnqueuer{store: store}
}

// EnqueueDocument queues a re-chunk and re-embed pass for a lore document.
func (q *ReindexEnqueuer) EnqueueDocument(ctx context.Context, larpID, documentID string) error {
	job := domain.NewDocumentReindexJob(uuid.NewString(), larpID, documentID, time.Now().UTC())
	if err := q.store.Create(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue document reindex: %w", err)
	}
	return nil
}

// EnqueueObject queues a re-embed pass for a structured story entity. The
// canonical field set is captured in the job payload at enqueue time.
func (q *ReindexEnqueuer) EnqueueObject(ctx context.Context, src *domain.StoryObjectSource) error {
	job, err := domain.NewObjectReindexJob(uuid.NewString(), src, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := q.store.Create(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue object reindex: %w", err)
	}
	return nil
}
