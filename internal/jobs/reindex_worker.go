package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/larpforge/storyai/internal/domain"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3
)

// ReindexJobRepository defines the interface for reindex job persistence
type ReindexJobRepository interface {
	// GetPendingJobs retrieves and claims pending reindex jobs
	GetPendingJobs(ctx context.Context) ([]*domain.ReindexJob, error)

	// UpdateJobStatus updates the status of a reindex job
	UpdateJobStatus(ctx context.Context, jobID string, status domain.ReindexJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error
}

// IngestService defines the interface for re-embedding lore documents and story objects
type IngestService interface {
	ReindexDocument(ctx context.Context, documentID string) (domain.ReindexOutcome, error)
	ReindexObject(ctx context.Context, src *domain.StoryObjectSource) (domain.ReindexOutcome, error)
}

// ReindexWorker processes reindex jobs
type ReindexWorker struct {
	repo    ReindexJobRepository
	service IngestService
}

// NewReindexWorker creates a new ReindexWorker instance
func NewReindexWorker(repo ReindexJobRepository, service IngestService) *ReindexWorker {
	return &ReindexWorker{
		repo:    repo,
		service: service,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *ReindexWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending reindex jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *ReindexWorker) processJob(ctx context.Context, job *domain.ReindexJob) error {
	var outcome domain.ReindexOutcome
	var err error
	switch {
	case job.DocumentID != "":
		log.Printf("Processing job %s for document %s", job.ID, job.DocumentID)
		outcome, err = w.service.ReindexDocument(ctx, job.DocumentID)
	case job.EntityID != "":
		log.Printf("Processing job %s for entity %s", job.ID, job.EntityID)
		var src *domain.StoryObjectSource
		src, err = job.ObjectSource()
		if err == nil {
			outcome, err = w.service.ReindexObject(ctx, src)
		}
	default:
		return fmt.Errorf("job %s has neither document_id nor entity_id", job.ID)
	}

	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.ReindexJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed: %s", job.ID, outcome)
	return nil
}

// handleJobFailure handles a failed job with retry logic. Only retryable
// provider failures and transient errors go back to pending; a terminal
// provider rejection fails the job immediately.
func (w *ReindexWorker) handleJobFailure(ctx context.Context, job *domain.ReindexJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if provErr, terminal := domain.AsTerminalProviderError(jobErr); terminal {
		errMsg := fmt.Sprintf("terminal provider error: %v", provErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.ReindexJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.ReindexJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.ReindexJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
