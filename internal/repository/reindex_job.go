package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larpforge/storyai/internal/domain"
)

type ReindexJobRepository struct {
	db dbtx
}

func NewReindexJobRepository(pool *pgxpool.Pool) *ReindexJobRepository {
	return &ReindexJobRepository{db: pool}
}

func NewReindexJobRepositoryWithTx(tx pgx.Tx) *ReindexJobRepository {
	return &ReindexJobRepository{db: tx}
}

func (r *ReindexJobRepository) Create(ctx context.Context, job *domain.ReindexJob) error {
	if err := domain.ValidateReindexJob(job); err != nil {
		return err
	}
	var documentID, entityID *string
	if job.DocumentID != "" {
		documentID = &job.DocumentID
	}
	if job.EntityID != "" {
		entityID = &job.EntityID
	}
	var payload []byte
	if len(job.Payload) > 0 {
		payload = job.Payload
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO reindex_jobs (id, larp_id, document_id, entity_id, payload, status, retries, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.LARPID, documentID, entityID, payload,
		job.Status, job.Retries, nullableString(job.Error), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *ReindexJobRepository) GetByID(ctx context.Context, id string) (*domain.ReindexJob, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, larp_id, document_id, entity_id, payload, status, retries, error, created_at, processed_at
		 FROM reindex_jobs WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs, err := scanReindexJobRows(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, domain.ErrReindexJobNotFound
	}
	return jobs[0], nil
}

// ClaimPending atomically moves up to limit pending jobs to processing and
// returns them. SKIP LOCKED keeps concurrent workers from claiming the same
// rows.
func (r *ReindexJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.ReindexJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM reindex_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE reindex_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE reindex_jobs.id = cte.id
		 RETURNING reindex_jobs.id, reindex_jobs.larp_id, reindex_jobs.document_id, reindex_jobs.entity_id,
		           reindex_jobs.payload, reindex_jobs.status, reindex_jobs.retries, reindex_jobs.error,
		           reindex_jobs.created_at, reindex_jobs.processed_at`,
		domain.ReindexJobStatusPending, limit, domain.ReindexJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReindexJobRows(rows)
}

func (r *ReindexJobRepository) UpdateStatus(ctx context.Context, id string, status domain.ReindexJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.ReindexJobStatusCompleted || status == domain.ReindexJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE reindex_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrReindexJobNotFound
	}
	return nil
}

func (r *ReindexJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE reindex_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrReindexJobNotFound
	}
	return nil
}

func (r *ReindexJobRepository) GetPendingJobs(ctx context.Context) ([]*domain.ReindexJob, error) {
	return r.ClaimPending(ctx, 100)
}

func (r *ReindexJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.ReindexJobStatus, errMsg string) error {
	return r.UpdateStatus(ctx, jobID, status, errMsg)
}

func scanReindexJobRows(rows pgx.Rows) ([]*domain.ReindexJob, error) {
	var jobs []*domain.ReindexJob
	for rows.Next() {
		var job domain.ReindexJob
		var documentID, entityID, errMsg pgtype.Text
		var payload []byte
		if err := rows.Scan(&job.ID, &job.LARPID, &documentID, &entityID, &payload,
			&job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt); err != nil {
			return nil, err
		}
		if documentID.Valid {
			job.DocumentID = documentID.String
		}
		if entityID.Valid {
			job.EntityID = entityID.String
		}
		if errMsg.Valid {
			job.Error = errMsg.String
		}
		job.Payload = payload
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}
