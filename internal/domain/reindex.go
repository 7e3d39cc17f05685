package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReindexOutcome reports what a reindex call did for one knowledge unit.
type ReindexOutcome string

const (
	ReindexSkipped  ReindexOutcome = "skipped"
	ReindexCreated  ReindexOutcome = "created"
	ReindexReplaced ReindexOutcome = "replaced"
)

// ReindexJobStatus represents the status of a reindex job
type ReindexJobStatus string

const (
	ReindexJobStatusPending    ReindexJobStatus = "pending"
	ReindexJobStatusProcessing ReindexJobStatus = "processing"
	ReindexJobStatusCompleted  ReindexJobStatus = "completed"
	ReindexJobStatusFailed     ReindexJobStatus = "failed"
)

// ReindexJob is a queued request to re-index one knowledge unit. Exactly one
// of DocumentID or (EntityID + Source payload) is set: document jobs re-chunk
// and re-embed a lore document, object jobs re-embed a structured entity from
// the canonical field set captured at enqueue time.
type ReindexJob struct {
	ID          string
	LARPID      string
	DocumentID  string
	EntityID    string
	Payload     []byte // JSON-encoded StoryObjectSource for object jobs
	Status      ReindexJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// ObjectSource decodes the captured StoryObjectSource payload of an object job.
func (j *ReindexJob) ObjectSource() (*StoryObjectSource, error) {
	if len(j.Payload) == 0 {
		return nil, fmt.Errorf("reindex job %s has no object payload", j.ID)
	}
	var src StoryObjectSource
	if err := json.Unmarshal(j.Payload, &src); err != nil {
		return nil, fmt.Errorf("failed to decode object payload for job %s: %w", j.ID, err)
	}
	return &src, nil
}

// NewDocumentReindexJob creates a reindex job for a lore document
func NewDocumentReindexJob(id, larpID, documentID string, createdAt time.Time) *ReindexJob {
	return &ReindexJob{
		ID:         id,
		LARPID:     larpID,
		DocumentID: documentID,
		Status:     ReindexJobStatusPending,
		CreatedAt:  createdAt,
	}
}

// NewObjectReindexJob creates a reindex job for a structured story entity
func NewObjectReindexJob(id string, src *StoryObjectSource, createdAt time.Time) (*ReindexJob, error) {
	if err := ValidateStoryObjectSource(src); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("failed to encode object payload: %w", err)
	}
	return &ReindexJob{
		ID:        id,
		LARPID:    src.LARPID,
		EntityID:  src.EntityID,
		Payload:   payload,
		Status:    ReindexJobStatusPending,
		CreatedAt: createdAt,
	}, nil
}

// ValidateReindexJob validates a ReindexJob instance
func ValidateReindexJob(j *ReindexJob) error {
	if j == nil {
		return fmt.Errorf("reindex job cannot be nil")
	}
	if j.ID == "" {
		return fmt.Errorf("reindex job ID is required")
	}
	if j.LARPID == "" {
		return fmt.Errorf("reindex job LARPID is required")
	}
	if j.DocumentID == "" && j.EntityID == "" {
		return fmt.Errorf("reindex job must have either DocumentID or EntityID")
	}
	if j.DocumentID != "" && j.EntityID != "" {
		return fmt.Errorf("reindex job cannot have both DocumentID and EntityID")
	}
	if !isValidReindexJobStatus(j.Status) {
		return fmt.Errorf("reindex job Status is invalid: %s", j.Status)
	}
	if j.Retries < 0 {
		return fmt.Errorf("reindex job Retries cannot be negative")
	}
	return nil
}

// isValidReindexJobStatus checks if a ReindexJobStatus is valid
func isValidReindexJobStatus(s ReindexJobStatus) bool {
	switch s {
	case ReindexJobStatusPending, ReindexJobStatusProcessing,
		ReindexJobStatusCompleted, ReindexJobStatusFailed:
		return true
	}
	return false
}
