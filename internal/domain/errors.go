package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeProvider         = "PROVIDER_ERROR"
	ErrCodeScopeViolation   = "SCOPE_VIOLATION"
	ErrCodeStaleIndex       = "STALE_INDEX"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidEntityType       = NewDomainError(ErrCodeValidation, "invalid story entity type")
	ErrInvalidChatRole         = NewDomainError(ErrCodeValidation, "invalid chat message role")
	ErrInvalidReindexJobStatus = NewDomainError(ErrCodeValidation, "invalid reindex job status")
	ErrMissingRequiredField    = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery              = NewDomainError(ErrCodeValidation, "query must not be empty")
)

// Not found errors
var (
	ErrLARPNotFound            = NewDomainError(ErrCodeNotFound, "larp not found")
	ErrLoreDocumentNotFound    = NewDomainError(ErrCodeNotFound, "lore document not found")
	ErrObjectEmbeddingNotFound = NewDomainError(ErrCodeNotFound, "object embedding not found")
	ErrReindexJobNotFound      = NewDomainError(ErrCodeNotFound, "reindex job not found")
)

// Already exists errors
var (
	ErrLARPAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "larp already exists")
)

// ProviderError wraps a failure from an external embedding or completion
// provider. Retryable distinguishes transient failures (rate limits,
// transient 5xx, transport errors) from terminal ones (auth, malformed
// input); callers use it to decide whether to requeue.
type ProviderError struct {
	Provider  string
	Op        string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "terminal"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("%s %s failed (%s): %v", e.Provider, e.Op, kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider, op string, retryable bool, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Retryable: retryable, Err: err}
}

// IsRetryable reports whether err is a retryable provider failure
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// AsTerminalProviderError extracts a non-retryable ProviderError from err.
// The second return is false when err is not a provider error or the failure
// is retryable.
func AsTerminalProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) && !pe.Retryable {
		return pe, true
	}
	return nil, false
}

// ScopeViolationError reports a retrieval result that resolved outside the
// requested LARP. This is an internal invariant breach and is never passed
// through to a caller as a result.
type ScopeViolationError struct {
	RequestedLARP string
	ActualLARP    string
	UnitID        string
}

func (e *ScopeViolationError) Error() string {
	return fmt.Sprintf("[%s] unit %s belongs to larp %s, requested larp %s",
		ErrCodeScopeViolation, e.UnitID, e.ActualLARP, e.RequestedLARP)
}

// StaleIndexError reports an attempted chunk upsert with an index beyond the
// document's current chunk count.
type StaleIndexError struct {
	DocumentID string
	ChunkIndex int
	ChunkCount int
}

func (e *StaleIndexError) Error() string {
	return fmt.Sprintf("[%s] chunk index %d out of range for document %s (chunk count %d)",
		ErrCodeStaleIndex, e.ChunkIndex, e.DocumentID, e.ChunkCount)
}
