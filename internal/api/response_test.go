package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/larpforge/storyai/internal/domain"
)

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()

	Success(rec, http.StatusOK, map[string]string{"name": "Vasterholt"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"name":"Vasterholt"}}`, rec.Body.String())
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()

	Error(rec, http.StatusBadRequest, "larp_id is required")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"larp_id is required"}`, rec.Body.String())
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", domain.NewDomainError(domain.ErrCodeValidation, "bad input"), http.StatusBadRequest},
		{"not found", domain.ErrLoreDocumentNotFound, http.StatusNotFound},
		{"already exists", domain.ErrLARPAlreadyExists, http.StatusConflict},
		{"scope violation", domain.NewDomainError(domain.ErrCodeScopeViolation, "leak"), http.StatusInternalServerError},
		{"stale index", domain.NewDomainError(domain.ErrCodeStaleIndex, "gap"), http.StatusInternalServerError},
		{"retryable provider", domain.NewProviderError("openai", "embed", true, errors.New("429")), http.StatusServiceUnavailable},
		{"terminal provider", domain.NewProviderError("openai", "embed", false, errors.New("401")), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, DomainErrorToHTTP(tt.err))
		})
	}
}

func TestDomainErrorToHTTP_Wrapped(t *testing.T) {
	wrapped := errors.Join(errors.New("retrieval failed"), domain.ErrLARPNotFound)
	assert.Equal(t, http.StatusNotFound, DomainErrorToHTTP(wrapped))
}

func TestHandleError(t *testing.T) {
	rec := httptest.NewRecorder()

	HandleError(rec, domain.ErrLoreDocumentNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"[NOT_FOUND] lore document not found"}`, rec.Body.String())
}
