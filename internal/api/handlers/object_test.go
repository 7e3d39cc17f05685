package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/larpforge/storyai/internal/domain"
)

// MockObjectReindexService mocks the object reindex trigger
type MockObjectReindexService struct {
	mock.Mock
}

func (m *MockObjectReindexService) RequestObjectReindex(ctx context.Context, src *domain.StoryObjectSource) error {
	args := m.Called(ctx, src)
	return args.Error(0)
}

// MockObjectRemovalService mocks the embedding removal trigger
type MockObjectRemovalService struct {
	mock.Mock
}

func (m *MockObjectRemovalService) RemoveObject(ctx context.Context, entityID string) error {
	args := m.Called(ctx, entityID)
	return args.Error(0)
}

func postReindex(handler *ObjectHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/objects/reindex", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Reindex(rec, req)
	return rec
}

func TestObjectReindex_Queued(t *testing.T) {
	mockSvc := new(MockObjectReindexService)
	handler := NewObjectHandler(mockSvc, new(MockObjectRemovalService))

	mockSvc.On("RequestObjectReindex", mock.Anything, mock.MatchedBy(func(src *domain.StoryObjectSource) bool {
		return src.EntityID == "char-1" &&
			src.EntityType == domain.EntityTypeCharacter &&
			len(src.Fields) == 1 &&
			src.Fields[0].Name == "description"
	})).Return(nil)

	rec := postReindex(handler, `{
		"larp_id": "larp-1",
		"entity_id": "char-1",
		"entity_type": "character",
		"title": "Lady Ashblood",
		"fields": [{"name": "description", "value": "Matriarch of the family."}]
	}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"data":{"status":"queued"}}`, rec.Body.String())
}

func TestObjectReindex_MissingFields(t *testing.T) {
	handler := NewObjectHandler(new(MockObjectReindexService), new(MockObjectRemovalService))

	cases := []struct {
		body    string
		message string
	}{
		{`{"entity_id":"e","entity_type":"character","title":"T"}`, "larp_id is required"},
		{`{"larp_id":"l","entity_type":"character","title":"T"}`, "entity_id is required"},
		{`{"larp_id":"l","entity_id":"e","title":"T"}`, "entity_type is required"},
		{`{"larp_id":"l","entity_id":"e","entity_type":"character"}`, "title is required"},
	}
	for _, tc := range cases {
		rec := postReindex(handler, tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), tc.message)
	}
}

func TestObjectReindex_InvalidEntityType(t *testing.T) {
	mockSvc := new(MockObjectReindexService)
	handler := NewObjectHandler(mockSvc, new(MockObjectRemovalService))

	mockSvc.On("RequestObjectReindex", mock.Anything, mock.Anything).
		Return(domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid story object source", domain.ErrInvalidEntityType))

	rec := postReindex(handler, `{"larp_id":"l","entity_id":"e","entity_type":"spaceship","title":"T"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func deleteObject(handler *ObjectHandler, entityID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Delete("/objects/{entity_id}", handler.Remove)
	req := httptest.NewRequest(http.MethodDelete, "/objects/"+entityID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestObjectRemove_DeletesEmbedding(t *testing.T) {
	mockRemoval := new(MockObjectRemovalService)
	handler := NewObjectHandler(new(MockObjectReindexService), mockRemoval)

	mockRemoval.On("RemoveObject", mock.Anything, "char-1").Return(nil)

	rec := deleteObject(handler, "char-1")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	mockRemoval.AssertExpectations(t)
}

func TestObjectRemove_RepositoryFailure(t *testing.T) {
	mockRemoval := new(MockObjectRemovalService)
	handler := NewObjectHandler(new(MockObjectReindexService), mockRemoval)

	mockRemoval.On("RemoveObject", mock.Anything, "char-1").Return(errors.New("connection refused"))

	rec := deleteObject(handler, "char-1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
