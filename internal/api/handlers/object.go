package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/larpforge/storyai/internal/api"
	"github.com/larpforge/storyai/internal/domain"
)

type ObjectReindexService interface {
	RequestObjectReindex(ctx context.Context, src *domain.StoryObjectSource) error
}

type ObjectRemovalService interface {
	RemoveObject(ctx context.Context, entityID string) error
}

// ObjectHandler is the index lifecycle trigger for structured story entities.
// Entity CRUD lives elsewhere in the platform; these endpoints capture the
// canonical field set for embedding and drop the embedding when the source
// entity is deleted. Removal is synchronous so a deleted entity never stays
// searchable until a worker gets around to it.
type ObjectHandler struct {
	reindex ObjectReindexService
	removal ObjectRemovalService
}

func NewObjectHandler(reindex ObjectReindexService, removal ObjectRemovalService) *ObjectHandler {
	return &ObjectHandler{reindex: reindex, removal: removal}
}

type ObjectFieldRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type ReindexObjectRequest struct {
	LARPID     string               `json:"larp_id"`
	EntityID   string               `json:"entity_id"`
	EntityType string               `json:"entity_type"`
	Title      string               `json:"title"`
	Fields     []ObjectFieldRequest `json:"fields"`
}

func (h *ObjectHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	var req ReindexObjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.LARPID == "" {
		api.Error(w, http.StatusBadRequest, "larp_id is required")
		return
	}
	if req.EntityID == "" {
		api.Error(w, http.StatusBadRequest, "entity_id is required")
		return
	}
	if req.EntityType == "" {
		api.Error(w, http.StatusBadRequest, "entity_type is required")
		return
	}
	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}

	fields := make([]domain.EntityField, 0, len(req.Fields))
	for _, f := range req.Fields {
		fields = append(fields, domain.EntityField{Name: f.Name, Value: f.Value})
	}

	src := &domain.StoryObjectSource{
		LARPID:     req.LARPID,
		EntityID:   req.EntityID,
		EntityType: domain.EntityType(req.EntityType),
		Title:      req.Title,
		Fields:     fields,
	}

	if err := h.reindex.RequestObjectReindex(r.Context(), src); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// Remove deletes the embedding row for a deleted story entity. Removal is
// idempotent: deleting an entity that was never indexed succeeds.
func (h *ObjectHandler) Remove(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entity_id")

	if err := h.removal.RemoveObject(r.Context(), entityID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
