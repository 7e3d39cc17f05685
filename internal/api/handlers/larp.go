package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/larpforge/storyai/internal/api"
	"github.com/larpforge/storyai/internal/domain"
)

type LARPService interface {
	Create(ctx context.Context, name, slug string) (*domain.LARP, error)
	Get(ctx context.Context, id string) (*domain.LARP, error)
	List(ctx context.Context) ([]*domain.LARP, error)
}

type LARPHandler struct {
	svc LARPService
}

func NewLARPHandler(svc LARPService) *LARPHandler {
	return &LARPHandler{svc: svc}
}

type CreateLARPRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type LARPResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug,omitempty"`
	CreatedAt string `json:"created_at"`
}

func larpToResponse(l *domain.LARP) *LARPResponse {
	return &LARPResponse{
		ID:        l.ID,
		Name:      l.Name,
		Slug:      l.Slug,
		CreatedAt: l.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *LARPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLARPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	larp, err := h.svc.Create(r.Context(), req.Name, req.Slug)
	if err != nil {
		if errors.Is(err, domain.ErrLARPAlreadyExists) {
			api.Error(w, http.StatusConflict, "larp already exists")
			return
		}
		api.Error(w, http.StatusInternalServerError, "failed to create larp")
		return
	}

	api.Success(w, http.StatusCreated, larpToResponse(larp))
}

func (h *LARPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	larp, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrLARPNotFound) {
			api.Error(w, http.StatusNotFound, "larp not found")
			return
		}
		api.Error(w, http.StatusInternalServerError, "failed to get larp")
		return
	}

	api.Success(w, http.StatusOK, larpToResponse(larp))
}

func (h *LARPHandler) List(w http.ResponseWriter, r *http.Request) {
	larps, err := h.svc.List(r.Context())
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to list larps")
		return
	}

	out := make([]*LARPResponse, 0, len(larps))
	for _, l := range larps {
		out = append(out, larpToResponse(l))
	}
	api.Success(w, http.StatusOK, out)
}
