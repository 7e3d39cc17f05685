package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/larpforge/storyai/internal/api"
	"github.com/larpforge/storyai/internal/domain"
	"github.com/larpforge/storyai/internal/service"
)

type LoreService interface {
	Create(ctx context.Context, input service.CreateLoreInput) (*domain.LoreDocument, error)
	Get(ctx context.Context, id string) (*domain.LoreDocument, error)
	List(ctx context.Context, larpID, cursor string, limit int) (*service.LorePageResult, error)
	Update(ctx context.Context, id string, input service.UpdateLoreInput) (*domain.LoreDocument, error)
	Delete(ctx context.Context, id string) error
}

type LoreHandler struct {
	svc LoreService
}

func NewLoreHandler(svc LoreService) *LoreHandler {
	return &LoreHandler{svc: svc}
}

type CreateLoreRequest struct {
	LARPID        string   `json:"larp_id"`
	Title         string   `json:"title"`
	Body          string   `json:"body"`
	Category      string   `json:"category,omitempty"`
	Priority      int      `json:"priority,omitempty"`
	AlwaysInclude bool     `json:"always_include,omitempty"`
	Active        *bool    `json:"active,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

type UpdateLoreRequest struct {
	Title         string   `json:"title"`
	Body          string   `json:"body"`
	Category      string   `json:"category,omitempty"`
	Priority      int      `json:"priority,omitempty"`
	AlwaysInclude bool     `json:"always_include,omitempty"`
	Active        *bool    `json:"active,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

type LoreResponse struct {
	ID            string   `json:"id"`
	LARPID        string   `json:"larp_id"`
	Title         string   `json:"title"`
	Body          string   `json:"body"`
	Category      string   `json:"category,omitempty"`
	Priority      int      `json:"priority"`
	AlwaysInclude bool     `json:"always_include"`
	Active        bool     `json:"active"`
	Tags          []string `json:"tags,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

type LoreListResponse struct {
	Items      []*LoreResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

func loreToResponse(d *domain.LoreDocument) *LoreResponse {
	return &LoreResponse{
		ID:            d.ID,
		LARPID:        d.LARPID,
		Title:         d.Title,
		Body:          d.Body,
		Category:      d.Category,
		Priority:      d.Priority,
		AlwaysInclude: d.AlwaysInclude,
		Active:        d.Active,
		Tags:          d.Tags,
		CreatedAt:     d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:     d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *LoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.LARPID == "" {
		api.Error(w, http.StatusBadRequest, "larp_id is required")
		return
	}
	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Body == "" {
		api.Error(w, http.StatusBadRequest, "body is required")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	doc, err := h.svc.Create(r.Context(), service.CreateLoreInput{
		LARPID:        req.LARPID,
		Title:         req.Title,
		Body:          req.Body,
		Category:      req.Category,
		Priority:      req.Priority,
		AlwaysInclude: req.AlwaysInclude,
		Active:        active,
		Tags:          req.Tags,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, loreToResponse(doc))
}

func (h *LoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrLoreDocumentNotFound) {
			api.Error(w, http.StatusNotFound, "lore document not found")
			return
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, loreToResponse(doc))
}

func (h *LoreHandler) List(w http.ResponseWriter, r *http.Request) {
	larpID := r.URL.Query().Get("larp_id")
	if larpID == "" {
		api.Error(w, http.StatusBadRequest, "larp_id is required")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.svc.List(r.Context(), larpID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*LoreResponse, 0, len(page.Items))
	for _, d := range page.Items {
		items = append(items, loreToResponse(d))
	}

	api.Success(w, http.StatusOK, LoreListResponse{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

func (h *LoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateLoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Body == "" {
		api.Error(w, http.StatusBadRequest, "body is required")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	doc, err := h.svc.Update(r.Context(), id, service.UpdateLoreInput{
		Title:         req.Title,
		Body:          req.Body,
		Category:      req.Category,
		Priority:      req.Priority,
		AlwaysInclude: req.AlwaysInclude,
		Active:        active,
		Tags:          req.Tags,
	})
	if err != nil {
		if errors.Is(err, domain.ErrLoreDocumentNotFound) {
			api.Error(w, http.StatusNotFound, "lore document not found")
			return
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, loreToResponse(doc))
}

func (h *LoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrLoreDocumentNotFound) {
			api.Error(w, http.StatusNotFound, "lore document not found")
			return
		}
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
