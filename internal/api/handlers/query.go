package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/larpforge/storyai/internal/api"
	"github.com/larpforge/storyai/internal/domain"
	"github.com/larpforge/storyai/internal/service"
)

type ChatService interface {
	Answer(ctx context.Context, input service.ChatInput) (*service.ChatOutput, error)
}

// QueryHandler serves the lore chat widget. Each request is a complete,
// self-contained turn: the caller re-sends the prior conversation in the
// history field.
type QueryHandler struct {
	svc ChatService
}

func NewQueryHandler(svc ChatService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type QueryRequest struct {
	LARPID  string           `json:"larp_id"`
	Query   string           `json:"query"`
	History []HistoryMessage `json:"history,omitempty"`
}

type SourceResponse struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Similarity int    `json:"similarity"`
	Preview    string `json:"preview"`
}

type QueryResponse struct {
	Response string           `json:"response"`
	Sources  []SourceResponse `json:"sources"`
	Degraded bool             `json:"degraded,omitempty"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.LARPID == "" {
		api.Error(w, http.StatusBadRequest, "larp_id is required")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	history := make([]domain.ChatMessage, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, domain.ChatMessage{
			Role:    domain.ChatRole(m.Role),
			Content: m.Content,
		})
	}

	out, err := h.svc.Answer(r.Context(), service.ChatInput{
		LARPID:  req.LARPID,
		Query:   req.Query,
		History: history,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	sources := make([]SourceResponse, 0, len(out.Sources))
	for _, s := range out.Sources {
		sources = append(sources, SourceResponse{
			Type:       s.Type,
			Title:      s.Title,
			Similarity: s.Similarity,
			Preview:    s.Preview,
		})
	}

	api.JSON(w, http.StatusOK, QueryResponse{
		Response: out.Response,
		Sources:  sources,
		Degraded: out.Degraded,
	})
}
