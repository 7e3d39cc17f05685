package service

import (
	"context"
	"fmt"

	"github.com/larpforge/storyai/internal/domain"
)

// Retriever defines the retrieval interface the chat service drives
type Retriever interface {
	Retrieve(ctx context.Context, input RetrieveInput) (*RetrieveOutput, error)
}

// Synthesizer defines the answer synthesis interface the chat service drives
type Synthesizer interface {
	Synthesize(ctx context.Context, assembled *AssembledContext, query string) (*Answer, error)
}

// ChatConfig carries per-turn budgets.
type ChatConfig struct {
	RetrievalBudget int
	Assemble        AssembleConfig
	// PinnedFallback answers from always-include documents alone when the
	// embedding provider is down.
	PinnedFallback bool
}

// DefaultChatConfig provides sane defaults for chat turns.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		RetrievalBudget: defaultBudget,
		Assemble:        DefaultAssembleConfig(),
	}
}

// ChatInput is one conversation turn: the current query plus the caller's
// trimmed history, which excludes the current query.
type ChatInput struct {
	LARPID  string
	Query   string
	History []domain.ChatMessage
}

// ChatOutput is the turn's answer and citations.
type ChatOutput struct {
	Response string
	Sources  []domain.Source
	Degraded bool
}

// ChatService is the stateless per-turn entry point. Each call is one
// complete retrieve → assemble → synthesize cycle; conversation continuity
// comes entirely from the caller re-sending prior turns, so any request can
// land on any worker.
type ChatService struct {
	retriever   Retriever
	synthesizer Synthesizer
	cfg         ChatConfig
}

// NewChatService creates a new ChatService instance
func NewChatService(retriever Retriever, synthesizer Synthesizer, cfg ChatConfig) *ChatService {
	if cfg.RetrievalBudget <= 0 {
		cfg.RetrievalBudget = defaultBudget
	}
	if cfg.Assemble.ContextTokens <= 0 {
		cfg.Assemble = DefaultAssembleConfig()
	}
	return &ChatService{retriever: retriever, synthesizer: synthesizer, cfg: cfg}
}

// Answer handles one turn.
func (s *ChatService) Answer(ctx context.Context, input ChatInput) (*ChatOutput, error) {
	if input.LARPID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if input.Query == "" {
		return nil, domain.ErrEmptyQuery
	}
	for _, m := range input.History {
		if err := domain.ValidateChatMessage(m); err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid history message", err)
		}
	}

	retrieved, err := s.retriever.Retrieve(ctx, RetrieveInput{
		LARPID:         input.LARPID,
		Query:          input.Query,
		Budget:         s.cfg.RetrievalBudget,
		PinnedFallback: s.cfg.PinnedFallback,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	assembled := AssembleContext(retrieved.Results, input.History, s.cfg.Assemble)

	answer, err := s.synthesizer.Synthesize(ctx, assembled, input.Query)
	if err != nil {
		return nil, err
	}

	return &ChatOutput{
		Response: answer.Text,
		Sources:  answer.Sources,
		Degraded: retrieved.Degraded,
	}, nil
}
