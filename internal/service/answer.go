package service

import (
	"context"
	"fmt"

	"github.com/larpforge/storyai/internal/domain"
)

// CompletionClient defines the interface for answer synthesis
type CompletionClient interface {
	Complete(ctx context.Context, system string, messages []domain.ChatMessage) (string, error)
}

// Answer is a synthesized response plus the citations for the knowledge
// units that were actually in the prompt context.
type Answer struct {
	Text    string
	Sources []domain.Source
}

const synthesisInstructions = `You are the story assistant for a live-action role-play production.
Answer the player's or organizer's question using only the story context below.
If the context does not contain the answer, say so; do not invent setting facts.

Story context:
`

// SynthesisService turns an assembled context and a query into a cited
// natural-language answer. One completion call per turn.
type SynthesisService struct {
	client CompletionClient
}

// NewSynthesisService creates a new SynthesisService instance
func NewSynthesisService(client CompletionClient) *SynthesisService {
	return &SynthesisService{client: client}
}

// Synthesize runs the completion call and builds the source list from the
// units included in the context. Similarity percentages are the retriever's
// query-time scores; the completion provider cannot alter them.
func (s *SynthesisService) Synthesize(ctx context.Context, assembled *AssembledContext, query string) (*Answer, error) {
	system := synthesisInstructions + assembled.Text

	messages := make([]domain.ChatMessage, 0, len(assembled.History)+1)
	messages = append(messages, assembled.History...)
	messages = append(messages, domain.ChatMessage{Role: domain.ChatRoleUser, Content: query})

	text, err := s.client.Complete(ctx, system, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize answer: %w", err)
	}

	sources := make([]domain.Source, 0, len(assembled.Included))
	for _, r := range assembled.Included {
		sources = append(sources, domain.Source{
			Type:       r.TypeLabel,
			Title:      r.Title,
			Similarity: r.SimilarityPercent(),
			Preview:    r.Preview,
		})
	}

	return &Answer{Text: text, Sources: sources}, nil
}
