package service

import (
	"fmt"
	"strings"

	"github.com/larpforge/storyai/internal/domain"
)

const defaultSnippetMaxChars = 220

// AssembleConfig carries the token budgets for prompt context assembly.
type AssembleConfig struct {
	ContextTokens int
	HistoryTokens int
}

// DefaultAssembleConfig provides sane defaults for context assembly.
func DefaultAssembleConfig() AssembleConfig {
	return AssembleConfig{
		ContextTokens: 2400,
		HistoryTokens: 600,
	}
}

// AssembledContext is the token-bounded prompt context for one turn:
// the knowledge text block, the units that actually made it in (the source
// citations), and the trimmed history.
type AssembledContext struct {
	Text     string
	Included []*domain.RetrievalResult
	History  []domain.ChatMessage
}

// AssembleContext walks ranked results in order, accumulating each unit's
// text under a "type: title" header until the next item would exceed the
// token budget. The first item is always included even if it alone is over
// budget; a non-empty result list never produces an empty context. History
// fits a separate smaller budget with the oldest messages dropped first.
// Identical inputs always produce identical output.
func AssembleContext(results []*domain.RetrievalResult, history []domain.ChatMessage, cfg AssembleConfig) *AssembledContext {
	if cfg.ContextTokens <= 0 {
		cfg = DefaultAssembleConfig()
	}

	var b strings.Builder
	var included []*domain.RetrievalResult
	used := 0

	for _, r := range results {
		if r == nil {
			continue
		}
		block := renderBlock(r)
		blockTokens := EstimateTokens(block)
		if len(included) > 0 && used+blockTokens > cfg.ContextTokens {
			break
		}
		b.WriteString(block)
		used += blockTokens
		included = append(included, r)
	}

	return &AssembledContext{
		Text:     strings.TrimSpace(b.String()),
		Included: included,
		History:  trimHistory(history, cfg.HistoryTokens),
	}
}

func renderBlock(r *domain.RetrievalResult) string {
	content := r.Content
	if content == "" {
		content = r.Preview
	}
	return fmt.Sprintf("%s: %s\n%s\n\n", r.TypeLabel, r.Title, content)
}

// trimHistory drops the oldest messages until the remainder fits the budget.
func trimHistory(history []domain.ChatMessage, budget int) []domain.ChatMessage {
	if len(history) == 0 || budget <= 0 {
		return nil
	}
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		msgTokens := EstimateTokens(history[i].Content)
		if total+msgTokens > budget {
			break
		}
		total += msgTokens
		start = i
	}
	if start == len(history) {
		return nil
	}
	return history[start:]
}

// MakeSnippet collapses whitespace and truncates content for previews.
func MakeSnippet(content string) string {
	if content == "" {
		return ""
	}
	clean := strings.Join(strings.Fields(content), " ")
	if len(clean) <= defaultSnippetMaxChars {
		return clean
	}
	return clean[:defaultSnippetMaxChars-3] + "..."
}
