package domain

import "fmt"

// UnitKind tags the two knowledge-unit shapes the retriever handles.
type UnitKind string

const (
	UnitKindObject UnitKind = "object"
	UnitKindLore   UnitKind = "lore"
)

// RetrievalResult is the unified projection of a knowledge unit as it comes
// back from a vector search: either a structured story entity or the best
// chunk of a lore document, plus the query-time similarity score. The
// retriever is polymorphic over this shape and never inspects the underlying
// entity beyond what it reports back as TypeLabel.
type RetrievalResult struct {
	Kind       UnitKind
	ID         string
	LARPID     string
	Title      string
	TypeLabel  string
	Preview    string
	Content    string
	Similarity float32

	// Lore-only fields
	DocumentID    string
	ChunkIndex    int
	Priority      int
	AlwaysInclude bool
}

// SimilarityPercent maps the [0,1] similarity score to the 0-100 scale the
// chat widget renders.
func (r *RetrievalResult) SimilarityPercent() int {
	p := int(r.Similarity*100 + 0.5)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Source is a citation entry for a knowledge unit that was included in the
// assembled context. The shape matches the front-end badge contract:
// "{type}: {title} ({similarity}%)" with Preview as the tooltip.
type Source struct {
	Type       string
	Title      string
	Similarity int
	Preview    string
}

// ChatRole identifies the author of a conversation turn.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one prior conversation turn, re-sent by the caller on every
// request. There is no server-side session.
type ChatMessage struct {
	Role    ChatRole
	Content string
}

// ValidateChatMessage validates a ChatMessage instance
func ValidateChatMessage(m ChatMessage) error {
	if m.Role != ChatRoleUser && m.Role != ChatRoleAssistant {
		return fmt.Errorf("chat message role is invalid: %s", m.Role)
	}
	if m.Content == "" {
		return fmt.Errorf("chat message content is required")
	}
	return nil
}
