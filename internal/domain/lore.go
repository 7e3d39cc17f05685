package domain

import (
	"fmt"
	"time"
)

// LoreDocument is a long-form lore text belonging to one LARP. Documents
// flagged AlwaysInclude and Active are setting-defining (tone, safety rules)
// and are surfaced on every retrieval regardless of similarity. Inactive
// documents are excluded from retrieval even if chunk rows persist.
type LoreDocument struct {
	ID            string
	LARPID        string
	Title         string
	Body          string
	Category      string
	Priority      int
	AlwaysInclude bool
	Active        bool
	Tags          []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LoreChunk is one bounded segment of a lore document. Chunk indices for a
// document are contiguous starting at 0; re-chunking deletes rows beyond the
// new chunk count in the same transaction that upserts the rest.
type LoreChunk struct {
	ID          string
	DocumentID  string
	LARPID      string
	ChunkIndex  int
	Content     string
	ContentHash string
	Embedding   []float32
	Model       string
	Dimensions  int
	TokenCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewLoreDocument creates a new LoreDocument instance
func NewLoreDocument(id, larpID, title, body, category string, priority int, alwaysInclude, active bool, now time.Time) *LoreDocument {
	return &LoreDocument{
		ID:            id,
		LARPID:        larpID,
		Title:         title,
		Body:          body,
		Category:      category,
		Priority:      priority,
		AlwaysInclude: alwaysInclude,
		Active:        active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ValidateLoreDocument validates a LoreDocument instance
func ValidateLoreDocument(d *LoreDocument) error {
	if d == nil {
		return fmt.Errorf("lore document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("lore document ID is required")
	}
	if d.LARPID == "" {
		return fmt.Errorf("lore document LARPID is required")
	}
	if d.Title == "" {
		return fmt.Errorf("lore document Title is required")
	}
	if d.Priority < 0 {
		return fmt.Errorf("lore document Priority must not be negative")
	}
	return nil
}
