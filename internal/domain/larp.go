package domain

import (
	"fmt"
	"time"
)

// LARP represents a single production. Every knowledge unit is scoped to
// exactly one LARP; lore is setting-specific and never shared between
// productions.
type LARP struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}

// NewLARP creates a new LARP instance
func NewLARP(id, name, slug string, createdAt time.Time) *LARP {
	return &LARP{
		ID:        id,
		Name:      name,
		Slug:      slug,
		CreatedAt: createdAt,
	}
}

// ValidateLARP validates a LARP instance
func ValidateLARP(l *LARP) error {
	if l == nil {
		return fmt.Errorf("larp cannot be nil")
	}
	if l.ID == "" {
		return fmt.Errorf("larp ID is required")
	}
	if l.Name == "" {
		return fmt.Errorf("larp Name is required")
	}
	return nil
}
