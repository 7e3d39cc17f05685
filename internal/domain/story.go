package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the kind of structured story entity behind an
// object embedding.
type EntityType string

const (
	EntityTypeCharacter EntityType = "character"
	EntityTypeFaction   EntityType = "faction"
	EntityTypeQuest     EntityType = "quest"
	EntityTypeThread    EntityType = "thread"
	EntityTypeEvent     EntityType = "event"
	EntityTypeItem      EntityType = "item"
	EntityTypePlace     EntityType = "place"
)

// EntityField is one embedding-relevant field of a story entity. Field order
// is fixed by the producing side and is part of the canonical rendering.
type EntityField struct {
	Name  string
	Value string
}

// StoryObjectSource is the ingestion-side view of a structured story entity:
// the identity plus the fields that feed its canonical text. The platform
// that owns entity CRUD sends this shape whenever an entity is saved.
type StoryObjectSource struct {
	LARPID     string
	EntityID   string
	EntityType EntityType
	Title      string
	Fields     []EntityField
}

// ObjectEmbedding is the stored embedding row for a structured story entity.
// At most one current row exists per entity; a changed canonical text hash
// replaces the row rather than appending.
type ObjectEmbedding struct {
	ID            string
	LARPID        string
	EntityID      string
	EntityType    EntityType
	Title         string
	CanonicalText string
	ContentHash   string
	Embedding     []float32
	Model         string
	Dimensions    int
	TokenCount    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateStoryObjectSource validates a StoryObjectSource instance
func ValidateStoryObjectSource(s *StoryObjectSource) error {
	if s == nil {
		return fmt.Errorf("story object source cannot be nil")
	}
	if s.LARPID == "" {
		return fmt.Errorf("story object LARPID is required")
	}
	if s.EntityID == "" {
		return fmt.Errorf("story object EntityID is required")
	}
	if s.Title == "" {
		return fmt.Errorf("story object Title is required")
	}
	if !isValidEntityType(s.EntityType) {
		return fmt.Errorf("story object EntityType is invalid: %s", s.EntityType)
	}
	return nil
}

// isValidEntityType checks if an EntityType is valid
func isValidEntityType(t EntityType) bool {
	switch t {
	case EntityTypeCharacter, EntityTypeFaction, EntityTypeQuest,
		EntityTypeThread, EntityTypeEvent, EntityTypeItem, EntityTypePlace:
		return true
	}
	return false
}
