package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/larpforge/storyai/internal/domain"
)

// ContentHash computes the content hash of a canonical text rendering.
// Pure function; the unit of change detection for incremental re-indexing.
func ContentHash(canonicalText string) string {
	sum := sha256.Sum256([]byte(canonicalText))
	return hex.EncodeToString(sum[:])
}

// CanonicalText renders a structured story entity's embedding-relevant fields
// in a fixed order. The rendering is the hashed unit: any change to a field
// value changes the hash and triggers re-embedding, and the same fields in
// the same order always produce the same text.
func CanonicalText(src *domain.StoryObjectSource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", src.EntityType, src.Title)
	for _, f := range src.Fields {
		value := strings.TrimSpace(f.Value)
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s", f.Name, value)
	}
	return b.String()
}
