package service

import (
	"strings"
	"unicode/utf8"
)

// ChunkConfig controls chunking for lore document embeddings.
type ChunkConfig struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxTokens:     480,
		OverlapTokens: 60,
	}
}

// ChunkText splits a lore document into ordered, slightly overlapping
// segments sized for the embedding model. Paragraph boundaries are preferred,
// then sentence boundaries, then hard word-count splits. Every chunk's
// estimated token count stays within MaxTokens except for a single
// indivisible word longer than the budget, which is emitted oversized rather
// than dropped. Output is deterministic for identical input and config.
func ChunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxTokens <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}
	// Overlap must leave room for new content in each chunk.
	if cfg.OverlapTokens >= cfg.MaxTokens/2 {
		cfg.OverlapTokens = cfg.MaxTokens / 4
	}

	if EstimateTokens(clean) <= cfg.MaxTokens {
		return []string{clean}
	}

	segments := splitSegments(clean, cfg.MaxTokens)

	// Budgets are tracked in runes of the joined chunk, separators included,
	// so the emitted chunk's estimate never exceeds MaxTokens. A token is
	// four runes, so estimate <= MaxTokens iff runes <= 4*MaxTokens.
	budgetRunes := cfg.MaxTokens * tokenRunes

	var chunks []string
	var current []string
	currentRunes := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.TrimSpace(strings.Join(current, " ")))
		current = nil
		currentRunes = 0
	}

	for _, seg := range segments {
		segRunes := utf8.RuneCountInString(seg)

		if currentRunes > 0 && currentRunes+1+segRunes > budgetRunes {
			prev := strings.Join(current, " ")
			flush()
			if cfg.OverlapTokens > 0 {
				tail := trailingTokens(prev, cfg.OverlapTokens)
				// Seed the overlap only when the next segment still fits.
				if tail != "" {
					tailRunes := utf8.RuneCountInString(tail)
					if tailRunes+1+segRunes <= budgetRunes {
						current = append(current, tail)
						currentRunes = tailRunes
					}
				}
			}
		}

		if currentRunes > 0 {
			currentRunes++
		}
		current = append(current, seg)
		currentRunes += segRunes
	}
	flush()

	return chunks
}

// splitSegments breaks text into units no larger than maxTokens, working down
// from paragraphs to sentences to word runs. A single word longer than the
// budget is returned as its own segment.
func splitSegments(text string, maxTokens int) []string {
	var segments []string
	for _, para := range splitParagraphs(text) {
		if EstimateTokens(para) <= maxTokens {
			segments = append(segments, para)
			continue
		}
		for _, sentence := range splitSentences(para) {
			if EstimateTokens(sentence) <= maxTokens {
				segments = append(segments, sentence)
				continue
			}
			segments = append(segments, splitWords(sentence, maxTokens)...)
		}
	}
	return segments
}

func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	var paras []string
	for _, p := range strings.Split(normalized, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			atEnd := i == len(runes)-1
			if atEnd || runes[i+1] == ' ' || runes[i+1] == '\n' {
				s := strings.TrimSpace(b.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				b.Reset()
			}
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func splitWords(text string, maxTokens int) []string {
	budgetRunes := maxTokens * tokenRunes
	words := strings.Fields(text)
	var segments []string
	var current []string
	currentRunes := 0
	for _, w := range words {
		wRunes := utf8.RuneCountInString(w)
		if currentRunes > 0 && currentRunes+1+wRunes > budgetRunes {
			segments = append(segments, strings.Join(current, " "))
			current = nil
			currentRunes = 0
		}
		if currentRunes > 0 {
			currentRunes++
		}
		current = append(current, w)
		currentRunes += wRunes
	}
	if len(current) > 0 {
		segments = append(segments, strings.Join(current, " "))
	}
	return segments
}

// trailingTokens returns the suffix of text whose estimated token count is
// approximately wantTokens, cut at a word boundary.
func trailingTokens(text string, wantTokens int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var tail []string
	total := 0
	for i := len(words) - 1; i >= 0; i-- {
		wTokens := EstimateTokens(words[i])
		if total+wTokens > wantTokens && len(tail) > 0 {
			break
		}
		tail = append([]string{words[i]}, tail...)
		total += wTokens
		if total >= wantTokens {
			break
		}
	}
	return strings.Join(tail, " ")
}
