package service

import "unicode/utf8"

// tokenRunes is the ~4 characters per token heuristic shared by the chunker
// and the context budgets.
const tokenRunes = 4

// EstimateTokens approximates the token count of text for budget purposes.
// The embedding provider reports exact counts after the fact, but chunking
// and context budgeting need a deterministic local estimate.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + tokenRunes - 1) / tokenRunes
}
