package output

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// CharsPerToken is the approximate character-to-token ratio. Code runs
// around 4 chars/token due to syntax and identifiers; we use that as a
// conservative estimate for code-heavy payloads.
const CharsPerToken = 4.0

// EstimateTokens returns an approximate token count for the given text.
// This uses a simple character-based heuristic suitable for code context.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}

	runeCount := utf8.RuneCountInString(text)
	tokens := float64(runeCount) / CharsPerToken

	return int(tokens + 0.5)
}

// FormatTokenCount formats a token count for display.
// Counts >= 1000 are formatted as "X.Xk".
func FormatTokenCount(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("%d", tokens)
	}
	return fmt.Sprintf("%.1fk", float64(tokens)/1000)
}

// TruncateToTokens trims text to approximately maxTokens, cutting on a
// line boundary and appending a truncation marker. Text within budget is
// returned unchanged. Used to keep fragment snippets in tool results
// from flooding an LLM context window.
func TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 || EstimateTokens(text) <= maxTokens {
		return text
	}

	maxRunes := int(float64(maxTokens) * CharsPerToken)
	runes := []rune(text)
	if maxRunes > len(runes) {
		maxRunes = len(runes)
	}
	cut := string(runes[:maxRunes])

	// Prefer ending on a complete line
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	}

	return cut + "\n... [truncated]"
}
