package clones

import (
	"regexp"
	"strings"
)

// Literal markers substituted during normalization. They survive
// tokenization verbatim so that string and numeric literals compare
// equal regardless of their concrete values.
const (
	markerString = "STR"
	markerNumber = "NUM"
)

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reString     = regexp.MustCompile(`(?s)(""".*?"""|'''.*?'''|"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*')`)
	reNumber     = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	reHex        = regexp.MustCompile(`\b0x[0-9a-fA-F]+\b`)

	// Comment stripping is heuristic, not a lexer. Full-line comments for
	// indentation-based languages; for C-like languages the (^|[^:])
	// guard keeps // inside URLs alive.
	reLineComment       = regexp.MustCompile(`(?m)^\s*(//|#).*$`)
	reInlineLineComment = regexp.MustCompile(`(?m)(^|[^:])//.*$`)
	reBlockComment      = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// stripComments removes comments from code using the conventions of the
// given language family. Best effort: comment markers inside string
// literals are not distinguished, which trades occasional false strips
// for never needing a per-language lexer.
func stripComments(code string, lang Language) string {
	s := reBlockComment.ReplaceAllString(code, " ")
	if indentBased(lang) {
		return reLineComment.ReplaceAllString(s, " ")
	}
	return reInlineLineComment.ReplaceAllString(s, "${1} ")
}

// Normalize converts raw fragment text into a canonical single-line
// form: comments stripped, string literals replaced by STR, numeric
// literals (hex first, then decimal) replaced by NUM, and all
// whitespace runs collapsed to single spaces. The output is a pure
// function of (code, lang); identical inputs always normalize
// identically.
func Normalize(code string, lang Language) string {
	s := stripComments(code, lang)
	s = reString.ReplaceAllString(s, " "+markerString+" ")
	s = reHex.ReplaceAllString(s, " "+markerNumber+" ")
	s = reNumber.ReplaceAllString(s, " "+markerNumber+" ")
	s = reWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
