package clones

import "unicode"

// keywords is the reserved-word set preserved verbatim by the
// tokenizer. It intentionally spans all supported languages; keeping
// control-flow and declaration structure while collapsing every other
// identifier to ID is what makes renamed copies similar.
var keywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "switch": true,
	"case": true, "break": true, "continue": true, "return": true,
	"try": true, "catch": true, "finally": true, "throw": true,
	"func": true, "function": true, "def": true, "class": true,
	"struct": true, "interface": true, "type": true, "package": true,
	"import": true, "from": true, "export": true, "const": true,
	"let": true, "var": true,
	"public": true, "private": true, "protected": true, "static": true,
	"async": true, "await": true, "yield": true, "new": true,
	"this": true, "super": true,
	"do": true, "in": true, "of": true, "nil": true, "null": true,
	"true": true, "false": true,
	"map": true, "filter": true, "reduce": true, "foreach": true,
}

// Tokenize splits normalized text into an ordered token sequence.
// Identifier-class runs collapse to ID unless they are keywords or the
// STR/NUM markers; leftover digit runs collapse to NUM; every other
// non-space character stands alone as an operator/punctuation token,
// except ; and , which carry no discriminative signal and are dropped.
func Tokenize(norm string) []string {
	runes := []rune(norm)
	n := len(runes)
	tokens := make([]string, 0, n/3)

	for i := 0; i < n; {
		ch := runes[i]
		if unicode.IsSpace(ch) {
			i++
			continue
		}
		if unicode.IsLetter(ch) || ch == '_' {
			j := i + 1
			for j < n && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			tok := string(runes[i:j])
			switch {
			case keywords[tok], tok == markerString, tok == markerNumber:
				tokens = append(tokens, tok)
			default:
				tokens = append(tokens, "ID")
			}
			i = j
			continue
		}
		if unicode.IsDigit(ch) {
			j := i + 1
			for j < n && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, markerNumber)
			i = j
			continue
		}
		// single-character operator/punctuation
		if ch != ';' && ch != ',' {
			tokens = append(tokens, string(ch))
		}
		i++
	}
	return tokens
}
