// Package extract carves source files into candidate fragments for
// clone detection. Extraction is regex-driven: each language has a
// fixed strategy that finds declaration start lines, then a brace or
// indentation scan locates where the block ends. A sliding line window
// supplements or replaces structural blocks depending on the mode.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/doppelcode/doppel/internal/fileproc"
	"github.com/doppelcode/doppel/pkg/clones"
	"github.com/doppelcode/doppel/pkg/source"
)

// Mode selects which fragment shapes a run extracts.
type Mode string

const (
	ModeBlocks  Mode = "blocks"  // structural declarations only
	ModeWindows Mode = "windows" // fixed-size line windows only
	ModeBoth    Mode = "both"    // blocks plus windows
)

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeBlocks, ModeWindows, ModeBoth:
		return true
	}
	return false
}

// String returns the string representation.
func (m Mode) String() string {
	return string(m)
}

// Options control extraction.
type Options struct {
	Mode          Mode
	MinBlockLines int // structural blocks shorter than this are dropped
	WinLines      int
	WinStep       int
}

// DefaultOptions returns the standard extraction settings.
func DefaultOptions() Options {
	return Options{
		Mode:          ModeBlocks,
		MinBlockLines: 12,
		WinLines:      20,
		WinStep:       10,
	}
}

// Span is a candidate fragment location inside one file. Lines are
// 1-based and inclusive.
type Span struct {
	StartLine int
	EndLine   int
	Kind      clones.Kind
	Name      string
}

// rule pairs a declaration-start pattern with the fragment kind it
// produces. nameGroup is the capture group holding the declared name.
type rule struct {
	re        *regexp.Regexp
	kind      clones.Kind
	nameGroup int
}

var (
	reGoFunc = regexp.MustCompile(`(?m)^\s*func\s+(\([^\)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	reGoType = regexp.MustCompile(`(?m)^\s*type\s+([A-Za-z_][A-Za-z0-9_]*)\s+(struct|interface)\b`)

	reJSFunc  = regexp.MustCompile(`(?m)^\s*(export\s+)?(async\s+)?function\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	reJSClass = regexp.MustCompile(`(?m)^\s*(export\s+)?class\s+([A-Za-z_][A-Za-z0-9_]*)\b`)
	reJSArrow = regexp.MustCompile(`(?m)^\s*(export\s+)?(const|let|var)\s+([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(async\s*)?\(`)

	rePyDef   = regexp.MustCompile(`(?m)^\s*def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	rePyClass = regexp.MustCompile(`(?m)^\s*class\s+([A-Za-z_][A-Za-z0-9_]*)\b`)

	reRbDef   = regexp.MustCompile(`(?m)^\s*def\s+([A-Za-z_][A-Za-z0-9_!?=]*)`)
	reRbClass = regexp.MustCompile(`(?m)^\s*class\s+([A-Za-z_][A-Za-z0-9_:]*)`)

	reJVMFun   = regexp.MustCompile(`(?m)^\s*(?:public\s+|private\s+|protected\s+|internal\s+|open\s+|override\s+|suspend\s+|inline\s+|operator\s+|infix\s+)*fun\s+(?:<[^>]*>\s*)?([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	reJVMClass = regexp.MustCompile(`(?m)^\s*(?:public\s+|private\s+|protected\s+|internal\s+|abstract\s+|final\s+|static\s+|open\s+|data\s+|sealed\s+)*(?:class|interface|enum|object)\s+([A-Za-z_][A-Za-z0-9_]*)\b`)

	reRsFn   = regexp.MustCompile(`(?m)^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+|async\s+|unsafe\s+)*fn\s+([A-Za-z_][A-Za-z0-9_]*)`)
	reRsType = regexp.MustCompile(`(?m)^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait)\s+([A-Za-z_][A-Za-z0-9_]*)`)

	rePHPFunc  = regexp.MustCompile(`(?m)^\s*(?:public\s+|private\s+|protected\s+|static\s+|final\s+|abstract\s+)*function\s+&?([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	rePHPClass = regexp.MustCompile(`(?m)^\s*(?:final\s+|abstract\s+)*(?:class|interface|trait)\s+([A-Za-z_][A-Za-z0-9_]*)\b`)
)

var (
	goRules     = []rule{{reGoFunc, clones.KindFunction, 2}, {reGoType, clones.KindType, 1}}
	jsRules     = []rule{{reJSFunc, clones.KindFunction, 3}, {reJSClass, clones.KindClass, 2}, {reJSArrow, clones.KindFunction, 3}}
	pythonRules = []rule{{rePyDef, clones.KindFunction, 1}, {rePyClass, clones.KindClass, 1}}
	rubyRules   = []rule{{reRbDef, clones.KindFunction, 1}, {reRbClass, clones.KindClass, 1}}
	jvmRules    = []rule{{reJVMFun, clones.KindFunction, 1}, {reJVMClass, clones.KindClass, 1}}
	rustRules   = []rule{{reRsFn, clones.KindFunction, 1}, {reRsType, clones.KindType, 1}}
	phpRules    = []rule{{rePHPFunc, clones.KindFunction, 1}, {rePHPClass, clones.KindClass, 1}}
)

// strategy is one language's extraction recipe: the declaration rules
// plus the scan used to find where each block ends.
type strategy struct {
	rules  []rule
	indent bool // indentation-delimited blocks instead of brace counting
}

// strategyFor returns the extraction strategy for lang. The second
// return is false for languages with no structural extraction; those
// still participate in window mode.
func strategyFor(lang clones.Language) (strategy, bool) {
	switch lang {
	case clones.LangGo:
		return strategy{rules: goRules}, true
	case clones.LangJavaScript, clones.LangTypeScript, clones.LangJSX, clones.LangTSX:
		return strategy{rules: jsRules}, true
	case clones.LangPython:
		return strategy{rules: pythonRules, indent: true}, true
	case clones.LangRuby:
		return strategy{rules: rubyRules, indent: true}, true
	case clones.LangJava, clones.LangKotlin:
		return strategy{rules: jvmRules}, true
	case clones.LangRust:
		return strategy{rules: rustRules}, true
	case clones.LangPHP:
		return strategy{rules: phpRules}, true
	default:
		return strategy{}, false
	}
}

// Blocks finds structural declaration blocks in code. Overlapping
// matches are pruned keeping earlier, then longer, spans.
func Blocks(code string, lang clones.Language) []Span {
	strat, ok := strategyFor(lang)
	if !ok {
		return nil
	}
	lines := splitLines(code)

	var spans []Span
	for _, r := range strat.rules {
		for _, m := range r.re.FindAllStringSubmatchIndex(code, -1) {
			startIdx := strings.Count(code[:m[0]], "\n")
			var endIdx int
			if strat.indent {
				endIdx = indentEnd(lines, startIdx)
			} else {
				endIdx = braceEnd(lines, startIdx)
				if endIdx < 0 {
					continue
				}
			}
			name := "unknown"
			if g := 2 * r.nameGroup; g+1 < len(m) && m[g] >= 0 {
				name = code[m[g]:m[g+1]]
			}
			spans = append(spans, Span{
				StartLine: startIdx + 1,
				EndLine:   endIdx + 1,
				Kind:      r.kind,
				Name:      name,
			})
		}
	}
	return pruneOverlaps(spans)
}

// braceEnd returns the 0-based index of the line that balances the
// braces opened at start, or -1 when the block never closes.
func braceEnd(lines []string, start int) int {
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		for _, ch := range lines[i] {
			switch ch {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return i
		}
	}
	return -1
}

// indentEnd returns the 0-based index of the last line of the
// indentation block opened at start. Blank lines extend the block, and
// a dedented comment line does not terminate it.
func indentEnd(lines []string, start int) int {
	base := leadingSpaces(lines[start])
	end := start
	for i := start + 1; i < len(lines); i++ {
		ln := lines[i]
		if strings.TrimSpace(ln) == "" {
			end = i
			continue
		}
		if leadingSpaces(ln) <= base && !strings.HasPrefix(strings.TrimSpace(ln), "#") {
			break
		}
		end = i
	}
	return end
}

func leadingSpaces(s string) int {
	n := 0
	for _, ch := range s {
		if ch != ' ' {
			break
		}
		n++
	}
	return n
}

// pruneOverlaps drops spans that begin before the previously kept span
// ends. Sorting by start line and then descending length makes the
// earliest, largest block win.
func pruneOverlaps(spans []Span) []Span {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].StartLine != spans[j].StartLine {
			return spans[i].StartLine < spans[j].StartLine
		}
		return spans[i].EndLine > spans[j].EndLine
	})

	var pruned []Span
	lastEnd := 0
	for _, sp := range spans {
		if sp.StartLine >= lastEnd {
			pruned = append(pruned, sp)
			lastEnd = sp.EndLine
		}
	}
	return pruned
}

// Windows slices code into fixed-size overlapping line windows. Files
// shorter than the window size yield nothing, and no partial window is
// emitted for the tail.
func Windows(code string, winLines, step int) []Span {
	lines := splitLines(code)
	n := len(lines)
	if winLines <= 0 || winLines > n {
		return nil
	}
	if step < 1 {
		step = 1
	}

	var out []Span
	for s := 0; s+winLines <= n; s += step {
		e := s + winLines
		out = append(out, Span{
			StartLine: s + 1,
			EndLine:   e,
			Kind:      clones.KindWindow,
			Name:      fmt.Sprintf("window_%d_%d", s+1, e),
		})
	}
	return out
}

// File extracts the fragments of a single file according to opts. The
// given path is recorded verbatim on each fragment ref. Blank files
// yield nothing. MinBlockLines applies to structural blocks only;
// windows are always exactly WinLines long.
func File(path string, code []byte, lang clones.Language, opts Options) []clones.RawFragment {
	if len(bytes.TrimSpace(code)) == 0 {
		return nil
	}
	text := string(code)
	lines := splitLines(text)

	var spans []Span
	if opts.Mode == ModeBlocks || opts.Mode == ModeBoth {
		for _, sp := range Blocks(text, lang) {
			if sp.EndLine-sp.StartLine+1 < opts.MinBlockLines {
				continue
			}
			spans = append(spans, sp)
		}
	}
	if opts.Mode == ModeWindows || opts.Mode == ModeBoth {
		spans = append(spans, Windows(text, opts.WinLines, opts.WinStep)...)
	}

	frags := make([]clones.RawFragment, 0, len(spans))
	for _, sp := range spans {
		frags = append(frags, clones.RawFragment{
			Ref: clones.FragmentRef{
				File:      path,
				StartLine: sp.StartLine,
				EndLine:   sp.EndLine,
				Kind:      sp.Kind,
				Name:      sp.Name,
				Lang:      lang,
			},
			Text: strings.Join(lines[sp.StartLine-1:sp.EndLine], "\n"),
		})
	}
	return frags
}

// FromSource reads every file through src and extracts its fragments,
// preserving file order and the order of fragments within a file.
// Paths recorded on fragment refs are rewritten relative to root when
// possible. Unreadable files are recorded in the returned errors;
// oversized files are skipped.
func FromSource(
	ctx context.Context,
	root string,
	files []string,
	src source.ContentSource,
	maxFileSize int64,
	opts Options,
	onProgress fileproc.ProgressFunc,
) ([]clones.RawFragment, *fileproc.ProcessingErrors) {
	perFile, perrs := fileproc.MapSourceFiles(ctx, files, src, maxFileSize,
		func(path string, content []byte) ([]clones.RawFragment, error) {
			rel := relPath(root, path)
			return File(rel, content, clones.DetectLanguage(path), opts), nil
		}, onProgress)

	var frags []clones.RawFragment
	for _, ff := range perFile {
		frags = append(frags, ff...)
	}
	return frags, perrs
}

// relPath rewrites path relative to root for stable report output.
// Paths outside root, or any path when root is empty, pass through
// unchanged apart from slash normalization.
func relPath(root, path string) string {
	if root != "" {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}

// splitLines mirrors the line accounting used for match positions:
// lines are separated by '\n' and a trailing newline does not open a
// final empty line.
func splitLines(code string) []string {
	if code == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(code, "\n"), "\n")
}
