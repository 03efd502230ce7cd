// Package clones detects near-duplicate code fragments across a
// multi-language source tree. The pipeline is fully deterministic: raw
// fragment text is normalized and tokenized into coarse token classes,
// hashed into k-gram fingerprints thinned by winnowing, and clustered by
// Jaccard similarity over an inverted fingerprint index. No AST, no
// randomness, no model calls; identical input always produces identical
// output.
package clones

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Language identifies a supported source language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "js"
	LangTypeScript Language = "ts"
	LangJSX        Language = "jsx"
	LangTSX        Language = "tsx"
	LangPython     Language = "py"
	LangRuby       Language = "rb"
	LangJava       Language = "java"
	LangKotlin     Language = "kt"
	LangRust       Language = "rs"
	LangPHP        Language = "php"
	LangUnknown    Language = "unknown"
)

// String returns the string representation.
func (l Language) String() string {
	return string(l)
}

// extLangs maps file extensions to languages.
var extLangs = map[string]Language{
	".go":   LangGo,
	".js":   LangJavaScript,
	".ts":   LangTypeScript,
	".jsx":  LangJSX,
	".tsx":  LangTSX,
	".py":   LangPython,
	".rb":   LangRuby,
	".java": LangJava,
	".kt":   LangKotlin,
	".rs":   LangRust,
	".php":  LangPHP,
}

// DetectLanguage returns the language for a file path based on its
// extension, or LangUnknown.
func DetectLanguage(path string) Language {
	if lang, ok := extLangs[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return LangUnknown
}

// Languages returns all supported languages in sorted order.
func Languages() []Language {
	return []Language{
		LangGo, LangJSX, LangJava, LangJavaScript, LangKotlin, LangPHP,
		LangPython, LangRuby, LangRust, LangTSX, LangTypeScript,
	}
}

// indentBased reports whether a language uses #-style line comments and
// indentation-delimited blocks.
func indentBased(lang Language) bool {
	return lang == LangPython || lang == LangRuby
}

// Kind classifies how a fragment was extracted.
type Kind string

const (
	KindFunction Kind = "function"
	KindType     Kind = "type"
	KindClass    Kind = "class"
	KindWindow   Kind = "window"
)

// String returns the string representation.
func (k Kind) String() string {
	return string(k)
}

// FragmentRef identifies a source fragment within one run. Line numbers
// are 1-based and inclusive.
type FragmentRef struct {
	File      string   `json:"file"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	Kind      Kind     `json:"kind"`
	Name      string   `json:"name"`
	Lang      Language `json:"lang"`
}

// Lines returns the number of lines the fragment spans.
func (r FragmentRef) Lines() int {
	return r.EndLine - r.StartLine + 1
}

// RawFragment is the extraction collaborator's output: a fragment
// identity plus its raw text, not yet normalized or fingerprinted.
type RawFragment struct {
	Ref  FragmentRef
	Text string
}

// Fragment is a retained fragment: its identity, normalized token
// sequence, winnowed fingerprint set, and a hash of the full token
// sequence for exact-duplicate detection. Fragments are immutable after
// creation.
type Fragment struct {
	Ref          FragmentRef
	Tokens       []string
	Fingerprints *roaring64.Bitmap
	TokenHash    uint64
}

// Settings records the knobs a run was executed with.
type Settings struct {
	Mode          string   `json:"mode"`
	Langs         LangList `json:"langs"`
	K             int      `json:"k"`
	W             int      `json:"w"`
	MinTokens     int      `json:"min_tokens"`
	MinJaccard    float64  `json:"min_jaccard"`
	MinSharedFPs  int      `json:"min_shared_fps"`
	TopK          int      `json:"topk"`
	MinBlockLines int      `json:"min_block_lines"`
	WinLines      int      `json:"win_lines"`
	WinStep       int      `json:"win_step"`
	MaxFileKB     int      `json:"max_file_kb"`
}

// LangList is a language filter. Empty means all languages; it
// serializes as the string "all" so reports stay self-describing.
type LangList []Language

// MarshalJSON implements json.Marshaler.
func (l LangList) MarshalJSON() ([]byte, error) {
	if len(l) == 0 {
		return json.Marshal("all")
	}
	return json.Marshal([]Language(l))
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *LangList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "all" {
			*l = nil
			return nil
		}
		*l = LangList{Language(s)}
		return nil
	}
	var langs []Language
	if err := json.Unmarshal(data, &langs); err != nil {
		return err
	}
	*l = LangList(langs)
	return nil
}

// Stats summarizes what a run saw and kept.
type Stats struct {
	RawFragments     int `json:"raw_fragments"`
	IndexedFragments int `json:"indexed_fragments"`
	Clusters         int `json:"clusters"`
	PairsKept        int `json:"pairs_kept"`
}

// Member is one fragment's appearance in a cluster.
type Member struct {
	Idx          int         `json:"idx"`
	Ref          FragmentRef `json:"ref"`
	Fingerprints int         `json:"fingerprints"`
	Tokens       int         `json:"tokens"`
}

// Cluster is a set of at least two fragments transitively linked by
// qualifying pair similarities. Members are sorted by ascending index.
type Cluster struct {
	Size            int      `json:"size"`
	BestPairJaccard float64  `json:"best_pair_jaccard"`
	Members         []Member `json:"members"`
}

// Pair is a scored fragment pair that met the similarity threshold.
// A < B always holds. Exact marks pairs whose full normalized token
// sequences hash identically.
type Pair struct {
	A       int     `json:"a"`
	B       int     `json:"b"`
	Jaccard float64 `json:"jaccard"`
	Exact   bool    `json:"exact,omitempty"`
}

// Analysis is the full result of a clone detection run. Fragments holds
// the indexed fragments in discovery order so downstream consumers can
// resolve member indices without re-running the pipeline; it is not part
// of the serialized artifact.
type Analysis struct {
	Root      string      `json:"root"`
	Settings  Settings    `json:"settings"`
	Stats     Stats       `json:"stats"`
	Clusters  []*Cluster  `json:"clusters"`
	Pairs     []Pair      `json:"pairs,omitempty"`
	Fragments []*Fragment `json:"-"`
}
