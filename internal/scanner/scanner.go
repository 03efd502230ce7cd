// Package scanner discovers candidate source files for a scan run.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/doppelcode/doppel/pkg/clones"
	"github.com/doppelcode/doppel/pkg/config"
)

// Scanner finds source files in a directory.
type Scanner struct {
	config    *config.Config
	dirSet    map[string]bool
	langSet   map[clones.Language]bool
	matchers  []gitignore.Matcher
	seenRoots map[string]bool
}

// NewScanner creates a new file scanner. Config exclude patterns are
// compiled immediately; .gitignore files are read lazily per scan root.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	dirSet := make(map[string]bool, len(cfg.Scan.Exclude.Dirs))
	for _, d := range cfg.Scan.Exclude.Dirs {
		dirSet[d] = true
	}
	langSet := make(map[clones.Language]bool, len(cfg.Scan.Langs))
	for _, l := range cfg.Scan.Langs {
		langSet[clones.Language(l)] = true
	}

	s := &Scanner{
		config:    cfg,
		dirSet:    dirSet,
		langSet:   langSet,
		seenRoots: make(map[string]bool),
	}

	var patterns []gitignore.Pattern
	for _, pattern := range cfg.Scan.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}

	return s
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadGitignore adds matchers for the .gitignore files of the repository
// containing root, if gitignore respect is enabled. ReadPatterns reads
// all .gitignore files in the tree recursively. Each repository is read
// at most once per Scanner.
func (s *Scanner) loadGitignore(root string) {
	if !s.config.Scan.Exclude.Gitignore {
		return
	}

	gitRoot := findGitRoot(root)
	if gitRoot == "" || s.seenRoots[gitRoot] {
		return
	}
	s.seenRoots[gitRoot] = true

	fs := osfs.New(gitRoot)
	if patterns, err := gitignore.ReadPatterns(fs, nil); err == nil && len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

// isExcluded checks if a path matches any exclusion pattern.
func (s *Scanner) isExcluded(path string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}

	pathParts := strings.Split(path, string(filepath.Separator))
	for _, m := range s.matchers {
		if m.Match(pathParts, isDir) {
			return true
		}
	}
	return false
}

// keepsLanguage reports whether a file passes language detection and the
// optional language filter.
func (s *Scanner) keepsLanguage(path string) bool {
	lang := clones.DetectLanguage(path)
	if lang == clones.LangUnknown {
		return false
	}
	if len(s.langSet) > 0 && !s.langSet[lang] {
		return false
	}
	return true
}

// ScanDir recursively scans a directory for source files. Excluded
// directory names and any dot directory below the root are pruned.
// Uses filepath.WalkDir, so the returned paths are in lexical order.
// Validates that all paths stay within the root directory to prevent
// traversal through symlinks.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 1024)

	// Resolve root to absolute path for containment checks
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadGitignore(root)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		// Symlinks must resolve to a target inside the root
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !isWithinRoot(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if path != root {
				name := d.Name()
				if s.dirSet[name] || strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
			}
			if s.isExcluded(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(relPath, false) {
			return nil
		}
		if s.keepsLanguage(path) {
			files = append(files, path)
		}

		return nil
	})

	return files, walkErr
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator so "/root2" does not match "/root"
	if !strings.HasPrefix(absPath, root+string(filepath.Separator)) && absPath != root {
		return false
	}

	return true
}

// ScanFile checks if a single file should be analyzed.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	if info.IsDir() {
		return false, nil
	}

	s.loadGitignore(filepath.Dir(path))

	if s.isExcluded(filepath.Base(path), false) {
		return false, nil
	}

	return s.keepsLanguage(path), nil
}

// KeepTreePath reports whether a repo-relative slash path from a git
// tree listing passes the directory, pattern, and language filters.
// Committed trees are listed without a filesystem walk, so .gitignore
// files are not consulted; config excludes still apply.
func (s *Scanner) KeepTreePath(relPath string) bool {
	parts := strings.Split(relPath, "/")
	for _, part := range parts[:len(parts)-1] {
		if s.dirSet[part] || strings.HasPrefix(part, ".") {
			return false
		}
	}
	for _, m := range s.matchers {
		if m.Match(parts, false) {
			return false
		}
	}
	return s.keepsLanguage(relPath)
}

// GroupByLanguage groups files by their detected language.
func (s *Scanner) GroupByLanguage(files []string) map[clones.Language][]string {
	groups := make(map[clones.Language][]string)
	for _, f := range files {
		lang := clones.DetectLanguage(f)
		if lang != clones.LangUnknown {
			groups[lang] = append(groups[lang], f)
		}
	}
	return groups
}

// FilterBySize filters files that exceed the configured maximum size.
// Returns the filtered list and the count of files that were skipped.
// If maxSize is 0, returns the original list unchanged.
func FilterBySize(files []string, maxSize int64) ([]string, int) {
	if maxSize <= 0 {
		return files, 0
	}

	filtered := make([]string, 0, len(files))
	skipped := 0

	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			skipped++
			continue
		}
		if info.Size() > maxSize {
			skipped++
			continue
		}
		filtered = append(filtered, f)
	}

	return filtered, skipped
}
