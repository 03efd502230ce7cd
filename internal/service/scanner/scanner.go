// Package scanner provides the file discovery service shared by the CLI
// and the MCP server.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/doppelcode/doppel/internal/scanner"
	"github.com/doppelcode/doppel/internal/vcs"
	"github.com/doppelcode/doppel/pkg/clones"
	"github.com/doppelcode/doppel/pkg/config"
)

// ScanResult contains the result of a file scan.
type ScanResult struct {
	Files          []string
	LanguageGroups map[clones.Language][]string
	Skipped        int    // files dropped by the size cap
	RepoRoot       string // set for committed-tree scans
}

// Service provides file scanning functionality.
type Service struct {
	config *config.Config
	opener vcs.Opener
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithOpener sets the VCS opener (for testing).
func WithOpener(opener vcs.Opener) Option {
	return func(s *Service) {
		s.opener = opener
	}
}

// New creates a new scanner service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.LoadOrDefault(),
		opener: vcs.DefaultOpener(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanPaths scans the given paths and returns all found source files.
// Directory arguments are walked recursively; file arguments are kept
// when they pass the scan filters. Duplicates across arguments are
// dropped. The configured size cap is applied last and counted in
// Skipped.
func (s *Service) ScanPaths(paths []string) (*ScanResult, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	scan := scanner.NewScanner(s.config)
	seen := make(map[string]bool)
	var files []string

	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, &PathError{Path: path, Err: err}
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, &PathError{Path: path, Err: err}
		}

		if info.IsDir() {
			found, err := scan.ScanDir(absPath)
			if err != nil {
				return nil, &ScanError{Path: path, Err: err}
			}
			for _, f := range found {
				if !seen[f] {
					seen[f] = true
					files = append(files, f)
				}
			}
			continue
		}

		ok, err := scan.ScanFile(absPath)
		if err != nil {
			return nil, &ScanError{Path: path, Err: err}
		}
		if ok && !seen[absPath] {
			seen[absPath] = true
			files = append(files, absPath)
		}
	}

	files, skipped := scanner.FilterBySize(files, s.config.Scan.MaxFileBytes())

	return &ScanResult{
		Files:          files,
		LanguageGroups: scan.GroupByLanguage(files),
		Skipped:        skipped,
	}, nil
}

// ScanTree lists candidate files from the committed tree at rev in the
// repository containing path. Returned paths are repo-relative and
// sorted; the tree handle reads blob contents for them.
func (s *Service) ScanTree(path, rev string) (*ScanResult, vcs.Tree, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, &PathError{Path: path, Err: err}
	}

	repo, err := s.opener.PlainOpenWithDetect(absPath)
	if err != nil {
		return nil, nil, &GitError{Err: err}
	}
	commit, err := repo.ResolveCommit(rev)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving revision %q: %w", rev, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, nil, fmt.Errorf("reading tree for %q: %w", rev, err)
	}
	entries, err := tree.Entries()
	if err != nil {
		return nil, nil, fmt.Errorf("listing tree for %q: %w", rev, err)
	}

	scan := scanner.NewScanner(s.config)
	maxBytes := s.config.Scan.MaxFileBytes()

	var files []string
	skipped := 0
	for _, e := range entries {
		if !scan.KeepTreePath(e.Path) {
			continue
		}
		if maxBytes > 0 && e.Size > maxBytes {
			skipped++
			continue
		}
		files = append(files, e.Path)
	}
	sort.Strings(files)

	return &ScanResult{
		Files:          files,
		LanguageGroups: scan.GroupByLanguage(files),
		Skipped:        skipped,
		RepoRoot:       repo.RepoPath(),
	}, tree, nil
}

// FilterBySize filters files by maximum size in bytes.
func (s *Service) FilterBySize(files []string, maxSize int64) ([]string, int) {
	return scanner.FilterBySize(files, maxSize)
}

// AnalysisRoot picks the root that report paths are made relative to:
// the single directory argument when there is exactly one, otherwise
// the current working directory.
func AnalysisRoot(paths []string) string {
	if len(paths) == 1 {
		if abs, err := filepath.Abs(paths[0]); err == nil {
			if info, err := os.Stat(abs); err == nil && info.IsDir() {
				return abs
			}
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// PathError indicates an invalid path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "invalid path " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ScanError indicates a scanning failure.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return "failed to scan " + e.Path + ": " + e.Err.Error()
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// GitError indicates the path is not inside a git repository.
type GitError struct {
	Err error
}

func (e *GitError) Error() string {
	return "not a git repository (or any parent): " + e.Err.Error()
}

func (e *GitError) Unwrap() error {
	return e.Err
}
