// Package remote resolves and fetches remote repositories for scanning.
package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Source represents a remote repository to analyze.
type Source struct {
	URL      string // normalized git URL
	Ref      string // branch, tag, or SHA (empty = default branch)
	CloneDir string // temp directory after clone
}

// Parse detects if a path is a remote reference. Returns nil if path
// exists on the filesystem (local paths take precedence). Recognized
// remote forms: full http(s)/ssh URLs, host-qualified paths like
// "github.com/owner/repo", and the GitHub shorthand "owner/repo". An
// "@ref" suffix selects a branch, tag, or commit.
func Parse(path string) (*Source, error) {
	// Check if path exists locally
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}

	base, ref := splitRef(path)

	switch {
	case strings.HasPrefix(base, "https://"),
		strings.HasPrefix(base, "http://"),
		strings.HasPrefix(base, "ssh://"),
		strings.HasPrefix(base, "git@"):
		return &Source{URL: base, Ref: ref}, nil
	case isHostPath(base):
		return &Source{URL: "https://" + base, Ref: ref}, nil
	case isGitHubShorthand(base):
		return &Source{URL: "https://github.com/" + base, Ref: ref}, nil
	}

	return nil, nil
}

// splitRef separates a trailing @ref from a repository path. A suffix
// containing "/" or ":" is part of the URL (ssh user@host), not a ref.
func splitRef(path string) (string, string) {
	idx := strings.LastIndex(path, "@")
	if idx <= 0 {
		return path, ""
	}
	ref := path[idx+1:]
	if ref == "" || strings.ContainsAny(ref, "/:") {
		return path, ""
	}
	return path[:idx], ref
}

// isHostPath returns true for host-qualified paths like "gitlab.com/a/b":
// a dot in the first segment marks a domain.
func isHostPath(path string) bool {
	if strings.HasPrefix(path, ".") {
		return false
	}
	slashIdx := strings.Index(path, "/")
	if slashIdx <= 0 || slashIdx >= len(path)-1 {
		return false
	}
	return strings.Contains(path[:slashIdx], ".")
}

// isGitHubShorthand returns true if path matches owner/repo pattern.
func isGitHubShorthand(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx == -1 {
		return false
	}
	// Must have exactly one slash
	if strings.Count(path, "/") != 1 {
		return false
	}
	// No dots before the slash (would indicate a domain)
	if strings.Contains(path[:slashIdx], ".") {
		return false
	}
	// Both parts must be non-empty
	return slashIdx > 0 && slashIdx < len(path)-1
}

// Clone fetches the source into a temporary directory and records it in
// CloneDir. Branch and tag refs clone single-branch; a ref that matches
// neither is treated as a commit SHA, which requires full history before
// checkout. Progress output (may be nil) goes to the given writer.
func (s *Source) Clone(ctx context.Context, progress io.Writer, shallow bool) error {
	dir, err := os.MkdirTemp("", "doppel-remote-*")
	if err != nil {
		return err
	}

	depth := 0
	if shallow {
		depth = 1
	}

	if s.Ref == "" {
		if _, err := cloneInto(ctx, dir, &git.CloneOptions{
			URL:          s.URL,
			SingleBranch: true,
			Depth:        depth,
			Progress:     progress,
		}); err != nil {
			os.RemoveAll(dir)
			return fmt.Errorf("cloning %s: %w", s.URL, err)
		}
		s.CloneDir = dir
		return nil
	}

	for _, refName := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(s.Ref),
		plumbing.NewTagReferenceName(s.Ref),
	} {
		if _, err := cloneInto(ctx, dir, &git.CloneOptions{
			URL:           s.URL,
			ReferenceName: refName,
			SingleBranch:  true,
			Depth:         depth,
			Progress:      progress,
		}); err == nil {
			s.CloneDir = dir
			return nil
		}
	}

	// Neither a branch nor a tag: treat the ref as a commit SHA, which
	// needs full history before checkout.
	repo, err := cloneInto(ctx, dir, &git.CloneOptions{URL: s.URL, Progress: progress})
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("cloning %s: %w", s.URL, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		os.RemoveAll(dir)
		return err
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(s.Ref)}); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("checking out %q: %w", s.Ref, err)
	}
	s.CloneDir = dir
	return nil
}

// cloneInto clears dir and clones into it, so failed attempts with a
// different ref can reuse the same directory.
func cloneInto(ctx context.Context, dir string, opts *git.CloneOptions) (*git.Repository, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return git.PlainCloneContext(ctx, dir, false, opts)
}

// Cleanup removes the clone directory.
func (s *Source) Cleanup() {
	if s.CloneDir != "" {
		os.RemoveAll(s.CloneDir)
		s.CloneDir = ""
	}
}
