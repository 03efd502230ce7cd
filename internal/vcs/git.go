package vcs

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitOpener opens git repositories using go-git.
type GitOpener struct{}

// NewGitOpener creates a new GitOpener.
func NewGitOpener() *GitOpener {
	return &GitOpener{}
}

// PlainOpen opens an existing git repository.
func (o *GitOpener) PlainOpen(path string) (Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, err
	}
	return &gitRepository{repo: repo, path: path}, nil
}

// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
func (o *GitOpener) PlainOpenWithDetect(path string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, err
	}
	return &gitRepository{repo: repo, path: path}, nil
}

// gitRepository wraps go-git Repository.
type gitRepository struct {
	repo *git.Repository
	path string
}

func (r *gitRepository) Head() (Commit, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return nil, err
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}
	return &gitCommit{commit: commit}, nil
}

func (r *gitRepository) ResolveCommit(rev string) (Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, err
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, err
	}
	return &gitCommit{commit: commit}, nil
}

func (r *gitRepository) RepoPath() string {
	return r.path
}

// gitCommit wraps go-git Commit.
type gitCommit struct {
	commit *object.Commit
}

func (c *gitCommit) Hash() plumbing.Hash {
	return c.commit.Hash
}

func (c *gitCommit) Tree() (Tree, error) {
	tree, err := c.commit.Tree()
	if err != nil {
		return nil, err
	}
	return &gitTree{tree: tree}, nil
}

// gitTree wraps go-git Tree.
type gitTree struct {
	tree *object.Tree
}

func (t *gitTree) Entries() ([]TreeEntry, error) {
	var entries []TreeEntry
	err := t.tree.Files().ForEach(func(f *object.File) error {
		entries = append(entries, TreeEntry{
			Path: f.Name,
			Size: f.Size,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (t *gitTree) File(path string) ([]byte, error) {
	f, err := t.tree.File(path)
	if err != nil {
		return nil, err
	}
	contents, err := f.Contents()
	if err != nil {
		return nil, err
	}
	return []byte(contents), nil
}

// Default opener singleton
var defaultOpener Opener = NewGitOpener()

// DefaultOpener returns the default git opener.
func DefaultOpener() Opener {
	return defaultOpener
}

// SetDefaultOpener sets the default git opener (useful for testing).
func SetDefaultOpener(opener Opener) {
	defaultOpener = opener
}
