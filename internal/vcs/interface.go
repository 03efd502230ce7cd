// Package vcs provides version control system abstractions.
package vcs

import "github.com/go-git/go-git/v5/plumbing"

// Opener opens git repositories.
type Opener interface {
	// PlainOpen opens an existing git repository.
	PlainOpen(path string) (Repository, error)
	// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
	PlainOpenWithDetect(path string) (Repository, error)
}

// Repository provides access to git repository operations.
type Repository interface {
	// Head returns the HEAD commit.
	Head() (Commit, error)
	// ResolveCommit resolves a revision string (branch, tag, or commit
	// SHA, including expressions like HEAD~2) to a commit.
	ResolveCommit(rev string) (Commit, error)
	// RepoPath returns the root path of the repository.
	RepoPath() string
}

// Commit represents a git commit.
type Commit interface {
	// Hash returns the commit hash.
	Hash() plumbing.Hash
	// Tree returns the tree object for this commit.
	Tree() (Tree, error)
}

// TreeEntry represents a file in a git tree.
type TreeEntry struct {
	Path string
	Size int64
}

// Tree represents a git tree object.
type Tree interface {
	// Entries returns all files in the tree (recursively), in tree
	// iteration order.
	Entries() ([]TreeEntry, error)
	// File returns the contents of the file at path within the tree.
	File(path string) ([]byte, error)
}
