// Package source abstracts where file content is read from, so the
// same extraction pipeline can run against a working directory or a
// git tree at an arbitrary ref.
package source

import (
	"os"
	"sync"

	"github.com/doppelcode/doppel/internal/vcs"
)

// ContentSource provides file content by path.
type ContentSource interface {
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the working directory.
type FilesystemSource struct{}

func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// TreeSource reads files out of a resolved git tree. Tree lookups are
// not goroutine-safe in go-git, so reads serialize on a mutex.
type TreeSource struct {
	tree vcs.Tree
	mu   sync.Mutex
}

func NewTree(tree vcs.Tree) *TreeSource {
	return &TreeSource{tree: tree}
}

func (t *TreeSource) Read(path string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.File(path)
}
