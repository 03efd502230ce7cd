// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects multiple file processing errors. A nil
// *ProcessingErrors reports no errors, so callers can check the return
// of the Map functions without a nil test first.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	if e == nil {
		return "no errors"
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap returns nil (ProcessingErrors doesn't wrap a single error).
func (e *ProcessingErrors) Unwrap() error {
	return nil
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each item is processed.
type ProgressFunc func()

// MapIndexed processes items in parallel and writes each result to its
// input position, so output order equals input order regardless of
// completion order. Failed items leave the zero value at their index
// and are reported in the returned ProcessingErrors.
// If maxWorkers is <= 0, defaults to 2x NumCPU.
func MapIndexed[S, T any](ctx context.Context, items []S, maxWorkers int, fn func(int, S) (T, error), onProgress ProgressFunc) ([]T, *ProcessingErrors) {
	if len(items) == 0 {
		return nil, nil
	}

	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	results := make([]T, len(items))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for i, item := range items {
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				errs.Add(strconv.Itoa(i), ctx.Err())
				return ctx.Err()
			default:
			}

			result, err := fn(i, item)
			if err != nil {
				errs.Add(strconv.Itoa(i), err)
				if onProgress != nil {
					onProgress()
				}
				return nil
			}

			results[i] = result
			if onProgress != nil {
				onProgress()
			}
			return nil
		})
	}
	_ = p.Wait()

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}

// ForEachFileIndexed processes files in parallel, preserving input
// order in the result slice. Errors are labeled with the file path.
func ForEachFileIndexed[T any](ctx context.Context, files []string, fn func(string) (T, error)) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	maxWorkers := runtime.NumCPU() * DefaultWorkerMultiplier
	results := make([]T, len(files))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				errs.Add(path, ctx.Err())
				return ctx.Err()
			default:
			}

			result, err := fn(path)
			if err != nil {
				errs.Add(path, err)
				return nil
			}

			results[i] = result
			return nil
		})
	}
	_ = p.Wait()

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
