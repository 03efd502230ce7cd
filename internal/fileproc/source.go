package fileproc

import (
	"context"
	"runtime"

	"github.com/doppelcode/doppel/pkg/source"
	"github.com/sourcegraph/conc/pool"
)

// fileWithContent holds a file path and its content.
type fileWithContent struct {
	path    string
	content []byte
}

// MapSourceFiles reads files from a ContentSource and processes them in
// parallel. Content is read sequentially up front because git tree
// sources do not tolerate concurrent access. Read failures are recorded
// in the returned errors; files exceeding maxSize bytes (0 means no
// limit) are skipped silently since the scan filter already counted
// them. Results preserve the order of the readable files.
func MapSourceFiles[T any](
	ctx context.Context,
	files []string,
	src source.ContentSource,
	maxSize int64,
	fn func(path string, content []byte) (T, error),
	onProgress ProgressFunc,
) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	errs := &ProcessingErrors{}
	filesWithContent := make([]fileWithContent, 0, len(files))
	for _, path := range files {
		content, err := src.Read(path)
		if err != nil {
			errs.Add(path, err)
			continue
		}
		if maxSize > 0 && int64(len(content)) > maxSize {
			continue
		}
		filesWithContent = append(filesWithContent, fileWithContent{
			path:    path,
			content: content,
		})
	}

	if len(filesWithContent) == 0 {
		if errs.HasErrors() {
			return nil, errs
		}
		return nil, nil
	}

	maxWorkers := runtime.NumCPU() * DefaultWorkerMultiplier
	results := make([]T, len(filesWithContent))

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for i, fc := range filesWithContent {
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				errs.Add(fc.path, ctx.Err())
				return ctx.Err()
			default:
			}

			result, err := fn(fc.path, fc.content)
			if err != nil {
				errs.Add(fc.path, err)
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
