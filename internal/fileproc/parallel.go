// Package fileproc runs per-file analysis tasks on a bounded worker pool.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/tether-analysis/tether/pkg/parser"
)

// FileError records a file that failed processing.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Errors collects per-file failures across workers.
type Errors struct {
	mu   sync.Mutex
	errs []FileError
}

// Add appends an error. Safe for concurrent use.
func (e *Errors) Add(path string, err error) {
	e.mu.Lock()
	e.errs = append(e.errs, FileError{Path: path, Err: err})
	e.mu.Unlock()
}

// All returns the collected errors.
func (e *Errors) All() []FileError {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]FileError, len(e.errs))
	copy(out, e.errs)
	return out
}

// Empty reports whether any errors were collected.
func (e *Errors) Empty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs) == 0
}

// ProgressFunc is called after each file finishes.
type ProgressFunc func()

// MapFiles processes files in parallel, calling fn for each file with a
// dedicated parser. Tasks share no mutable state: each returns an owned
// record, collected in arbitrary order. Cancellation is observed at file
// boundaries; a cancelled run returns the context error in errs and the
// caller discards partial results. jobs <= 0 defaults to NumCPU.
func MapFiles[T any](ctx context.Context, files []string, jobs int, fn func(context.Context, *parser.Parser, string) (T, error), onProgress ProgressFunc) ([]T, *Errors) {
	if len(files) == 0 {
		return nil, &Errors{}
	}
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	results := make([]T, 0, len(files))
	errs := &Errors{}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(jobs)
	for _, path := range files {
		p.Go(func() {
			if err := ctx.Err(); err != nil {
				errs.Add(path, err)
				return
			}

			psr := parser.New()
			defer psr.Close()

			result, err := fn(ctx, psr, path)
			if onProgress != nil {
				onProgress()
			}
			if err != nil {
				errs.Add(path, err)
				return
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		})
	}
	p.Wait()

	return results, errs
}
