package shader

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
)

type libraryConfig struct {
	pool worker.DynamicWorkerPool
}

// LibraryBuilderOption is a function that configures a Library during construction.
type LibraryBuilderOption func(*libraryConfig)

// WithCompilePool compiles cache misses on the given worker pool. Program returns asset.ErrPending until the
// build finishes, and callers skip the draw for that frame.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - LibraryBuilderOption: a function that applies the pool
func WithCompilePool(pool worker.DynamicWorkerPool) LibraryBuilderOption {
	return func(c *libraryConfig) {
		c.pool = pool
	}
}
