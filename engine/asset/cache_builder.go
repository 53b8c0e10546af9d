package asset

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
)

// CacheBuilderOption is a functional option for configuring a Cache.
type CacheBuilderOption func(*cacheConfig)

// WithCacheName sets the name used in log lines and wrapped errors.
//
// Parameters:
//   - name: the cache name
//
// Returns:
//   - CacheBuilderOption: a function that applies the name
func WithCacheName(name string) CacheBuilderOption {
	return func(c *cacheConfig) {
		c.name = name
	}
}

// WithWorkerPool makes the cache build misses on the given pool. Get returns ErrPending until the build finishes.
//
// Parameters:
//   - pool: the worker pool used for builds
//
// Returns:
//   - CacheBuilderOption: a function that applies the pool
func WithWorkerPool(pool worker.DynamicWorkerPool) CacheBuilderOption {
	return func(c *cacheConfig) {
		c.pool = pool
	}
}
