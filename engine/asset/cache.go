package asset

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/oxy-resolve/common"
)

// ErrPending is returned while an asset is still being built. Callers treat it as "skip this resource" for the frame.
var ErrPending = errors.New("asset: pending")

// BuildFunc constructs the value for key. The returned validation decides when the value becomes stale; a nil
// validation means the value never goes stale.
type BuildFunc[K comparable, V any] func(key K) (V, DependencyValidation, error)

// Cache maps keys to built values. A hit returns the identical value that was stored; a hit whose validation changed
// since it was built is rebuilt on that access. Build failures are cached against their validation so a broken source
// is not rebuilt every frame, only after it changes again.
type Cache[K comparable, V any] interface {
	// Get returns the value for key, building it on a miss or when the stored value is stale.
	//
	// Parameters:
	//   - key: the cache key
	//
	// Returns:
	//   - V: the cached value
	//   - error: the build error, or ErrPending while an asynchronous build is in flight
	Get(key K) (V, error)

	// Len returns the number of entries, including failed and pending ones.
	//
	// Returns:
	//   - int: the entry count
	Len() int

	// Clear drops every entry.
	Clear()
}

type cacheEntry[V any] struct {
	value      V
	err        error
	validation DependencyValidation
	index      uint32
	pending    bool
}

// cacheable reports whether the entry may be stored. Failures are only stored when a validation can retire them,
// and pending failures from nested caches are never stored.
func (e *cacheEntry[V]) cacheable() bool {
	if e.err == nil {
		return true
	}
	return e.validation != nil && !errors.Is(e.err, ErrPending)
}

func (e *cacheEntry[V]) stale() bool {
	return e.validation != nil && e.validation.ValidationIndex() != e.index
}

type cacheConfig struct {
	name string
	pool worker.DynamicWorkerPool
}

type cacheImpl[K comparable, V any] struct {
	mu      *sync.Mutex
	build   BuildFunc[K, V]
	entries map[K]*cacheEntry[V]
	name    string
	pool    worker.DynamicWorkerPool
	taskID  atomic.Int64
}

// NewCache creates a Cache that builds values with build. Locking is explicit: one mutex guards the entry map, and it
// is released while a build runs so builders may use other caches.
//
// Parameters:
//   - build: the function that builds a value for a key
//   - opts: optional builder options
//
// Returns:
//   - Cache[K, V]: the new cache
func NewCache[K comparable, V any](build BuildFunc[K, V], opts ...CacheBuilderOption) Cache[K, V] {
	if build == nil {
		panic("asset: NewCache requires a build function")
	}
	cfg := &cacheConfig{name: "cache"}
	for _, opt := range opts {
		opt(cfg)
	}
	return &cacheImpl[K, V]{
		mu:      &sync.Mutex{},
		build:   build,
		entries: make(map[K]*cacheEntry[V]),
		name:    cfg.name,
		pool:    cfg.pool,
	}
}

func (c *cacheImpl[K, V]) Get(key K) (V, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && e.pending {
		c.mu.Unlock()
		var zero V
		return zero, ErrPending
	}
	if ok && !e.stale() {
		c.mu.Unlock()
		return e.value, e.err
	}
	if ok {
		common.Logger().Info("rebuilding stale entry", "cache", c.name, "key", fmt.Sprint(key))
	}

	if c.pool != nil {
		c.entries[key] = &cacheEntry[V]{pending: true}
		c.mu.Unlock()
		c.pool.SubmitTask(worker.Task{
			ID: int(c.taskID.Add(1)),
			Do: func() (any, error) {
				entry := c.buildEntry(key)
				c.mu.Lock()
				if entry.cacheable() {
					c.entries[key] = entry
				} else {
					delete(c.entries, key)
				}
				c.mu.Unlock()
				return nil, entry.err
			},
		})
		var zero V
		return zero, ErrPending
	}
	c.mu.Unlock()

	entry := c.buildEntry(key)
	c.mu.Lock()
	if entry.cacheable() {
		c.entries[key] = entry
	}
	c.mu.Unlock()
	return entry.value, entry.err
}

func (c *cacheImpl[K, V]) buildEntry(key K) *cacheEntry[V] {
	entry := &cacheEntry[V]{}
	defer func() {
		if r := recover(); r != nil {
			entry.err = fmt.Errorf("%s: build panicked: %v", c.name, r)
		}
	}()

	value, validation, err := c.build(key)
	entry.value = value
	entry.validation = validation
	if validation != nil {
		entry.index = validation.ValidationIndex()
	}
	if err != nil {
		entry.err = fmt.Errorf("%s: %w", c.name, err)
		common.Logger().Warn("asset build failed", "cache", c.name, "key", fmt.Sprint(key), "err", err)
	}
	return entry
}

func (c *cacheImpl[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cacheImpl[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*cacheEntry[V])
}
