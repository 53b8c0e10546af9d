package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsIOErrorClassifiesReasons(t *testing.T) {
	notFound := AsIOError(&fs.PathError{Op: "open", Path: "a.wgsl", Err: fs.ErrNotExist}, "")
	require.NotNil(t, notFound)
	assert.Equal(t, ReasonNotFound, notFound.Reason)
	assert.Equal(t, "a.wgsl", notFound.Path)
	assert.Equal(t, fs.ErrNotExist.Error(), notFound.Message)

	denied := AsIOError(fmt.Errorf("wrapped: %w", fs.ErrPermission), "b.wgsl")
	assert.Equal(t, ReasonAccessDenied, denied.Reason)

	other := AsIOError(errors.New("disk on fire"), "c.wgsl")
	assert.Equal(t, ReasonOther, other.Reason)
	assert.Equal(t, "c.wgsl: disk on fire (other)", other.Error())

	assert.Nil(t, AsIOError(nil, "d"))
	assert.Same(t, other, AsIOError(fmt.Errorf("again: %w", other), "e"))
}

func TestNewIOError(t *testing.T) {
	err := NewIOError(ReasonWriteProtected, "x", "media is write protected")
	assert.Equal(t, "write-protected", err.Reason.String())
	assert.NoError(t, err.Unwrap())
}

func TestDependencyValidationPropagates(t *testing.T) {
	leaf := NewDependencyValidation()
	mid := NewDependencyValidation()
	root := NewDependencyValidation()
	mid.RegisterDependency(leaf)
	root.RegisterDependency(mid)

	leaf.OnChange()

	assert.Equal(t, uint32(1), leaf.ValidationIndex())
	assert.Equal(t, uint32(1), mid.ValidationIndex())
	assert.Equal(t, uint32(1), root.ValidationIndex())

	root.OnChange()
	assert.Equal(t, uint32(1), leaf.ValidationIndex())
	assert.Equal(t, uint32(2), root.ValidationIndex())
}

func TestDependencyValidationCycleTerminates(t *testing.T) {
	a := NewDependencyValidation()
	b := NewDependencyValidation()
	a.RegisterDependency(b)
	b.RegisterDependency(a)

	a.OnChange()
	assert.Equal(t, uint32(1), a.ValidationIndex())
	assert.Equal(t, uint32(1), b.ValidationIndex())
}

func TestFSStoreReadAndInvalidate(t *testing.T) {
	store := NewFSStore(fstest.MapFS{
		"shaders/light.wgsl": &fstest.MapFile{Data: []byte("fn main() {}")},
	})

	data, err := store.ReadFile("shaders\\light.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "fn main() {}", string(data))

	_, err = store.ReadFile("shaders/missing.wgsl")
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, ReasonNotFound, ioErr.Reason)

	dv := store.Validation("shaders/light.wgsl")
	assert.Same(t, dv, store.Validation("/shaders/light.wgsl"))
	store.Invalidate("shaders/light.wgsl")
	assert.Equal(t, uint32(1), dv.ValidationIndex())
}

func TestDirStoreWatchesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ambient.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	store, err := NewDirStore(dir)
	require.NoError(t, err)
	defer store.Close()

	data, err := store.ReadFile("ambient.wgsl")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	dv := store.Validation("ambient.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("b"), 0o644))

	assert.Eventually(t, func() bool { return dv.ValidationIndex() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestDirStoreCloseTwice(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.NotPanics(t, func() { assert.NoError(t, store.Close()) })
}

func TestDirStoreMissingFileIsNotRetried(t *testing.T) {
	store, err := NewDirStore(t.TempDir(), WithWatch(false), WithRetries(5))
	require.NoError(t, err)

	start := time.Now()
	_, err = store.ReadFile("nope.wgsl")
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, ReasonNotFound, ioErr.Reason)
	assert.Less(t, time.Since(start), time.Second)
}

type built struct{ n int }

func TestCacheIdentityAndRebuildOnChange(t *testing.T) {
	dv := NewDependencyValidation()
	builds := 0
	cache := NewCache(func(key string) (*built, DependencyValidation, error) {
		builds++
		return &built{n: builds}, dv, nil
	})

	first, err := cache.Get("k")
	require.NoError(t, err)
	second, err := cache.Get("k")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)

	dv.OnChange()
	third, err := cache.Get("k")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, builds)
}

func TestCacheStoresFailuresUntilChange(t *testing.T) {
	dv := NewDependencyValidation()
	builds := 0
	cache := NewCache(func(key int) (*built, DependencyValidation, error) {
		builds++
		return nil, dv, errors.New("syntax error")
	}, WithCacheName("programs"))

	_, err := cache.Get(1)
	require.ErrorContains(t, err, "programs: syntax error")
	_, err = cache.Get(1)
	require.Error(t, err)
	assert.Equal(t, 1, builds)

	dv.OnChange()
	_, _ = cache.Get(1)
	assert.Equal(t, 2, builds)
}

func TestCacheRecoversBuildPanics(t *testing.T) {
	cache := NewCache(func(key int) (int, DependencyValidation, error) {
		panic("boom")
	})
	_, err := cache.Get(7)
	require.ErrorContains(t, err, "boom")
	assert.Equal(t, 0, cache.Len())
}

func TestCacheAsyncReturnsPendingThenValue(t *testing.T) {
	pool := worker.NewDynamicWorkerPool(2, 16, time.Second)
	cache := NewCache(func(key string) (string, DependencyValidation, error) {
		return key + "!", nil, nil
	}, WithWorkerPool(pool))

	_, err := cache.Get("sky")
	require.ErrorIs(t, err, ErrPending)

	assert.Eventually(t, func() bool {
		v, err := cache.Get("sky")
		return err == nil && v == "sky!"
	}, 2*time.Second, 5*time.Millisecond)

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}
