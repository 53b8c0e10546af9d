package shader

import (
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
)

// Variant is a value built from one or more programs. Its validation should depend on every program it holds.
type Variant interface {
	DependencyValidation() asset.DependencyValidation
}

// VariantBuildFunc builds the variant for a descriptor using programs from lib.
type VariantBuildFunc[D comparable, V Variant] func(lib Library, desc D) (V, error)

// VariantCache maps value descriptors to built variants. Equal descriptors return the identical variant until its
// validation changes, after which the next Get rebuilds it.
type VariantCache[D comparable, V Variant] interface {
	// Get returns the variant for desc, building it on a miss.
	//
	// Parameters:
	//   - desc: the variant descriptor
	//
	// Returns:
	//   - V: the variant
	//   - error: the build error, or asset.ErrPending while one of its programs is still compiling
	Get(desc D) (V, error)

	// Len returns the number of cached variants.
	//
	// Returns:
	//   - int: the count
	Len() int
}

type variantCache[D comparable, V Variant] struct {
	lib     Library
	build   VariantBuildFunc[D, V]
	entries asset.Cache[D, V]
}

// NewVariantCache creates a variant cache that builds with build. Programs are fetched through lib, so a variant
// whose program is still compiling is retried on the next Get.
//
// Parameters:
//   - lib: the program library
//   - name: the cache name used in logs and errors
//   - build: the variant build function
//
// Returns:
//   - VariantCache[D, V]: the cache
func NewVariantCache[D comparable, V Variant](lib Library, name string, build VariantBuildFunc[D, V]) VariantCache[D, V] {
	if lib == nil || build == nil {
		panic("shader: NewVariantCache requires a library and a build function")
	}
	c := &variantCache[D, V]{lib: lib, build: build}
	c.entries = asset.NewCache[D, V](func(desc D) (V, asset.DependencyValidation, error) {
		v, err := c.build(c.lib, desc)
		if err != nil {
			var zero V
			return zero, nil, err
		}
		return v, v.DependencyValidation(), nil
	}, asset.WithCacheName(name))
	return c
}

func (c *variantCache[D, V]) Get(desc D) (V, error) {
	return c.entries.Get(desc)
}

func (c *variantCache[D, V]) Len() int {
	return c.entries.Len()
}
