package shader

import (
	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
)

// libraryKey is the cache key of a program: both shader references and the define string, exactly as requested.
type libraryKey struct {
	vs      string
	ps      string
	defines string
}

// Library builds and caches programs from a source store.
type Library interface {
	// Program returns the program for a vertex shader, pixel shader and define string. Equal arguments return the
	// identical program until one of its source files changes.
	//
	// Parameters:
	//   - vsName: the vertex shader reference ("file:entry")
	//   - psName: the pixel shader reference ("file:entry[,Interface=Implementation...]")
	//   - defines: the define string ("A=1;B=2")
	//
	// Returns:
	//   - Program: the program
	//   - error: the build error, or asset.ErrPending while an asynchronous build is in flight
	Program(vsName, psName, defines string) (Program, error)

	// Store returns the store programs are read from.
	//
	// Returns:
	//   - asset.Store: the store
	Store() asset.Store

	// Len returns the number of cached programs.
	//
	// Returns:
	//   - int: the count
	Len() int
}

type library struct {
	store    asset.Store
	programs asset.Cache[libraryKey, Program]
}

var _ Library = &library{}

// NewLibrary creates a program library over store.
//
// Parameters:
//   - store: the shader source store
//   - opts: optional builder options
//
// Returns:
//   - Library: the library
func NewLibrary(store asset.Store, opts ...LibraryBuilderOption) Library {
	if store == nil {
		panic("shader: NewLibrary requires a store")
	}
	cfg := &libraryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	l := &library{store: store}
	cacheOpts := []asset.CacheBuilderOption{asset.WithCacheName("shader library")}
	if cfg.pool != nil {
		cacheOpts = append(cacheOpts, asset.WithWorkerPool(cfg.pool))
	}
	l.programs = asset.NewCache[libraryKey, Program](l.build, cacheOpts...)
	return l
}

func (l *library) Program(vsName, psName, defines string) (Program, error) {
	return l.programs.Get(libraryKey{vs: vsName, ps: psName, defines: defines})
}

func (l *library) Store() asset.Store {
	return l.store
}

func (l *library) Len() int {
	return l.programs.Len()
}

func (l *library) build(key libraryKey) (Program, asset.DependencyValidation, error) {
	vs, ps := ParseShaderName(key.vs), ParseShaderName(key.ps)
	prog, err := NewProgram(l.store, vs, ps, common.NewParameterBox(key.defines))
	if err != nil {
		// a failed build still depends on the files it tried to read
		dv := asset.NewDependencyValidation()
		dv.RegisterDependency(l.store.Validation(vs.File))
		dv.RegisterDependency(l.store.Validation(ps.File))
		return nil, dv, err
	}
	return prog, prog.DependencyValidation(), nil
}
