package asset

import (
	"sync"
	"sync/atomic"
)

// DependencyValidation marks whether a built resource is still current. Every change to the underlying source bumps
// the validation index, and the change propagates to every validation that registered this one as a dependency.
type DependencyValidation interface {
	// ValidationIndex returns the number of changes observed so far. A resource built while the index was N is stale
	// once the index is no longer N.
	//
	// Returns:
	//   - uint32: the current change count
	ValidationIndex() uint32

	// OnChange records a change to the source and propagates it to dependent validations.
	OnChange()

	// RegisterDependency makes this validation change whenever child changes.
	//
	// Parameters:
	//   - child: the validation this one depends on
	RegisterDependency(child DependencyValidation)

	addParent(parent *dependencyValidationImpl)
}

type dependencyValidationImpl struct {
	mu      *sync.Mutex
	index   atomic.Uint32
	parents []*dependencyValidationImpl
}

var _ DependencyValidation = &dependencyValidationImpl{}

// NewDependencyValidation creates a validation with an index of zero and no dependencies.
//
// Returns:
//   - DependencyValidation: the new validation
func NewDependencyValidation() DependencyValidation {
	return &dependencyValidationImpl{mu: &sync.Mutex{}}
}

func (d *dependencyValidationImpl) ValidationIndex() uint32 {
	return d.index.Load()
}

func (d *dependencyValidationImpl) OnChange() {
	d.propagate(make(map[*dependencyValidationImpl]struct{}))
}

func (d *dependencyValidationImpl) propagate(visited map[*dependencyValidationImpl]struct{}) {
	if _, seen := visited[d]; seen {
		return
	}
	visited[d] = struct{}{}
	d.index.Add(1)

	d.mu.Lock()
	parents := append([]*dependencyValidationImpl(nil), d.parents...)
	d.mu.Unlock()

	for _, p := range parents {
		p.propagate(visited)
	}
}

func (d *dependencyValidationImpl) RegisterDependency(child DependencyValidation) {
	if child == nil {
		return
	}
	child.addParent(d)
}

func (d *dependencyValidationImpl) addParent(parent *dependencyValidationImpl) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.parents {
		if p == parent {
			return
		}
	}
	d.parents = append(d.parents, parent)
}
