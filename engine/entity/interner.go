package entity

import (
	"sync"

	"golang.org/x/text/cases"
)

// Interner maps names to integer ids and back. Names are compared case-insensitively; the spelling of the first
// registration is kept. Ids start at 1, grow monotonically and are never reused, so 0 always means "no name".
type Interner struct {
	mu    *sync.Mutex
	fold  cases.Caser
	ids   map[string]uint32
	names []string
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{
		mu:   &sync.Mutex{},
		fold: cases.Fold(),
		ids:  make(map[string]uint32),
	}
}

// Intern returns the id of name, assigning the next id on first use.
//
// Parameters:
//   - name: the name
//
// Returns:
//   - uint32: the id, never 0
func (in *Interner) Intern(name string) uint32 {
	in.mu.Lock()
	defer in.mu.Unlock()
	key := in.fold.String(name)
	if id, ok := in.ids[key]; ok {
		return id
	}
	in.names = append(in.names, name)
	id := uint32(len(in.names))
	in.ids[key] = id
	return id
}

// Lookup returns the id of name without assigning one.
//
// Parameters:
//   - name: the name
//
// Returns:
//   - uint32: the id
//   - bool: false if name was never interned
func (in *Interner) Lookup(name string) (uint32, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	id, ok := in.ids[in.fold.String(name)]
	return id, ok
}

// Name returns the name registered for id.
//
// Parameters:
//   - id: the id
//
// Returns:
//   - string: the name as first registered
//   - bool: false for unknown ids
func (in *Interner) Name(id uint32) (string, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if id == 0 || int(id) > len(in.names) {
		return "", false
	}
	return in.names[id-1], true
}

// Len returns the number of interned names.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.names)
}
