package config

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
)

// Source serves tweakables from a file in a store and reloads them when the file changes.
type Source interface {
	// Current returns the tweakables, re-reading the file if it changed since the last call. When the file is
	// missing or broken the last good values are returned.
	//
	// Returns:
	//   - Tweakables: the current values
	Current() Tweakables
}

type source struct {
	name    string
	store   asset.Store
	entries asset.Cache[string, Tweakables]
	last    Tweakables
}

var _ Source = &source{}

// NewSource creates a tweakables source over one file of a store.
//
// Parameters:
//   - store: the store holding the config file
//   - name: the config file name
//
// Returns:
//   - Source: the source
func NewSource(store asset.Store, name string) Source {
	if store == nil {
		panic("config: NewSource requires a store")
	}
	s := &source{name: name, store: store, last: Default()}
	s.entries = asset.NewCache[string, Tweakables](s.load, asset.WithCacheName("tweakables"))
	return s
}

func (s *source) Current() Tweakables {
	t, err := s.entries.Get(s.name)
	if err != nil {
		var ioErr *asset.IOError
		if !errors.As(err, &ioErr) || ioErr.Reason != asset.ReasonNotFound {
			common.Logger().Warn("tweakables reload failed, keeping previous values", "file", s.name, "error", err)
		}
		return s.last
	}
	s.last = t
	return t
}

func (s *source) load(name string) (Tweakables, asset.DependencyValidation, error) {
	dv := s.store.Validation(name)
	data, err := s.store.ReadFile(name)
	if err != nil {
		return Default(), dv, err
	}
	t, err := Parse(name, data)
	return t, dv, err
}
