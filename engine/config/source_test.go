package config

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"

	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
)

func TestSourceReloadsOnInvalidate(t *testing.T) {
	fsys := fstest.MapFS{
		"tweakables.toml": &fstest.MapFile{Data: []byte("do_sky = false\n")},
	}
	store := asset.NewFSStore(fsys)
	src := NewSource(store, "tweakables.toml")

	assert.False(t, src.Current().DoSky)

	fsys["tweakables.toml"] = &fstest.MapFile{Data: []byte("do_sky = true\nrt_shadow_metrics = true\n")}
	assert.False(t, src.Current().DoSky, "unchanged until the file is invalidated")

	store.Invalidate("tweakables.toml")
	got := src.Current()
	assert.True(t, got.DoSky)
	assert.True(t, got.RTShadowMetrics)
}

func TestSourceKeepsLastGoodValues(t *testing.T) {
	fsys := fstest.MapFS{
		"tweakables.yaml": &fstest.MapFile{Data: []byte("light_resolve_dynamic: 1\n")},
	}
	store := asset.NewFSStore(fsys)
	src := NewSource(store, "tweakables.yaml")
	assert.Equal(t, 1, src.Current().LightResolveDynamic)

	fsys["tweakables.yaml"] = &fstest.MapFile{Data: []byte("light_resolve_dynamic: [broken\n")}
	store.Invalidate("tweakables.yaml")
	assert.Equal(t, 1, src.Current().LightResolveDynamic)

	delete(fsys, "tweakables.yaml")
	store.Invalidate("tweakables.yaml")
	assert.Equal(t, 1, src.Current().LightResolveDynamic)
}

func TestSourceMissingFileGivesDefaults(t *testing.T) {
	src := NewSource(asset.NewFSStore(fstest.MapFS{}), "tweakables.toml")
	assert.Equal(t, Default(), src.Current())
}

func TestNewSourcePanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() { NewSource(nil, "x.toml") })
}
