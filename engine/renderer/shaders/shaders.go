// Package shaders embeds the WGSL sources used by the lighting resolve and the overlay.
package shaders

import (
	"embed"
	"io/fs"

	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
)

//go:embed *.wgsl deferred/*.wgsl
var sources embed.FS

// FS returns the embedded shader tree. Paths are relative to the shader root ("basic2D.wgsl",
// "deferred/resolvelight.wgsl").
//
// Returns:
//   - fs.FS: the read-only file system
func FS() fs.FS {
	return sources
}

// NewStore returns a store over the embedded shaders. Use asset.NewDirStore over a source checkout instead to get
// live reload while editing.
//
// Returns:
//   - asset.Store: the store
func NewStore() asset.Store {
	return asset.NewFSStore(sources)
}
