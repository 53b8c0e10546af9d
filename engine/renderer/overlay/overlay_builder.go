package overlay

import (
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/lighting_parser"
)

// ContextBuilderOption is a functional option for configuring an overlay Context.
type ContextBuilderOption func(*immediateContext)

// WithTextureCache sets the cache DrawTexturedQuad loads textures from.
//
// Parameters:
//   - cache: the texture cache
//
// Returns:
//   - ContextBuilderOption: a function that applies the cache
func WithTextureCache(cache device.TextureCache) ContextBuilderOption {
	return func(c *immediateContext) {
		c.textures = cache
	}
}

// WithTextStyle sets the style used when a text call passes nil.
//
// Parameters:
//   - style: the text style
//
// Returns:
//   - ContextBuilderOption: a function that applies the style
func WithTextStyle(style *TextStyle) ContextBuilderOption {
	return func(c *immediateContext) {
		c.style = style
	}
}

// WithProjection sets the camera used by P3D draws.
//
// Parameters:
//   - proj: the camera
//
// Returns:
//   - ContextBuilderOption: a function that applies the camera
func WithProjection(proj lighting_parser.ProjectionDesc) ContextBuilderOption {
	return func(c *immediateContext) {
		c.globalTransform = proj.GlobalTransform()
	}
}
