package lighting_parser

import (
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// LightingParserBuilderOption is a functional option used to configure a LightingParser during construction.
type LightingParserBuilderOption func(*lightingParserImpl)

// WithTextureCache sets the cache the sky and image based lighting textures are loaded through. Without one those
// inputs are treated as absent.
//
// Parameters:
//   - cache: the texture cache
//
// Returns:
//   - LightingParserBuilderOption: a function that sets the texture cache
func WithTextureCache(cache device.TextureCache) LightingParserBuilderOption {
	return func(p *lightingParserImpl) {
		p.textures = cache
	}
}
