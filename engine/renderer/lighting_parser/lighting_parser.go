package lighting_parser

import (
	"github.com/Carmen-Shannon/oxy-resolve/engine/light"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/shader"
)

// LightingParser turns a rasterized gbuffer into a lit image and prepares the lighting inputs of forward shading.
type LightingParser interface {
	// ResolveGBuffer runs the full lighting resolve into targets.LightingResolve: the per-sample mask, the plugin
	// prepare hooks, one or two light/ambient/sky passes, and the queued debugging overlays.
	//
	// Parameters:
	//   - ctx: the device context
	//   - parser: the parser context for this frame
	//   - targets: the main targets
	//
	// Returns:
	//   - error: a pipeline level failure that aborted the remaining passes; per light and per plugin failures are
	//     recorded on parser instead
	ResolveGBuffer(ctx device.Context, parser *ParserContext, targets *MainTargets) error

	// ResolveLights draws every scene light into the bound target with the shaders of the current pass.
	//
	// Parameters:
	//   - ctx: the device context
	//   - parser: the parser context
	//   - resolveCtx: the resolve context, in a per-pixel or per-sample pass
	//   - debugging: selects the light resolve debugging variants
	ResolveLights(ctx device.Context, parser *ParserContext, resolveCtx *ResolveContext, debugging bool)

	// BindLightResolveResources binds the textures, samplers and constants shared by every light and ambient draw.
	//
	// Parameters:
	//   - ctx: the device context
	//   - parser: the parser context
	//
	// Returns:
	//   - error: an error if the shared resources could not be created
	BindLightResolveResources(ctx device.Context, parser *ParserContext) error

	// InitBasicLightEnv binds the basic lighting environment used by forward shading.
	//
	// Parameters:
	//   - ctx: the device context
	//   - parser: the parser context
	//
	// Returns:
	//   - light.GPUBasicEnvironment: the environment that was bound
	InitBasicLightEnv(ctx device.Context, parser *ParserContext) light.GPUBasicEnvironment

	// BindShadowsForForwardResolve binds a prepared shadow for forward shading and selects the matching technique
	// parameters in parser.RuntimeParameters.
	//
	// Parameters:
	//   - ctx: the device context
	//   - parser: the parser context
	//   - shadow: the prepared shadow
	//
	// Returns:
	//   - error: an error if the shadow samplers could not be created
	BindShadowsForForwardResolve(ctx device.Context, parser *ParserContext, shadow *PreparedDMShadowFrustum) error

	// UnbindShadowsForForwardResolve clears what BindShadowsForForwardResolve bound.
	//
	// Parameters:
	//   - ctx: the device context
	//   - parser: the parser context
	UnbindShadowsForForwardResolve(ctx device.Context, parser *ParserContext)
}

type lightingParserImpl struct {
	device   device.Context
	lib      shader.Library
	textures device.TextureCache

	resources      shader.VariantCache[resourcesDesc, *LightingResolveResources]
	lightShaders   shader.VariantCache[LightResolveShadersDesc, *LightResolveShaders]
	ambientShaders shader.VariantCache[AmbientResolveShadersDesc, *AmbientResolveShaders]
	common         *commonResources
}

var _ LightingParser = &lightingParserImpl{}

// NewLightingParser creates a lighting parser that creates its resources on dev and reads programs from lib.
//
// Parameters:
//   - dev: the device context shared resources are created on
//   - lib: the program library
//   - opts: optional builder options
//
// Returns:
//   - LightingParser: the lighting parser
func NewLightingParser(dev device.Context, lib shader.Library, opts ...LightingParserBuilderOption) LightingParser {
	if dev == nil || lib == nil {
		panic("lighting_parser: NewLightingParser requires a device context and a library")
	}
	p := &lightingParserImpl{device: dev, lib: lib}
	for _, opt := range opts {
		opt(p)
	}
	p.resources = shader.NewVariantCache[resourcesDesc, *LightingResolveResources](lib, "lighting resolve resources", p.buildResources)
	p.lightShaders = shader.NewVariantCache[LightResolveShadersDesc, *LightResolveShaders](lib, "light resolve shaders", newLightResolveShaders)
	p.ambientShaders = shader.NewVariantCache[AmbientResolveShadersDesc, *AmbientResolveShaders](lib, "ambient resolve shaders", buildAmbientResolveShaders)
	return p
}
