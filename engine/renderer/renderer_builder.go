package renderer

import (
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
	"github.com/Carmen-Shannon/oxy-resolve/engine/profiler"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/shader"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithShaderStore replaces the embedded shaders with another store, e.g. an asset.NewDirStore over a source checkout
// for live reload.
//
// Parameters:
//   - store: the store shader sources are read from
//
// Returns:
//   - RendererBuilderOption: a function that applies the store option to a renderer
func WithShaderStore(store asset.Store) RendererBuilderOption {
	return func(r *renderer) {
		r.store = store
	}
}

// WithTextureStore sets the store the sky, image based lighting and overlay textures are loaded from. Without one
// those inputs are treated as absent.
//
// Parameters:
//   - store: the texture store
//
// Returns:
//   - RendererBuilderOption: a function that applies the texture store option to a renderer
func WithTextureStore(store asset.Store) RendererBuilderOption {
	return func(r *renderer) {
		r.textureStore = store
	}
}

// WithLibraryOptions passes options through to the shader library, e.g. shader.WithCompilePool.
//
// Parameters:
//   - opts: the library options
//
// Returns:
//   - RendererBuilderOption: a function that applies the library options to a renderer
func WithLibraryOptions(opts ...shader.LibraryBuilderOption) RendererBuilderOption {
	return func(r *renderer) {
		r.libraryOptions = append(r.libraryOptions, opts...)
	}
}

// WithProfiler times every annotated section of each frame into p.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - RendererBuilderOption: a function that applies the profiler option to a renderer
func WithProfiler(p *profiler.Profiler) RendererBuilderOption {
	return func(r *renderer) {
		r.profiler = p
	}
}

// WithGBufferPass sets the callback that fills the gbuffer each frame.
//
// Parameters:
//   - pass: the gbuffer pass
//
// Returns:
//   - RendererBuilderOption: a function that applies the gbuffer pass option to a renderer
func WithGBufferPass(pass GBufferPass) RendererBuilderOption {
	return func(r *renderer) {
		r.gbufferPass = pass
	}
}

// WithOverlayPass sets the callback that draws immediate overlay geometry each frame.
//
// Parameters:
//   - pass: the overlay pass
//
// Returns:
//   - RendererBuilderOption: a function that applies the overlay pass option to a renderer
func WithOverlayPass(pass OverlayPass) RendererBuilderOption {
	return func(r *renderer) {
		r.overlayPass = pass
	}
}

// WithGBufferParameters allocates the optional material parameters target, selecting gbuffer type 1.
//
// Parameters:
//   - enabled: true to allocate the parameters target
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithGBufferParameters(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.gbufferParameters = enabled
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the sample count of the gbuffer, depth and lighting resolve targets. The default is MSAAOff; with
// more samples the lighting resolve runs the per-sample pass on edges. Undeclared counts are ignored.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		if count.valid() {
			r.msaa = count
		}
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
