package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
	"github.com/Carmen-Shannon/oxy-resolve/engine/profiler"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/lighting_parser"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/overlay"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/render_state"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/shaders"
	"github.com/Carmen-Shannon/oxy-resolve/engine/window"
)

const (
	vsPresent = "basic2D.wgsl:fullscreen"
	psPresent = "present.wgsl:main"
)

// Formats of the targets the renderer allocates.
const (
	DiffuseFormat         = wgpu.TextureFormatRGBA8Unorm
	NormalsFormat         = wgpu.TextureFormatRGBA16Float
	ParametersFormat      = wgpu.TextureFormatRGBA8Unorm
	DepthFormat           = wgpu.TextureFormatDepth24PlusStencil8
	LightingResolveFormat = wgpu.TextureFormatRGBA16Float
)

// GBufferPass fills the gbuffer before the lighting resolve. The targets are bound by the callee.
type GBufferPass func(ctx device.Context, targets *lighting_parser.MainTargets)

// OverlayPass draws immediate overlay geometry on top of the lit image. The overlay state is captured before the
// call and flushed after it.
type OverlayPass func(ov overlay.Context, parser *lighting_parser.ParserContext)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	// ctx is the backend, wrapped to feed the profiler when one is set
	ctx device.Context

	store     asset.Store
	lib       shader.Library
	textures  device.TextureCache
	resolvers *render_state.ResolverCache
	lighting  lighting_parser.LightingParser
	overlay   overlay.Context
	profiler  *profiler.Profiler

	targets       *lighting_parser.MainTargets
	width, height uint32

	gbufferPass GBufferPass
	overlayPass OverlayPass

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	msaa                 MSAASampleCount
	gbufferParameters    bool
	textureStore         asset.Store
	libraryOptions       []shader.LibraryBuilderOption
}

// Renderer owns the device context and every cache of the lighting core, and drives one frame from the gbuffer to
// the presented image.
type Renderer interface {
	// Resize reconfigures the surface and reallocates the main targets.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode. Takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// Context returns the device context frames are recorded through.
	//
	// Returns:
	//   - device.Context: the context
	Context() device.Context

	// Library returns the shader program library.
	//
	// Returns:
	//   - shader.Library: the library
	Library() shader.Library

	// Resolvers returns the compiled render state cache shared by the forward techniques.
	//
	// Returns:
	//   - *render_state.ResolverCache: the cache
	Resolvers() *render_state.ResolverCache

	// LightingParser returns the lighting parser.
	//
	// Returns:
	//   - lighting_parser.LightingParser: the parser
	LightingParser() lighting_parser.LightingParser

	// Overlay returns the immediate overlay context.
	//
	// Returns:
	//   - overlay.Context: the overlay context
	Overlay() overlay.Context

	// Targets returns the main targets allocated for the current surface size.
	//
	// Returns:
	//   - *lighting_parser.MainTargets: the targets
	Targets() *lighting_parser.MainTargets

	// RenderFrame renders one frame: the gbuffer pass, the forward lighting environment, the lighting resolve, the
	// pending overlays, the immediate overlay and the final present. A failed resolve still presents whatever was
	// drawn and returns the error.
	//
	// Parameters:
	//   - parser: the parser context for this frame
	//   - targets: the targets to resolve into, or nil for the renderer's own
	//
	// Returns:
	//   - error: an error if the frame could not begin or the lighting resolve failed
	RenderFrame(parser *lighting_parser.ParserContext, targets *lighting_parser.MainTargets) error
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer presenting into window.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - window: the window supplying the surface and its size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) Renderer {
	r := newRenderer(options...)
	r.backendType = backendType

	desc := window.SurfaceDescriptor()
	if desc == nil {
		panic(errNoSurface)
	}
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(desc, r.forceFallbackAdapter)
	}
	r.init(window.Width(), window.Height())
	common.Logger().Info("renderer created", "backend", backendType, "msaa", uint32(r.msaa), "width", r.width, "height", r.height)
	return r
}

func newRenderer(options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:        &sync.Mutex{},
		resolvers: render_state.NewResolverCache(),
		msaa:      MSAAOff,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// init builds everything that needs the backend.
func (r *renderer) init(width, height int) {
	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.ctx = r.backend
	if r.profiler != nil {
		r.ctx = &profiledContext{Context: r.backend, profiler: r.profiler}
	}
	if r.store == nil {
		r.store = shaders.NewStore()
	}
	r.lib = shader.NewLibrary(r.store, r.libraryOptions...)

	var parserOpts []lighting_parser.LightingParserBuilderOption
	var overlayOpts []overlay.ContextBuilderOption
	if r.textureStore != nil {
		r.textures = device.NewTextureCache(r.ctx, r.textureStore)
		parserOpts = append(parserOpts, lighting_parser.WithTextureCache(r.textures))
		overlayOpts = append(overlayOpts, overlay.WithTextureCache(r.textures))
	}
	r.lighting = lighting_parser.NewLightingParser(r.ctx, r.lib, parserOpts...)
	r.overlay = overlay.NewContext(r.ctx, r.lib, overlayOpts...)

	r.resize(width, height)
}

func (r *renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resize(width, height)
}

func (r *renderer) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.backend.ConfigureSurface(width, height)
	r.width, r.height = uint32(width), uint32(height)

	targets, err := r.createTargets()
	if err != nil {
		common.Logger().Error("main targets unavailable", "width", width, "height", height, "err", err)
		r.targets = &lighting_parser.MainTargets{}
		return
	}
	r.targets = targets
}

func (r *renderer) createTargets() (*lighting_parser.MainTargets, error) {
	samples := uint32(r.msaa)
	var errs []error
	create := func(label string, format wgpu.TextureFormat, samples uint32) *device.TextureView {
		view, err := r.backend.CreateRenderTarget(label, r.width, r.height, format, samples)
		errs = append(errs, err)
		return view
	}

	t := &lighting_parser.MainTargets{
		GBuffer: [3]*device.TextureView{
			create("GBuffer Diffuse", DiffuseFormat, samples),
			create("GBuffer Normals", NormalsFormat, samples),
		},
		Depth:           create("Depth", DepthFormat, samples),
		LightingResolve: create("Lighting Resolve", LightingResolveFormat, samples),
	}
	if r.gbufferParameters {
		t.GBuffer[2] = create("GBuffer Parameters", ParametersFormat, samples)
	}
	if samples == 1 {
		// screen space reflections read a copy of the accumulation target
		t.LightingResolveCopy = create("Lighting Resolve Copy", LightingResolveFormat, 1)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Context() device.Context {
	return r.ctx
}

func (r *renderer) Library() shader.Library {
	return r.lib
}

func (r *renderer) Resolvers() *render_state.ResolverCache {
	return r.resolvers
}

func (r *renderer) LightingParser() lighting_parser.LightingParser {
	return r.lighting
}

func (r *renderer) Overlay() overlay.Context {
	return r.overlay
}

func (r *renderer) Targets() *lighting_parser.MainTargets {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.targets
}

func (r *renderer) RenderFrame(parser *lighting_parser.ParserContext, targets *lighting_parser.MainTargets) error {
	if parser == nil {
		return errors.New("renderer: RenderFrame requires a parser context")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if targets == nil {
		targets = r.targets
	}

	back, err := r.backend.BeginFrame()
	if err != nil {
		return fmt.Errorf("renderer: begin frame: %w", err)
	}
	defer func() {
		r.backend.EndFrame()
		r.backend.Present()
	}()

	ctx := r.ctx
	if r.gbufferPass != nil {
		ctx.BeginAnnotation("gbuffer")
		r.gbufferPass(ctx, targets)
		ctx.EndAnnotation()
	}
	if parser.OverlayTarget == nil {
		parser.OverlayTarget = targets.LightingResolve
	}

	ctx.BeginAnnotation("forward environment")
	r.lighting.InitBasicLightEnv(ctx, parser)
	ctx.EndAnnotation()

	resolveErr := r.lighting.ResolveGBuffer(ctx, parser, targets)
	if resolveErr != nil {
		common.Logger().Warn("lighting resolve failed", "err", resolveErr)
	}

	ctx.BeginAnnotation("pending overlays")
	parser.RunPendingOverlays(ctx)
	ctx.EndAnnotation()

	r.drawOverlay(ctx, parser)
	r.present(ctx, back, targets.LightingResolve)
	return resolveErr
}

func (r *renderer) drawOverlay(ctx device.Context, parser *lighting_parser.ParserContext) {
	if !parser.OverlayTarget.IsGood() {
		return
	}
	ctx.BeginAnnotation("overlay")
	defer ctx.EndAnnotation()

	ctx.BindRenderTargets([]*device.TextureView{parser.OverlayTarget}, nil)
	r.overlay.SetProjection(parser.Projection)
	r.overlay.CaptureState()
	if r.overlayPass != nil {
		r.overlayPass(r.overlay, parser)
	}
	r.overlay.Flush()
	r.overlay.ReleaseState()
}

// present draws the lit image into the back buffer.
func (r *renderer) present(ctx device.Context, back, src *device.TextureView) {
	if !back.IsGood() || !src.IsGood() {
		return
	}
	defines := ""
	if src.SampleCount > 1 {
		defines = "MSAA_SAMPLERS=1"
	}
	prog, err := r.lib.Program(vsPresent, psPresent, defines)
	if err != nil {
		if !errors.Is(err, asset.ErrPending) {
			common.Logger().Warn("present program unavailable", "err", err)
		}
		return
	}

	ctx.BeginAnnotation("present")
	defer ctx.EndAnnotation()
	ctx.BindRenderTargets([]*device.TextureView{back}, nil)
	ctx.BindBlend(device.BlendOpaque)
	ctx.BindDepthStencil(device.DSSDisable, 0)
	ctx.BindRasterizer(device.CullDisable)
	ctx.BindTopology(wgpu.PrimitiveTopologyTriangleStrip)
	ctx.BindVertexData(nil, 0)
	ctx.BindResources(device.StagePixel, 0, src)
	ctx.BindProgram(prog, nil)
	ctx.Draw(4, 0)
	ctx.UnbindResources(device.StagePixel, 0, 1)
}
