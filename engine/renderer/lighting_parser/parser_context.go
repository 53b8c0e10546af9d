package lighting_parser

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/config"
	"github.com/Carmen-Shannon/oxy-resolve/engine/light"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// SceneParser supplies the read-only lighting description of the scene for one frame.
type SceneParser interface {
	// GlobalLightingDesc returns the scene-wide lighting environment.
	//
	// Returns:
	//   - light.GlobalLightingDesc: the environment
	GlobalLightingDesc() light.GlobalLightingDesc

	// LightCount returns the number of dynamic lights.
	//
	// Returns:
	//   - int: the light count
	LightCount() int

	// LightDesc returns one dynamic light. The index doubles as the light id used to match prepared shadows.
	//
	// Parameters:
	//   - index: the light index
	//
	// Returns:
	//   - light.LightDesc: the light
	LightDesc(index int) light.LightDesc
}

// Plugin extends the lighting resolve.
type Plugin interface {
	// OnLightingResolvePrepare runs during the prepare pass. Plugins supply optional inputs on resolveCtx and queue
	// per-pass work with AppendResolve.
	//
	// Parameters:
	//   - ctx: the device context
	//   - parser: the parser context
	//   - resolveCtx: the resolve context, in the prepare pass
	//
	// Returns:
	//   - error: a failure that is logged; the resolve continues without the rest of this plugin's work
	OnLightingResolvePrepare(ctx device.Context, parser *ParserContext, resolveCtx *ResolveContext) error

	// InitBasicLightEnvironment may adjust the basic lighting environment before it is bound for forward shading.
	//
	// Parameters:
	//   - ctx: the device context
	//   - parser: the parser context
	//   - env: the environment to adjust
	InitBasicLightEnvironment(ctx device.Context, parser *ParserContext, env *light.GPUBasicEnvironment)
}

// PendingOverlay is debugging output drawn after the main resolve. It must only capture values it owns.
type PendingOverlay func(ctx device.Context, parser *ParserContext)

// Metrics counts the lighting work of one frame.
type Metrics struct {
	LightsResolved int
	LightsSkipped  int
	LightFailures  int
	PluginFailures int
	PassesRendered int
	PendingAssets  int
}

// ParserContext carries the per-frame inputs and outputs of the lighting parser.
type ParserContext struct {
	Scene      SceneParser
	Plugins    []Plugin
	Projection ProjectionDesc
	Tweakables config.Tweakables

	// PreparedDMShadows and PreparedRTShadows are filled by the shadow preparation stage.
	PreparedDMShadows []DMShadow
	PreparedRTShadows []RTShadow

	// RuntimeParameters are the technique parameters forward shaders are selected with.
	RuntimeParameters common.ParameterBox

	// OverlayTarget is the colour target pending overlays draw into.
	OverlayTarget *device.TextureView
	// MousePosition feeds the light resolve debugging overlay.
	MousePosition [2]int32

	Metrics Metrics

	pendingOverlays []PendingOverlay
	errors          []string
}

// NewParserContext creates a parser context for a scene with the default tweakables.
//
// Parameters:
//   - scene: the scene parser, may be nil for a frame without lights
//
// Returns:
//   - *ParserContext: the context
func NewParserContext(scene SceneParser) *ParserContext {
	return &ParserContext{Scene: scene, Tweakables: config.Default()}
}

// AddPendingOverlay queues an overlay for RunPendingOverlays.
//
// Parameters:
//   - fn: the overlay
func (p *ParserContext) AddPendingOverlay(fn PendingOverlay) {
	p.pendingOverlays = append(p.pendingOverlays, fn)
}

// PendingOverlayCount returns the number of queued overlays.
func (p *ParserContext) PendingOverlayCount() int {
	return len(p.pendingOverlays)
}

// RunPendingOverlays runs every queued overlay once, in order, then clears the queue. A failing overlay is logged and
// the rest still run.
//
// Parameters:
//   - ctx: the device context
func (p *ParserContext) RunPendingOverlays(ctx device.Context) {
	overlays := p.pendingOverlays
	p.pendingOverlays = nil
	for i, fn := range overlays {
		if err := isolate(func() error {
			fn(ctx, p)
			return nil
		}); err != nil {
			p.ReportError(fmt.Errorf("pending overlay %d: %w", i, err))
		}
	}
}

// ReportError records a failure that was caught and isolated during the frame.
//
// Parameters:
//   - err: the failure
func (p *ParserContext) ReportError(err error) {
	common.Logger().Warn("lighting parser error", "error", err)
	p.errors = append(p.errors, err.Error())
}

// Errors returns the failures recorded this frame.
func (p *ParserContext) Errors() []string {
	return p.errors
}

// globalLighting returns the scene's lighting environment, or the default one for a frame without a scene.
func (p *ParserContext) globalLighting() light.GlobalLightingDesc {
	if p.Scene == nil {
		return light.DefaultGlobalLightingDesc()
	}
	return p.Scene.GlobalLightingDesc()
}

// isolate runs fn and turns a panic into an error, so one failing light or plugin cannot take down the frame.
func isolate(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
