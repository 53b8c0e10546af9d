package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-resolve/engine/config"
	"github.com/Carmen-Shannon/oxy-resolve/engine/profiler"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/lighting_parser"
	"github.com/Carmen-Shannon/oxy-resolve/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler sets the profiler ticked by the render loop. Pass the same profiler to renderer.WithProfiler to get
// per-pass timings in the report.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		if p != nil {
			e.profiler = p
		}
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets the window the engine runs in. Its resize and key down callbacks are taken over by the engine.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer that draws each frame.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithScene sets the scene whose lights are resolved each frame.
//
// Parameters:
//   - scene: the scene parser
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(scene lighting_parser.SceneParser) EngineBuilderOption {
	return func(e *engine) {
		e.scene = scene
	}
}

// WithPlugins sets the lighting resolve plugins.
//
// Parameters:
//   - plugins: the plugins, in run order
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPlugins(plugins ...lighting_parser.Plugin) EngineBuilderOption {
	return func(e *engine) {
		e.plugins = plugins
	}
}

// WithProjection sets the initial camera projection.
//
// Parameters:
//   - projection: the camera projection
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProjection(projection lighting_parser.ProjectionDesc) EngineBuilderOption {
	return func(e *engine) {
		e.projection = projection
	}
}

// WithTweakables sets the starting tweakables. Ignored when WithTweakablesSource is also given.
//
// Parameters:
//   - t: the tweakables
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTweakables(t config.Tweakables) EngineBuilderOption {
	return func(e *engine) {
		e.tweakables = t
	}
}

// WithTweakablesSource reads the tweakables from a reloading source. File edits are picked up between frames.
//
// Parameters:
//   - s: the source
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTweakablesSource(s config.Source) EngineBuilderOption {
	return func(e *engine) {
		e.source = s
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
