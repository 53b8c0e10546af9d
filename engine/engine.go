package engine

import (
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/config"
	"github.com/Carmen-Shannon/oxy-resolve/engine/profiler"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/lighting_parser"
	"github.com/Carmen-Shannon/oxy-resolve/engine/window"
)

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	// frame inputs, guarded by mu since key callbacks arrive on the window thread
	mu         *sync.Mutex
	scene      lighting_parser.SceneParser
	plugins    []lighting_parser.Plugin
	projection lighting_parser.ProjectionDesc
	source     config.Source
	sourceSeen config.Tweakables
	tweakables config.Tweakables

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the engine loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer frames are drawn with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer, or nil if none was set
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic and input processing.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// SetScene sets the scene whose lights are resolved each frame.
	//
	// Parameters:
	//   - scene: the scene parser, nil for a frame without dynamic lights
	SetScene(scene lighting_parser.SceneParser)

	// SetPlugins sets the lighting resolve plugins run each frame.
	//
	// Parameters:
	//   - plugins: the plugins, in run order
	SetPlugins(plugins ...lighting_parser.Plugin)

	// SetProjection sets the camera the lighting resolve reconstructs positions with.
	//
	// Parameters:
	//   - projection: the camera projection
	SetProjection(projection lighting_parser.ProjectionDesc)

	// Tweakables returns the switches the next frame is rendered with.
	//
	// Returns:
	//   - config.Tweakables: the current values
	Tweakables() config.Tweakables

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Initializes message channels and profiler with sensible defaults, then hooks the window callbacks up to the renderer
// and the debug key toggles.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, renderer, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
		mu:               &sync.Mutex{},
		tweakables:       config.Default(),
	}

	for _, opt := range options {
		opt(e)
	}
	if e.source != nil {
		e.sourceSeen = e.source.Current()
		e.tweakables = e.sourceSeen
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.renderer != nil {
				e.renderer.Resize(width, height)
			}
		})
		e.window.SetKeyDownCallback(e.handleKeyDown)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	e.window.ProcessMessages()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Each iteration builds a parser context from the current frame inputs and hands it to the renderer.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			e.renderFrame()

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame draws one frame. Failures are logged; the loop carries on with the next frame.
func (e *engine) renderFrame() {
	if e.renderer == nil {
		return
	}
	parser := e.parserContext()
	if err := e.renderer.RenderFrame(parser, nil); err != nil {
		common.Logger().Debug("frame incomplete", "err", err)
	}
	for _, msg := range parser.Errors() {
		common.Logger().Warn("frame error", "err", msg)
	}
}

// parserContext builds the parser context for the next frame. Edits to the tweakables file replace any toggles made
// from the keyboard.
func (e *engine) parserContext() *lighting_parser.ParserContext {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.source != nil {
		if current := e.source.Current(); current != e.sourceSeen {
			e.sourceSeen = current
			e.tweakables = current
		}
	}

	parser := lighting_parser.NewParserContext(e.scene)
	parser.Plugins = e.plugins
	parser.Projection = e.projection
	parser.Tweakables = e.tweakables
	if e.window != nil {
		parser.MousePosition = e.window.MousePosition()
	}
	return parser
}

// handleKeyDown applies the debug key toggles. KeyR drops the toggles and goes back to the configured values.
func (e *engine) handleKeyDown(key uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if key == common.KeyR {
		e.tweakables = config.Default()
		if e.source != nil {
			e.sourceSeen = e.source.Current()
			e.tweakables = e.sourceSeen
		}
		common.Logger().Info("tweakables reset")
		return
	}
	if e.tweakables.ApplyDebugKey(key) {
		common.Logger().Info("tweakables changed", "key", key, "tweakables", e.tweakables)
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) SetScene(scene lighting_parser.SceneParser) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scene = scene
}

func (e *engine) SetPlugins(plugins ...lighting_parser.Plugin) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plugins = append([]lighting_parser.Plugin(nil), plugins...)
}

func (e *engine) SetProjection(projection lighting_parser.ProjectionDesc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.projection = projection
}

func (e *engine) Tweakables() config.Tweakables {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tweakables
}
