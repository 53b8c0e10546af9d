package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/config"
	"github.com/Carmen-Shannon/oxy-resolve/engine/light"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/lighting_parser"
	"github.com/Carmen-Shannon/oxy-resolve/engine/window"
)

type fakeWindow struct {
	window.Window
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
	mouse     [2]int32
}

func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) { w.onResize = callback }
func (w *fakeWindow) SetKeyDownCallback(callback func(keyCode uint32))  { w.onKeyDown = callback }
func (w *fakeWindow) MousePosition() [2]int32                          { return w.mouse }

type fakeRenderer struct {
	renderer.Renderer
	sizes   [][2]int
	frames  []*lighting_parser.ParserContext
	failure error
}

func (r *fakeRenderer) Resize(width, height int) { r.sizes = append(r.sizes, [2]int{width, height}) }

func (r *fakeRenderer) RenderFrame(parser *lighting_parser.ParserContext, targets *lighting_parser.MainTargets) error {
	r.frames = append(r.frames, parser)
	return r.failure
}

type fakeSource struct {
	current config.Tweakables
}

func (s *fakeSource) Current() config.Tweakables { return s.current }

type oneLight struct{}

func (oneLight) GlobalLightingDesc() light.GlobalLightingDesc { return light.GlobalLightingDesc{} }
func (oneLight) LightCount() int                              { return 1 }
func (oneLight) LightDesc(int) light.LightDesc                { return light.LightDesc{} }

func TestResizeReachesRenderer(t *testing.T) {
	w := &fakeWindow{}
	r := &fakeRenderer{}
	NewEngine(WithWindow(w), WithRenderer(r))

	require.NotNil(t, w.onResize)
	w.onResize(800, 600)
	assert.Equal(t, [][2]int{{800, 600}}, r.sizes)
}

func TestRenderFrameBuildsParserContext(t *testing.T) {
	w := &fakeWindow{mouse: [2]int32{12, 34}}
	r := &fakeRenderer{failure: errors.New("no lit image")}
	proj := lighting_parser.NewProjectionDesc([3]float32{0, 0, 5}, [3]float32{}, [3]float32{0, 1, 0}, 1, 1, 0.1, 100)
	e := NewEngine(WithWindow(w), WithRenderer(r), WithScene(oneLight{}), WithProjection(proj)).(*engine)

	e.renderFrame()

	require.Len(t, r.frames, 1)
	parser := r.frames[0]
	assert.Equal(t, 1, parser.Scene.LightCount())
	assert.Equal(t, proj, parser.Projection)
	assert.Equal(t, [2]int32{12, 34}, parser.MousePosition)
	assert.Equal(t, config.Default(), parser.Tweakables)
}

func TestRenderFrameWithoutRenderer(t *testing.T) {
	e := NewEngine().(*engine)
	assert.NotPanics(t, e.renderFrame)
}

func TestDebugKeysToggleTweakables(t *testing.T) {
	w := &fakeWindow{}
	r := &fakeRenderer{}
	e := NewEngine(WithWindow(w), WithRenderer(r)).(*engine)
	require.NotNil(t, w.onKeyDown)

	w.onKeyDown(common.KeyK)
	w.onKeyDown(common.Key3)
	assert.False(t, e.Tweakables().DoSky)
	assert.Equal(t, 3, e.Tweakables().DeferredDebugging)

	e.renderFrame()
	assert.False(t, r.frames[0].Tweakables.DoSky)

	w.onKeyDown(common.KeyR)
	assert.Equal(t, config.Default(), e.Tweakables())
}

func TestTweakablesSourceEditsWin(t *testing.T) {
	src := &fakeSource{current: config.Default()}
	src.current.IBLRef = true
	w := &fakeWindow{}
	r := &fakeRenderer{}
	e := NewEngine(WithWindow(w), WithRenderer(r), WithTweakablesSource(src)).(*engine)
	assert.True(t, e.Tweakables().IBLRef)

	w.onKeyDown(common.KeyP)
	e.renderFrame()
	assert.False(t, r.frames[0].Tweakables.SampleFrequencyOptimisation, "toggle survives while the file is unchanged")

	src.current.DoSky = false
	e.renderFrame()
	assert.False(t, r.frames[1].Tweakables.DoSky)
	assert.True(t, r.frames[1].Tweakables.SampleFrequencyOptimisation, "file edit replaces the toggles")

	w.onKeyDown(common.KeyK)
	w.onKeyDown(common.KeyR)
	assert.Equal(t, src.current, e.Tweakables())
}

func TestSetTickRateBeforeRun(t *testing.T) {
	e := NewEngine(WithTickRate(30)).(*engine)
	e.SetTickRate(0)
	assert.Equal(t, int64(16666666), e.engineTickRate.Nanoseconds())

	e.SetRenderFrameLimit(50)
	assert.Equal(t, int64(20000000), e.renderFrameLimit.Nanoseconds())
	e.SetRenderFrameLimit(-1)
	assert.Zero(t, e.renderFrameLimit)
}

func TestQuitIsIdempotent(t *testing.T) {
	e := NewEngine()
	e.Quit()
	assert.NotPanics(t, e.Quit)
}
