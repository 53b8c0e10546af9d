package renderer

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
	"github.com/Carmen-Shannon/oxy-resolve/engine/profiler"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/lighting_parser"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/overlay"
)

const testVertexShaders = `
struct VSOut {
    @builtin(position) position: vec4<f32>,
    @location(0) texcoord: vec2<f32>,
};

struct ColourOut {
    @builtin(position) position: vec4<f32>,
    @location(0) colour: vec4<f32>,
};

@vertex
fn fullscreen(@builtin(vertex_index) vid: u32) -> VSOut {
    var out: VSOut;
    return out;
}

@vertex
fn fullscreen_flip(@builtin(vertex_index) vid: u32) -> VSOut {
    var out: VSOut;
    return out;
}

@vertex
fn fullscreen_viewfrustumvector(@builtin(vertex_index) vid: u32) -> VSOut {
    var out: VSOut;
    return out;
}

@vertex
fn P2C(@location(0) position: vec3<f32>, @location(1) colour: vec4<f32>) -> ColourOut {
    var out: ColourOut;
    out.colour = colour;
    return out;
}
`

const testPixelShader = `
@fragment
fn main(@builtin(position) position: vec4<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(0.0);
}
`

const testOverlayShader = `
@fragment
fn PC(@location(0) colour: vec4<f32>) -> @location(0) vec4<f32> {
    return colour;
}
`

func testShaderFS() fstest.MapFS {
	return fstest.MapFS{
		"basic2D.wgsl":                  {Data: []byte(testVertexShaders)},
		"basic.wgsl":                    {Data: []byte(testOverlayShader)},
		"present.wgsl":                  {Data: []byte(testPixelShader)},
		"sky.wgsl":                      {Data: []byte(testPixelShader)},
		"deferred/persamplemask.wgsl":   {Data: []byte(testPixelShader)},
		"deferred/resolvelight.wgsl":    {Data: []byte(testPixelShader)},
		"deferred/resolveambient.wgsl":  {Data: []byte(testPixelShader)},
		"deferred/debugging.wgsl":       {Data: []byte(testPixelShader)},
		"deferred/rtshadowmetrics.wgsl": {Data: []byte(testPixelShader)},
	}
}

// fakeBackend records through a device.Recorder and hands out placeholder targets.
type fakeBackend struct {
	*device.Recorder
	back        *device.TextureView
	beginErr    error
	width       int
	height      int
	presentMode PresentMode
	frames      int
	ended       int
	presented   int
}

func (f *fakeBackend) ConfigureSurface(width, height int) { f.width, f.height = width, height }
func (f *fakeBackend) SetPresentMode(mode PresentMode)    { f.presentMode = mode }
func (f *fakeBackend) EndFrame()                          { f.ended++ }
func (f *fakeBackend) Present()                           { f.presented++ }
func (f *fakeBackend) Device() *wgpu.Device               { return nil }
func (f *fakeBackend) Queue() *wgpu.Queue                 { return nil }

func (f *fakeBackend) BeginFrame() (*device.TextureView, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.frames++
	return f.back, nil
}

func (f *fakeBackend) CreateRenderTarget(label string, width, height uint32, format wgpu.TextureFormat, samples uint32) (*device.TextureView, error) {
	return &device.TextureView{Label: label, Width: width, Height: height, Format: format, SampleCount: samples}, nil
}

func newTestRenderer(t *testing.T, opts ...RendererBuilderOption) (*renderer, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{
		Recorder: device.NewRecorder(320, 240),
		back:     &device.TextureView{Label: "Back Buffer", Width: 320, Height: 240, SampleCount: 1},
	}
	opts = append([]RendererBuilderOption{WithShaderStore(asset.NewFSStore(testShaderFS()))}, opts...)
	r := newRenderer(opts...)
	r.backend = backend
	r.init(320, 240)
	return r, backend
}

func annotations(rec *device.Recorder) []string {
	var out []string
	for _, c := range rec.CommandsOfKind(device.CmdBeginAnnotation) {
		out = append(out, c.Label)
	}
	return out
}

func drawsOf(draws []device.DrawCall, program string) []device.DrawCall {
	var out []device.DrawCall
	for _, d := range draws {
		if d.Program != nil && strings.Contains(d.Program.Key(), program) {
			out = append(out, d)
		}
	}
	return out
}

func TestInitAllocatesTargets(t *testing.T) {
	r, backend := newTestRenderer(t)
	assert.Equal(t, 320, backend.width)

	targets := r.Targets()
	require.NotNil(t, targets.LightingResolve)
	assert.Equal(t, uint32(320), targets.LightingResolve.Width)
	assert.Equal(t, LightingResolveFormat, targets.LightingResolve.Format)
	assert.Equal(t, DepthFormat, targets.Depth.Format)
	assert.Nil(t, targets.GBuffer[2], "parameters target is optional")
	assert.NotNil(t, targets.LightingResolveCopy)
	assert.Equal(t, uint32(1), targets.SamplingCount())

	assert.NotNil(t, r.Library())
	assert.NotNil(t, r.Resolvers())
	assert.NotNil(t, r.LightingParser())
	assert.NotNil(t, r.Overlay())
	assert.Same(t, backend, r.Context())
}

func TestMSAAAndParametersTargets(t *testing.T) {
	r, _ := newTestRenderer(t, WithMSAA(MSAA4x), WithGBufferParameters(true))
	targets := r.Targets()
	require.NotNil(t, targets.GBuffer[2])
	assert.Equal(t, uint32(4), targets.SamplingCount())
	assert.Equal(t, uint32(4), targets.LightingResolve.SampleCount)
	assert.Nil(t, targets.LightingResolveCopy)
}

func TestUndeclaredSampleCountIgnored(t *testing.T) {
	r, _ := newTestRenderer(t, WithMSAA(MSAASampleCount(3)))
	assert.Equal(t, MSAAOff, r.msaa)
	assert.Equal(t, "wgpu", BackendTypeWGPU.String())
	assert.Equal(t, "uncapped", PresentModeUncapped.String())
}

func TestResizeReallocatesTargets(t *testing.T) {
	r, backend := newTestRenderer(t)
	before := r.Targets()

	r.Resize(0, 100)
	assert.Same(t, before, r.Targets(), "minimised sizes are ignored")

	r.Resize(640, 480)
	assert.Equal(t, 640, backend.width)
	assert.Equal(t, 480, backend.height)
	assert.Equal(t, uint32(640), r.Targets().LightingResolve.Width)
	assert.NotSame(t, before, r.Targets())
}

func TestRenderFrameOrder(t *testing.T) {
	var order []string
	r, backend := newTestRenderer(t,
		WithGBufferPass(func(ctx device.Context, targets *lighting_parser.MainTargets) {
			order = append(order, "gbuffer")
			ctx.ClearColour(targets.GBuffer[0], [4]float32{1, 0, 0, 1})
		}),
		WithOverlayPass(func(ov overlay.Context, parser *lighting_parser.ParserContext) {
			order = append(order, "overlay")
			ov.DrawQuad(overlay.P2D, [3]float32{10, 10, 0}, [3]float32{50, 50, 0}, overlay.Red, "")
		}),
	)

	parser := lighting_parser.NewParserContext(nil)
	parser.AddPendingOverlay(func(ctx device.Context, parser *lighting_parser.ParserContext) {
		order = append(order, "pending")
	})
	require.NoError(t, r.RenderFrame(parser, nil))

	assert.Equal(t, []string{"gbuffer", "pending", "overlay"}, order)
	assert.Zero(t, parser.PendingOverlayCount())
	assert.Equal(t, 1, backend.frames)
	assert.Equal(t, 1, backend.ended)
	assert.Equal(t, 1, backend.presented)

	labels := annotations(backend.Recorder)
	idx := func(label string) int {
		for i, l := range labels {
			if l == label {
				return i
			}
		}
		return -1
	}
	for _, l := range []string{"gbuffer", "forward environment", "lighting resolve", "pending overlays", "overlay", "present"} {
		assert.GreaterOrEqual(t, idx(l), 0, l)
	}
	assert.Less(t, idx("gbuffer"), idx("forward environment"))
	assert.Less(t, idx("forward environment"), idx("lighting resolve"))
	assert.Less(t, idx("lighting resolve"), idx("pending overlays"))
	assert.Less(t, idx("pending overlays"), idx("overlay"))
	assert.Less(t, idx("overlay"), idx("present"))

	targets := r.Targets()
	assert.Same(t, targets.LightingResolve, parser.OverlayTarget)

	quads := drawsOf(backend.Draws(), "basic2D.wgsl:P2C")
	require.Len(t, quads, 1)
	assert.Equal(t, []*device.TextureView{targets.LightingResolve}, quads[0].Targets)
	assert.Equal(t, uint32(6), quads[0].VertexCount)

	draws := backend.Draws()
	last := draws[len(draws)-1]
	assert.Contains(t, last.Program.Key(), "present.wgsl:main")
	assert.Equal(t, []*device.TextureView{backend.back}, last.Targets)
	assert.Same(t, targets.LightingResolve, last.Resources[0])
	assert.Equal(t, uint32(4), last.VertexCount)
	assert.Nil(t, last.Depth)
}

func TestRenderFramePresentsMultisampledImage(t *testing.T) {
	r, backend := newTestRenderer(t, WithMSAA(MSAA4x))
	require.NoError(t, r.RenderFrame(lighting_parser.NewParserContext(nil), nil))

	presents := drawsOf(backend.Draws(), "present.wgsl")
	require.Len(t, presents, 1)
	assert.Contains(t, presents[0].Program.Key(), "MSAA_SAMPLERS=1")
}

func TestRenderFrameUsesGivenTargets(t *testing.T) {
	r, backend := newTestRenderer(t)
	view := func(label string) *device.TextureView {
		return &device.TextureView{Label: label, Width: 16, Height: 16, SampleCount: 1}
	}
	targets := &lighting_parser.MainTargets{
		GBuffer:         [3]*device.TextureView{view("diffuse"), view("normals")},
		Depth:           view("depth"),
		LightingResolve: view("lit"),
	}
	require.NoError(t, r.RenderFrame(lighting_parser.NewParserContext(nil), targets))

	presents := drawsOf(backend.Draws(), "present.wgsl")
	require.Len(t, presents, 1)
	assert.Same(t, targets.LightingResolve, presents[0].Resources[0])
}

func TestRenderFrameResolveFailureStillPresents(t *testing.T) {
	r, backend := newTestRenderer(t)
	targets := &lighting_parser.MainTargets{}
	err := r.RenderFrame(lighting_parser.NewParserContext(nil), targets)
	assert.Error(t, err)
	assert.Equal(t, 1, backend.presented)
	assert.Empty(t, drawsOf(backend.Draws(), "present.wgsl"), "nothing to present without a lit image")
}

func TestRenderFrameBeginFailure(t *testing.T) {
	r, backend := newTestRenderer(t)
	backend.beginErr = errors.New("surface lost")

	err := r.RenderFrame(lighting_parser.NewParserContext(nil), nil)
	assert.ErrorIs(t, err, backend.beginErr)
	assert.Zero(t, backend.ended)
	assert.Empty(t, backend.Draws())

	assert.Error(t, r.RenderFrame(nil, nil))
}

func TestProfilerTimesAnnotatedSections(t *testing.T) {
	p := profiler.NewProfiler()
	r, _ := newTestRenderer(t, WithProfiler(p))
	_, wrapped := r.Context().(*profiledContext)
	assert.True(t, wrapped)

	require.NoError(t, r.RenderFrame(lighting_parser.NewParserContext(nil), nil))

	labels := make(map[string]int)
	for _, timing := range p.Timings() {
		labels[timing.Label] = timing.Count
	}
	assert.NotContains(t, labels, "gbuffer", "no gbuffer pass was set")
	assert.Equal(t, 1, labels["lighting resolve"])
	assert.Equal(t, 1, labels["present"])
	assert.Equal(t, 1, labels["overlay"])
}
