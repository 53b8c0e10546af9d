package overlay

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"
	"testing/fstest"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/lighting_parser"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/shader"
)

const testVertexShaders = `
struct VSOut {
    @builtin(position) position: vec4<f32>,
    @location(0) colour: vec4<f32>,
};

@vertex
fn %[1]sC(@location(0) position: vec3<f32>, @location(1) colour: vec4<f32>) -> VSOut {
    var out: VSOut;
    return out;
}

@vertex
fn %[1]sCR(@location(0) position: vec3<f32>, @location(1) colour: vec4<f32>, @location(2) radius: f32) -> VSOut {
    var out: VSOut;
    return out;
}

@vertex
fn %[1]sCT(@location(0) position: vec3<f32>, @location(1) colour: vec4<f32>, @location(2) texcoord: vec2<f32>) -> VSOut {
    var out: VSOut;
    return out;
}

@vertex
fn %[1]sCCTT(@location(0) position: vec3<f32>, @location(1) colour: vec4<f32>, @location(2) colour1: vec4<f32>, @location(3) texcoord: vec2<f32>, @location(4) texcoord1: vec2<f32>) -> VSOut {
    var out: VSOut;
    return out;
}
`

const testPixelShaders = `
//@oxy:interface ColourTransform colour_identity

fn colour_identity(c: vec4<f32>) -> vec4<f32> { return c; }
fn colour_greyscale(c: vec4<f32>) -> vec4<f32> { return c; }

@fragment
fn PC(@location(0) colour: vec4<f32>) -> @location(0) vec4<f32> {
    return ColourTransform(colour);
}

@fragment
fn PCT(@location(0) colour: vec4<f32>) -> @location(0) vec4<f32> {
    return colour;
}

@fragment
fn text(@location(0) colour: vec4<f32>) -> @location(0) vec4<f32> {
    return colour;
}
`

func testShaderFS() fstest.MapFS {
	return fstest.MapFS{
		"basic.wgsl":   {Data: []byte(testPixelShaders)},
		"basic2D.wgsl": {Data: []byte(sprintfShaders("P2"))},
		"basic3D.wgsl": {Data: []byte(sprintfShaders("P"))},
	}
}

type fakeTextureCache struct{}

func (fakeTextureCache) Get(name string) (*device.TextureView, error) {
	if name == "pending.png" {
		return nil, asset.ErrPending
	}
	return &device.TextureView{Label: name, Width: 8, Height: 8}, nil
}

func newTestContext(t *testing.T, opts ...ContextBuilderOption) (*device.Recorder, Context) {
	t.Helper()
	rec := device.NewRecorder(400, 200)
	lib := shader.NewLibrary(asset.NewFSStore(testShaderFS()))
	opts = append([]ContextBuilderOption{WithTextureCache(fakeTextureCache{})}, opts...)
	return rec, NewContext(rec, lib, opts...)
}

func readFloat(data []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

func TestHardwareColour(t *testing.T) {
	assert.Equal(t, uint32(0x04030201), HardwareColour(ColourB{R: 1, G: 2, B: 3, A: 4}))
	assert.Equal(t, uint32(0xff0000ff), HardwareColour(Red))
	assert.Equal(t, uint32(0), HardwareColour(Zero))
}

func TestVertexFormatSizesMatchInputElements(t *testing.T) {
	for f, want := range map[VertexFormat]uint32{PC: 16, PCR: 20, PCT: 24, PCCTT: 36} {
		assert.Equal(t, want, f.Size(), f.String())
		assert.Equal(t, uint64(want), shader.VertexStride(f.InputElements()), f.String())
	}
	assert.Zero(t, VertexFormat(9).Size())
}

func TestShaderSources(t *testing.T) {
	vs, ps, err := shaderSources(wgpu.PrimitiveTopologyPointList, PCR, P3D)
	require.NoError(t, err)
	assert.Equal(t, "basic3D.wgsl:PCR", vs)
	assert.Equal(t, "basic.wgsl:PC", ps)

	vs, ps, err = shaderSources(wgpu.PrimitiveTopologyTriangleList, PCCTT, P2D)
	require.NoError(t, err)
	assert.Equal(t, "basic2D.wgsl:P2CCTT", vs)
	assert.Equal(t, "basic.wgsl:PCT", ps)

	_, _, err = shaderSources(wgpu.PrimitiveTopologyPointList, PC, P2D)
	assert.Error(t, err)
	_, _, err = shaderSources(wgpu.PrimitiveTopologyLineList, PCR, P2D)
	assert.Error(t, err)
}

func TestNewContextPanicsWithoutDependencies(t *testing.T) {
	lib := shader.NewLibrary(asset.NewFSStore(testShaderFS()))
	assert.Panics(t, func() { NewContext(nil, lib) })
	assert.Panics(t, func() { NewContext(device.NewRecorder(1, 1), nil) })
}

func TestCaptureStateBindsOverlayState(t *testing.T) {
	rec, _ := newTestContext(t)

	blends := rec.CommandsOfKind(device.CmdBlend)
	require.NotEmpty(t, blends)
	assert.Equal(t, device.BlendStraightAlpha, blends[len(blends)-1].Blend)

	dss := rec.CommandsOfKind(device.CmdDepthStencil)
	require.NotEmpty(t, dss)
	assert.Equal(t, device.DSSReadWrite, dss[len(dss)-1].DepthStencil)

	samplers := rec.CommandsOfKind(device.CmdSamplers)
	require.Len(t, samplers, 1)
	assert.Equal(t, 0, samplers[0].Slot)
}

func TestPointVertexData(t *testing.T) {
	rec, ctx := newTestContext(t)

	ctx.DrawPoint(P2D, [3]float32{1, 2, 3}, Red, 4)
	assert.Empty(t, rec.Draws(), "nothing is submitted before Flush")
	ctx.Flush()

	draws := rec.Draws()
	require.Len(t, draws, 1)
	d := draws[0]
	assert.Equal(t, wgpu.PrimitiveTopologyPointList, d.Topology)
	assert.Equal(t, uint32(1), d.VertexCount)
	assert.Contains(t, d.Program.Key(), "basic2D.wgsl:P2CR|basic.wgsl:PC|")

	require.Len(t, d.VertexData, 20)
	assert.Equal(t, float32(1), readFloat(d.VertexData, 0))
	assert.Equal(t, float32(2), readFloat(d.VertexData, 4))
	assert.Equal(t, float32(3), readFloat(d.VertexData, 8))
	assert.Equal(t, []byte{0xff, 0x00, 0x00, 0xff}, d.VertexData[12:16])
	assert.Equal(t, float32(4), readFloat(d.VertexData, 16))

	vertexData := rec.CommandsOfKind(device.CmdVertexData)
	require.Len(t, vertexData, 1)
	assert.Equal(t, 20, vertexData[0].Count)
}

func TestContiguousDrawsMerge(t *testing.T) {
	rec, ctx := newTestContext(t)

	ctx.DrawLine(P2D, [3]float32{0, 0, 0}, White, [3]float32{10, 0, 0}, White, 1)
	ctx.DrawLine(P2D, [3]float32{0, 5, 0}, Blue, [3]float32{10, 5, 0}, Blue, 1)
	ctx.DrawLines(P2D, [][3]float32{{0, 9, 0}, {1, 9, 0}}, []ColourB{Green}, 1)
	ctx.Flush()

	draws := rec.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, draws[0].Topology)
	assert.Equal(t, uint32(6), draws[0].VertexCount)
	assert.Len(t, draws[0].VertexData, 6*16)
	assert.Equal(t, []byte{0x00, 0xff, 0x00, 0xff}, draws[0].VertexData[5*16+12:5*16+16], "a single colour is shared")
}

func TestDrawsWithDifferentStateDoNotMerge(t *testing.T) {
	rec, ctx := newTestContext(t)

	ctx.DrawTriangle(P2D, [3]float32{}, White, [3]float32{1, 0, 0}, White, [3]float32{0, 1, 0}, White)
	ctx.DrawQuad(P2D, [3]float32{}, [3]float32{4, 4, 0}, Black, "")
	ctx.DrawQuad(P2D, [3]float32{}, [3]float32{4, 4, 0}, Black, "basic.wgsl:PC,ColourTransform=colour_greyscale")
	ctx.DrawQuad(P3D, [3]float32{}, [3]float32{4, 4, 0}, Black, "")
	ctx.DrawTexturedQuad(P2D, [3]float32{}, [3]float32{4, 4, 0}, "a.png", White, [2]float32{0, 0}, [2]float32{1, 1})
	ctx.DrawTexturedQuad(P2D, [3]float32{}, [3]float32{4, 4, 0}, "b.png", White, [2]float32{0, 0}, [2]float32{1, 1})
	ctx.Flush()

	draws := rec.Draws()
	require.Len(t, draws, 5)
	assert.Equal(t, uint32(9), draws[0].VertexCount, "triangle and default quad share state")

	assert.Equal(t, []device.ClassInterfaceBinding{{Slot: "ColourTransform", Implementation: "colour_greyscale"}},
		draws[1].ClassInterfaces)

	assert.Contains(t, draws[2].Program.Key(), "basic3D.wgsl:PC|")

	assert.Contains(t, draws[3].Program.Key(), "basic2D.wgsl:P2CCTT|basic.wgsl:PCT|")
	assert.Equal(t, "a.png", draws[3].Resources[0].Label)
	assert.Equal(t, "b.png", draws[4].Resources[0].Label)
}

func TestOverflowFlushesFirst(t *testing.T) {
	rec, ctx := newTestContext(t)

	lines := make([][3]float32, 1000)
	ctx.DrawLines(P2D, lines, []ColourB{White}, 1)
	ctx.DrawQuad(P2D, [3]float32{}, [3]float32{1, 1, 0}, White, "")
	assert.Empty(t, rec.Draws(), "16096 bytes still fit")

	ctx.DrawLines(P2D, lines[:50], []ColourB{White}, 1)
	draws := rec.Draws()
	require.Len(t, draws, 2, "the overflowing draw flushed what was queued")
	assert.Equal(t, uint32(1000), draws[0].VertexCount)
	assert.Equal(t, uint32(6), draws[1].VertexCount)

	ctx.Flush()
	draws = rec.Draws()
	require.Len(t, draws, 3)
	assert.Equal(t, uint32(50), draws[2].VertexCount)
	assert.Len(t, draws[2].VertexData, 50*16, "the buffer restarts at zero after a flush")
}

func TestLongLineListsAreSplit(t *testing.T) {
	rec, ctx := newTestContext(t)

	ctx.DrawLines(P3D, make([][3]float32, 3001), []ColourB{White}, 1)
	ctx.Flush()

	var counts []uint32
	for _, d := range rec.Draws() {
		counts = append(counts, d.VertexCount)
	}
	assert.Equal(t, []uint32{1024, 1024, 952}, counts, "the odd trailing point is dropped")
}

func TestPendingTextureSkipsDraw(t *testing.T) {
	rec, ctx := newTestContext(t)

	ctx.DrawTexturedQuad(P2D, [3]float32{}, [3]float32{4, 4, 0}, "pending.png", White, [2]float32{}, [2]float32{1, 1})
	ctx.DrawQuad(P2D, [3]float32{}, [3]float32{4, 4, 0}, White, "")
	ctx.Flush()

	draws := rec.Draws()
	require.Len(t, draws, 1)
	assert.Contains(t, draws[0].Program.Key(), "basic2D.wgsl:P2C|")
}

func TestFrameConstants(t *testing.T) {
	proj := lighting_parser.NewProjectionDesc([3]float32{0, 5, 5}, [3]float32{}, [3]float32{0, 1, 0}, 1, 2, 0.1, 50)
	rec, ctx := newTestContext(t, WithProjection(proj))

	ctx.DrawQuad(P3D, [3]float32{}, [3]float32{1, 1, 0}, White, "")
	ctx.Flush()

	var transform, viewport []byte
	for _, c := range rec.CommandsOfKind(device.CmdConstants) {
		if c.Stage != device.StageVertex {
			continue
		}
		switch c.Slot {
		case lighting_parser.CBGlobalTransform:
			transform = c.Data
		case lighting_parser.CBReciprocalViewport:
			viewport = c.Data
		}
	}
	assert.Equal(t, proj.GlobalTransform(), transform)
	require.Len(t, viewport, 16)
	assert.InDelta(t, 1.0/400, readFloat(viewport, 0), 1e-9)
	assert.InDelta(t, 1.0/200, readFloat(viewport, 4), 1e-9)
}

func TestDrawTextFlushesFirst(t *testing.T) {
	rec, ctx := newTestContext(t)

	ctx.DrawLine(P2D, [3]float32{}, White, [3]float32{1, 1, 0}, White, 1)
	width := ctx.DrawText([3]float32{0, 0, 0}, [3]float32{200, 40, 0}, nil, White, AlignCenter, "lights: 12")

	draws := rec.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, draws[0].Topology)

	text := draws[1]
	assert.Contains(t, text.Program.Key(), "basic2D.wgsl:P2CT|basic.wgsl:text|")
	assert.Equal(t, uint32(6), text.VertexCount)
	require.NotNil(t, text.Resources[0])
	assert.Equal(t, "overlay text", text.Resources[0].Label)

	assert.Greater(t, width, float32(0))
	assert.Equal(t, ctx.StringWidth(1, nil, "lights: 12"), width)
	assert.Equal(t, 2*width, ctx.StringWidth(2, nil, "lights: 12"))
	assert.Equal(t, DefaultTextStyle().LineHeight(), ctx.TextHeight(nil))

	ctx.DrawText([3]float32{}, [3]float32{200, 40, 0}, nil, White, AlignLeft, "lights: 12")
	assert.Same(t, text.Resources[0], rec.Draws()[2].Resources[0], "rasterized text is reused")

	assert.Zero(t, ctx.DrawText([3]float32{}, [3]float32{1, 1, 0}, nil, White, AlignLeft, ""))
}

func TestAlignText(t *testing.T) {
	style := DefaultTextStyle()
	w, h := style.StringWidth("abc"), style.LineHeight()
	require.Greater(t, h, float32(0))

	mins, maxs := [2]float32{10, 20}, [2]float32{110, 80}
	assert.Equal(t, [2]float32{10, 20}, style.AlignText(mins, maxs, AlignTopLeft, "abc"))
	assert.Equal(t, [2]float32{110 - w, 80 - h}, style.AlignText(mins, maxs, AlignBottomRight, "abc"))
	assert.Equal(t, [2]float32{(120 - w) * 0.5, (100 - h) * 0.5}, style.AlignText(mins, maxs, AlignCenter, "abc"))
	assert.Equal(t, float32(DefaultFontSize), float32(style.Size()))
}

func TestFlushWithoutDrawsDoesNothing(t *testing.T) {
	rec, ctx := newTestContext(t)
	ctx.Flush()
	assert.Empty(t, rec.Draws())
	assert.Empty(t, rec.CommandsOfKind(device.CmdConstants))
}

func sprintfShaders(prefix string) string {
	return fmt.Sprintf(testVertexShaders, prefix)
}
