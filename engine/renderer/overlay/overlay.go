// Package overlay draws immediate-mode debugging geometry and text on top of the rendered frame. Draws are written
// into a fixed working buffer and submitted in batches on Flush.
package overlay

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/lighting_parser"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/shader"
)

// WorkingBufferSize is the size of the vertex working buffer. A draw that does not fit flushes first.
const WorkingBufferSize = 16 * 1024

// maxGlyphTextures bounds the rasterized text cache; it is dropped whole when full.
const maxGlyphTextures = 256

// Constant buffer slots read by the overlay vertex shaders.
const (
	cbGlobalTransform    = lighting_parser.CBGlobalTransform
	cbReciprocalViewport = lighting_parser.CBReciprocalViewport
)

// ShadedQuad is a quad drawn with two colours and two texture coordinate sets, for pixel shaders that blend between
// them.
type ShadedQuad struct {
	Mins, Maxs       [3]float32
	Colour0, Colour1 ColourB
	MinTex0, MaxTex0 [2]float32
	MinTex1, MaxTex1 [2]float32
	PixelShader      string
}

// Context is an immediate overlay drawing context.
type Context interface {
	// DrawPoint queues a single point.
	//
	// Parameters:
	//   - proj: the projection mode
	//   - v: the position
	//   - col: the colour
	//   - size: the point size in pixels
	DrawPoint(proj ProjectionMode, v [3]float32, col ColourB, size uint8)

	// DrawPoints queues a list of points.
	//
	// Parameters:
	//   - proj: the projection mode
	//   - points: the positions
	//   - cols: one colour for every point, or a single colour shared by all of them
	//   - size: the point size in pixels
	DrawPoints(proj ProjectionMode, points [][3]float32, cols []ColourB, size uint8)

	// DrawLine queues a single line segment.
	//
	// Parameters:
	//   - proj: the projection mode
	//   - v0: the start position
	//   - col0: the start colour
	//   - v1: the end position
	//   - col1: the end colour
	//   - thickness: the line thickness, ignored by devices without wide lines
	DrawLine(proj ProjectionMode, v0 [3]float32, col0 ColourB, v1 [3]float32, col1 ColourB, thickness float32)

	// DrawLines queues a line list. Lines longer than the working buffer are split into several batches.
	//
	// Parameters:
	//   - proj: the projection mode
	//   - points: the line list, two points per segment
	//   - cols: one colour per point, or a single shared colour
	//   - thickness: the line thickness
	DrawLines(proj ProjectionMode, points [][3]float32, cols []ColourB, thickness float32)

	// DrawTriangle queues a single triangle.
	//
	// Parameters:
	//   - proj: the projection mode
	//   - v0, v1, v2: the corners
	//   - col0, col1, col2: the corner colours
	DrawTriangle(proj ProjectionMode, v0 [3]float32, col0 ColourB, v1 [3]float32, col1 ColourB, v2 [3]float32, col2 ColourB)

	// DrawTriangles queues a triangle list.
	//
	// Parameters:
	//   - proj: the projection mode
	//   - points: the triangle list, three points per triangle
	//   - cols: one colour per point, or a single shared colour
	DrawTriangles(proj ProjectionMode, points [][3]float32, cols []ColourB)

	// DrawQuad queues a solid axis aligned quad at the depth of mins.
	//
	// Parameters:
	//   - proj: the projection mode
	//   - mins: the first corner
	//   - maxs: the opposite corner
	//   - col: the colour
	//   - pixelShader: the pixel shader, empty for the default
	DrawQuad(proj ProjectionMode, mins, maxs [3]float32, col ColourB, pixelShader string)

	// DrawShadedQuad queues a quad with two colours and two texture coordinate sets.
	//
	// Parameters:
	//   - proj: the projection mode
	//   - q: the quad
	DrawShadedQuad(proj ProjectionMode, q ShadedQuad)

	// DrawTexturedQuad queues a quad sampling a texture loaded through the texture cache.
	//
	// Parameters:
	//   - proj: the projection mode
	//   - mins: the first corner
	//   - maxs: the opposite corner
	//   - texture: the texture name
	//   - col: the colour the texture is modulated with
	//   - minTex: the texture coordinate at mins
	//   - maxTex: the texture coordinate at maxs
	DrawTexturedQuad(proj ProjectionMode, mins, maxs [3]float32, texture string, col ColourB, minTex, maxTex [2]float32)

	// DrawText flushes every queued draw and then draws text immediately, aligned within the quad.
	//
	// Parameters:
	//   - mins: the top left of the quad in pixels
	//   - maxs: the bottom right of the quad in pixels
	//   - style: the text style, nil for the default
	//   - col: the text colour
	//   - align: the alignment inside the quad
	//   - text: the text
	//
	// Returns:
	//   - float32: the width of the drawn text in pixels
	DrawText(mins, maxs [3]float32, style *TextStyle, col ColourB, align TextAlignment, text string) float32

	// StringWidth measures text.
	//
	// Parameters:
	//   - scale: a scale applied to the measured width
	//   - style: the text style, nil for the default
	//   - text: the text
	//
	// Returns:
	//   - float32: the scaled width in pixels
	StringWidth(scale float32, style *TextStyle, text string) float32

	// TextHeight returns the line height of a style.
	//
	// Parameters:
	//   - style: the text style, nil for the default
	//
	// Returns:
	//   - float32: the line height in pixels
	TextHeight(style *TextStyle) float32

	// CaptureState binds the overlay blend, depth and rasterizer states and reads the viewport.
	CaptureState()

	// ReleaseState ends a CaptureState scope.
	ReleaseState()

	// Flush submits every queued draw in order and resets the working buffer.
	Flush()

	// SetProjection sets the camera used by P3D draws.
	//
	// Parameters:
	//   - proj: the camera
	SetProjection(proj lighting_parser.ProjectionDesc)
}

// drawCall is a run of vertices in the working buffer drawn with one set of state.
type drawCall struct {
	topology     wgpu.PrimitiveTopology
	vertexOffset uint32
	vertexCount  uint32
	format       VertexFormat
	proj         ProjectionMode
	pixelShader  string
	texture      string
}

type immediateContext struct {
	dev      device.Context
	textures device.TextureCache
	boxes    shader.VariantCache[shaderBoxDesc, *ShaderBox]
	style    *TextStyle

	working      []byte
	writePointer uint32
	drawCalls    []drawCall

	globalTransform []byte
	viewport        []byte
	sampler         *device.Sampler
	glyphs          map[glyphKey]*device.TextureView
}

type glyphKey struct {
	style *TextStyle
	text  string
}

var _ Context = &immediateContext{}

// NewContext creates an overlay context drawing through dev with programs from lib.
//
// Parameters:
//   - dev: the device context
//   - lib: the shader library
//   - opts: optional builder options
//
// Returns:
//   - Context: the overlay context
func NewContext(dev device.Context, lib shader.Library, opts ...ContextBuilderOption) Context {
	if dev == nil || lib == nil {
		panic("overlay: NewContext requires a device context and a shader library")
	}
	c := &immediateContext{
		dev:       dev,
		boxes:     shader.NewVariantCache[shaderBoxDesc, *ShaderBox](lib, "overlay shaders", buildShaderBox),
		working:   make([]byte, WorkingBufferSize),
		drawCalls: make([]drawCall, 0, 64),
		glyphs:    make(map[glyphKey]*device.TextureView),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.globalTransform == nil {
		p := lighting_parser.NewProjectionDesc([3]float32{0, 0, 1}, [3]float32{}, [3]float32{0, 1, 0}, math.Pi/4, 1, 0.1, 100)
		c.globalTransform = p.GlobalTransform()
	}
	c.CaptureState()
	return c
}

func (c *immediateContext) DrawPoint(proj ProjectionMode, v [3]float32, col ColourB, size uint8) {
	c.DrawPoints(proj, [][3]float32{v}, []ColourB{col}, size)
}

func (c *immediateContext) DrawPoints(proj ProjectionMode, points [][3]float32, cols []ColourB, size uint8) {
	c.writeBatched(wgpu.PrimitiveTopologyPointList, PCR, proj, len(points), 1, func(w *vertexWriter, i int) {
		w.pcr(points[i], colourAt(cols, i), float32(size))
	})
}

func (c *immediateContext) DrawLine(proj ProjectionMode, v0 [3]float32, col0 ColourB, v1 [3]float32, col1 ColourB, thickness float32) {
	c.DrawLines(proj, [][3]float32{v0, v1}, []ColourB{col0, col1}, thickness)
}

func (c *immediateContext) DrawLines(proj ProjectionMode, points [][3]float32, cols []ColourB, thickness float32) {
	c.writeBatched(wgpu.PrimitiveTopologyLineList, PC, proj, len(points), 2, func(w *vertexWriter, i int) {
		w.pc(points[i], colourAt(cols, i))
	})
}

func (c *immediateContext) DrawTriangle(proj ProjectionMode, v0 [3]float32, col0 ColourB, v1 [3]float32, col1 ColourB, v2 [3]float32, col2 ColourB) {
	c.DrawTriangles(proj, [][3]float32{v0, v1, v2}, []ColourB{col0, col1, col2})
}

func (c *immediateContext) DrawTriangles(proj ProjectionMode, points [][3]float32, cols []ColourB) {
	c.writeBatched(wgpu.PrimitiveTopologyTriangleList, PC, proj, len(points), 3, func(w *vertexWriter, i int) {
		w.pc(points[i], colourAt(cols, i))
	})
}

func (c *immediateContext) DrawQuad(proj ProjectionMode, mins, maxs [3]float32, col ColourB, pixelShader string) {
	corners, _ := quadCorners(mins, maxs)
	w := c.reserve(drawCall{topology: wgpu.PrimitiveTopologyTriangleList, format: PC, proj: proj, pixelShader: pixelShader}, 6)
	for _, p := range corners {
		w.pc(p, col)
	}
}

func (c *immediateContext) DrawShadedQuad(proj ProjectionMode, q ShadedQuad) {
	corners, weights := quadCorners(q.Mins, q.Maxs)
	w := c.reserve(drawCall{topology: wgpu.PrimitiveTopologyTriangleList, format: PCCTT, proj: proj, pixelShader: q.PixelShader}, 6)
	for i, p := range corners {
		w.pcctt(p, q.Colour0, q.Colour1, lerp2(q.MinTex0, q.MaxTex0, weights[i]), lerp2(q.MinTex1, q.MaxTex1, weights[i]))
	}
}

func (c *immediateContext) DrawTexturedQuad(proj ProjectionMode, mins, maxs [3]float32, texture string, col ColourB, minTex, maxTex [2]float32) {
	corners, weights := quadCorners(mins, maxs)
	w := c.reserve(drawCall{topology: wgpu.PrimitiveTopologyTriangleList, format: PCCTT, proj: proj, texture: texture}, 6)
	for i, p := range corners {
		w.pcctt(p, col, col, lerp2(minTex, maxTex, weights[i]), [2]float32{})
	}
}

func (c *immediateContext) DrawText(mins, maxs [3]float32, style *TextStyle, col ColourB, align TextAlignment, text string) float32 {
	c.Flush()
	if text == "" {
		return 0
	}
	style = c.styleOrDefault(style)

	glyphs, err := c.glyphTexture(style, text)
	if err != nil {
		common.Logger().Warn("overlay: text upload failed", "text", text, "err", err)
		return 0
	}

	topLeft := style.AlignText([2]float32{mins[0], mins[1]}, [2]float32{maxs[0], maxs[1]}, align, text)
	depth := (mins[2] + maxs[2]) * 0.5
	box := [3]float32{topLeft[0], topLeft[1], depth}
	boxMax := [3]float32{topLeft[0] + float32(glyphs.Width), topLeft[1] + float32(glyphs.Height), depth}
	corners, weights := quadCorners(box, boxMax)

	buf := make([]byte, 6*PCT.Size())
	w := &vertexWriter{buf: buf}
	for i, p := range corners {
		w.pct(p, col, weights[i])
	}

	b, err := c.boxes.Get(shaderBoxDesc{topology: wgpu.PrimitiveTopologyTriangleList, format: PCT, proj: P2D, pixelShader: "basic.wgsl:text"})
	if err != nil {
		logSkipped(err, "text")
		return style.StringWidth(text)
	}
	c.bindFrameConstants()
	c.dev.BindTopology(wgpu.PrimitiveTopologyTriangleList)
	c.dev.BindVertexData(buf, PCT.Size())
	c.bindBox(b)
	c.dev.BindResources(device.StagePixel, 0, glyphs)
	c.dev.Draw(6, 0)
	return style.StringWidth(text)
}

func (c *immediateContext) StringWidth(scale float32, style *TextStyle, text string) float32 {
	return scale * c.styleOrDefault(style).StringWidth(text)
}

func (c *immediateContext) TextHeight(style *TextStyle) float32 {
	return c.styleOrDefault(style).LineHeight()
}

func (c *immediateContext) CaptureState() {
	c.dev.BindDepthStencil(device.DSSReadWrite, 0)
	c.dev.BindBlend(device.BlendStraightAlpha)
	c.dev.BindRasterizer(device.DefaultRasterizer)
	if s := c.defaultSampler(); s != nil {
		c.dev.BindSamplers(device.StagePixel, 0, s)
	}

	vp := c.dev.Viewport()
	c.viewport = make([]byte, 16)
	if vp.Width > 0 && vp.Height > 0 {
		binary.LittleEndian.PutUint32(c.viewport[0:], math.Float32bits(1/vp.Width))
		binary.LittleEndian.PutUint32(c.viewport[4:], math.Float32bits(1/vp.Height))
	}
}

func (c *immediateContext) ReleaseState() {}

func (c *immediateContext) Flush() {
	if c.writePointer != 0 {
		c.bindFrameConstants()
		for _, dc := range c.drawCalls {
			c.submit(dc)
		}
	}
	c.drawCalls = c.drawCalls[:0]
	c.writePointer = 0
}

func (c *immediateContext) SetProjection(proj lighting_parser.ProjectionDesc) {
	c.globalTransform = proj.GlobalTransform()
}

func (c *immediateContext) submit(dc drawCall) {
	b, err := c.boxes.Get(shaderBoxDesc{topology: dc.topology, format: dc.format, proj: dc.proj, pixelShader: dc.pixelShader})
	if err != nil {
		logSkipped(err, dc.format.String())
		return
	}
	if dc.texture != "" {
		if c.textures == nil {
			common.Logger().Warn("overlay: textured draw without a texture cache", "texture", dc.texture)
			return
		}
		view, err := c.textures.Get(dc.texture)
		if err != nil {
			logSkipped(err, dc.texture)
			return
		}
		c.dev.BindResources(device.StagePixel, 0, view)
	}

	stride := dc.format.Size()
	start := dc.vertexOffset
	c.dev.BindTopology(dc.topology)
	c.dev.BindVertexData(c.working[start:start+dc.vertexCount*stride], stride)
	c.bindBox(b)
	c.dev.Draw(dc.vertexCount, 0)
}

func (c *immediateContext) bindBox(b *ShaderBox) {
	if b.Program.DynamicLinking() {
		c.dev.BindProgram(b.Program, b.ClassInterfaces)
		return
	}
	c.dev.BindProgram(b.Program, nil)
}

func (c *immediateContext) bindFrameConstants() {
	c.dev.BindConstants(device.StageVertex, cbGlobalTransform, c.globalTransform)
	c.dev.BindConstants(device.StageVertex, cbReciprocalViewport, c.viewport)
}

// reserve makes room for count vertices of dc's format, flushing first when they do not fit, and records the draw.
// It returns a writer positioned at the new vertices.
func (c *immediateContext) reserve(dc drawCall, count int) *vertexWriter {
	size := uint32(count) * dc.format.Size()
	if c.writePointer+size > uint32(len(c.working)) {
		c.Flush()
	}
	dc.vertexOffset = c.writePointer
	dc.vertexCount = uint32(count)
	c.pushDrawCall(dc)

	w := &vertexWriter{buf: c.working, off: int(c.writePointer)}
	c.writePointer += size
	return w
}

// writeBatched writes count vertices in batches that fit the working buffer. Batches are a multiple of primitive
// vertices so no primitive is split.
func (c *immediateContext) writeBatched(topology wgpu.PrimitiveTopology, format VertexFormat, proj ProjectionMode, count, primitive int, write func(w *vertexWriter, i int)) {
	perBatch := len(c.working) / int(format.Size())
	perBatch -= perBatch % primitive
	count -= count % primitive

	for first := 0; first < count; first += perBatch {
		n := min(count-first, perBatch)
		w := c.reserve(drawCall{topology: topology, format: format, proj: proj}, n)
		for i := first; i < first+n; i++ {
			write(w, i)
		}
	}
}

// pushDrawCall appends dc, merging it into the previous call when the state matches and the vertices follow on.
func (c *immediateContext) pushDrawCall(dc drawCall) {
	if n := len(c.drawCalls); n > 0 {
		prev := &c.drawCalls[n-1]
		if prev.topology == dc.topology &&
			prev.format == dc.format &&
			prev.proj == dc.proj &&
			prev.pixelShader == dc.pixelShader &&
			prev.texture == dc.texture &&
			prev.vertexOffset+prev.vertexCount*prev.format.Size() == dc.vertexOffset {
			prev.vertexCount += dc.vertexCount
			return
		}
	}
	c.drawCalls = append(c.drawCalls, dc)
}

func (c *immediateContext) styleOrDefault(style *TextStyle) *TextStyle {
	if style != nil {
		return style
	}
	if c.style != nil {
		return c.style
	}
	return DefaultTextStyle()
}

func (c *immediateContext) glyphTexture(style *TextStyle, text string) (*device.TextureView, error) {
	key := glyphKey{style: style, text: text}
	if view, ok := c.glyphs[key]; ok {
		return view, nil
	}
	if len(c.glyphs) >= maxGlyphTextures {
		clear(c.glyphs)
	}
	view, err := c.dev.CreateTexture("overlay text", style.rasterize(text))
	if err != nil {
		return nil, err
	}
	c.glyphs[key] = view
	return view, nil
}

func (c *immediateContext) defaultSampler() *device.Sampler {
	if c.sampler != nil {
		return c.sampler
	}
	s, err := c.dev.CreateSampler("overlay default", common.SamplerStagingData{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		Compare:       wgpu.CompareFunctionUndefined,
		MaxAnisotropy: 1,
	})
	if err != nil {
		common.Logger().Warn("overlay: sampler creation failed", "err", err)
		return nil
	}
	c.sampler = s
	return s
}

func colourAt(cols []ColourB, i int) ColourB {
	switch {
	case i < len(cols):
		return cols[i]
	case len(cols) > 0:
		return cols[0]
	}
	return White
}

func logSkipped(err error, what string) {
	if errors.Is(err, asset.ErrPending) {
		common.Logger().Debug("overlay draw skipped, asset pending", "what", what)
		return
	}
	common.Logger().Warn("overlay draw skipped", "what", what, "err", err)
}
