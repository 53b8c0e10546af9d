package overlay

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/shader"
)

// VertexFormat selects the layout of overlay vertices. Every format starts with a float3 position followed by a
// packed RGBA8 colour.
type VertexFormat int

const (
	// PC is position + colour, 16 bytes.
	PC VertexFormat = iota
	// PCR is position + colour + point radius, 20 bytes.
	PCR
	// PCT is position + colour + texcoord, 24 bytes.
	PCT
	// PCCTT is position + two colours + two texcoords, 36 bytes.
	PCCTT
)

func (f VertexFormat) String() string {
	switch f {
	case PC:
		return "PC"
	case PCR:
		return "PCR"
	case PCT:
		return "PCT"
	case PCCTT:
		return "PCCTT"
	}
	return "unknown"
}

// Size returns the vertex stride in bytes, 0 for an unknown format.
func (f VertexFormat) Size() uint32 {
	switch f {
	case PC:
		return 16
	case PCR:
		return 20
	case PCT:
		return 24
	case PCCTT:
		return 36
	}
	return 0
}

// InputElements returns the vertex format as shader input elements. Element names match the vertex shader inputs.
func (f VertexFormat) InputElements() []shader.InputElement {
	position := shader.InputElement{Name: "position", Format: wgpu.VertexFormatFloat32x3, Offset: 0}
	colour := shader.InputElement{Name: "colour", Format: wgpu.VertexFormatUnorm8x4, Offset: shader.AppendAligned}
	switch f {
	case PC:
		return []shader.InputElement{position, colour}
	case PCR:
		return []shader.InputElement{position, colour,
			{Name: "radius", Format: wgpu.VertexFormatFloat32, Offset: shader.AppendAligned},
		}
	case PCT:
		return []shader.InputElement{position, colour,
			{Name: "texcoord", Format: wgpu.VertexFormatFloat32x2, Offset: shader.AppendAligned},
		}
	case PCCTT:
		return []shader.InputElement{position, colour,
			{Name: "colour1", Format: wgpu.VertexFormatUnorm8x4, Offset: shader.AppendAligned},
			{Name: "texcoord", Format: wgpu.VertexFormatFloat32x2, Offset: shader.AppendAligned},
			{Name: "texcoord1", Format: wgpu.VertexFormatFloat32x2, Offset: shader.AppendAligned},
		}
	}
	return nil
}

// ColourB is an 8 bit per channel colour.
type ColourB struct {
	R, G, B, A uint8
}

var (
	White = ColourB{0xff, 0xff, 0xff, 0xff}
	Black = ColourB{0x00, 0x00, 0x00, 0xff}
	Red   = ColourB{0xff, 0x00, 0x00, 0xff}
	Green = ColourB{0x00, 0xff, 0x00, 0xff}
	Blue  = ColourB{0x00, 0x00, 0xff, 0xff}
	Zero  = ColourB{}
)

// HardwareColour packs c the way an RGBA8 unorm vertex attribute reads it from little endian memory.
//
// Parameters:
//   - c: the colour
//
// Returns:
//   - uint32: a<<24 | b<<16 | g<<8 | r
func HardwareColour(c ColourB) uint32 {
	return uint32(c.A)<<24 | uint32(c.B)<<16 | uint32(c.G)<<8 | uint32(c.R)
}

// vertexWriter appends vertices to a byte slice.
type vertexWriter struct {
	buf []byte
	off int
}

func (w *vertexWriter) f32(vs ...float32) {
	for _, v := range vs {
		binary.LittleEndian.PutUint32(w.buf[w.off:], math.Float32bits(v))
		w.off += 4
	}
}

func (w *vertexWriter) colour(c ColourB) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], HardwareColour(c))
	w.off += 4
}

func (w *vertexWriter) pc(p [3]float32, c ColourB) {
	w.f32(p[0], p[1], p[2])
	w.colour(c)
}

func (w *vertexWriter) pcr(p [3]float32, c ColourB, radius float32) {
	w.pc(p, c)
	w.f32(radius)
}

func (w *vertexWriter) pct(p [3]float32, c ColourB, t [2]float32) {
	w.pc(p, c)
	w.f32(t[0], t[1])
}

func (w *vertexWriter) pcctt(p [3]float32, c0, c1 ColourB, t0, t1 [2]float32) {
	w.pc(p, c0)
	w.colour(c1)
	w.f32(t0[0], t0[1], t1[0], t1[1])
}

// quadCorners returns the six corners of the two triangles covering mins..maxs at the depth of mins, together with
// the matching interpolation weights along x and y.
func quadCorners(mins, maxs [3]float32) (corners [6][3]float32, weights [6][2]float32) {
	weights = [6][2]float32{{0, 0}, {0, 1}, {1, 0}, {1, 0}, {0, 1}, {1, 1}}
	for i, w := range weights {
		corners[i] = [3]float32{
			mins[0] + (maxs[0]-mins[0])*w[0],
			mins[1] + (maxs[1]-mins[1])*w[1],
			mins[2],
		}
	}
	return corners, weights
}

func lerp2(a, b [2]float32, w [2]float32) [2]float32 {
	return [2]float32{a[0] + (b[0]-a[0])*w[0], a[1] + (b[1]-a[1])*w[1]}
}
