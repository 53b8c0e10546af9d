package light

import (
	_ "embed"
	"encoding/binary"
	"math"
)

// Sizes of the constant buffer layouts in bytes.
const (
	GPULightSize                     = 96
	GPUAmbientSize                   = 32
	GPURangeFogSize                  = 16
	GPUVolumeFogSize                 = 48
	GPUBasicEnvironmentSize          = GPUAmbientSize + GPURangeFogSize + GPUVolumeFogSize + DominantLightCount*GPULightSize
	GPUAmbientResolveSize            = GPUAmbientSize + GPURangeFogSize + 16
	GPUMaterialOverrideSize          = 48
	GPUScreenToShadowSize            = 80
	GPUArbitraryShadowProjectionSize = 16 + MaxShadowFrustums*64
	GPUOrthoShadowProjectionSize     = 64 + 2*MaxShadowFrustums*16 + 64 + 16
	GPUShadowResolveParametersSize   = 16
	GPUShadowSampleKernelSize        = ShadowSampleKernelCount * 16
	GPUDebuggingGlobalsSize          = 16
)

// DominantLightCount is the number of lights carried by the basic lighting environment for forward shading.
const DominantLightCount = 2

func putF32(buf []byte, off int, vs ...float32) int {
	for _, v := range vs {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	return off
}

func putU32(buf []byte, off int, vs ...uint32) int {
	for _, v := range vs {
		binary.LittleEndian.PutUint32(buf[off:off+4], v)
		off += 4
	}
	return off
}

// GPULightSource is the canonical WGSL definition of the LightDesc struct.
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the constant buffer layout of one light. Every vec3 is paired with a scalar so each row is 16 bytes.
//
// Layout:
//
//	vec3 position, f32 cutoff_range
//	vec3 diffuse, f32 radius0
//	vec3 specular, f32 radius1
//	vec3 right, f32 diffuse_widening_min
//	vec3 forward, f32 diffuse_widening_max
//	vec3 up, f32 pad
type GPULight struct {
	Position           [3]float32
	CutoffRange        float32
	Diffuse            [3]float32
	Radius0            float32
	Specular           [3]float32
	Radius1            float32
	Right              [3]float32
	DiffuseWideningMin float32
	Forward            [3]float32
	DiffuseWideningMax float32
	Up                 [3]float32
}

// BlankLight is the all-zero light used to fill unused dominant light slots.
var BlankLight = GPULight{}

// Size returns the size of the GPULight layout in bytes.
//
// Returns:
//   - int: the layout size in bytes (96)
func (g *GPULight) Size() int {
	return GPULightSize
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, GPULightSize)
	g.marshalInto(buf)
	return buf
}

func (g *GPULight) marshalInto(buf []byte) {
	off := putF32(buf, 0, g.Position[:]...)
	off = putF32(buf, off, g.CutoffRange)
	off = putF32(buf, off, g.Diffuse[:]...)
	off = putF32(buf, off, g.Radius0)
	off = putF32(buf, off, g.Specular[:]...)
	off = putF32(buf, off, g.Radius1)
	off = putF32(buf, off, g.Right[:]...)
	off = putF32(buf, off, g.DiffuseWideningMin)
	off = putF32(buf, off, g.Forward[:]...)
	off = putF32(buf, off, g.DiffuseWideningMax)
	off = putF32(buf, off, g.Up[:]...)
	putF32(buf, off, 0)
}

// GPUAmbientSource is the canonical WGSL definition of the AmbientDesc struct.
//
//go:embed assets/ambient.wgsl
var GPUAmbientSource string

// GPUAmbient is the constant buffer layout of the ambient environment (32 bytes).
type GPUAmbient struct {
	AmbientLight            [3]float32
	SkyReflectionScale      float32
	SkyReflectionBlurriness float32
}

// Marshal serializes the GPUAmbient struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPUAmbient) Marshal() []byte {
	buf := make([]byte, GPUAmbientSize)
	g.marshalInto(buf)
	return buf
}

func (g *GPUAmbient) marshalInto(buf []byte) {
	off := putF32(buf, 0, g.AmbientLight[:]...)
	off = putF32(buf, off, g.SkyReflectionScale, g.SkyReflectionBlurriness)
	putF32(buf, off, 0, 0, 0)
}

// GPURangeFogSource is the canonical WGSL definition of the RangeFogDesc struct.
//
//go:embed assets/range_fog.wgsl
var GPURangeFogSource string

// GPURangeFog is the constant buffer layout of distance fog (16 bytes).
type GPURangeFog struct {
	Inscatter [3]float32
	Thickness float32
}

// Marshal serializes the GPURangeFog struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (g *GPURangeFog) Marshal() []byte {
	buf := make([]byte, GPURangeFogSize)
	g.marshalInto(buf)
	return buf
}

func (g *GPURangeFog) marshalInto(buf []byte) {
	off := putF32(buf, 0, g.Inscatter[:]...)
	putF32(buf, off, g.Thickness)
}

// GPUVolumeFogSource is the canonical WGSL definition of the VolumeFogDesc struct.
//
//go:embed assets/volume_fog.wgsl
var GPUVolumeFogSource string

// GPUVolumeFog is the constant buffer layout of volumetric fog (48 bytes). The lighting core only ever sends the blank
// value; volumetric fog is produced by a plugin.
type GPUVolumeFog struct {
	OpticalThickness float32
	HeightStart      float32
	HeightEnd        float32
	Enable           uint32
	SunInscatter     [3]float32
	AmbientInscatter [3]float32
}

// BlankVolumeFog disables volumetric fog.
var BlankVolumeFog = GPUVolumeFog{}

// Marshal serializes the GPUVolumeFog struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (g *GPUVolumeFog) Marshal() []byte {
	buf := make([]byte, GPUVolumeFogSize)
	g.marshalInto(buf)
	return buf
}

func (g *GPUVolumeFog) marshalInto(buf []byte) {
	off := putF32(buf, 0, g.OpticalThickness, g.HeightStart, g.HeightEnd)
	off = putU32(buf, off, g.Enable)
	off = putF32(buf, off, g.SunInscatter[:]...)
	off = putU32(buf, off, 0)
	off = putF32(buf, off, g.AmbientInscatter[:]...)
	putU32(buf, off, 0)
}

// GPUBasicEnvironmentSource is the canonical WGSL definition of the BasicEnvironment struct. It depends on the
// AmbientDesc, RangeFogDesc, VolumeFogDesc and LightDesc structs.
//
//go:embed assets/basic_environment.wgsl
var GPUBasicEnvironmentSource string

// GPUBasicEnvironment is the global lighting environment used by forward shading: ambient, fogs and the dominant
// lights of the scene.
type GPUBasicEnvironment struct {
	Ambient   GPUAmbient
	RangeFog  GPURangeFog
	VolumeFog GPUVolumeFog
	Dominant  [DominantLightCount]GPULight
}

// Marshal serializes the GPUBasicEnvironment struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: buffer of GPUBasicEnvironmentSize bytes
func (g *GPUBasicEnvironment) Marshal() []byte {
	buf := make([]byte, GPUBasicEnvironmentSize)
	off := 0
	g.Ambient.marshalInto(buf[off:])
	off += GPUAmbientSize
	g.RangeFog.marshalInto(buf[off:])
	off += GPURangeFogSize
	g.VolumeFog.marshalInto(buf[off:])
	off += GPUVolumeFogSize
	for i := range g.Dominant {
		g.Dominant[i].marshalInto(buf[off:])
		off += GPULightSize
	}
	return buf
}

// GPUAmbientResolveSource is the canonical WGSL definition of the AmbientResolve struct.
//
//go:embed assets/ambient_resolve.wgsl
var GPUAmbientResolveSource string

// GPUAmbientResolve is the constant buffer of the ambient resolve pass.
type GPUAmbientResolve struct {
	Ambient                GPUAmbient
	RangeFog               GPURangeFog
	ReciprocalViewportDims [2]float32
}

// Marshal serializes the GPUAmbientResolve struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPUAmbientResolve) Marshal() []byte {
	buf := make([]byte, GPUAmbientResolveSize)
	g.Ambient.marshalInto(buf)
	g.RangeFog.marshalInto(buf[GPUAmbientSize:])
	putF32(buf, GPUAmbientSize+GPURangeFogSize, g.ReciprocalViewportDims[0], g.ReciprocalViewportDims[1], 0, 0)
	return buf
}

// GPUMaterialOverrideSource is the canonical WGSL definition of the MaterialOverride struct.
//
//go:embed assets/material_override.wgsl
var GPUMaterialOverrideSource string

// GPUMaterialOverride lets debugging tools force material parameters during lighting resolve. Twelve floats in three
// vec4 rows.
type GPUMaterialOverride [12]float32

// DefaultMaterialOverride is bound for every lighting resolve.
var DefaultMaterialOverride = GPUMaterialOverride{0, 0.6, 0.05, 0, 1, 1, 1, 0, 0, 1, 0, 0}

// Marshal serializes the override into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (g *GPUMaterialOverride) Marshal() []byte {
	buf := make([]byte, GPUMaterialOverrideSize)
	putF32(buf, 0, g[:]...)
	return buf
}

// GPUDebuggingGlobalsSource is the canonical WGSL definition of the DebuggingGlobals struct.
//
//go:embed assets/debugging_globals.wgsl
var GPUDebuggingGlobalsSource string

// GPUDebuggingGlobals feeds the light resolve debugging shaders with the viewport size and cursor position.
type GPUDebuggingGlobals struct {
	ViewportSize  [2]uint32
	MousePosition [2]int32
}

// Marshal serializes the GPUDebuggingGlobals struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (g *GPUDebuggingGlobals) Marshal() []byte {
	buf := make([]byte, GPUDebuggingGlobalsSize)
	off := putU32(buf, 0, g.ViewportSize[:]...)
	putU32(buf, off, uint32(g.MousePosition[0]), uint32(g.MousePosition[1]))
	return buf
}
