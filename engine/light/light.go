package light

import (
	"fmt"
)

// Shape is the emitting shape of a light. It selects the light resolve shader.
type Shape uint8

const (
	ShapeDirectional Shape = iota
	ShapeSphere
	ShapeTube
	ShapeRectangle
	ShapeDisc
)

func (s Shape) String() string {
	switch s {
	case ShapeDirectional:
		return "directional"
	case ShapeSphere:
		return "sphere"
	case ShapeTube:
		return "tube"
	case ShapeRectangle:
		return "rectangle"
	case ShapeDisc:
		return "disc"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// DiffuseModel selects the diffuse BRDF used when resolving a light.
type DiffuseModel uint8

const (
	DiffuseLambert DiffuseModel = iota
	DiffuseOrenNayar
)

// ShadowResolveModel selects the shadow filtering used when resolving a light.
type ShadowResolveModel uint8

const (
	ShadowResolvePoisson ShadowResolveModel = iota
	ShadowResolveSmooth
)

// LightDesc is the read-only description of one dynamic light as supplied by the scene each frame.
//
// Orientation is a 3x3 basis stored column by column: right, forward, up. Directional lights shine along forward.
type LightDesc struct {
	Shape              Shape
	Position           [3]float32
	Orientation        [9]float32
	CutoffRange        float32
	Radii              [2]float32
	DiffuseColour      [3]float32
	SpecularColour     [3]float32
	DiffuseWideningMin float32
	DiffuseWideningMax float32
	DiffuseModel       DiffuseModel
	ShadowResolveModel ShadowResolveModel
}

// Right returns the first column of the orientation.
func (l *LightDesc) Right() [3]float32 {
	return [3]float32{l.Orientation[0], l.Orientation[1], l.Orientation[2]}
}

// Forward returns the second column of the orientation.
func (l *LightDesc) Forward() [3]float32 {
	return [3]float32{l.Orientation[3], l.Orientation[4], l.Orientation[5]}
}

// Up returns the third column of the orientation.
func (l *LightDesc) Up() [3]float32 {
	return [3]float32{l.Orientation[6], l.Orientation[7], l.Orientation[8]}
}

// ShaderDesc converts the light into its constant buffer layout.
//
// Returns:
//   - GPULight: the GPU representation
func (l *LightDesc) ShaderDesc() GPULight {
	return GPULight{
		Position:           l.Position,
		CutoffRange:        l.CutoffRange,
		Diffuse:            l.DiffuseColour,
		Radius0:            l.Radii[0],
		Specular:           l.SpecularColour,
		Radius1:            l.Radii[1],
		Right:              l.Right(),
		DiffuseWideningMin: l.DiffuseWideningMin,
		Forward:            l.Forward(),
		DiffuseWideningMax: l.DiffuseWideningMax,
		Up:                 l.Up(),
	}
}

// SkyTextureType is the projection of the sky texture.
type SkyTextureType uint8

const (
	SkyEquirectangular SkyTextureType = iota + 1
	SkyCube
	SkyHemiCube
	SkyHemiEquirectangular
)

// GlobalLightingDesc is the scene-wide lighting environment: ambient, sky, image based lighting and fog.
type GlobalLightingDesc struct {
	AmbientLight            [3]float32
	SkyTexture              string
	SkyTextureType          SkyTextureType
	SkyReflectionScale      float32
	SkyReflectionBlurriness float32
	SkyBrightness           float32

	DiffuseIBL  string
	SpecularIBL string

	DoRangeFog        bool
	RangeFogInscatter [3]float32
	RangeFogThickness float32

	DoAtmosphereBlur bool
	AtmosBlurStdDev  float32
	AtmosBlurStart   float32
	AtmosBlurEnd     float32
}

// DefaultGlobalLightingDesc returns a neutral environment with a dim grey ambient and no sky, IBL or fog.
//
// Returns:
//   - GlobalLightingDesc: the default description
func DefaultGlobalLightingDesc() GlobalLightingDesc {
	return GlobalLightingDesc{
		AmbientLight:            [3]float32{0.03, 0.03, 0.03},
		SkyTextureType:          SkyEquirectangular,
		SkyReflectionScale:      1,
		SkyReflectionBlurriness: 2,
		SkyBrightness:           1,
		AtmosBlurStdDev:         1.3,
		AtmosBlurStart:          1000,
		AtmosBlurEnd:            1500,
	}
}

// SkyTextureProjection returns the projection id the ambient and sky shaders are specialised on. Zero means there is
// no sky texture.
//
// Returns:
//   - uint32: the projection id
func (g *GlobalLightingDesc) SkyTextureProjection() uint32 {
	if g.SkyTexture == "" {
		return 0
	}
	return uint32(g.SkyTextureType)
}

// AmbientDesc converts the ambient part of the environment into its constant buffer layout.
//
// Returns:
//   - GPUAmbient: the GPU representation
func (g *GlobalLightingDesc) AmbientDesc() GPUAmbient {
	return GPUAmbient{
		AmbientLight:            g.AmbientLight,
		SkyReflectionScale:      g.SkyReflectionScale,
		SkyReflectionBlurriness: g.SkyReflectionBlurriness,
	}
}

// RangeFogDesc converts the range fog into its constant buffer layout. Disabled fog is all zeros.
//
// Returns:
//   - GPURangeFog: the GPU representation
func (g *GlobalLightingDesc) RangeFogDesc() GPURangeFog {
	if !g.DoRangeFog {
		return GPURangeFog{}
	}
	return GPURangeFog{Inscatter: g.RangeFogInscatter, Thickness: g.RangeFogThickness}
}
