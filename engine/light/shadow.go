package light

import (
	_ "embed"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-resolve/common"
)

// ShadowMapResolution is the default width and height in texels of a shadow depth texture.
const ShadowMapResolution = 2048

// MaxShadowFrustums is the maximum number of frustums (cascades or arbitrary projections) in one prepared shadow.
const MaxShadowFrustums = 6

// ShadowSampleKernelCount is the number of taps in the shadow filter kernel.
const ShadowSampleKernelCount = 32

// Default orthographic shadow projection parameters.
const (
	DefaultShadowHalfExtent float32 = 40.0
	DefaultShadowNear       float32 = 0.1
	DefaultShadowFar        float32 = 200.0
	DefaultShadowBias       float32 = 0.001
)

// ShadowProjectionMode is the projection family of a prepared shadow.
type ShadowProjectionMode uint8

const (
	// ShadowArbitrary uses a full projection matrix per frustum.
	ShadowArbitrary ShadowProjectionMode = iota
	// ShadowOrtho uses one orthographic transform with a scale and translation per cascade.
	ShadowOrtho
)

// OrthoLightViewProjection builds the orthographic view-projection of a directional light centred on the given
// position and looking along lightDir.
//
// Parameters:
//   - lightDir: normalized direction the light points (from light toward scene)
//   - center: world-space centre of the shadow frustum
//   - halfExtent: half-size of the orthographic frustum in world units
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - [16]float32: the column-major world to shadow projection matrix
func OrthoLightViewProjection(lightDir, center [3]float32, halfExtent, near, far float32) [16]float32 {
	eyeX := center[0] - lightDir[0]*far*0.5
	eyeY := center[1] - lightDir[1]*far*0.5
	eyeZ := center[2] - lightDir[2]*far*0.5

	upX, upY, upZ := float32(0), float32(1), float32(0)
	if math32.Abs(lightDir[1]) > 0.99 {
		upX, upY, upZ = 1, 0, 0
	}

	var view, proj, out [16]float32
	common.LookAt(view[:], eyeX, eyeY, eyeZ, center[0], center[1], center[2], upX, upY, upZ)
	common.Ortho(proj[:], -halfExtent, halfExtent, -halfExtent, halfExtent, near, far)
	common.Mul4(out[:], proj[:], view[:])
	return out
}

// GPUScreenToShadowSource is the canonical WGSL definition of the ScreenToShadow struct.
//
//go:embed assets/screen_to_shadow.wgsl
var GPUScreenToShadowSource string

// GPUScreenToShadow takes a reconstructed camera-space position straight into shadow projection space. ProjScale and
// ProjZ are the camera projection terms needed to rebuild camera-space positions from screen coordinates and depth.
type GPUScreenToShadow struct {
	CameraToShadow [16]float32
	ProjScale      [2]float32
	ProjZ          [2]float32
}

// BuildScreenToShadow computes the screen to shadow constants for one shadow projection as seen from the main camera.
//
// Parameters:
//   - worldToShadow: the shadow projection's world to projection matrix
//   - cameraToWorld: the main camera's camera to world matrix
//   - cameraToProjection: the main camera's projection matrix
//
// Returns:
//   - GPUScreenToShadow: the constants
func BuildScreenToShadow(worldToShadow, cameraToWorld, cameraToProjection [16]float32) GPUScreenToShadow {
	var out GPUScreenToShadow
	common.Mul4(out.CameraToShadow[:], worldToShadow[:], cameraToWorld[:])
	if cameraToProjection[0] != 0 {
		out.ProjScale[0] = 1 / cameraToProjection[0]
	}
	if cameraToProjection[5] != 0 {
		out.ProjScale[1] = 1 / cameraToProjection[5]
	}
	out.ProjZ = [2]float32{cameraToProjection[10], cameraToProjection[14]}
	return out
}

// Marshal serializes the GPUScreenToShadow struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload
func (s *GPUScreenToShadow) Marshal() []byte {
	buf := make([]byte, GPUScreenToShadowSize)
	off := putF32(buf, 0, s.CameraToShadow[:]...)
	off = putF32(buf, off, s.ProjScale[:]...)
	putF32(buf, off, s.ProjZ[:]...)
	return buf
}

// GPUShadowProjectionSource is the canonical WGSL definition of the ArbitraryShadowProjection and
// OrthoShadowProjection structs.
//
//go:embed assets/shadow_projection.wgsl
var GPUShadowProjectionSource string

// GPUArbitraryShadowProjection holds one full projection per frustum.
type GPUArbitraryShadowProjection struct {
	FrustumCount uint32
	WorldToProj  [MaxShadowFrustums][16]float32
}

// Marshal serializes the GPUArbitraryShadowProjection struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: buffer of GPUArbitraryShadowProjectionSize bytes
func (s *GPUArbitraryShadowProjection) Marshal() []byte {
	buf := make([]byte, GPUArbitraryShadowProjectionSize)
	off := putU32(buf, 0, s.FrustumCount, 0, 0, 0)
	for i := range s.WorldToProj {
		off = putF32(buf, off, s.WorldToProj[i][:]...)
	}
	return buf
}

// GPUOrthoShadowProjection holds one orthographic transform plus a scale and translation per cascade, and an
// optional near cascade with its own full projection.
type GPUOrthoShadowProjection struct {
	WorldToProj        [16]float32
	CascadeScale       [MaxShadowFrustums][4]float32
	CascadeTrans       [MaxShadowFrustums][4]float32
	NearCascade        [16]float32
	CascadeCount       uint32
	NearCascadeEnabled uint32
}

// Marshal serializes the GPUOrthoShadowProjection struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: buffer of GPUOrthoShadowProjectionSize bytes
func (s *GPUOrthoShadowProjection) Marshal() []byte {
	buf := make([]byte, GPUOrthoShadowProjectionSize)
	off := putF32(buf, 0, s.WorldToProj[:]...)
	for i := range s.CascadeScale {
		off = putF32(buf, off, s.CascadeScale[i][:]...)
	}
	for i := range s.CascadeTrans {
		off = putF32(buf, off, s.CascadeTrans[i][:]...)
	}
	off = putF32(buf, off, s.NearCascade[:]...)
	putU32(buf, off, s.CascadeCount, s.NearCascadeEnabled, 0, 0)
	return buf
}

// GPUShadowResolveParameters tunes the shadow filter of one prepared shadow.
type GPUShadowResolveParameters struct {
	ShadowBias    float32
	TanBlurAngle  float32
	MinBlurSearch float32
	MaxBlurSearch float32
}

// DefaultShadowResolveParameters returns the filter settings used when a shadow does not supply its own.
//
// Returns:
//   - GPUShadowResolveParameters: the defaults
func DefaultShadowResolveParameters() GPUShadowResolveParameters {
	return GPUShadowResolveParameters{
		ShadowBias:    DefaultShadowBias,
		TanBlurAngle:  0.00436,
		MinBlurSearch: 0.5,
		MaxBlurSearch: 25,
	}
}

// Marshal serializes the GPUShadowResolveParameters struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (s *GPUShadowResolveParameters) Marshal() []byte {
	buf := make([]byte, GPUShadowResolveParametersSize)
	putF32(buf, 0, s.ShadowBias, s.TanBlurAngle, s.MinBlurSearch, s.MaxBlurSearch)
	return buf
}

// GPUShadowSampleKernel is the shared filter kernel. Each tap is stored in the xy of a vec4.
type GPUShadowSampleKernel [ShadowSampleKernelCount][2]float32

// SampleKernel32 builds the 32 tap kernel on a Vogel disk of unit radius.
//
// Returns:
//   - GPUShadowSampleKernel: the kernel
func SampleKernel32() GPUShadowSampleKernel {
	var k GPUShadowSampleKernel
	golden := math32.Pi * (3 - math32.Sqrt(5))
	for i := range k {
		r := math32.Sqrt((float32(i) + 0.5) / ShadowSampleKernelCount)
		theta := float32(i) * golden
		k[i] = [2]float32{r * math32.Cos(theta), r * math32.Sin(theta)}
	}
	return k
}

// Marshal serializes the kernel into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: buffer of GPUShadowSampleKernelSize bytes
func (k *GPUShadowSampleKernel) Marshal() []byte {
	buf := make([]byte, GPUShadowSampleKernelSize)
	off := 0
	for i := range k {
		off = putF32(buf, off, k[i][0], k[i][1], 0, 0)
	}
	return buf
}
