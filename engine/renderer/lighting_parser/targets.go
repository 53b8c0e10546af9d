package lighting_parser

import (
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// MainTargets are the frame's render targets as seen by the lighting resolve. The gbuffer and depth are already
// rasterized; the lighting resolve target receives the lit image.
type MainTargets struct {
	// GBuffer holds diffuse, normals and the optional material parameter target.
	GBuffer [3]*device.TextureView
	// Depth is the depth-stencil target the gbuffer was rasterized with. Its stencil plane holds the per-sample mask.
	Depth *device.TextureView
	// LightingResolve is the accumulation target.
	LightingResolve *device.TextureView
	// LightingResolveCopy receives a copy of the accumulation target before screen space reflections read it.
	LightingResolveCopy *device.TextureView
}

// SamplingCount returns the MSAA sample count of the gbuffer, or 1 when the targets are missing.
//
// Returns:
//   - uint32: the sample count
func (t *MainTargets) SamplingCount() uint32 {
	if t.GBuffer[0] == nil || t.GBuffer[0].SampleCount == 0 {
		return 1
	}
	return t.GBuffer[0].SampleCount
}

// Width returns the width of the lighting resolve target.
func (t *MainTargets) Width() uint32 {
	if t.LightingResolve == nil {
		return 0
	}
	return t.LightingResolve.Width
}

// Height returns the height of the lighting resolve target.
func (t *MainTargets) Height() uint32 {
	if t.LightingResolve == nil {
		return 0
	}
	return t.LightingResolve.Height
}
