package lighting_parser

import (
	"github.com/Carmen-Shannon/oxy-resolve/engine/light"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// ShadowKind is the shadow technique a light resolve shader is specialised for.
type ShadowKind uint8

const (
	NoShadows ShadowKind = iota
	PerspectiveShadows
	OrthoShadows
	OrthoShadowsNearCascade
	OrthoHybridShadows
)

func (k ShadowKind) String() string {
	switch k {
	case NoShadows:
		return "none"
	case PerspectiveShadows:
		return "perspective"
	case OrthoShadows:
		return "ortho"
	case OrthoShadowsNearCascade:
		return "ortho-near-cascade"
	case OrthoHybridShadows:
		return "ortho-hybrid"
	default:
		return "unknown"
	}
}

// PreparedDMShadowFrustum is the result of rendering a depth map shadow for one light.
type PreparedDMShadowFrustum struct {
	Mode              light.ShadowProjectionMode
	FrustumCount      int
	EnableNearCascade bool
	// ShadowTextures is the depth texture array, one layer per frustum (plus the near cascade).
	ShadowTextures *device.TextureView
	// WorldToShadow is the projection used for the screen to shadow constants.
	WorldToShadow     [16]float32
	Arbitrary         light.GPUArbitraryShadowProjection
	Ortho             light.GPUOrthoShadowProjection
	ResolveParameters light.GPUShadowResolveParameters
}

// IsReady reports whether the shadow has a texture and at least one frustum.
func (s *PreparedDMShadowFrustum) IsReady() bool {
	return s.ShadowTextures != nil && s.FrustumCount > 0
}

// PreparedRTShadowFrustum is the result of preparing ray traced shadows for one light: per pixel linked lists of
// the triangles that may occlude it.
type PreparedRTShadowFrustum struct {
	ListHead      *device.TextureView
	LinkedLists   *device.TextureView
	Triangles     *device.TextureView
	WorldToShadow [16]float32
}

// IsReady reports whether all the ray traced shadow inputs exist.
func (s *PreparedRTShadowFrustum) IsReady() bool {
	return s.ListHead != nil && s.LinkedLists != nil && s.Triangles != nil
}

// DMShadow pairs a prepared depth map shadow with the id of the light that casts it.
type DMShadow struct {
	LightID int
	Frustum PreparedDMShadowFrustum
}

// RTShadow pairs a prepared ray traced shadow with the id of the light that casts it.
type RTShadow struct {
	LightID int
	Frustum PreparedRTShadowFrustum
}

// FindDMShadowFrustum returns the index in parser.PreparedDMShadows of the shadow cast by lightID, or -1.
//
// Parameters:
//   - parser: the parser context
//   - lightID: the light index in the scene
//
// Returns:
//   - int: the index, or -1 if the light casts no depth map shadow
func FindDMShadowFrustum(parser *ParserContext, lightID int) int {
	for i, s := range parser.PreparedDMShadows {
		if s.LightID == lightID {
			return i
		}
	}
	return -1
}

// FindRTShadowFrustum returns the index in parser.PreparedRTShadows of the shadow cast by lightID, or -1.
//
// Parameters:
//   - parser: the parser context
//   - lightID: the light index in the scene
//
// Returns:
//   - int: the index, or -1 if the light casts no ray traced shadow
func FindRTShadowFrustum(parser *ParserContext, lightID int) int {
	for i, s := range parser.PreparedRTShadows {
		if s.LightID == lightID {
			return i
		}
	}
	return -1
}

// ResolveShadowKind picks the shadow technique for a light. A light with a ready ray traced shadow always gets the
// hybrid resolve, whatever its depth map shadow looks like. Otherwise lights without a ready depth map shadow get
// NoShadows. Orthogonal shadows use the cascade resolve when AllowOrthoShadowResolve is set (with the near cascade if
// enabled); everything else uses the perspective resolve.
//
// Parameters:
//   - parser: the parser context
//   - lightID: the light index in the scene
//
// Returns:
//   - ShadowKind: the technique
func ResolveShadowKind(parser *ParserContext, lightID int) ShadowKind {
	if rt := FindRTShadowFrustum(parser, lightID); rt >= 0 && parser.PreparedRTShadows[rt].Frustum.IsReady() {
		return OrthoHybridShadows
	}

	i := FindDMShadowFrustum(parser, lightID)
	if i < 0 || !parser.PreparedDMShadows[i].Frustum.IsReady() {
		return NoShadows
	}
	shadow := &parser.PreparedDMShadows[i].Frustum
	if shadow.Mode != light.ShadowOrtho || !parser.Tweakables.AllowOrthoShadowResolve {
		return PerspectiveShadows
	}
	if shadow.EnableNearCascade {
		return OrthoShadowsNearCascade
	}
	return OrthoShadows
}
