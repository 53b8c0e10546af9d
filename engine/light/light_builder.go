package light

import (
	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-resolve/common"
)

// LightDescBuilderOption is a function that configures a LightDesc during construction.
type LightDescBuilderOption func(*LightDesc)

// NewLightDesc creates a light description of the given shape. Without options the light sits at the origin facing
// down -Z with a white diffuse and specular colour, unit radii and a cutoff range of 1000.
//
// Parameters:
//   - shape: the emitting shape
//   - opts: variadic list of LightDescBuilderOption functions
//
// Returns:
//   - LightDesc: the configured description
func NewLightDesc(shape Shape, opts ...LightDescBuilderOption) LightDesc {
	l := LightDesc{
		Shape:              shape,
		Orientation:        basisFromForward(0, 0, -1),
		CutoffRange:        1000,
		Radii:              [2]float32{1, 1},
		DiffuseColour:      [3]float32{1, 1, 1},
		SpecularColour:     [3]float32{1, 1, 1},
		DiffuseWideningMin: 0.5,
		DiffuseWideningMax: 2.5,
	}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - LightDescBuilderOption: a function that applies the position option
func WithPosition(x, y, z float32) LightDescBuilderOption {
	return func(l *LightDesc) {
		l.Position = [3]float32{x, y, z}
	}
}

// WithDirection is an option builder that orients the light to face the given direction. The right and up axes are
// derived from a stable world up, switching to +X when the direction is nearly vertical.
//
// Parameters:
//   - x: the x direction component
//   - y: the y direction component
//   - z: the z direction component
//
// Returns:
//   - LightDescBuilderOption: a function that applies the direction option
func WithDirection(x, y, z float32) LightDescBuilderOption {
	return func(l *LightDesc) {
		l.Orientation = basisFromForward(x, y, z)
	}
}

// WithOrientation is an option builder that sets the full orientation basis (right, forward, up columns).
//
// Parameters:
//   - m: the 3x3 basis stored column by column
//
// Returns:
//   - LightDescBuilderOption: a function that applies the orientation option
func WithOrientation(m [9]float32) LightDescBuilderOption {
	return func(l *LightDesc) {
		l.Orientation = m
	}
}

// WithCutoffRange is an option builder that sets the distance beyond which the light contributes nothing.
//
// Parameters:
//   - r: the cutoff range in world units
//
// Returns:
//   - LightDescBuilderOption: a function that applies the range option
func WithCutoffRange(r float32) LightDescBuilderOption {
	return func(l *LightDesc) {
		l.CutoffRange = r
	}
}

// WithRadii is an option builder that sets the shape radii. Spheres and discs use the first radius, tubes and
// rectangles use both.
//
// Parameters:
//   - r0: the first radius
//   - r1: the second radius
//
// Returns:
//   - LightDescBuilderOption: a function that applies the radii option
func WithRadii(r0, r1 float32) LightDescBuilderOption {
	return func(l *LightDesc) {
		l.Radii = [2]float32{r0, r1}
	}
}

// WithDiffuseColour is an option builder that sets the diffuse colour, premultiplied by brightness.
//
// Parameters:
//   - r: the red component
//   - g: the green component
//   - b: the blue component
//
// Returns:
//   - LightDescBuilderOption: a function that applies the colour option
func WithDiffuseColour(r, g, b float32) LightDescBuilderOption {
	return func(l *LightDesc) {
		l.DiffuseColour = [3]float32{r, g, b}
	}
}

// WithSpecularColour is an option builder that sets the specular colour.
//
// Parameters:
//   - r: the red component
//   - g: the green component
//   - b: the blue component
//
// Returns:
//   - LightDescBuilderOption: a function that applies the colour option
func WithSpecularColour(r, g, b float32) LightDescBuilderOption {
	return func(l *LightDesc) {
		l.SpecularColour = [3]float32{r, g, b}
	}
}

// WithDiffuseWidening is an option builder that sets the diffuse wrap-around range.
//
// Parameters:
//   - lo: the widening at full roughness
//   - hi: the widening at zero roughness
//
// Returns:
//   - LightDescBuilderOption: a function that applies the widening option
func WithDiffuseWidening(lo, hi float32) LightDescBuilderOption {
	return func(l *LightDesc) {
		l.DiffuseWideningMin = lo
		l.DiffuseWideningMax = hi
	}
}

// WithDiffuseModel is an option builder that selects the diffuse BRDF.
func WithDiffuseModel(m DiffuseModel) LightDescBuilderOption {
	return func(l *LightDesc) {
		l.DiffuseModel = m
	}
}

// WithShadowResolveModel is an option builder that selects the shadow filter.
func WithShadowResolveModel(m ShadowResolveModel) LightDescBuilderOption {
	return func(l *LightDesc) {
		l.ShadowResolveModel = m
	}
}

// basisFromForward builds a right/forward/up basis around the normalised forward vector.
func basisFromForward(x, y, z float32) [9]float32 {
	fx, fy, fz := common.Normalize3(x, y, z)

	ux, uy, uz := float32(0), float32(1), float32(0)
	if math32.Abs(fy) > 0.99 {
		ux, uy, uz = 1, 0, 0
	}

	// right = forward x up
	rx, ry, rz := common.Normalize3(fy*uz-fz*uy, fz*ux-fx*uz, fx*uy-fy*ux)
	// up = right x forward
	ux, uy, uz = ry*fz-rz*fy, rz*fx-rx*fz, rx*fy-ry*fx

	return [9]float32{rx, ry, rz, fx, fy, fz, ux, uy, uz}
}
