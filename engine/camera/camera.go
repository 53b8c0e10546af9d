// Package camera provides an orbiting camera that produces the projection the lighting resolve reconstructs world
// positions with.
package camera

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/lighting_parser"
)

type cameraImpl struct {
	mu *sync.Mutex

	target [3]float32
	up     [3]float32

	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	fov    float32
	aspect float32
	near   float32
	far    float32
}

// Camera orbits a target point at a distance. Position is derived from the orbit angles every time it is read, so
// the camera never drifts out of its constraints.
type Camera interface {
	// Position returns the world space eye position.
	//
	// Returns:
	//   - [3]float32: the eye position
	Position() [3]float32

	// Target returns the point the camera looks at.
	//
	// Returns:
	//   - [3]float32: the target
	Target() [3]float32

	// SetTarget moves the orbit pivot.
	//
	// Parameters:
	//   - x, y, z: world space coordinates
	SetTarget(x, y, z float32)

	// Orbit turns the camera around the target. Elevation is clamped to the configured range.
	//
	// Parameters:
	//   - dAzimuth: change of the horizontal angle in radians
	//   - dElevation: change of the vertical angle in radians
	Orbit(dAzimuth, dElevation float32)

	// Zoom changes the distance to the target, clamped to the configured range. Positive values move closer.
	//
	// Parameters:
	//   - delta: distance to move
	Zoom(delta float32)

	// Radius returns the distance to the target.
	//
	// Returns:
	//   - float32: the distance
	Radius() float32

	// SetAspect sets the aspect ratio (width / height). Non-positive values are ignored.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// Aspect returns the aspect ratio.
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Projection builds the lighting parser projection for the current state.
	//
	// Returns:
	//   - lighting_parser.ProjectionDesc: the projection
	Projection() lighting_parser.ProjectionDesc
}

var _ Camera = &cameraImpl{}

// NewCamera creates an orbit camera ten units from the origin, looking down at thirty degrees.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:           &sync.Mutex{},
		up:           [3]float32{0, 1, 0},
		radius:       10,
		elevation:    math32.Pi / 6,
		minRadius:    1,
		maxRadius:    500,
		minElevation: -math32.Pi/2 + 0.05,
		maxElevation: math32.Pi/2 - 0.05,
		fov:          math32.Pi / 3,
		aspect:       16.0 / 9.0,
		near:         0.1,
		far:          200,
	}
	for _, option := range options {
		option(c)
	}
	c.radius = clamp(c.radius, c.minRadius, c.maxRadius)
	c.elevation = clamp(c.elevation, c.minElevation, c.maxElevation)
	return c
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position()
}

func (c *cameraImpl) Target() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) SetTarget(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = [3]float32{x, y, z}
}

func (c *cameraImpl) Orbit(dAzimuth, dElevation float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.azimuth = math32.Remainder(c.azimuth+dAzimuth, 2*math32.Pi)
	c.elevation = clamp(c.elevation+dElevation, c.minElevation, c.maxElevation)
}

func (c *cameraImpl) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius = clamp(c.radius-delta, c.minRadius, c.maxRadius)
}

func (c *cameraImpl) Radius() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radius
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Projection() lighting_parser.ProjectionDesc {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lighting_parser.NewProjectionDesc(c.position(), c.target, c.up, c.fov, c.aspect, c.near, c.far)
}

// position places the eye on the orbit sphere. Azimuth 0 looks down -Z from +Z. Caller must hold the mutex.
func (c *cameraImpl) position() [3]float32 {
	sinElev, cosElev := math32.Sincos(c.elevation)
	sinAzim, cosAzim := math32.Sincos(c.azimuth)
	return [3]float32{
		c.target[0] + c.radius*cosElev*sinAzim,
		c.target[1] + c.radius*sinElev,
		c.target[2] + c.radius*cosElev*cosAzim,
	}
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
