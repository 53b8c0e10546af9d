package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestDefaultPositionOnOrbit(t *testing.T) {
	c := NewCamera(WithOrbit(10, 0, 0))
	pos := c.Position()
	assert.InDelta(t, 0, pos[0], 1e-5)
	assert.InDelta(t, 0, pos[1], 1e-5)
	assert.InDelta(t, 10, pos[2], 1e-5)
}

func TestOrbitFollowsTarget(t *testing.T) {
	c := NewCamera(WithTarget(1, 2, 3), WithOrbit(5, math32.Pi/2, 0))
	pos := c.Position()
	assert.InDelta(t, 6, pos[0], 1e-5)
	assert.InDelta(t, 2, pos[1], 1e-5)
	assert.InDelta(t, 3, pos[2], 1e-4)
}

func TestElevationAndRadiusClamp(t *testing.T) {
	c := NewCamera(WithRadiusLimits(2, 20))
	c.Orbit(0, 10)
	pos := c.Position()
	assert.Greater(t, pos[1], float32(9.9), "clamped just short of straight up")

	c.Zoom(100)
	assert.Equal(t, float32(2), c.Radius())
	c.Zoom(-100)
	assert.Equal(t, float32(20), c.Radius())
}

func TestAzimuthWraps(t *testing.T) {
	c := NewCamera(WithOrbit(10, 0, 0))
	for range 100 {
		c.Orbit(0.5, 0)
	}
	pos := c.Position()
	length := math32.Sqrt(pos[0]*pos[0] + pos[1]*pos[1] + pos[2]*pos[2])
	assert.InDelta(t, 10, length, 1e-3)
}

func TestProjectionUsesLens(t *testing.T) {
	c := NewCamera(WithLens(1, 0.5, 50), WithAspect(2))
	c.SetAspect(-1)
	p := c.Projection()
	assert.Equal(t, float32(1), p.VerticalFov)
	assert.Equal(t, float32(2), p.AspectRatio)
	assert.Equal(t, float32(0.5), p.NearClip)
	assert.Equal(t, float32(50), p.FarClip)

	c.SetAspect(1.5)
	assert.Equal(t, float32(1.5), c.Projection().AspectRatio)
}
