package camera

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithTarget sets the orbit pivot.
//
// Parameters:
//   - x, y, z: world space coordinates
//
// Returns:
//   - CameraBuilderOption: a function that sets the target
func WithTarget(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.target = [3]float32{x, y, z}
	}
}

// WithOrbit sets the initial orbit.
//
// Parameters:
//   - radius: distance from the target
//   - azimuth: horizontal angle in radians, 0 places the camera on +Z
//   - elevation: vertical angle in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the orbit
func WithOrbit(radius, azimuth, elevation float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.radius, c.azimuth, c.elevation = radius, azimuth, elevation
	}
}

// WithRadiusLimits bounds the zoom distance.
//
// Parameters:
//   - minRadius: the closest distance to the target
//   - maxRadius: the furthest distance from the target
//
// Returns:
//   - CameraBuilderOption: a function that sets the limits
func WithRadiusLimits(minRadius, maxRadius float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if minRadius > 0 && maxRadius >= minRadius {
			c.minRadius, c.maxRadius = minRadius, maxRadius
		}
	}
}

// WithLens sets the perspective parameters.
//
// Parameters:
//   - fov: vertical field of view in radians
//   - near: near clip distance
//   - far: far clip distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the lens
func WithLens(fov, near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov, c.near, c.far = fov, near, far
	}
}

// WithAspect sets the aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio
//
// Returns:
//   - CameraBuilderOption: a function that sets the aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}
