package lighting_parser

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-resolve/common"
)

// GPUGlobalTransformSize is the size of the global transform constant buffer in bytes.
const GPUGlobalTransformSize = 224

// ProjectionDesc describes the main camera for one frame.
type ProjectionDesc struct {
	WorldToProjection  [16]float32
	CameraToProjection [16]float32
	CameraToWorld      [16]float32
	VerticalFov        float32
	AspectRatio        float32
	NearClip           float32
	FarClip            float32
}

// NewProjectionDesc builds a perspective camera looking from eye towards target.
//
// Parameters:
//   - eye: the camera position
//   - target: the point looked at
//   - up: the approximate up direction
//   - fovY: the vertical field of view in radians
//   - aspect: width over height
//   - near: the near clip distance
//   - far: the far clip distance
//
// Returns:
//   - ProjectionDesc: the camera description
func NewProjectionDesc(eye, target, up [3]float32, fovY, aspect, near, far float32) ProjectionDesc {
	p := ProjectionDesc{VerticalFov: fovY, AspectRatio: aspect, NearClip: near, FarClip: far}
	var view [16]float32
	common.LookAt(view[:], eye[0], eye[1], eye[2], target[0], target[1], target[2], up[0], up[1], up[2])
	common.Perspective(p.CameraToProjection[:], fovY, aspect, near, far)
	common.Mul4(p.WorldToProjection[:], p.CameraToProjection[:], view[:])
	if !common.Invert4(p.CameraToWorld[:], view[:]) {
		common.Identity(p.CameraToWorld[:])
	}
	return p
}

// ViewPosition returns the camera position in world space.
func (p *ProjectionDesc) ViewPosition() [3]float32 {
	return [3]float32{p.CameraToWorld[12], p.CameraToWorld[13], p.CameraToWorld[14]}
}

// FrustumCorners returns the world space vectors from the camera to the far plane corners, ordered top left, bottom
// left, top right, bottom right.
//
// Returns:
//   - [4][3]float32: the corner vectors
func (p *ProjectionDesc) FrustumCorners() [4][3]float32 {
	y := math32.Tan(p.VerticalFov*0.5) * p.FarClip
	x := y * p.AspectRatio
	camera := [4][3]float32{{-x, y, -p.FarClip}, {-x, -y, -p.FarClip}, {x, y, -p.FarClip}, {x, -y, -p.FarClip}}
	var out [4][3]float32
	m := p.CameraToWorld
	for i, c := range camera {
		out[i] = [3]float32{
			m[0]*c[0] + m[4]*c[1] + m[8]*c[2],
			m[1]*c[0] + m[5]*c[1] + m[9]*c[2],
			m[2]*c[0] + m[6]*c[1] + m[10]*c[2],
		}
	}
	return out
}

// GlobalTransform serializes the camera into the global transform constant buffer.
//
// Returns:
//   - []byte: GPUGlobalTransformSize bytes ready for upload
func (p *ProjectionDesc) GlobalTransform() []byte {
	buf := make([]byte, GPUGlobalTransformSize)
	off := 0
	put := func(vs ...float32) {
		for _, v := range vs {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
			off += 4
		}
	}
	put(p.WorldToProjection[:]...)
	put(p.CameraToWorld[:]...)
	for _, c := range p.FrustumCorners() {
		put(c[0], c[1], c[2], 0)
	}
	eye := p.ViewPosition()
	put(eye[0], eye[1], eye[2], p.FarClip)
	var scale [2]float32
	if p.CameraToProjection[0] != 0 {
		scale[0] = 1 / p.CameraToProjection[0]
	}
	if p.CameraToProjection[5] != 0 {
		scale[1] = 1 / p.CameraToProjection[5]
	}
	put(scale[0], scale[1], p.CameraToProjection[10], p.CameraToProjection[14])
	return buf
}
