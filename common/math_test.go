package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvert4RoundTrip(t *testing.T) {
	view := make([]float32, 16)
	LookAt(view, 3, 4, 5, 0, 0, 0, 0, 1, 0)

	inv := make([]float32, 16)
	require.True(t, Invert4(inv, view))

	out := make([]float32, 16)
	Mul4(out, view, inv)

	ident := make([]float32, 16)
	Identity(ident)
	assert.InDeltaSlice(t, ident, out, 1e-5)
}

func TestInvert4Singular(t *testing.T) {
	zero := make([]float32, 16)
	out := make([]float32, 16)
	assert.False(t, Invert4(out, zero))
}

func TestOrthoMapsVolumeToClipSpace(t *testing.T) {
	m := make([]float32, 16)
	Ortho(m, -10, 10, -5, 5, 1, 101)

	near := TransformPoint(m, [4]float32{10, 5, -1, 1})
	far := TransformPoint(m, [4]float32{-10, -5, -101, 1})

	assert.InDeltaSlice(t, []float32{1, 1, 0, 1}, near[:], 1e-5)
	assert.InDeltaSlice(t, []float32{-1, -1, 1, 1}, far[:], 1e-5)
}

func TestNormalize3(t *testing.T) {
	x, y, z := Normalize3(0, 3, 4)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0.6, y, 1e-6)
	assert.InDelta(t, 0.8, z, 1e-6)
}
