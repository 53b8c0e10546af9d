package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternerAssignsMonotonicIDs(t *testing.T) {
	in := NewInterner()
	assert.Equal(t, uint32(1), in.Intern("PointLight"))
	assert.Equal(t, uint32(2), in.Intern("Sky"))
	assert.Equal(t, uint32(1), in.Intern("pointlight"), "names are case-insensitive")
	assert.Equal(t, uint32(1), in.Intern("POINTLIGHT"))
	assert.Equal(t, 2, in.Len())

	name, ok := in.Name(1)
	assert.True(t, ok)
	assert.Equal(t, "PointLight", name, "first spelling is kept")

	_, ok = in.Name(0)
	assert.False(t, ok)
	_, ok = in.Name(3)
	assert.False(t, ok)

	_, ok = in.Lookup("Terrain")
	assert.False(t, ok)
	assert.Equal(t, 2, in.Len(), "Lookup does not register")
	id, ok := in.Lookup("sky")
	assert.True(t, ok)
	assert.Equal(t, uint32(2), id)
}
