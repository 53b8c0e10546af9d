package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterBoxParseAndString(t *testing.T) {
	p := NewParameterBox("MSAA_SAMPLES=4; SHADOW_CASCADE_MODE=2;;ENABLE_AO")

	require.Equal(t, 3, p.Len())
	v, ok := p.Get("ENABLE_AO")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, "ENABLE_AO=1;MSAA_SAMPLES=4;SHADOW_CASCADE_MODE=2", p.String())
}

func TestParameterBoxHashIgnoresInsertionOrder(t *testing.T) {
	var a, b ParameterBox
	a.Set("X", 1)
	a.Set("Y", true)
	b.Set("Y", "1")
	b.Set("X", "1")

	assert.Equal(t, a.Hash(), b.Hash())

	b.Set("X", 2)
	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.Zero(t, ParameterBox{}.Hash())
}

func TestParameterBoxMergeOverrides(t *testing.T) {
	base := NewParameterBox("A=1;B=2")
	merged := base.Merge(NewParameterBox("B=3;C=4"))

	assert.Equal(t, "A=1;B=3;C=4", merged.String())
	assert.Equal(t, "A=1;B=2", base.String())
}

func TestHashCombineIsOrderDependent(t *testing.T) {
	a, b := Hash64("a"), Hash64("b")
	assert.NotEqual(t, HashCombine(a, b), HashCombine(b, a))
	assert.Equal(t, Hash64("shader"), Hash64("shader"))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 3, 4))
	assert.Equal(t, "", Coalesce("", ""))
}
