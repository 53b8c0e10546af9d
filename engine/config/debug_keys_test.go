package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Carmen-Shannon/oxy-resolve/common"
)

func TestApplyDebugKeyToggles(t *testing.T) {
	tw := Default()

	assert.True(t, tw.ApplyDebugKey(common.KeyK))
	assert.False(t, tw.DoSky)
	assert.True(t, tw.ApplyDebugKey(common.KeyK))
	assert.True(t, tw.DoSky)

	assert.True(t, tw.ApplyDebugKey(common.KeyD))
	assert.Equal(t, 1, tw.LightResolveDynamic)
	assert.True(t, tw.ApplyDebugKey(common.KeyD))
	assert.Equal(t, 0, tw.LightResolveDynamic)

	assert.True(t, tw.ApplyDebugKey(common.KeyL))
	assert.True(t, tw.LightResolveDebugging)
	assert.True(t, tw.ApplyDebugKey(common.KeyP))
	assert.False(t, tw.SampleFrequencyOptimisation)
}

func TestApplyDebugKeySelectsDebuggingChannel(t *testing.T) {
	tw := Default()
	assert.True(t, tw.ApplyDebugKey(common.Key3))
	assert.Equal(t, 3, tw.DeferredDebugging)
	assert.False(t, tw.ApplyDebugKey(common.Key3), "same channel is not a change")
	assert.True(t, tw.ApplyDebugKey(common.Key0))
	assert.Equal(t, 0, tw.DeferredDebugging)
}

func TestApplyDebugKeyIgnoresUnboundKeys(t *testing.T) {
	tw := Default()
	assert.False(t, tw.ApplyDebugKey(common.KeySpace))
	assert.Equal(t, Default(), tw)
}
