package config

import "github.com/Carmen-Shannon/oxy-resolve/common"

// ApplyDebugKey toggles the switch bound to key. Digit keys select the deferred debugging channel, 0 turns it off.
//
// Parameters:
//   - key: a key code from a window key callback
//
// Returns:
//   - bool: true if key is bound and t changed
func (t *Tweakables) ApplyDebugKey(key uint32) bool {
	switch key {
	case common.KeyD:
		t.LightResolveDynamic = 1 - min(t.LightResolveDynamic, 1)
	case common.KeyI:
		t.IBLRef = !t.IBLRef
	case common.KeyK:
		t.DoSky = !t.DoSky
	case common.KeyL:
		t.LightResolveDebugging = !t.LightResolveDebugging
	case common.KeyM:
		t.RTShadowMetrics = !t.RTShadowMetrics
	case common.KeyO:
		t.AllowOrthoShadowResolve = !t.AllowOrthoShadowResolve
	case common.KeyP:
		t.SampleFrequencyOptimisation = !t.SampleFrequencyOptimisation
	default:
		if key < common.Key0 || key > common.Key9 {
			return false
		}
		mode := int(key - common.Key0)
		if t.DeferredDebugging == mode {
			return false
		}
		t.DeferredDebugging = mode
	}
	return true
}
