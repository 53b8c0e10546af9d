package lighting_parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-resolve/engine/light"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

func captureAssertions(t *testing.T) *[]string {
	t.Helper()
	var msgs []string
	previous := SetAssertionHook(func(msg string) {
		msgs = append(msgs, msg)
	})
	t.Cleanup(func() { SetAssertionHook(previous) })
	return &msgs
}

func noopResolve(device.Context, *ParserContext, *ResolveContext, Pass) {}

func TestResolveContextDefaults(t *testing.T) {
	rc := NewResolveContext(testTargets(4))
	assert.Equal(t, uint32(4), rc.SamplingCount())
	assert.True(t, rc.UseMsaaSamplers())
	assert.Equal(t, 1, rc.GBufferType())
	assert.Equal(t, PassPrepare, rc.CurrentPass())

	targets := testTargets(1)
	targets.GBuffer[2] = nil
	rc = NewResolveContext(targets)
	assert.Equal(t, uint32(1), rc.SamplingCount())
	assert.False(t, rc.UseMsaaSamplers())
	assert.Equal(t, 2, rc.GBufferType())

	rc = NewResolveContext(&MainTargets{})
	assert.Equal(t, uint32(1), rc.SamplingCount())
}

func TestAppendResolveDuringPrepare(t *testing.T) {
	msgs := captureAssertions(t)
	rc := NewResolveContext(testTargets(1))

	rc.AppendResolve(noopResolve)
	rc.AppendResolve(noopResolve)

	assert.Len(t, rc.Resolves(), 2)
	assert.Empty(t, *msgs)
}

func TestAppendResolveAfterPrepareIsContractViolation(t *testing.T) {
	msgs := captureAssertions(t)
	rc := NewResolveContext(testTargets(1))
	rc.AppendResolve(noopResolve)

	rc.SetPass(PassPerPixel)
	rc.AppendResolve(noopResolve)
	require.Len(t, *msgs, 1)
	assert.Contains(t, (*msgs)[0], "per-pixel")

	rc.SetPass(PassPerSample)
	rc.AppendResolve(noopResolve)
	assert.Len(t, *msgs, 2)
	assert.Len(t, rc.Resolves(), 1, "callbacks appended outside prepare are dropped")
}

func TestResolveContextSnapshotIsIndependent(t *testing.T) {
	captureAssertions(t)
	rc := NewResolveContext(testTargets(4))
	rc.AppendResolve(noopResolve)
	rc.AmbientOcclusion = &device.TextureView{Label: "ao"}

	snap := rc.Snapshot()
	rc.AppendResolve(noopResolve)
	rc.SetPass(PassPerSample)
	rc.AmbientOcclusion = nil

	assert.Equal(t, PassPrepare, snap.CurrentPass())
	assert.Len(t, snap.Resolves(), 1)
	assert.Equal(t, "ao", snap.AmbientOcclusion.Label)
	assert.Equal(t, uint32(4), snap.SamplingCount())
}

func TestPassString(t *testing.T) {
	assert.Equal(t, "prepare", PassPrepare.String())
	assert.Equal(t, "per-pixel", PassPerPixel.String())
	assert.Equal(t, "per-sample", PassPerSample.String())
	assert.Equal(t, "pass(7)", Pass(7).String())
}

func TestFindShadowFrustum(t *testing.T) {
	parser := NewParserContext(nil)
	parser.PreparedDMShadows = []DMShadow{{LightID: 4}, {LightID: 2}}
	parser.PreparedRTShadows = []RTShadow{{LightID: 2}}

	assert.Equal(t, 1, FindDMShadowFrustum(parser, 2))
	assert.Equal(t, 0, FindDMShadowFrustum(parser, 4))
	assert.Equal(t, -1, FindDMShadowFrustum(parser, 3))
	assert.Equal(t, 0, FindRTShadowFrustum(parser, 2))
	assert.Equal(t, -1, FindRTShadowFrustum(parser, 4))
}

func TestResolveShadowKind(t *testing.T) {
	ready := func(mode light.ShadowProjectionMode, near bool) PreparedDMShadowFrustum {
		return PreparedDMShadowFrustum{
			Mode:              mode,
			FrustumCount:      3,
			EnableNearCascade: near,
			ShadowTextures:    &device.TextureView{Label: "shadow"},
		}
	}
	rtReady := PreparedRTShadowFrustum{
		ListHead:    &device.TextureView{},
		LinkedLists: &device.TextureView{},
		Triangles:   &device.TextureView{},
	}

	tests := []struct {
		name       string
		dm         []DMShadow
		rt         []RTShadow
		allowOrtho bool
		want       ShadowKind
	}{
		{name: "no prepared shadow", allowOrtho: true, want: NoShadows},
		{name: "other light only", dm: []DMShadow{{LightID: 1, Frustum: ready(light.ShadowOrtho, false)}}, allowOrtho: true, want: NoShadows},
		{name: "not ready", dm: []DMShadow{{LightID: 0, Frustum: PreparedDMShadowFrustum{Mode: light.ShadowOrtho}}}, allowOrtho: true, want: NoShadows},
		{name: "arbitrary", dm: []DMShadow{{LightID: 0, Frustum: ready(light.ShadowArbitrary, false)}}, allowOrtho: true, want: PerspectiveShadows},
		{name: "ortho", dm: []DMShadow{{LightID: 0, Frustum: ready(light.ShadowOrtho, false)}}, allowOrtho: true, want: OrthoShadows},
		{name: "ortho near cascade", dm: []DMShadow{{LightID: 0, Frustum: ready(light.ShadowOrtho, true)}}, allowOrtho: true, want: OrthoShadowsNearCascade},
		{name: "ortho not allowed", dm: []DMShadow{{LightID: 0, Frustum: ready(light.ShadowOrtho, true)}}, allowOrtho: false, want: PerspectiveShadows},
		{
			name:       "ortho hybrid",
			dm:         []DMShadow{{LightID: 0, Frustum: ready(light.ShadowOrtho, true)}},
			rt:         []RTShadow{{LightID: 0, Frustum: rtReady}},
			allowOrtho: true,
			want:       OrthoHybridShadows,
		},
		{
			name:       "rt only",
			rt:         []RTShadow{{LightID: 0, Frustum: rtReady}},
			allowOrtho: true,
			want:       OrthoHybridShadows,
		},
		{
			name:       "rt with arbitrary depth map",
			dm:         []DMShadow{{LightID: 0, Frustum: ready(light.ShadowArbitrary, false)}},
			rt:         []RTShadow{{LightID: 0, Frustum: rtReady}},
			allowOrtho: true,
			want:       OrthoHybridShadows,
		},
		{
			name:       "rt with ortho not allowed",
			dm:         []DMShadow{{LightID: 0, Frustum: ready(light.ShadowOrtho, false)}},
			rt:         []RTShadow{{LightID: 0, Frustum: rtReady}},
			allowOrtho: false,
			want:       OrthoHybridShadows,
		},
		{
			name:       "rt shadow not ready",
			dm:         []DMShadow{{LightID: 0, Frustum: ready(light.ShadowOrtho, false)}},
			rt:         []RTShadow{{LightID: 0}},
			allowOrtho: true,
			want:       OrthoShadows,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParserContext(nil)
			parser.Tweakables.AllowOrthoShadowResolve = tt.allowOrtho
			parser.PreparedDMShadows = tt.dm
			parser.PreparedRTShadows = tt.rt
			assert.Equal(t, tt.want, ResolveShadowKind(parser, 0))
		})
	}
}

func TestPendingOverlaysRunOnceInOrder(t *testing.T) {
	parser := NewParserContext(nil)
	var order []int
	parser.AddPendingOverlay(func(device.Context, *ParserContext) { order = append(order, 1) })
	parser.AddPendingOverlay(func(device.Context, *ParserContext) { panic("broken overlay") })
	parser.AddPendingOverlay(func(device.Context, *ParserContext) { order = append(order, 3) })
	require.Equal(t, 3, parser.PendingOverlayCount())

	rec := device.NewRecorder(64, 64)
	parser.RunPendingOverlays(rec)
	parser.RunPendingOverlays(rec)

	assert.Equal(t, []int{1, 3}, order)
	assert.Zero(t, parser.PendingOverlayCount())
	require.Len(t, parser.Errors(), 1)
	assert.Contains(t, parser.Errors()[0], "broken overlay")
}
