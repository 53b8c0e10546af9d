package render_state

import (
	"testing"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

func TestRenderStateSetIsEightBytes(t *testing.T) {
	assert.Equal(t, uintptr(8), unsafe.Sizeof(RenderStateSet(0)))
}

func TestRenderStateSetDefaults(t *testing.T) {
	s := NewRenderStateSet()

	assert.Equal(t, Flag(0), s.Flags())
	assert.Equal(t, uint8(0xf), s.WriteMask())
	assert.Equal(t, BlendBasic, s.BlendType())
	assert.Equal(t, FactorOne, s.ForwardBlendSrc())
	assert.Equal(t, FactorZero, s.ForwardBlendDst())
	assert.Equal(t, BlendOpNoBlending, s.ForwardBlendOp())
	assert.Zero(t, s.DepthBias())
}

func TestRenderStateSetRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		opts  []RenderStateOption
		check func(t *testing.T, s RenderStateSet)
	}{
		{
			name: "double sided",
			opts: []RenderStateOption{WithDoubleSided(true)},
			check: func(t *testing.T, s RenderStateSet) {
				assert.True(t, s.DoubleSided())
				assert.True(t, s.HasFlag(FlagDoubleSided))
				assert.False(t, s.HasFlag(FlagWireframe))
			},
		},
		{
			name: "wireframe and write mask",
			opts: []RenderStateOption{WithWireframe(true), WithWriteMask(0x5)},
			check: func(t *testing.T, s RenderStateSet) {
				assert.True(t, s.Wireframe())
				assert.Equal(t, uint8(0x5), s.WriteMask())
				assert.Equal(t, FlagWireframe|FlagWriteMask, s.Flags())
			},
		},
		{
			name: "forward blend",
			opts: []RenderStateOption{WithForwardBlend(FactorSrcAlpha, FactorInvSrcAlpha, BlendOpRevSubtract)},
			check: func(t *testing.T, s RenderStateSet) {
				assert.Equal(t, FactorSrcAlpha, s.ForwardBlendSrc())
				assert.Equal(t, FactorInvSrcAlpha, s.ForwardBlendDst())
				assert.Equal(t, BlendOpRevSubtract, s.ForwardBlendOp())
			},
		},
		{
			name: "negative depth bias",
			opts: []RenderStateOption{WithDepthBias(-1234), WithBlendType(BlendOrdered)},
			check: func(t *testing.T, s RenderStateSet) {
				assert.Equal(t, int32(-1234), s.DepthBias())
				assert.Equal(t, BlendOrdered, s.BlendType())
				assert.True(t, s.HasFlag(FlagDepthBias|FlagBlendType))
			},
		},
		{
			name: "depth bias clamps to 23 bits",
			opts: []RenderStateOption{WithDepthBias(1 << 30)},
			check: func(t *testing.T, s RenderStateSet) {
				assert.Equal(t, int32(maxDepthBias), s.DepthBias())
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, NewRenderStateSet(tc.opts...))
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	globals := common.NewParameterBox("SKIN=1")
	states := []RenderStateSet{
		NewRenderStateSet(),
		NewRenderStateSet(WithDoubleSided(true), WithDepthBias(-7)),
		NewRenderStateSet(WithBlendType(BlendDeferredDecal)),
		NewRenderStateSet(WithForwardBlend(FactorOne, FactorOne, BlendOpAdd), WithWireframe(true)),
		RenderStateSet(0xffffffffffffffff),
	}
	for _, kind := range []ResolverKind{KindDefault, KindDeferred, KindForward, KindDepthOnly} {
		a := NewResolver(kind, WithSingleSidedBias(DepthBiasParams{DepthBias: 10}))
		b := NewResolver(kind, WithSingleSidedBias(DepthBiasParams{DepthBias: 10}))
		for _, s := range states {
			assert.Equal(t, a.Resolve(s, globals, 0), b.Resolve(s, globals, 0), "%s %s", kind, s)
			assert.Equal(t, a.Resolve(s, globals, 0), a.Resolve(s, globals, 0), "%s %s", kind, s)
		}
	}
}

func TestDefaultResolverDoubleSidedFalseKeepsBackCulling(t *testing.T) {
	r := NewResolver(KindDefault)
	compiled := r.Resolve(NewRenderStateSet(WithDoubleSided(false)), common.ParameterBox{}, 0)

	assert.Equal(t, wgpu.CullModeBack, compiled.Rasterizer.CullMode)
	assert.Equal(t, device.FillSolid, compiled.Rasterizer.FillMode)
	assert.Equal(t, device.BlendOpaque, compiled.Blend)
}

func TestBuildDefaultRasterizerIgnoresUnflaggedFields(t *testing.T) {
	// set the value bits without their flags
	raw := NewRenderStateSet()
	raw.set(doubleSidedShift, 1, 1)
	raw.set(wireframeShift, 1, 1)
	raw.set(depthBiasShift, depthBiasBits, 55)

	rs := BuildDefaultRasterizer(raw)
	assert.Equal(t, wgpu.CullModeBack, rs.CullMode)
	assert.Equal(t, device.FillSolid, rs.FillMode)
	assert.Zero(t, rs.DepthBias)

	rs = BuildDefaultRasterizer(NewRenderStateSet(WithDoubleSided(true), WithWireframe(true), WithDepthBias(55)))
	assert.Equal(t, wgpu.CullModeNone, rs.CullMode)
	assert.Equal(t, device.FillWireframe, rs.FillMode)
	assert.Equal(t, int32(55), rs.DepthBias)
}

func TestDeferredResolverDecalBlend(t *testing.T) {
	r := NewResolver(KindDeferred)

	decal := r.Resolve(NewRenderStateSet(WithBlendType(BlendDeferredDecal)), common.ParameterBox{}, 0)
	assert.Equal(t, device.BlendStraightAlpha, decal.Blend)

	ordered := r.Resolve(NewRenderStateSet(WithBlendType(BlendOrdered)), common.ParameterBox{}, 0)
	assert.Equal(t, device.BlendOpaque, ordered.Blend)
}

func TestForwardResolverBlend(t *testing.T) {
	r := NewResolver(KindForward)

	additive := r.Resolve(NewRenderStateSet(WithForwardBlend(FactorOne, FactorOne, BlendOpAdd)), common.ParameterBox{}, 0)
	require.True(t, additive.Blend.Enabled)
	assert.Equal(t, wgpu.BlendOperationAdd, additive.Blend.Color.Operation)
	assert.Equal(t, wgpu.BlendFactorOne, additive.Blend.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOne, additive.Blend.Color.DstFactor)

	// the embedded fields are ignored without the flag
	unflagged := NewRenderStateSet()
	unflagged.set(forwardSrcShift, 8, uint64(FactorOne))
	unflagged.set(forwardDstShift, 8, uint64(FactorOne))
	unflagged.set(forwardOpShift, 8, uint64(BlendOpAdd))
	assert.Equal(t, device.BlendOpaque, r.Resolve(unflagged, common.ParameterBox{}, 0).Blend)

	noBlend := r.Resolve(NewRenderStateSet(WithForwardBlend(FactorOne, FactorOne, BlendOpNoBlending)), common.ParameterBox{}, 0)
	assert.Equal(t, device.BlendOpaque, noBlend.Blend)
}

func TestDepthOnlyTable(t *testing.T) {
	single := DepthBiasParams{DepthBias: 100, DepthBiasClamp: 0.5, SlopeScale: 2}
	double := DepthBiasParams{DepthBias: 200, DepthBiasClamp: 0.25, SlopeScale: 4}
	r := NewResolver(KindDepthOnly,
		WithSingleSidedBias(single),
		WithDoubleSidedBias(double),
		WithCullMode(wgpu.CullModeFront),
	)

	for _, wire := range []bool{false, true} {
		for _, ds := range []bool{false, true} {
			compiled := r.Resolve(NewRenderStateSet(WithWireframe(wire), WithDoubleSided(ds)), common.ParameterBox{}, 0)
			rs := compiled.Rasterizer

			if ds {
				assert.Equal(t, wgpu.CullModeNone, rs.CullMode)
				assert.Equal(t, double.DepthBias, rs.DepthBias)
				assert.Equal(t, double.SlopeScale, rs.SlopeScaledDepthBias)
			} else {
				assert.Equal(t, wgpu.CullModeFront, rs.CullMode)
				assert.Equal(t, single.DepthBias, rs.DepthBias)
				assert.Equal(t, single.DepthBiasClamp, rs.DepthBiasClamp)
			}
			if wire {
				assert.Equal(t, device.FillWireframe, rs.FillMode)
			} else {
				assert.Equal(t, device.FillSolid, rs.FillMode)
			}
		}
	}
}

func TestResolverHash(t *testing.T) {
	assert.Equal(t, NewResolver(KindForward).Hash(), NewResolver(KindForward).Hash())
	assert.NotEqual(t, NewResolver(KindForward).Hash(), NewResolver(KindDeferred).Hash())

	a := NewResolver(KindDepthOnly, WithSingleSidedBias(DepthBiasParams{DepthBias: 1}))
	b := NewResolver(KindDepthOnly, WithSingleSidedBias(DepthBiasParams{DepthBias: 2}))
	c := NewResolver(KindDepthOnly, WithSingleSidedBias(DepthBiasParams{DepthBias: 1}), WithCullMode(wgpu.CullModeFront))
	assert.NotEqual(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Equal(t, a.Hash(), NewResolver(KindDepthOnly, WithSingleSidedBias(DepthBiasParams{DepthBias: 1})).Hash())
}

func TestResolverCache(t *testing.T) {
	cache := NewResolverCache()
	forward := NewResolver(KindForward)
	deferred := NewResolver(KindDeferred)
	s := NewRenderStateSet(WithForwardBlend(FactorOne, FactorOne, BlendOpAdd))

	first := cache.Resolve(forward, s, common.ParameterBox{}, 0)
	assert.Equal(t, first, cache.Resolve(forward, s, common.ParameterBox{}, 0))
	assert.Equal(t, 1, cache.Len())

	cache.Resolve(deferred, s, common.ParameterBox{}, 0)
	cache.Resolve(forward, s, common.NewParameterBox("A=1"), 0)
	cache.Resolve(forward, s, common.ParameterBox{}, 1)
	assert.Equal(t, 4, cache.Len())
}
