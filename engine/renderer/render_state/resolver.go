package render_state

import (
	"math"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// ResolverKind selects the rendering technique a Resolver serves.
type ResolverKind int

const (
	KindDefault ResolverKind = iota
	KindDeferred
	KindForward
	KindDepthOnly
)

func (k ResolverKind) String() string {
	switch k {
	case KindDeferred:
		return "deferred"
	case KindForward:
		return "forward"
	case KindDepthOnly:
		return "depth-only"
	default:
		return "default"
	}
}

// CompiledRenderStateSet is the concrete blend and rasterizer state produced for one RenderStateSet. It is comparable.
type CompiledRenderStateSet struct {
	Blend      device.BlendState
	Rasterizer device.RasterizerState
}

// DepthBiasParams is one set of shadow depth bias parameters used by the DepthOnly resolver.
type DepthBiasParams struct {
	DepthBias      int32
	DepthBiasClamp float32
	SlopeScale     float32
}

func (p DepthBiasParams) hash() uint64 {
	h := common.HashCombine(uint64(uint32(p.DepthBias)), uint64(math.Float32bits(p.DepthBiasClamp)))
	return common.HashCombine(h, uint64(math.Float32bits(p.SlopeScale)))
}

// resolver is the implementation of the Resolver interface for all four kinds.
type resolver struct {
	kind ResolverKind
	hash uint64

	// DepthOnly parameters, set with the builder options
	singleSided DepthBiasParams
	doubleSided DepthBiasParams
	cullMode    wgpu.CullMode

	// depthOnlyTable is indexed by wireframe<<1 | doubleSided
	depthOnlyTable [4]device.RasterizerState
}

// Resolver maps a RenderStateSet onto the concrete states of one technique.
type Resolver interface {
	// Resolve compiles the packed state. It is a pure function of its inputs.
	//
	// Parameters:
	//   - states: the packed material state
	//   - globals: the technique's global parameters
	//   - techniqueIndex: the technique index being resolved
	//
	// Returns:
	//   - CompiledRenderStateSet: the compiled state
	Resolve(states RenderStateSet, globals common.ParameterBox, techniqueIndex int) CompiledRenderStateSet

	// Hash returns the identity of this resolver for use as a cache discriminant. Resolvers of the same kind share a
	// hash, except DepthOnly whose hash also covers its bias parameters and cull mode.
	//
	// Returns:
	//   - uint64: the hash
	Hash() uint64

	// Kind returns the technique kind.
	//
	// Returns:
	//   - ResolverKind: the kind
	Kind() ResolverKind
}

var _ Resolver = &resolver{}

// NewResolver creates a Resolver for the given technique kind. The bias and cull options only affect KindDepthOnly.
//
// Parameters:
//   - kind: the technique kind
//   - opts: the builder options
//
// Returns:
//   - Resolver: the resolver
func NewResolver(kind ResolverKind, opts ...ResolverBuilderOption) Resolver {
	r := &resolver{
		kind:     kind,
		cullMode: wgpu.CullModeBack,
	}
	for _, opt := range opts {
		opt(r)
	}

	typeHash := common.Hash64("render_state." + kind.String())
	r.hash = typeHash
	if kind == KindDepthOnly {
		r.buildDepthOnlyTable()
		biasHash := common.HashCombine(r.singleSided.hash(), r.doubleSided.hash())
		r.hash = common.HashCombine(typeHash, common.HashCombine(biasHash, uint64(r.cullMode)))
	}
	return r
}

func (r *resolver) buildDepthOnlyTable() {
	for i := range r.depthOnlyTable {
		wireframe := i&2 != 0
		doubleSided := i&1 != 0

		params := r.singleSided
		cull := r.cullMode
		if doubleSided {
			params = r.doubleSided
			cull = wgpu.CullModeNone
		}
		fill := device.FillSolid
		if wireframe {
			fill = device.FillWireframe
		}
		r.depthOnlyTable[i] = device.RasterizerState{
			CullMode:             cull,
			FillMode:             fill,
			DepthBias:            params.DepthBias,
			DepthBiasClamp:       params.DepthBiasClamp,
			SlopeScaledDepthBias: params.SlopeScale,
		}
	}
}

func (r *resolver) Resolve(states RenderStateSet, globals common.ParameterBox, techniqueIndex int) CompiledRenderStateSet {
	switch r.kind {
	case KindDeferred:
		blend := device.BlendOpaque
		if states.HasFlag(FlagBlendType) && states.BlendType() == BlendDeferredDecal {
			blend = device.BlendStraightAlpha
		}
		return CompiledRenderStateSet{Blend: blend, Rasterizer: BuildDefaultRasterizer(states)}

	case KindForward:
		blend := device.BlendOpaque
		if states.HasFlag(FlagForwardBlend) && states.ForwardBlendOp() != BlendOpNoBlending {
			component := wgpu.BlendComponent{
				SrcFactor: states.ForwardBlendSrc().WGPU(),
				DstFactor: states.ForwardBlendDst().WGPU(),
				Operation: states.ForwardBlendOp().WGPU(),
			}
			blend = device.BlendState{
				Enabled:   true,
				Color:     component,
				Alpha:     component,
				WriteMask: wgpu.ColorWriteMaskAll,
			}
		}
		return CompiledRenderStateSet{Blend: blend, Rasterizer: BuildDefaultRasterizer(states)}

	case KindDepthOnly:
		index := 0
		if states.HasFlag(FlagWireframe) && states.Wireframe() {
			index |= 2
		}
		if states.HasFlag(FlagDoubleSided) && states.DoubleSided() {
			index |= 1
		}
		return CompiledRenderStateSet{Blend: device.BlendOpaque, Rasterizer: r.depthOnlyTable[index]}

	default:
		return CompiledRenderStateSet{Blend: device.BlendOpaque, Rasterizer: BuildDefaultRasterizer(states)}
	}
}

func (r *resolver) Hash() uint64 {
	return r.hash
}

func (r *resolver) Kind() ResolverKind {
	return r.kind
}

// BuildDefaultRasterizer derives a rasterizer from the flagged fields of states. Culling is Back unless double-sided
// is flagged and true, fill is Solid unless wireframe is flagged and true, and the depth bias is only applied when
// flagged.
//
// Parameters:
//   - states: the packed material state
//
// Returns:
//   - device.RasterizerState: the rasterizer state
func BuildDefaultRasterizer(states RenderStateSet) device.RasterizerState {
	rs := device.DefaultRasterizer
	if states.HasFlag(FlagDoubleSided) && states.DoubleSided() {
		rs.CullMode = wgpu.CullModeNone
	}
	if states.HasFlag(FlagWireframe) && states.Wireframe() {
		rs.FillMode = device.FillWireframe
	}
	if states.HasFlag(FlagDepthBias) {
		rs.DepthBias = states.DepthBias()
	}
	return rs
}

type resolverCacheKey struct {
	resolver  uint64
	states    RenderStateSet
	globals   uint64
	technique int
}

// ResolverCache memoises compiled states across resolvers. It is an explicit service object owned by the renderer and
// guarded by one mutex so it stays correct if submission ever moves off a single thread.
type ResolverCache struct {
	mu      *sync.Mutex
	entries map[resolverCacheKey]CompiledRenderStateSet
}

// NewResolverCache creates an empty ResolverCache.
func NewResolverCache() *ResolverCache {
	return &ResolverCache{
		mu:      &sync.Mutex{},
		entries: make(map[resolverCacheKey]CompiledRenderStateSet),
	}
}

// Resolve returns the cached compiled state for the inputs, resolving and storing it on a miss.
//
// Parameters:
//   - r: the resolver of the active technique
//   - states: the packed material state
//   - globals: the technique's global parameters
//   - techniqueIndex: the technique index
//
// Returns:
//   - CompiledRenderStateSet: the compiled state
func (c *ResolverCache) Resolve(r Resolver, states RenderStateSet, globals common.ParameterBox, techniqueIndex int) CompiledRenderStateSet {
	key := resolverCacheKey{resolver: r.Hash(), states: states, globals: globals.Hash(), technique: techniqueIndex}

	c.mu.Lock()
	defer c.mu.Unlock()
	if compiled, ok := c.entries[key]; ok {
		return compiled
	}
	compiled := r.Resolve(states, globals, techniqueIndex)
	c.entries[key] = compiled
	return compiled
}

// Len returns the number of cached entries.
func (c *ResolverCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
