package lighting_parser

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// Pass is the stage of the lighting resolve a ResolveContext is in.
type Pass int

const (
	PassPrepare Pass = iota
	PassPerPixel
	PassPerSample
)

func (p Pass) String() string {
	switch p {
	case PassPrepare:
		return "prepare"
	case PassPerPixel:
		return "per-pixel"
	case PassPerSample:
		return "per-sample"
	default:
		return fmt.Sprintf("pass(%d)", int(p))
	}
}

// ResolveCallback is a plugin contribution to the resolve, run once per pass after the ambient and sky draws.
// Callbacks must only capture values they own; the resolve context they were queued on is gone after the frame.
type ResolveCallback func(ctx device.Context, parser *ParserContext, resolveCtx *ResolveContext, pass Pass)

// ResolveContext is the per-frame state of the lighting resolve. It starts in the prepare pass, where plugins queue
// callbacks and supply optional inputs, and is moved through the passes by the lighting parser.
type ResolveContext struct {
	samplingCount   uint32
	useMsaaSamplers bool
	gbufferType     int
	pass            Pass
	queued          []ResolveCallback

	// AmbientOcclusion is an optional screen space occlusion result sampled by the light and ambient resolves.
	AmbientOcclusion *device.TextureView
	// TiledLighting is an optional tiled light accumulation added in the ambient resolve.
	TiledLighting *device.TextureView
	// ScreenSpaceReflections is an optional reflection lookup read against a copy of the lighting target.
	ScreenSpaceReflections *device.TextureView
}

// NewResolveContext creates a resolve context for the given main targets. The sampling count is taken from the
// targets; the gbuffer type is 1 when the third gbuffer target exists and 2 otherwise.
//
// Parameters:
//   - targets: the main targets being resolved
//
// Returns:
//   - *ResolveContext: the context, in the prepare pass
func NewResolveContext(targets *MainTargets) *ResolveContext {
	samples := max(targets.SamplingCount(), 1)
	gbufferType := 2
	if targets.GBuffer[2] != nil {
		gbufferType = 1
	}
	return &ResolveContext{
		samplingCount:   samples,
		useMsaaSamplers: samples > 1,
		gbufferType:     gbufferType,
		pass:            PassPrepare,
	}
}

// SamplingCount returns the MSAA sample count of the main targets.
func (r *ResolveContext) SamplingCount() uint32 {
	return r.samplingCount
}

// UseMsaaSamplers reports whether resolve shaders read the gbuffer through multisampled bindings.
func (r *ResolveContext) UseMsaaSamplers() bool {
	return r.useMsaaSamplers
}

// GBufferType returns 1 for the three target gbuffer layout and 2 for the two target layout.
func (r *ResolveContext) GBufferType() int {
	return r.gbufferType
}

// CurrentPass returns the active pass.
func (r *ResolveContext) CurrentPass() Pass {
	return r.pass
}

// SetPass moves the context to pass.
//
// Parameters:
//   - pass: the new pass
func (r *ResolveContext) SetPass(pass Pass) {
	r.pass = pass
}

// AppendResolve queues a callback for every following pass. Only valid during the prepare pass; a call in any other
// pass is a contract violation and the callback is dropped.
//
// Parameters:
//   - fn: the callback
func (r *ResolveContext) AppendResolve(fn ResolveCallback) {
	if r.pass != PassPrepare {
		contractViolation("AppendResolve called during the %s pass", r.pass)
		return
	}
	r.queued = append(r.queued, fn)
}

// Resolves returns the queued callbacks in the order they were appended.
//
// Returns:
//   - []ResolveCallback: a copy of the queue
func (r *ResolveContext) Resolves() []ResolveCallback {
	return slices.Clone(r.queued)
}

// Snapshot returns a copy of the context that stays valid after the frame. Pending overlays hold snapshots, never
// the live context.
//
// Returns:
//   - ResolveContext: the copy
func (r *ResolveContext) Snapshot() ResolveContext {
	snap := *r
	snap.queued = slices.Clone(r.queued)
	return snap
}
