package render_state

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ResolverBuilderOption is a functional option used to configure a Resolver during construction.
type ResolverBuilderOption func(*resolver)

// WithSingleSidedBias sets the depth bias used for single-sided geometry in depth-only rendering.
//
// Parameters:
//   - params: the bias parameters
//
// Returns:
//   - ResolverBuilderOption: a function that sets the single-sided bias
func WithSingleSidedBias(params DepthBiasParams) ResolverBuilderOption {
	return func(r *resolver) {
		r.singleSided = params
	}
}

// WithDoubleSidedBias sets the depth bias used for double-sided geometry in depth-only rendering.
//
// Parameters:
//   - params: the bias parameters
//
// Returns:
//   - ResolverBuilderOption: a function that sets the double-sided bias
func WithDoubleSidedBias(params DepthBiasParams) ResolverBuilderOption {
	return func(r *resolver) {
		r.doubleSided = params
	}
}

// WithCullMode sets the cull mode used for single-sided geometry in depth-only rendering. Defaults to back-face culling.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - ResolverBuilderOption: a function that sets the cull mode
func WithCullMode(mode wgpu.CullMode) ResolverBuilderOption {
	return func(r *resolver) {
		r.cullMode = mode
	}
}
