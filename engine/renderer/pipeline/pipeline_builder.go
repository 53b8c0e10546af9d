package pipeline

import (
	"slices"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithBlend sets the blend state for this pipeline.
//
// Parameters:
//   - state: the blend state to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this pipeline
func WithBlend(state device.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blend = state
	}
}

// WithRasterizer sets the cull mode and depth bias for this pipeline.
//
// Parameters:
//   - state: the rasterizer state to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the rasterizer state for this pipeline
func WithRasterizer(state device.RasterizerState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.rasterizer = state
	}
}

// WithDepthStencil sets the depth-stencil state for this pipeline. It only takes effect when a depth target is
// configured with WithTargets.
//
// Parameters:
//   - state: the depth-stencil state to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth-stencil state for this pipeline
func WithDepthStencil(state device.DepthStencilState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthStencil = state
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use for this pipeline (e.g., wgpu.PrimitiveTopologyTriangleStrip for full screen quads)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the front face to use for this pipeline (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithTargets sets the colour target formats and the depth target format. Pass wgpu.TextureFormatUndefined as the
// depth format when no depth target is bound.
//
// Parameters:
//   - colour: the colour target formats, in slot order
//   - depth: the depth target format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the target formats for this pipeline
func WithTargets(colour []wgpu.TextureFormat, depth wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colourFormats = slices.Clone(colour)
		p.depthFormat = depth
		p.depthEnabled = depth != wgpu.TextureFormatUndefined
	}
}

// WithSampleCount sets the multisample count of the targets.
//
// Parameters:
//   - count: the sample count (1 for no MSAA)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the sample count for this pipeline
func WithSampleCount(count uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		if count == 0 {
			count = 1
		}
		p.sampleCount = count
	}
}
