package pipeline

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// pipeline is the implementation of the Pipeline interface.
// It captures every piece of bound device state that wgpu bakes into a render pipeline object.
type pipeline struct {
	// pipelineKey is derived from the program key and every state field, used for caching and lookups
	pipelineKey string

	program device.Program

	// renderPipeline is the created GPU object, nil until SetRenderPipeline is called
	renderPipeline *wgpu.RenderPipeline

	// The following properties are toggled/set with the builder options.

	blend         device.BlendState
	rasterizer    device.RasterizerState
	depthStencil  device.DepthStencilState
	depthEnabled  bool
	topology      wgpu.PrimitiveTopology
	frontFace     wgpu.FrontFace
	colourFormats []wgpu.TextureFormat
	depthFormat   wgpu.TextureFormat
	sampleCount   uint32
}

// Pipeline describes one baked render pipeline: a program plus the blend, rasterizer, depth-stencil, topology and
// target formats it was created with. Two pipelines with equal keys are interchangeable.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Program returns the program this pipeline runs.
	//
	// Returns:
	//   - device.Program: the program
	Program() device.Program

	// Blend returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - device.BlendState: the blend state
	Blend() device.BlendState

	// Rasterizer returns the rasterizer state configured for this pipeline.
	//
	// Returns:
	//   - device.RasterizerState: the rasterizer state
	Rasterizer() device.RasterizerState

	// DepthStencil returns the depth-stencil state configured for this pipeline.
	//
	// Returns:
	//   - device.DepthStencilState: the depth-stencil state
	DepthStencil() device.DepthStencilState

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology for this pipeline (e.g., wgpu.PrimitiveTopologyTriangleStrip)
	Topology() wgpu.PrimitiveTopology

	// SampleCount returns the multisample count of the targets this pipeline renders into.
	//
	// Returns:
	//   - uint32: the sample count
	SampleCount() uint32

	// Descriptor translates the pipeline state into a wgpu render pipeline descriptor.
	//
	// Parameters:
	//   - vs: the compiled vertex shader module
	//   - fs: the compiled fragment shader module
	//   - layout: the pipeline layout
	//
	// Returns:
	//   - *wgpu.RenderPipelineDescriptor: the descriptor ready for CreateRenderPipeline
	Descriptor(vs, fs *wgpu.ShaderModule, layout *wgpu.PipelineLayout) *wgpu.RenderPipelineDescriptor

	// RenderPipeline returns the created GPU pipeline, or nil if it has not been created yet.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the GPU pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// SetRenderPipeline sets the render pipeline
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline interface. The key is derived after the options are applied.
//
// Parameters:
//   - program: the program the pipeline runs
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(program device.Program, opts ...PipelineBuilderOption) Pipeline {
	if program == nil {
		panic("pipeline: NewPipeline requires a program")
	}
	p := &pipeline{
		program:       program,
		blend:         device.BlendOpaque,
		rasterizer:    device.DefaultRasterizer,
		depthStencil:  device.DSSDisable,
		topology:      wgpu.PrimitiveTopologyTriangleStrip,
		frontFace:     wgpu.FrontFaceCCW,
		colourFormats: []wgpu.TextureFormat{wgpu.TextureFormatRGBA16Float},
		depthFormat:   wgpu.TextureFormatDepth24PlusStencil8,
		sampleCount:   1,
	}
	for _, opt := range opts {
		opt(p)
	}

	state := fmt.Sprintf("%v|%v|%v|%t|%d|%d|%v|%d|%d",
		p.blend, p.rasterizer, p.depthStencil, p.depthEnabled, p.topology, p.frontFace, p.colourFormats, p.depthFormat, p.sampleCount)
	p.pipelineKey = fmt.Sprintf("%s#%016x", program.Key(), common.Hash64(state))
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Program() device.Program {
	return p.program
}

func (p *pipeline) Blend() device.BlendState {
	return p.blend
}

func (p *pipeline) Rasterizer() device.RasterizerState {
	return p.rasterizer
}

func (p *pipeline) DepthStencil() device.DepthStencilState {
	return p.depthStencil
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) Descriptor(vs, fs *wgpu.ShaderModule, layout *wgpu.PipelineLayout) *wgpu.RenderPipelineDescriptor {
	targets := make([]wgpu.ColorTargetState, 0, len(p.colourFormats))
	for _, format := range p.colourFormats {
		targets = append(targets, wgpu.ColorTargetState{
			Format:    format,
			WriteMask: p.blend.WriteMask,
			Blend:     p.blend.WGPU(),
		})
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.pipelineKey + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: p.program.EntryPoint(device.StageVertex),
			Buffers:    p.program.VertexLayouts(),
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			// wgpu core has no polygon fill mode, wireframe rasterizer states draw solid
			CullMode: p.rasterizer.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: p.sampleCount,
			Mask:  0xFFFFFFFF,
		},
	}
	if len(targets) > 0 {
		desc.Fragment = &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: p.program.EntryPoint(device.StagePixel),
			Targets:    targets,
		}
	}
	if p.depthEnabled {
		desc.DepthStencil = p.depthStencilState()
	}
	return desc
}

func (p *pipeline) depthStencilState() *wgpu.DepthStencilState {
	ds := p.depthStencil
	compare := ds.DepthCompare
	if !ds.DepthTest {
		compare = wgpu.CompareFunctionAlways
	}
	state := &wgpu.DepthStencilState{
		Format:              p.depthFormat,
		DepthWriteEnabled:   ds.DepthWrite,
		DepthCompare:        compare,
		DepthBias:           p.rasterizer.DepthBias,
		DepthBiasSlopeScale: p.rasterizer.SlopeScaledDepthBias,
		DepthBiasClamp:      p.rasterizer.DepthBiasClamp,
		StencilFront:        stencilFace(device.StencilTestOnly(wgpu.CompareFunctionAlways)),
		StencilBack:         stencilFace(device.StencilTestOnly(wgpu.CompareFunctionAlways)),
	}
	if ds.StencilEnable {
		state.StencilReadMask = ds.StencilReadMask
		state.StencilWriteMask = ds.StencilWriteMask
		state.StencilFront = stencilFace(ds.Front)
		state.StencilBack = stencilFace(ds.Back)
	}
	return state
}

func stencilFace(f device.StencilFace) wgpu.StencilFaceState {
	return wgpu.StencilFaceState{
		Compare:     f.Compare,
		FailOp:      f.FailOp,
		DepthFailOp: f.DepthFailOp,
		PassOp:      f.PassOp,
	}
}
