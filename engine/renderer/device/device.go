// Package device is the thin graphics-device boundary used by the lighting core. The resolve code talks to a Context
// the same way it would talk to an immediate-mode device: bind states and slots, then draw. Two implementations exist:
// a Recorder used by tests and tools, and a wgpu-backed context that bakes bound state into cached render pipelines.
package device

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
)

// ShaderStage selects the stage a resource, sampler or constant slot is bound to.
type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StagePixel
)

func (s ShaderStage) String() string {
	if s == StageVertex {
		return "vs"
	}
	return "ps"
}

// WGPU maps the stage to its wgpu visibility flag.
func (s ShaderStage) WGPU() wgpu.ShaderStage {
	if s == StageVertex {
		return wgpu.ShaderStageVertex
	}
	return wgpu.ShaderStageFragment
}

// TextureView is a bindable texture, render target or depth buffer. A nil *TextureView is an empty slot.
type TextureView struct {
	Label       string
	Width       uint32
	Height      uint32
	Format      wgpu.TextureFormat
	SampleCount uint32
	Texture     *wgpu.Texture
	View        *wgpu.TextureView
}

// IsGood reports whether the view refers to a resource.
func (v *TextureView) IsGood() bool {
	return v != nil
}

// Sampler is a bindable sampler object.
type Sampler struct {
	Label  string
	Desc   common.SamplerStagingData
	Handle *wgpu.Sampler
}

// ClassInterfaceBinding binds an interface slot declared by a shader to an implementation name.
type ClassInterfaceBinding struct {
	Slot           string
	Implementation string
}

// Program is a linked vertex + pixel shader pair ready to bind.
type Program interface {
	// Key returns a string uniquely identifying the program variant (sources, entry points, defines, interfaces).
	//
	// Returns:
	//   - string: the program key
	Key() string

	// Source returns the processed WGSL for the given stage.
	//
	// Parameters:
	//   - stage: the shader stage
	//
	// Returns:
	//   - string: the WGSL source
	Source(stage ShaderStage) string

	// EntryPoint returns the entry point name for the given stage.
	//
	// Parameters:
	//   - stage: the shader stage
	//
	// Returns:
	//   - string: the entry point
	EntryPoint(stage ShaderStage) string

	// VertexLayouts returns the vertex buffer layouts consumed by the vertex stage. Empty for vertex generator shaders.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the layouts
	VertexLayouts() []wgpu.VertexBufferLayout

	// BindGroupLayouts returns the reflected bind group layouts keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: the layouts
	BindGroupLayouts() map[int]wgpu.BindGroupLayoutDescriptor

	// DependencyValidation returns the validation that changes whenever any source file of this program changes.
	//
	// Returns:
	//   - asset.DependencyValidation: the validation
	DependencyValidation() asset.DependencyValidation
}

// Linkable is implemented by programs whose class interface slots are bound at draw time. WGSL has no dynamic linking,
// so a device links by specialising the program source for the given bindings.
type Linkable interface {
	// Link returns the program specialised for the given class interface bindings.
	//
	// Parameters:
	//   - bindings: the interface bindings
	//
	// Returns:
	//   - Program: the linked program
	//   - error: an error if a binding names an unknown slot
	Link(bindings []ClassInterfaceBinding) (Program, error)
}

// Bind group indices used to map slot-style bindings onto WGSL @group/@binding declarations.
const (
	GroupConstants = 0
	GroupResources = 1
	GroupSamplers  = 2
)

// Context is the immediate-style command interface the lighting core renders through.
type Context interface {
	// BindBlend sets the blend state for subsequent draws.
	//
	// Parameters:
	//   - state: the blend state
	BindBlend(state BlendState)

	// BindRasterizer sets the rasterizer state for subsequent draws.
	//
	// Parameters:
	//   - state: the rasterizer state
	BindRasterizer(state RasterizerState)

	// BindDepthStencil sets the depth-stencil state and stencil reference for subsequent draws.
	//
	// Parameters:
	//   - state: the depth-stencil state
	//   - stencilRef: the stencil reference value
	BindDepthStencil(state DepthStencilState, stencilRef uint32)

	// BindRenderTargets sets the colour targets and optional depth target. An empty colour list renders depth only.
	//
	// Parameters:
	//   - colour: the colour targets
	//   - depth: the depth target, or nil
	BindRenderTargets(colour []*TextureView, depth *TextureView)

	// BindResources binds texture views to consecutive slots starting at start. Nil entries clear their slot.
	//
	// Parameters:
	//   - stage: the shader stage
	//   - start: the first slot
	//   - views: the views to bind
	BindResources(stage ShaderStage, start int, views ...*TextureView)

	// UnbindResources clears count resource slots starting at start.
	//
	// Parameters:
	//   - stage: the shader stage
	//   - start: the first slot
	//   - count: the number of slots
	UnbindResources(stage ShaderStage, start, count int)

	// BindSamplers binds samplers to consecutive slots starting at start.
	//
	// Parameters:
	//   - stage: the shader stage
	//   - start: the first slot
	//   - samplers: the samplers to bind
	BindSamplers(stage ShaderStage, start int, samplers ...*Sampler)

	// BindConstants binds a constant buffer to slot. The data is copied.
	//
	// Parameters:
	//   - stage: the shader stage
	//   - slot: the constant buffer slot
	//   - data: the constant data, nil clears the slot
	BindConstants(stage ShaderStage, slot int, data []byte)

	// BindProgram sets the program for subsequent draws, with optional class interface bindings for dynamic linking.
	//
	// Parameters:
	//   - program: the program
	//   - classInterfaces: the interface bindings, nil for statically linked programs
	BindProgram(program Program, classInterfaces []ClassInterfaceBinding)

	// BindTopology sets the primitive topology for subsequent draws.
	//
	// Parameters:
	//   - topology: the topology
	BindTopology(topology wgpu.PrimitiveTopology)

	// BindVertexData sets the vertex data for subsequent draws. Nil data selects vertex generator mode.
	//
	// Parameters:
	//   - data: the vertex bytes
	//   - stride: the vertex stride in bytes
	BindVertexData(data []byte, stride uint32)

	// Draw issues a non-indexed draw with the currently bound state.
	//
	// Parameters:
	//   - vertexCount: the number of vertices
	//   - startVertex: the first vertex
	Draw(vertexCount, startVertex uint32)

	// ClearColour clears a colour target.
	//
	// Parameters:
	//   - target: the target to clear
	//   - rgba: the clear colour
	ClearColour(target *TextureView, rgba [4]float32)

	// ClearStencil clears the stencil plane of a depth target.
	//
	// Parameters:
	//   - depth: the depth target
	//   - value: the stencil clear value
	ClearStencil(depth *TextureView, value uint32)

	// Copy copies the full contents of src into dst.
	//
	// Parameters:
	//   - dst: the destination
	//   - src: the source
	Copy(dst, src *TextureView)

	// Viewport returns the active viewport.
	//
	// Returns:
	//   - Viewport: the viewport
	Viewport() Viewport

	// BeginAnnotation opens a named debug group.
	//
	// Parameters:
	//   - label: the group name
	BeginAnnotation(label string)

	// EndAnnotation closes the most recent debug group.
	EndAnnotation()

	// CreateTexture creates a sampled RGBA texture from staging data.
	//
	// Parameters:
	//   - label: the debug label
	//   - data: the pixel data
	//
	// Returns:
	//   - *TextureView: the texture view
	//   - error: an error if creation failed
	CreateTexture(label string, data common.TextureStagingData) (*TextureView, error)

	// CreateSampler creates a sampler.
	//
	// Parameters:
	//   - label: the debug label
	//   - desc: the sampler description
	//
	// Returns:
	//   - *Sampler: the sampler
	//   - error: an error if creation failed
	CreateSampler(label string, desc common.SamplerStagingData) (*Sampler, error)
}
