package device

import (
	"maps"
	"slices"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/common"
)

// CommandKind identifies a recorded Context call.
type CommandKind int

const (
	CmdBlend CommandKind = iota
	CmdRasterizer
	CmdDepthStencil
	CmdRenderTargets
	CmdResources
	CmdUnbindResources
	CmdSamplers
	CmdConstants
	CmdProgram
	CmdTopology
	CmdVertexData
	CmdDraw
	CmdClearColour
	CmdClearStencil
	CmdCopy
	CmdBeginAnnotation
	CmdEndAnnotation
)

// Command is one recorded Context call. Only the fields relevant to Kind are set.
type Command struct {
	Kind            CommandKind
	Stage           ShaderStage
	Slot            int
	Count           int
	Views           []*TextureView
	Depth           *TextureView
	Samplers        []*Sampler
	Data            []byte
	Blend           BlendState
	Rasterizer      RasterizerState
	DepthStencil    DepthStencilState
	StencilRef      uint32
	Program         Program
	ClassInterfaces []ClassInterfaceBinding
	Topology        wgpu.PrimitiveTopology
	VertexCount     uint32
	StartVertex     uint32
	Colour          [4]float32
	Label           string
}

// DrawCall is the full bound state captured when Draw was called.
type DrawCall struct {
	Program         Program
	ClassInterfaces []ClassInterfaceBinding
	Blend           BlendState
	Rasterizer      RasterizerState
	DepthStencil    DepthStencilState
	StencilRef      uint32
	Targets         []*TextureView
	Depth           *TextureView
	Resources       map[int]*TextureView
	Samplers        map[int]*Sampler
	Constants       map[int][]byte
	Topology        wgpu.PrimitiveTopology
	VertexData      []byte
	VertexCount     uint32
	StartVertex     uint32
	Annotations     []string
}

type boundState struct {
	program         Program
	classInterfaces []ClassInterfaceBinding
	blend           BlendState
	rasterizer      RasterizerState
	depthStencil    DepthStencilState
	stencilRef      uint32
	targets         []*TextureView
	depth           *TextureView
	resources       map[int]*TextureView
	samplers        map[int]*Sampler
	constants       map[int][]byte
	topology        wgpu.PrimitiveTopology
	vertexData      []byte
	annotations     []string
}

func newBoundState() boundState {
	return boundState{
		blend:        BlendOpaque,
		rasterizer:   DefaultRasterizer,
		depthStencil: DSSReadWrite,
		resources:    make(map[int]*TextureView),
		samplers:     make(map[int]*Sampler),
		constants:    make(map[int][]byte),
		topology:     wgpu.PrimitiveTopologyTriangleStrip,
	}
}

// Recorder is an in-memory Context that records every call and the bound state at each draw.
// Only pixel-stage slots are tracked in DrawCall snapshots; vertex-stage binds are still recorded as commands.
type Recorder struct {
	mu       *sync.Mutex
	viewport Viewport
	commands []Command
	draws    []DrawCall
	state    boundState
}

var _ Context = &Recorder{}

// NewRecorder creates a Recorder reporting the given viewport size.
//
// Parameters:
//   - width: the viewport width in pixels
//   - height: the viewport height in pixels
//
// Returns:
//   - *Recorder: the new recorder
func NewRecorder(width, height float32) *Recorder {
	return &Recorder{
		mu:       &sync.Mutex{},
		viewport: Viewport{Width: width, Height: height},
		state:    newBoundState(),
	}
}

// Commands returns a copy of every recorded command in order.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.commands)
}

// Draws returns a copy of every recorded draw call in order.
func (r *Recorder) Draws() []DrawCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.draws)
}

// CommandsOfKind returns the recorded commands of one kind in order.
func (r *Recorder) CommandsOfKind(kind CommandKind) []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Command
	for _, c := range r.commands {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Reset drops all recorded commands and restores the default bound state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
	r.draws = nil
	r.state = newBoundState()
}

// SetViewport changes the viewport reported by Viewport.
func (r *Recorder) SetViewport(v Viewport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewport = v
}

func (r *Recorder) record(c Command) {
	r.commands = append(r.commands, c)
}

func (r *Recorder) BindBlend(state BlendState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.blend = state
	r.record(Command{Kind: CmdBlend, Blend: state})
}

func (r *Recorder) BindRasterizer(state RasterizerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.rasterizer = state
	r.record(Command{Kind: CmdRasterizer, Rasterizer: state})
}

func (r *Recorder) BindDepthStencil(state DepthStencilState, stencilRef uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.depthStencil = state
	r.state.stencilRef = stencilRef
	r.record(Command{Kind: CmdDepthStencil, DepthStencil: state, StencilRef: stencilRef})
}

func (r *Recorder) BindRenderTargets(colour []*TextureView, depth *TextureView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.targets = slices.Clone(colour)
	r.state.depth = depth
	r.record(Command{Kind: CmdRenderTargets, Views: slices.Clone(colour), Depth: depth})
}

func (r *Recorder) BindResources(stage ShaderStage, start int, views ...*TextureView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stage == StagePixel {
		for i, v := range views {
			if v == nil {
				delete(r.state.resources, start+i)
			} else {
				r.state.resources[start+i] = v
			}
		}
	}
	r.record(Command{Kind: CmdResources, Stage: stage, Slot: start, Count: len(views), Views: slices.Clone(views)})
}

func (r *Recorder) UnbindResources(stage ShaderStage, start, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stage == StagePixel {
		for i := start; i < start+count; i++ {
			delete(r.state.resources, i)
		}
	}
	r.record(Command{Kind: CmdUnbindResources, Stage: stage, Slot: start, Count: count})
}

func (r *Recorder) BindSamplers(stage ShaderStage, start int, samplers ...*Sampler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stage == StagePixel {
		for i, s := range samplers {
			if s == nil {
				delete(r.state.samplers, start+i)
			} else {
				r.state.samplers[start+i] = s
			}
		}
	}
	r.record(Command{Kind: CmdSamplers, Stage: stage, Slot: start, Count: len(samplers), Samplers: slices.Clone(samplers)})
}

func (r *Recorder) BindConstants(stage ShaderStage, slot int, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data = slices.Clone(data)
	if stage == StagePixel {
		if data == nil {
			delete(r.state.constants, slot)
		} else {
			r.state.constants[slot] = data
		}
	}
	r.record(Command{Kind: CmdConstants, Stage: stage, Slot: slot, Data: data})
}

func (r *Recorder) BindProgram(program Program, classInterfaces []ClassInterfaceBinding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.program = program
	r.state.classInterfaces = slices.Clone(classInterfaces)
	r.record(Command{Kind: CmdProgram, Program: program, ClassInterfaces: slices.Clone(classInterfaces)})
}

func (r *Recorder) BindTopology(topology wgpu.PrimitiveTopology) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.topology = topology
	r.record(Command{Kind: CmdTopology, Topology: topology})
}

func (r *Recorder) BindVertexData(data []byte, stride uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.vertexData = slices.Clone(data)
	r.record(Command{Kind: CmdVertexData, Data: slices.Clone(data), Count: int(stride)})
}

func (r *Recorder) Draw(vertexCount, startVertex uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Command{Kind: CmdDraw, Program: r.state.program, VertexCount: vertexCount, StartVertex: startVertex})
	r.draws = append(r.draws, DrawCall{
		Program:         r.state.program,
		ClassInterfaces: r.state.classInterfaces,
		Blend:           r.state.blend,
		Rasterizer:      r.state.rasterizer,
		DepthStencil:    r.state.depthStencil,
		StencilRef:      r.state.stencilRef,
		Targets:         slices.Clone(r.state.targets),
		Depth:           r.state.depth,
		Resources:       maps.Clone(r.state.resources),
		Samplers:        maps.Clone(r.state.samplers),
		Constants:       maps.Clone(r.state.constants),
		Topology:        r.state.topology,
		VertexData:      r.state.vertexData,
		VertexCount:     vertexCount,
		StartVertex:     startVertex,
		Annotations:     slices.Clone(r.state.annotations),
	})
}

func (r *Recorder) ClearColour(target *TextureView, rgba [4]float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Command{Kind: CmdClearColour, Views: []*TextureView{target}, Colour: rgba})
}

func (r *Recorder) ClearStencil(depth *TextureView, value uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Command{Kind: CmdClearStencil, Depth: depth, StencilRef: value})
}

func (r *Recorder) Copy(dst, src *TextureView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Command{Kind: CmdCopy, Views: []*TextureView{dst, src}})
}

func (r *Recorder) Viewport() Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewport
}

func (r *Recorder) BeginAnnotation(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.annotations = append(r.state.annotations, label)
	r.record(Command{Kind: CmdBeginAnnotation, Label: label})
}

func (r *Recorder) EndAnnotation() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.state.annotations); n > 0 {
		r.state.annotations = r.state.annotations[:n-1]
	}
	r.record(Command{Kind: CmdEndAnnotation})
}

func (r *Recorder) CreateTexture(label string, data common.TextureStagingData) (*TextureView, error) {
	return &TextureView{
		Label:       label,
		Width:       data.Width,
		Height:      data.Height,
		Format:      wgpu.TextureFormatRGBA8Unorm,
		SampleCount: 1,
	}, nil
}

func (r *Recorder) CreateSampler(label string, desc common.SamplerStagingData) (*Sampler, error) {
	return &Sampler{Label: label, Desc: desc}, nil
}
