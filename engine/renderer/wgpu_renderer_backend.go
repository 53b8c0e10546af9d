package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/pipeline"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	width, height uint32

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)

	// Frame state. The encoder lives from BeginFrame to EndFrame, render passes are opened lazily
	// and restarted whenever the bound targets change.
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *device.TextureView
	pass         *wgpu.RenderPassEncoder
	passColour   []*device.TextureView
	passDepth    *device.TextureView

	state boundState

	pipelines map[string]pipeline.Pipeline
	programs  map[string]*programObjects
	linked    map[string]device.Program

	// fallbacks fill unbound float texture and filtering sampler slots
	fallbackView    *device.TextureView
	fallbackSampler *device.Sampler

	// transient per-draw objects released after the frame is submitted
	transientBuffers    []*wgpu.Buffer
	transientBindGroups []*wgpu.BindGroup
}

// programObjects holds the GPU objects created once per program key.
type programObjects struct {
	vs, fs       *wgpu.ShaderModule
	groupLayouts map[int]*wgpu.BindGroupLayout
	descriptors  map[int]wgpu.BindGroupLayoutDescriptor
	layout       *wgpu.PipelineLayout
}

type boundState struct {
	program         device.Program
	classInterfaces []device.ClassInterfaceBinding
	blend           device.BlendState
	rasterizer      device.RasterizerState
	depthStencil    device.DepthStencilState
	stencilRef      uint32
	colour          []*device.TextureView
	depth           *device.TextureView
	resources       [2]map[int]*device.TextureView
	samplers        [2]map[int]*device.Sampler
	constants       [2]map[int][]byte
	topology        wgpu.PrimitiveTopology
	vertexData      []byte
	annotations     []string
}

func newBoundState() boundState {
	s := boundState{
		blend:        device.BlendOpaque,
		rasterizer:   device.DefaultRasterizer,
		depthStencil: device.DSSReadWrite,
		topology:     wgpu.PrimitiveTopologyTriangleStrip,
	}
	for i := range 2 {
		s.resources[i] = make(map[int]*device.TextureView)
		s.samplers[i] = make(map[int]*device.Sampler)
		s.constants[i] = make(map[int][]byte)
	}
	return s
}

type wgpuRendererBackend interface {
	device.Context

	// ConfigureSurface configures the WebGPU surface for rendering at the given dimensions.
	// Must be called before BeginFrame and again whenever the window is resized.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode. Takes effect on the next ConfigureSurface call.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// BeginFrame acquires the next surface texture and opens the frame command encoder.
	//
	// Returns:
	//   - *device.TextureView: the back buffer for this frame
	//   - error: an error if the surface texture could not be acquired
	BeginFrame() (*device.TextureView, error)

	// EndFrame closes any open render pass, submits the frame and releases transient objects.
	EndFrame()

	// Present presents the acquired surface texture.
	Present()

	// CreateRenderTarget creates a texture usable as render target, shader resource and copy source/destination.
	//
	// Parameters:
	//   - label: the debug label
	//   - width: the width in pixels
	//   - height: the height in pixels
	//   - format: the texture format
	//   - samples: the sample count
	//
	// Returns:
	//   - *device.TextureView: the target
	//   - error: an error if creation failed
	CreateRenderTarget(label string, width, height uint32, format wgpu.TextureFormat, samples uint32) (*device.TextureView, error)

	// Device returns the underlying WebGPU device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Queue returns the underlying WebGPU queue.
	//
	// Returns:
	//   - *wgpu.Queue: the queue
	Queue() *wgpu.Queue
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		state:       newBoundState(),
		pipelines:   make(map[string]pipeline.Pipeline),
		programs:    make(map[string]*programObjects),
		linked:      make(map[string]device.Program),
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	// constants, resources and samplers each get a group; leave room for technique groups
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 4
	limits.MaxSampledTexturesPerShaderStage = 32

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Resolve Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]
	b.width, b.height = uint32(width), uint32(height)

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       b.width,
		Height:      b.height,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) BeginFrame() (*device.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// a surface texture still held from the last frame would trip "Surface image is already acquired"
	if b.frameSurface != nil {
		return nil, fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return nil, err
	}

	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = &device.TextureView{
		Label:       "Back Buffer",
		Width:       b.width,
		Height:      b.height,
		Format:      b.surfaceFormat,
		SampleCount: 1,
		Texture:     surfaceTexture,
		View:        view,
	}
	b.state = newBoundState()
	return b.frameView, nil
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return
	}
	b.endPass()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		common.Logger().Error("frame encoder finish failed", "err", err)
	} else {
		b.queue.Submit(commandBuffer)
		commandBuffer.Release()
	}
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.releaseTransients()
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.View.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) CreateRenderTarget(label string, width, height uint32, format wgpu.TextureFormat, samples uint32) (*device.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samples = max(samples, 1)
	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	if samples == 1 {
		usage |= wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   samples,
	})
	if err != nil {
		return nil, fmt.Errorf("create render target %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create render target view %q: %w", label, err)
	}
	return &device.TextureView{
		Label:       label,
		Width:       width,
		Height:      height,
		Format:      format,
		SampleCount: samples,
		Texture:     tex,
		View:        view,
	}, nil
}

func (b *wgpuRendererBackendImpl) CreateTexture(label string, data common.TextureStagingData) (*device.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createTexture(label, data)
}

func (b *wgpuRendererBackendImpl) createTexture(label string, data common.TextureStagingData) (*device.TextureView, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &device.TextureView{
		Label:       label,
		Width:       data.Width,
		Height:      data.Height,
		Format:      wgpu.TextureFormatRGBA8Unorm,
		SampleCount: 1,
		Texture:     tex,
		View:        view,
	}, nil
}

func (b *wgpuRendererBackendImpl) CreateSampler(label string, desc common.SamplerStagingData) (*device.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createSampler(label, desc)
}

func (b *wgpuRendererBackendImpl) createSampler(label string, desc common.SamplerStagingData) (*device.Sampler, error) {
	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  common.Coalesce(desc.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(desc.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(desc.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(desc.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(desc.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(desc.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(desc.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(desc.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(desc.MaxAnisotropy, 1),
		Compare:       desc.Compare,
	})
	if err != nil {
		return nil, err
	}
	return &device.Sampler{Label: label, Desc: desc, Handle: samp}, nil
}

func (b *wgpuRendererBackendImpl) BindBlend(state device.BlendState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.blend = state
}

func (b *wgpuRendererBackendImpl) BindRasterizer(state device.RasterizerState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if state.FillMode == device.FillWireframe && b.state.rasterizer.FillMode != device.FillWireframe {
		common.Logger().Debug("wireframe fill is not supported by wgpu, drawing solid")
	}
	b.state.rasterizer = state
}

func (b *wgpuRendererBackendImpl) BindDepthStencil(state device.DepthStencilState, stencilRef uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.depthStencil = state
	b.state.stencilRef = stencilRef
}

func (b *wgpuRendererBackendImpl) BindRenderTargets(colour []*device.TextureView, depth *device.TextureView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.colour = slices.Clone(colour)
	b.state.depth = depth
}

func (b *wgpuRendererBackendImpl) BindResources(stage device.ShaderStage, start int, views ...*device.TextureView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, v := range views {
		if v == nil {
			delete(b.state.resources[stage], start+i)
		} else {
			b.state.resources[stage][start+i] = v
		}
	}
}

func (b *wgpuRendererBackendImpl) UnbindResources(stage device.ShaderStage, start, count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := start; i < start+count; i++ {
		delete(b.state.resources[stage], i)
	}
}

func (b *wgpuRendererBackendImpl) BindSamplers(stage device.ShaderStage, start int, samplers ...*device.Sampler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range samplers {
		if s == nil {
			delete(b.state.samplers[stage], start+i)
		} else {
			b.state.samplers[stage][start+i] = s
		}
	}
}

func (b *wgpuRendererBackendImpl) BindConstants(stage device.ShaderStage, slot int, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if data == nil {
		delete(b.state.constants[stage], slot)
		return
	}
	b.state.constants[stage][slot] = slices.Clone(data)
}

func (b *wgpuRendererBackendImpl) BindProgram(program device.Program, classInterfaces []device.ClassInterfaceBinding) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.program = program
	b.state.classInterfaces = slices.Clone(classInterfaces)
}

func (b *wgpuRendererBackendImpl) BindTopology(topology wgpu.PrimitiveTopology) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.topology = topology
}

func (b *wgpuRendererBackendImpl) BindVertexData(data []byte, stride uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.vertexData = slices.Clone(data)
}

func (b *wgpuRendererBackendImpl) Viewport() device.Viewport {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.state.colour) > 0 && b.state.colour[0] != nil {
		return device.Viewport{Width: float32(b.state.colour[0].Width), Height: float32(b.state.colour[0].Height)}
	}
	return device.Viewport{Width: float32(b.width), Height: float32(b.height)}
}

func (b *wgpuRendererBackendImpl) BeginAnnotation(label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.annotations = append(b.state.annotations, label)
	common.Logger().Debug("begin annotation", "label", label)
}

func (b *wgpuRendererBackendImpl) EndAnnotation() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := len(b.state.annotations); n > 0 {
		b.state.annotations = b.state.annotations[:n-1]
	}
}

func (b *wgpuRendererBackendImpl) ClearColour(target *device.TextureView, rgba [4]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !target.IsGood() || b.ensureEncoder() != nil {
		return
	}
	b.endPass()
	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Clear " + target.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    target.View,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(rgba[0]), G: float64(rgba[1]), B: float64(rgba[2]), A: float64(rgba[3]),
				},
			},
		},
	})
	pass.End()
	pass.Release()
}

func (b *wgpuRendererBackendImpl) ClearStencil(depth *device.TextureView, value uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !depth.IsGood() || !hasStencil(depth.Format) || b.ensureEncoder() != nil {
		return
	}
	b.endPass()
	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Clear Stencil " + depth.Label,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:              depth.View,
			DepthLoadOp:       wgpu.LoadOpLoad,
			DepthStoreOp:      wgpu.StoreOpStore,
			StencilLoadOp:     wgpu.LoadOpClear,
			StencilStoreOp:    wgpu.StoreOpStore,
			StencilClearValue: value,
		},
	})
	pass.End()
	pass.Release()
}

func (b *wgpuRendererBackendImpl) Copy(dst, src *device.TextureView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !dst.IsGood() || !src.IsGood() || b.ensureEncoder() != nil {
		return
	}
	b.endPass()
	b.frameEncoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: src.Texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: dst.Texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{
			Width:              min(dst.Width, src.Width),
			Height:             min(dst.Height, src.Height),
			DepthOrArrayLayers: 1,
		},
	)
}

func (b *wgpuRendererBackendImpl) Draw(vertexCount, startVertex uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state.program == nil {
		common.Logger().Warn("draw skipped, no program bound")
		return
	}
	if err := b.ensureEncoder(); err != nil {
		common.Logger().Error("draw skipped", "err", err)
		return
	}

	program, err := b.linkedProgram()
	if err != nil {
		common.Logger().Warn("draw skipped, class interface link failed", "program", b.state.program.Key(), "err", err)
		return
	}
	p, objects, err := b.renderPipeline(program)
	if err != nil {
		common.Logger().Warn("draw skipped, pipeline creation failed", "program", program.Key(), "err", err)
		return
	}

	groups, err := b.bindGroups(program, objects)
	if err != nil {
		common.Logger().Warn("draw skipped", "program", program.Key(), "err", err)
		return
	}

	b.ensurePass()
	b.pass.SetPipeline(p.RenderPipeline())
	b.pass.SetStencilReference(b.state.stencilRef)
	for g, bg := range groups {
		b.pass.SetBindGroup(uint32(g), bg, nil)
	}
	if len(b.state.vertexData) > 0 {
		buf, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    "Immediate Vertex Buffer",
			Contents: b.state.vertexData,
			Usage:    wgpu.BufferUsageVertex,
		})
		if err != nil {
			common.Logger().Warn("draw skipped, vertex upload failed", "err", err)
			return
		}
		b.transientBuffers = append(b.transientBuffers, buf)
		b.pass.SetVertexBuffer(0, buf, 0, wgpu.WholeSize)
	}
	b.pass.Draw(vertexCount, 1, startVertex, 0)
}

func (b *wgpuRendererBackendImpl) ensureEncoder() error {
	if b.frameEncoder != nil {
		return nil
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	b.frameEncoder = encoder
	return nil
}

// ensurePass opens a render pass over the bound targets, restarting it if the targets changed since it was opened.
func (b *wgpuRendererBackendImpl) ensurePass() {
	if b.pass != nil && slices.Equal(b.passColour, b.state.colour) && b.passDepth == b.state.depth {
		return
	}
	b.endPass()

	desc := &wgpu.RenderPassDescriptor{}
	if n := len(b.state.annotations); n > 0 {
		desc.Label = b.state.annotations[n-1]
	}
	for _, target := range b.state.colour {
		if !target.IsGood() {
			continue
		}
		desc.ColorAttachments = append(desc.ColorAttachments, wgpu.RenderPassColorAttachment{
			View:    target.View,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		})
	}
	if depth := b.state.depth; depth.IsGood() {
		attachment := &wgpu.RenderPassDepthStencilAttachment{
			View:         depth.View,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
		if hasStencil(depth.Format) {
			attachment.StencilLoadOp = wgpu.LoadOpLoad
			attachment.StencilStoreOp = wgpu.StoreOpStore
		}
		desc.DepthStencilAttachment = attachment
	}

	b.pass = b.frameEncoder.BeginRenderPass(desc)
	b.passColour = slices.Clone(b.state.colour)
	b.passDepth = b.state.depth
}

func (b *wgpuRendererBackendImpl) endPass() {
	if b.pass == nil {
		return
	}
	b.pass.End()
	b.pass.Release()
	b.pass = nil
	b.passColour = nil
	b.passDepth = nil
}

func (b *wgpuRendererBackendImpl) releaseTransients() {
	for _, bg := range b.transientBindGroups {
		bg.Release()
	}
	for _, buf := range b.transientBuffers {
		buf.Release()
	}
	b.transientBindGroups = b.transientBindGroups[:0]
	b.transientBuffers = b.transientBuffers[:0]
}

func (b *wgpuRendererBackendImpl) linkedProgram() (device.Program, error) {
	program := b.state.program
	linkable, ok := program.(device.Linkable)
	if !ok || len(b.state.classInterfaces) == 0 {
		return program, nil
	}
	key := program.Key()
	for _, ci := range b.state.classInterfaces {
		key += "|" + ci.Slot + "=" + ci.Implementation
	}
	if linked, ok := b.linked[key]; ok {
		return linked, nil
	}
	linked, err := linkable.Link(b.state.classInterfaces)
	if err != nil {
		return nil, err
	}
	b.linked[key] = linked
	return linked, nil
}

// renderPipeline bakes the bound state into a pipeline, creating the GPU objects on first use.
func (b *wgpuRendererBackendImpl) renderPipeline(program device.Program) (pipeline.Pipeline, *programObjects, error) {
	objects, err := b.programObjects(program)
	if err != nil {
		return nil, nil, err
	}

	colourFormats := make([]wgpu.TextureFormat, 0, len(b.state.colour))
	samples := uint32(1)
	for _, target := range b.state.colour {
		if target.IsGood() {
			colourFormats = append(colourFormats, target.Format)
			samples = max(samples, target.SampleCount)
		}
	}
	depthFormat := wgpu.TextureFormatUndefined
	if b.state.depth.IsGood() {
		depthFormat = b.state.depth.Format
		samples = max(samples, b.state.depth.SampleCount)
	}

	p := pipeline.NewPipeline(program,
		pipeline.WithBlend(b.state.blend),
		pipeline.WithRasterizer(b.state.rasterizer),
		pipeline.WithDepthStencil(b.state.depthStencil),
		pipeline.WithTopology(b.state.topology),
		pipeline.WithTargets(colourFormats, depthFormat),
		pipeline.WithSampleCount(samples),
	)
	if cached, ok := b.pipelines[p.PipelineKey()]; ok {
		return cached, objects, nil
	}

	created, err := b.device.CreateRenderPipeline(p.Descriptor(objects.vs, objects.fs, objects.layout))
	if err != nil {
		return nil, nil, err
	}
	p.SetRenderPipeline(created)
	b.pipelines[p.PipelineKey()] = p
	common.Logger().Info("render pipeline created", "key", p.PipelineKey())
	return p, objects, nil
}

func (b *wgpuRendererBackendImpl) programObjects(program device.Program) (*programObjects, error) {
	if objects, ok := b.programs[program.Key()]; ok {
		return objects, nil
	}

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: program.Key() + " vs",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: program.Source(device.StageVertex),
		},
	})
	if err != nil {
		return nil, err
	}
	fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: program.Key() + " ps",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: program.Source(device.StagePixel),
		},
	})
	if err != nil {
		return nil, err
	}

	descriptors := program.BindGroupLayouts()
	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	objects := &programObjects{
		vs:           vs,
		fs:           fs,
		groupLayouts: make(map[int]*wgpu.BindGroupLayout),
		descriptors:  descriptors,
	}
	layouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		// gaps in the group indices still need a layout
		desc := descriptors[g]
		layout, layoutErr := b.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		layouts[g] = layout
		objects.groupLayouts[g] = layout
	}

	objects.layout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            program.Key(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, err
	}
	b.programs[program.Key()] = objects
	return objects, nil
}

// bindGroups builds one bind group per reflected group from the slot state. Group 0 binds constants, group 1
// resources and group 2 samplers. Pixel-stage slots shadow vertex-stage slots with the same index.
func (b *wgpuRendererBackendImpl) bindGroups(program device.Program, objects *programObjects) ([]*wgpu.BindGroup, error) {
	groups := make([]*wgpu.BindGroup, len(objects.groupLayouts))
	indices := make([]int, 0, len(objects.groupLayouts))
	for g := range objects.groupLayouts {
		indices = append(indices, g)
	}
	sort.Ints(indices)

	for _, g := range indices {
		desc := objects.descriptors[g]
		entries := make([]wgpu.BindGroupEntry, 0, len(desc.Entries))
		for _, entry := range desc.Entries {
			slot := int(entry.Binding)
			isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined
			isSampler := entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined

			switch {
			case isTexture:
				view := lookup(b.state.resources, slot)
				if view == nil {
					if entry.Texture.SampleType != wgpu.TextureSampleTypeFloat || entry.Texture.Multisampled {
						return nil, fmt.Errorf("resource slot %d is unbound", slot)
					}
					fallback, err := b.fallbackTexture()
					if err != nil {
						return nil, err
					}
					view = fallback
				}
				entries = append(entries, wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: view.View})
			case isSampler:
				samp := lookup(b.state.samplers, slot)
				if samp == nil {
					if entry.Sampler.Type == wgpu.SamplerBindingTypeComparison {
						return nil, fmt.Errorf("comparison sampler slot %d is unbound", slot)
					}
					fallback, err := b.defaultSampler()
					if err != nil {
						return nil, err
					}
					samp = fallback
				}
				entries = append(entries, wgpu.BindGroupEntry{Binding: entry.Binding, Sampler: samp.Handle})
			default:
				data := lookup(b.state.constants, slot)
				size := max(uint64(len(data)), entry.Buffer.MinBindingSize, 16)
				contents := make([]byte, (size+15)&^15)
				copy(contents, data)
				buf, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
					Label:    fmt.Sprintf("%s cb%d", program.Key(), slot),
					Contents: contents,
					Usage:    wgpu.BufferUsageUniform,
				})
				if err != nil {
					return nil, err
				}
				b.transientBuffers = append(b.transientBuffers, buf)
				entries = append(entries, wgpu.BindGroupEntry{
					Binding: entry.Binding,
					Buffer:  buf,
					Offset:  0,
					Size:    wgpu.WholeSize,
				})
			}
		}

		bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s Bind Group %d", program.Key(), g),
			Layout:  objects.groupLayouts[g],
			Entries: entries,
		})
		if err != nil {
			return nil, err
		}
		b.transientBindGroups = append(b.transientBindGroups, bindGroup)
		groups[g] = bindGroup
	}
	return groups, nil
}

func (b *wgpuRendererBackendImpl) fallbackTexture() (*device.TextureView, error) {
	if b.fallbackView != nil {
		return b.fallbackView, nil
	}
	view, err := b.createTexture("Fallback", common.TextureStagingData{Width: 1, Height: 1, Pixels: []byte{0, 0, 0, 0}})
	if err != nil {
		return nil, err
	}
	b.fallbackView = view
	return view, nil
}

func (b *wgpuRendererBackendImpl) defaultSampler() (*device.Sampler, error) {
	if b.fallbackSampler != nil {
		return b.fallbackSampler, nil
	}
	samp, err := b.createSampler("Fallback", common.SamplerStagingData{})
	if err != nil {
		return nil, err
	}
	b.fallbackSampler = samp
	return samp, nil
}

// lookup returns the pixel-stage binding for slot, falling back to the vertex stage.
func lookup[T any](slots [2]map[int]T, slot int) T {
	if v, ok := slots[device.StagePixel][slot]; ok {
		return v
	}
	return slots[device.StageVertex][slot]
}

func hasStencil(format wgpu.TextureFormat) bool {
	return format == wgpu.TextureFormatDepth24PlusStencil8 || format == wgpu.TextureFormatDepth32FloatStencil8 ||
		format == wgpu.TextureFormatStencil8
}

var errNoSurface = errors.New("renderer: surface descriptor is required")
