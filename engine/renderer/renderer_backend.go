package renderer

import "fmt"

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

func (t RendererBackendType) String() string {
	if t == BackendTypeWGPU {
		return "wgpu"
	}
	return fmt.Sprintf("backend(%d)", int(t))
}

// PresentMode controls how the back buffer reaches the display.
type PresentMode int

const (
	// PresentModeVSync waits for vertical blank. No tearing, frame rate capped at the refresh rate.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents immediately. Lowest latency, may tear.
	PresentModeUncapped
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeVSync:
		return "vsync"
	case PresentModeUncapped:
		return "uncapped"
	}
	return fmt.Sprintf("present(%d)", int(m))
}

// MSAASampleCount is the sample count of the gbuffer, depth and lighting resolve targets. With more than one sample
// the lighting resolve reads every sample and can split edge pixels into a per-sample pass. WebGPU guarantees 1 and
// 4; 8 and 16 depend on the adapter.
type MSAASampleCount uint32

const (
	// MSAAOff renders single sampled targets. This is the default.
	MSAAOff MSAASampleCount = 1

	// MSAA4x renders 4 samples per pixel.
	MSAA4x MSAASampleCount = 4

	// MSAA8x renders 8 samples per pixel. Adapter-dependent.
	MSAA8x MSAASampleCount = 8

	// MSAA16x renders 16 samples per pixel. Adapter-dependent.
	MSAA16x MSAASampleCount = 16
)

// valid reports whether c is one of the declared sample counts.
func (c MSAASampleCount) valid() bool {
	switch c {
	case MSAAOff, MSAA4x, MSAA8x, MSAA16x:
		return true
	}
	return false
}

// RendererBackend is what the Renderer records through: a device.Context plus surface, frame and target management.
// It embeds the interface of the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
