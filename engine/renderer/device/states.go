package device

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// FillMode selects how triangles are rasterized.
type FillMode int

const (
	FillSolid FillMode = iota
	FillWireframe
)

// BlendState is the output merger blend configuration for the first colour target.
// When Enabled is false the colour and alpha components are ignored and writes replace the target.
type BlendState struct {
	Enabled   bool
	Color     wgpu.BlendComponent
	Alpha     wgpu.BlendComponent
	WriteMask wgpu.ColorWriteMask
}

// WGPU returns the blend state in the form expected by wgpu.ColorTargetState, or nil when blending is disabled.
func (b BlendState) WGPU() *wgpu.BlendState {
	if !b.Enabled {
		return nil
	}
	return &wgpu.BlendState{Color: b.Color, Alpha: b.Alpha}
}

// RasterizerState holds cull, fill and depth bias settings.
type RasterizerState struct {
	CullMode             wgpu.CullMode
	FillMode             FillMode
	DepthBias            int32
	DepthBiasClamp       float32
	SlopeScaledDepthBias float32
}

// StencilFace is the stencil test for one facing.
type StencilFace struct {
	Compare     wgpu.CompareFunction
	FailOp      wgpu.StencilOperation
	DepthFailOp wgpu.StencilOperation
	PassOp      wgpu.StencilOperation
}

// DepthStencilState holds the depth and stencil tests. The stencil reference is supplied at bind time.
type DepthStencilState struct {
	DepthTest        bool
	DepthWrite       bool
	DepthCompare     wgpu.CompareFunction
	StencilEnable    bool
	StencilReadMask  uint32
	StencilWriteMask uint32
	Front            StencilFace
	Back             StencilFace
}

// Viewport is the active viewport rectangle in pixels.
type Viewport struct {
	TopLeftX, TopLeftY float32
	Width, Height      float32
}

func blendComponent(src, dst wgpu.BlendFactor, op wgpu.BlendOperation) wgpu.BlendComponent {
	return wgpu.BlendComponent{SrcFactor: src, DstFactor: dst, Operation: op}
}

var stencilKeepAlways = StencilFace{
	Compare:     wgpu.CompareFunctionAlways,
	FailOp:      wgpu.StencilOperationKeep,
	DepthFailOp: wgpu.StencilOperationKeep,
	PassOp:      wgpu.StencilOperationKeep,
}

// Common states shared by every technique.
var (
	BlendOpaque = BlendState{WriteMask: wgpu.ColorWriteMaskAll}

	BlendStraightAlpha = BlendState{
		Enabled:   true,
		Color:     blendComponent(wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha, wgpu.BlendOperationAdd),
		Alpha:     blendComponent(wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha, wgpu.BlendOperationAdd),
		WriteMask: wgpu.ColorWriteMaskAll,
	}

	// BlendOneSrcAlpha accumulates light: dst = src + dst * srcAlpha.
	BlendOneSrcAlpha = BlendState{
		Enabled:   true,
		Color:     blendComponent(wgpu.BlendFactorOne, wgpu.BlendFactorSrcAlpha, wgpu.BlendOperationAdd),
		Alpha:     blendComponent(wgpu.BlendFactorZero, wgpu.BlendFactorOne, wgpu.BlendOperationAdd),
		WriteMask: wgpu.ColorWriteMaskAll,
	}

	BlendAdditive = BlendState{
		Enabled:   true,
		Color:     blendComponent(wgpu.BlendFactorOne, wgpu.BlendFactorOne, wgpu.BlendOperationAdd),
		Alpha:     blendComponent(wgpu.BlendFactorOne, wgpu.BlendFactorOne, wgpu.BlendOperationAdd),
		WriteMask: wgpu.ColorWriteMaskAll,
	}

	DSSDisable = DepthStencilState{
		DepthCompare: wgpu.CompareFunctionAlways,
		Front:        stencilKeepAlways,
		Back:         stencilKeepAlways,
	}

	DSSReadOnly = DepthStencilState{
		DepthTest:    true,
		DepthCompare: wgpu.CompareFunctionLessEqual,
		Front:        stencilKeepAlways,
		Back:         stencilKeepAlways,
	}

	DSSReadWrite = DepthStencilState{
		DepthTest:    true,
		DepthWrite:   true,
		DepthCompare: wgpu.CompareFunctionLess,
		Front:        stencilKeepAlways,
		Back:         stencilKeepAlways,
	}

	CullDisable = RasterizerState{CullMode: wgpu.CullModeNone, FillMode: FillSolid}

	DefaultRasterizer = RasterizerState{CullMode: wgpu.CullModeBack, FillMode: FillSolid}
)

// StencilAlwaysWrite is a stencil face that always passes and writes the reference value.
var StencilAlwaysWrite = StencilFace{
	Compare:     wgpu.CompareFunctionAlways,
	FailOp:      wgpu.StencilOperationReplace,
	DepthFailOp: wgpu.StencilOperationReplace,
	PassOp:      wgpu.StencilOperationReplace,
}

// StencilTestOnly returns a stencil face that compares with fn and never writes.
//
// Parameters:
//   - fn: the comparison against the reference value
//
// Returns:
//   - StencilFace: the stencil face
func StencilTestOnly(fn wgpu.CompareFunction) StencilFace {
	return StencilFace{
		Compare:     fn,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      wgpu.StencilOperationKeep,
	}
}
