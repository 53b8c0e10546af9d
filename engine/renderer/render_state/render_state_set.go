package render_state

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// BlendType selects the blend family a material asks for.
type BlendType uint8

const (
	BlendBasic BlendType = iota
	BlendDeferredDecal
	BlendOrdered
)

// Flag marks which fields of a RenderStateSet carry a value. Fields without their flag are ignored by resolvers.
type Flag uint8

const (
	FlagDoubleSided Flag = 1 << iota
	FlagWireframe
	FlagWriteMask
	FlagBlendType
	FlagForwardBlend
	FlagDepthBias
)

// BlendFactor is a forward blend factor stored in the packed state.
type BlendFactor uint8

const (
	FactorZero BlendFactor = iota
	FactorOne
	FactorSrcColour
	FactorInvSrcColour
	FactorSrcAlpha
	FactorInvSrcAlpha
	FactorDstAlpha
	FactorInvDstAlpha
	FactorDstColour
	FactorInvDstColour
)

// WGPU maps the factor onto its wgpu value. Unknown values map to One.
func (f BlendFactor) WGPU() wgpu.BlendFactor {
	switch f {
	case FactorZero:
		return wgpu.BlendFactorZero
	case FactorSrcColour:
		return wgpu.BlendFactorSrc
	case FactorInvSrcColour:
		return wgpu.BlendFactorOneMinusSrc
	case FactorSrcAlpha:
		return wgpu.BlendFactorSrcAlpha
	case FactorInvSrcAlpha:
		return wgpu.BlendFactorOneMinusSrcAlpha
	case FactorDstAlpha:
		return wgpu.BlendFactorDstAlpha
	case FactorInvDstAlpha:
		return wgpu.BlendFactorOneMinusDstAlpha
	case FactorDstColour:
		return wgpu.BlendFactorDst
	case FactorInvDstColour:
		return wgpu.BlendFactorOneMinusDst
	default:
		return wgpu.BlendFactorOne
	}
}

// BlendOp is a forward blend operation stored in the packed state. BlendOpNoBlending disables blending.
type BlendOp uint8

const (
	BlendOpNoBlending BlendOp = iota
	BlendOpAdd
	BlendOpSubtract
	BlendOpRevSubtract
	BlendOpMin
	BlendOpMax
)

// WGPU maps the operation onto its wgpu value. BlendOpNoBlending and unknown values map to Add.
func (o BlendOp) WGPU() wgpu.BlendOperation {
	switch o {
	case BlendOpSubtract:
		return wgpu.BlendOperationSubtract
	case BlendOpRevSubtract:
		return wgpu.BlendOperationReverseSubtract
	case BlendOpMin:
		return wgpu.BlendOperationMin
	case BlendOpMax:
		return wgpu.BlendOperationMax
	default:
		return wgpu.BlendOperationAdd
	}
}

// Bit layout of RenderStateSet, least significant first.
const (
	doubleSidedShift = 0
	wireframeShift   = 1
	writeMaskShift   = 2
	blendTypeShift   = 6
	flagShift        = 9
	forwardSrcShift  = 17
	forwardDstShift  = 25
	forwardOpShift   = 33
	depthBiasShift   = 41

	depthBiasBits = 23
	maxDepthBias  = 1<<(depthBiasBits-1) - 1
	minDepthBias  = -(1 << (depthBiasBits - 1))
)

// RenderStateSet is the per-material render state packed into 64 bits. The raw value is its own hash.
type RenderStateSet uint64

// RenderStateOption is a functional option applied by NewRenderStateSet. Every option also sets its field's flag.
type RenderStateOption func(*RenderStateSet)

// NewRenderStateSet builds a packed state. Without options the write mask is 0xf, the blend type Basic, the forward
// blend One/Zero/NoBlending and no flag is set.
//
// Parameters:
//   - opts: the state options
//
// Returns:
//   - RenderStateSet: the packed state
func NewRenderStateSet(opts ...RenderStateOption) RenderStateSet {
	s := RenderStateSet(0)
	s.set(writeMaskShift, 4, 0xf)
	s.set(forwardSrcShift, 8, uint64(FactorOne))
	s.set(forwardDstShift, 8, uint64(FactorZero))
	s.set(forwardOpShift, 8, uint64(BlendOpNoBlending))
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithDoubleSided sets the double-sided value.
func WithDoubleSided(v bool) RenderStateOption {
	return func(s *RenderStateSet) {
		s.set(doubleSidedShift, 1, boolBit(v))
		s.setFlag(FlagDoubleSided)
	}
}

// WithWireframe sets the wireframe value.
func WithWireframe(v bool) RenderStateOption {
	return func(s *RenderStateSet) {
		s.set(wireframeShift, 1, boolBit(v))
		s.setFlag(FlagWireframe)
	}
}

// WithWriteMask sets the 4-bit colour write mask.
func WithWriteMask(mask uint8) RenderStateOption {
	return func(s *RenderStateSet) {
		s.set(writeMaskShift, 4, uint64(mask&0xf))
		s.setFlag(FlagWriteMask)
	}
}

// WithBlendType sets the blend type.
func WithBlendType(t BlendType) RenderStateOption {
	return func(s *RenderStateSet) {
		s.set(blendTypeShift, 3, uint64(t&0x7))
		s.setFlag(FlagBlendType)
	}
}

// WithForwardBlend sets the forward blend source factor, destination factor and operation.
func WithForwardBlend(src, dst BlendFactor, op BlendOp) RenderStateOption {
	return func(s *RenderStateSet) {
		s.set(forwardSrcShift, 8, uint64(src))
		s.set(forwardDstShift, 8, uint64(dst))
		s.set(forwardOpShift, 8, uint64(op))
		s.setFlag(FlagForwardBlend)
	}
}

// WithDepthBias sets the depth bias. Values outside the 23-bit signed range are clamped.
func WithDepthBias(bias int32) RenderStateOption {
	return func(s *RenderStateSet) {
		bias = max(min(bias, maxDepthBias), minDepthBias)
		s.set(depthBiasShift, depthBiasBits, uint64(uint32(bias)))
		s.setFlag(FlagDepthBias)
	}
}

func boolBit(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func (s *RenderStateSet) set(shift, bits uint, value uint64) {
	mask := uint64(1)<<bits - 1
	*s = RenderStateSet(uint64(*s)&^(mask<<shift) | (value&mask)<<shift)
}

func (s RenderStateSet) get(shift, bits uint) uint64 {
	return uint64(s) >> shift & (uint64(1)<<bits - 1)
}

func (s *RenderStateSet) setFlag(f Flag) {
	s.set(flagShift, 8, s.get(flagShift, 8)|uint64(f))
}

func (s RenderStateSet) DoubleSided() bool { return s.get(doubleSidedShift, 1) == 1 }
func (s RenderStateSet) Wireframe() bool { return s.get(wireframeShift, 1) == 1 }
func (s RenderStateSet) WriteMask() uint8 { return uint8(s.get(writeMaskShift, 4)) }
func (s RenderStateSet) BlendType() BlendType { return BlendType(s.get(blendTypeShift, 3)) }
func (s RenderStateSet) Flags() Flag { return Flag(s.get(flagShift, 8)) }
func (s RenderStateSet) HasFlag(f Flag) bool { return s.Flags()&f == f }
func (s RenderStateSet) ForwardBlendSrc() BlendFactor { return BlendFactor(s.get(forwardSrcShift, 8)) }
func (s RenderStateSet) ForwardBlendDst() BlendFactor { return BlendFactor(s.get(forwardDstShift, 8)) }
func (s RenderStateSet) ForwardBlendOp() BlendOp { return BlendOp(s.get(forwardOpShift, 8)) }

// DepthBias returns the sign-extended depth bias.
func (s RenderStateSet) DepthBias() int32 {
	raw := int32(s.get(depthBiasShift, depthBiasBits))
	return raw << (32 - depthBiasBits) >> (32 - depthBiasBits)
}

// Hash returns the packed value, which is already unique per state.
func (s RenderStateSet) Hash() uint64 {
	return uint64(s)
}

func (s RenderStateSet) String() string {
	return fmt.Sprintf("RenderStateSet{flags:%06b double:%t wire:%t mask:%x blend:%d fwd:%d/%d/%d bias:%d}",
		s.Flags(), s.DoubleSided(), s.Wireframe(), s.WriteMask(), s.BlendType(),
		s.ForwardBlendSrc(), s.ForwardBlendDst(), s.ForwardBlendOp(), s.DepthBias())
}
