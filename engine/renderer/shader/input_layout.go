package shader

import (
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// AppendAligned places an element directly after the previous one.
const AppendAligned = ^uint64(0)

// InputElement is one member of a vertex format. Name is matched against the vertex shader's input names.
type InputElement struct {
	Name   string
	Format wgpu.VertexFormat
	Offset uint64
}

var vertexFormatSizes = map[wgpu.VertexFormat]uint64{
	wgpu.VertexFormatUnorm8x4:  4,
	wgpu.VertexFormatFloat32:   4,
	wgpu.VertexFormatFloat32x2: 8,
	wgpu.VertexFormatFloat32x3: 12,
	wgpu.VertexFormatFloat32x4: 16,
	wgpu.VertexFormatUint32:    4,
	wgpu.VertexFormatUint32x2:  8,
	wgpu.VertexFormatUint32x4:  16,
	wgpu.VertexFormatSint32:    4,
	wgpu.VertexFormatSint32x2:  8,
	wgpu.VertexFormatSint32x4:  16,
}

// VertexStride returns the stride of a vertex format: the furthest end of any of its elements.
//
// Parameters:
//   - elements: the vertex format
//
// Returns:
//   - uint64: the stride in bytes
func VertexStride(elements []InputElement) uint64 {
	var stride, end uint64
	for _, e := range elements {
		start := elementStart(e, end)
		end = start + vertexFormatSizes[e.Format]
		stride = max(stride, end)
	}
	return stride
}

// BindInputLayout binds a vertex format to the inputs of a program's vertex stage by name. Elements the program
// does not consume are logged and left out; the binding stays valid without them.
//
// Parameters:
//   - elements: the vertex format
//   - prog: the program whose vertex inputs are bound
//
// Returns:
//   - wgpu.VertexBufferLayout: the layout for a single interleaved vertex buffer
func BindInputLayout(elements []InputElement, prog Program) wgpu.VertexBufferLayout {
	layout := wgpu.VertexBufferLayout{
		ArrayStride: VertexStride(elements),
		StepMode:    wgpu.VertexStepModeVertex,
	}

	attrs := prog.Attributes()
	var end uint64
	for _, e := range elements {
		start := elementStart(e, end)
		end = start + vertexFormatSizes[e.Format]

		loc, ok := attributeLocation(attrs, e.Name)
		if !ok {
			common.Logger().Warn("vertex attribute not found in program, ignoring", "attribute", e.Name, "program", prog.Key())
			continue
		}
		layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
			Format:         e.Format,
			Offset:         start,
			ShaderLocation: loc,
		})
	}
	return layout
}

func elementStart(e InputElement, previousEnd uint64) uint64 {
	if e.Offset == AppendAligned {
		return previousEnd
	}
	return e.Offset
}

func attributeLocation(attrs []VertexAttribute, name string) (uint32, bool) {
	for _, a := range attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Location, true
		}
	}
	return 0, false
}

// layoutProgram is a program whose vertex stage is fed from an explicit vertex format.
type layoutProgram struct {
	Program
	elements []InputElement
	layouts  []wgpu.VertexBufferLayout
	key      string
}

// WithInputLayout returns prog fed from the given vertex format instead of its tightly packed reflected layout.
// Linking the result keeps the same vertex format.
//
// Parameters:
//   - prog: the program
//   - elements: the vertex format
//
// Returns:
//   - Program: the program with the bound input layout
func WithInputLayout(prog Program, elements []InputElement) Program {
	layout := BindInputLayout(elements, prog)
	var sb strings.Builder
	sb.WriteString(prog.Key())
	sb.WriteString("|layout")
	for _, a := range layout.Attributes {
		fmt.Fprintf(&sb, ":%d@%d=%d", a.ShaderLocation, a.Offset, a.Format)
	}
	return &layoutProgram{
		Program:  prog,
		elements: elements,
		layouts:  []wgpu.VertexBufferLayout{layout},
		key:      sb.String(),
	}
}

func (p *layoutProgram) Key() string {
	return p.key
}

func (p *layoutProgram) VertexLayouts() []wgpu.VertexBufferLayout {
	return p.layouts
}

func (p *layoutProgram) Link(bindings []device.ClassInterfaceBinding) (device.Program, error) {
	linked, err := p.Linked(bindings)
	if err != nil {
		return nil, err
	}
	return linked, nil
}

func (p *layoutProgram) Linked(bindings []device.ClassInterfaceBinding) (Program, error) {
	if len(bindings) == 0 {
		return p, nil
	}
	linked, err := p.Program.Linked(bindings)
	if err != nil {
		return nil, err
	}
	return WithInputLayout(linked, p.elements), nil
}
