package overlay

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/shader"
)

// ProjectionMode selects how overlay positions are transformed.
type ProjectionMode int

const (
	// P2D positions are pixels from the top left of the viewport.
	P2D ProjectionMode = iota
	// P3D positions are in world space and go through the camera transform.
	P3D
)

func (p ProjectionMode) String() string {
	if p == P3D {
		return "3D"
	}
	return "2D"
}

// shaderBoxDesc keys the overlay programs.
type shaderBoxDesc struct {
	topology    wgpu.PrimitiveTopology
	format      VertexFormat
	proj        ProjectionMode
	pixelShader string
}

// ShaderBox is the program used for one combination of topology, vertex format, projection mode and pixel shader.
type ShaderBox struct {
	Program         shader.Program
	ClassInterfaces []device.ClassInterfaceBinding
}

// DependencyValidation returns the program's validation.
func (b *ShaderBox) DependencyValidation() asset.DependencyValidation {
	return b.Program.DependencyValidation()
}

// shaderSources returns the vertex shader and default pixel shader for a topology and vertex format. Point lists
// are drawn from PCR vertices only; PCR vertices are only valid for point lists.
func shaderSources(topology wgpu.PrimitiveTopology, format VertexFormat, proj ProjectionMode) (vs, ps string, err error) {
	pick := func(vs2D, vs3D string) string {
		if proj == P2D {
			return vs2D
		}
		return vs3D
	}

	if topology == wgpu.PrimitiveTopologyPointList {
		if format != PCR {
			return "", "", fmt.Errorf("overlay: point lists need PCR vertices, got %s", format)
		}
		return pick("basic2D.wgsl:P2CR", "basic3D.wgsl:PCR"), "basic.wgsl:PC", nil
	}

	switch format {
	case PC:
		return pick("basic2D.wgsl:P2C", "basic3D.wgsl:PC"), "basic.wgsl:PC", nil
	case PCT:
		return pick("basic2D.wgsl:P2CT", "basic3D.wgsl:PCT"), "basic.wgsl:PCT", nil
	case PCCTT:
		return pick("basic2D.wgsl:P2CCTT", "basic3D.wgsl:PCCTT"), "basic.wgsl:PCT", nil
	}
	return "", "", fmt.Errorf("overlay: no shaders for %s vertices", format)
}

// buildShaderBox builds the program for desc. A pixel shader name with an interface list ("file:entry,Slot=Impl")
// yields a dynamically linked program and the bindings to link it with.
func buildShaderBox(lib shader.Library, desc shaderBoxDesc) (*ShaderBox, error) {
	vs, ps, err := shaderSources(desc.topology, desc.format, desc.proj)
	if err != nil {
		return nil, err
	}
	if desc.pixelShader != "" {
		ps = desc.pixelShader
	}

	prog, err := lib.Program(vs, ps, "")
	if err != nil {
		return nil, err
	}
	box := &ShaderBox{Program: shader.WithInputLayout(prog, desc.format.InputElements())}
	if name := shader.ParseShaderName(ps); name.DynamicLinking {
		box.ClassInterfaces = name.ClassInterfaces
	}
	return box, nil
}
