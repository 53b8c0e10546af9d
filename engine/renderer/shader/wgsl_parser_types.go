package shader

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// VertexAttribute is one @location input consumed by a vertex entry point.
type VertexAttribute struct {
	Name     string
	Location uint32
	Format   wgpu.VertexFormat
	Size     uint64
}

// BoundUniform names the resource a stage declares at one group and binding.
type BoundUniform struct {
	Stage   device.ShaderStage
	Group   int
	Binding int
	Name    string
	Type    string
	Size    uint64
}

type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslTypeLayout is the byte size and alignment of a host-shareable WGSL type.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField is a struct member or a function parameter. location is -1 when absent.
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}

// stageReflection is everything the program needs to know about one compiled stage.
type stageReflection struct {
	entryPoints []string
	attributes  []VertexAttribute
	groups      map[int][]wgpu.BindGroupLayoutEntry
	uniforms    []BoundUniform
}
