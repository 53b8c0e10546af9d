package shader

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
	"github.com/Carmen-Shannon/oxy-resolve/engine/light"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

const testVertexSource = `
struct VSIn {
    @location(1) colour: vec4<f32>,
    @location(0) position: vec2<f32>,
};

struct VSOut {
    @builtin(position) position: vec4<f32>,
    @location(0) colour: vec4<f32>,
};

@vertex
fn P2C(in: VSIn) -> VSOut {
    var out: VSOut;
    out.position = vec4<f32>(in.position, 0.0, 1.0);
    out.colour = in.colour;
    return out;
}

@vertex
fn fullscreen(@builtin(vertex_index) vid: u32) -> VSOut {
    var out: VSOut;
    let uv = vec2<f32>(f32((vid << 1u) & 2u), f32(vid & 2u));
    out.position = vec4<f32>(uv * 2.0 - 1.0, 0.0, 1.0);
    out.colour = vec4<f32>(1.0);
    return out;
}
`

const testPixelSource = `
//@oxy:include light
//@oxy:import common.wgsl
//@oxy:group 0 1 storage_uniform light light
@group(1) @binding(0) var gbuffer0: texture_multisampled_2d<f32>;
@group(1) @binding(3) var shadow: texture_depth_2d;
@group(2) @binding(4) var shadowSampler: sampler_comparison; // comparison
/* @group(1) @binding(9) var hidden: texture_2d<f32>; */

//@oxy:interface Filter filter_none

@fragment
fn main(@location(0) colour: vec4<f32>) -> @location(0) vec4<f32> {
//@oxy:if MSAA_SAMPLES
    return colour * f32(MSAA_SAMPLES) * Filter(1.0);
//@oxy:else
    return colour * Filter(scale());
//@oxy:endif
}
`

const testCommonSource = `
fn scale() -> f32 { return 0.5; }
fn filter_none(x: f32) -> f32 { return x; }
fn filter_soft(x: f32) -> f32 { return x * 0.5; }
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"basic2D.wgsl":         {Data: []byte(testVertexSource)},
		"deferred/light.wgsl":  {Data: []byte(testPixelSource)},
		"deferred/common.wgsl": {Data: []byte(testCommonSource)},
	}
}

func TestParseShaderName(t *testing.T) {
	n := ParseShaderName("deferred/light:main,Filter=filter_soft,Shape=sphere")
	assert.Equal(t, "deferred/light.wgsl", n.File)
	assert.Equal(t, "main", n.Entry)
	assert.True(t, n.DynamicLinking)
	assert.Equal(t, []device.ClassInterfaceBinding{
		{Slot: "Filter", Implementation: "filter_soft"},
		{Slot: "Shape", Implementation: "sphere"},
	}, n.ClassInterfaces)
	assert.Equal(t, "deferred/light.wgsl:main,Filter=filter_soft,Shape=sphere", n.String())

	plain := ParseShaderName("basic2D.wgsl")
	assert.Equal(t, "basic2D.wgsl", plain.File)
	assert.Equal(t, DefaultEntryPoint, plain.Entry)
	assert.False(t, plain.DynamicLinking)
	assert.Empty(t, plain.ClassInterfaces)
}

func TestParseShaderNameSkipsMalformedTokens(t *testing.T) {
	n := ParseShaderName("overlay:ps,Broken,=nothing,Good=impl,,Half=")
	require.Len(t, n.ClassInterfaces, 1)
	assert.Equal(t, device.ClassInterfaceBinding{Slot: "Good", Implementation: "impl"}, n.ClassInterfaces[0])
}

func TestPreProcessorDefinesAndConditionals(t *testing.T) {
	pp := NewPreProcessor(WithImporter(func(name string) (string, error) {
		return testCommonSource, nil
	}))

	out, err := pp.Process(testPixelSource, common.NewParameterBox("MSAA_SAMPLES=4;LABEL=abc"), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "const MSAA_SAMPLES = 4;")
	assert.NotContains(t, out, "const LABEL")
	assert.Contains(t, out, "f32(MSAA_SAMPLES) * filter_none(1.0)")
	assert.NotContains(t, out, "scale())")
	assert.Contains(t, out, "struct LightDesc")
	assert.Contains(t, out, "@group(0) @binding(1) var<uniform> light: LightDesc;")
	assert.Equal(t, []string{"common.wgsl"}, pp.Imports())
	require.Len(t, pp.Interfaces(), 1)

	out, err = pp.Process(testPixelSource, common.NewParameterBox("MSAA_SAMPLES=0"), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "colour * filter_none(scale())")
}

func TestPreProcessorIncludesDependenciesOnce(t *testing.T) {
	src := "//@oxy:include basic_environment\n//@oxy:include ambient\n//@oxy:include light\n"
	out, err := NewPreProcessor().Process(src, common.ParameterBox{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "struct AmbientDesc"))
	assert.Equal(t, 1, strings.Count(out, "struct LightDesc"))
	assert.Less(t, strings.Index(out, "struct LightDesc"), strings.Index(out, "struct BasicEnvironment"))
	assert.Contains(t, out, light.GPUVolumeFogSource)
}

func TestPreProcessorErrors(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("//@oxy:if A\nfn f() {}\n", common.ParameterBox{}, nil)
	assert.Error(t, err)

	_, err = pp.Process("//@oxy:endif\n", common.ParameterBox{}, nil)
	assert.Error(t, err)

	_, err = pp.Process("//@oxy:include nope\n", common.ParameterBox{}, nil)
	assert.Error(t, err)

	_, err = pp.Process("//@oxy:import x.wgsl\n", common.ParameterBox{}, nil)
	assert.Error(t, err, "no importer configured")

	_, err = pp.Process("//@oxy:interface Filter filter_none\n", common.ParameterBox{},
		[]device.ClassInterfaceBinding{{Slot: "Other", Implementation: "x"}})
	assert.Error(t, err)
}

func TestPreProcessorDetectsImportCycles(t *testing.T) {
	files := map[string]string{
		"a.wgsl": "//@oxy:import b.wgsl\n",
		"b.wgsl": "//@oxy:import a.wgsl\n",
	}
	pp := NewPreProcessor(WithImporter(func(name string) (string, error) {
		return files[name], nil
	}))
	_, err := pp.Process(files["a.wgsl"], common.ParameterBox{}, nil)
	assert.ErrorContains(t, err, "import cycle")
}

func TestReflectVertexInputs(t *testing.T) {
	r, err := reflectStage(testVertexSource, device.StageVertex, "P2C")
	require.NoError(t, err)
	assert.Equal(t, []string{"P2C", "fullscreen"}, r.entryPoints)
	require.Len(t, r.attributes, 2)
	assert.Equal(t, "position", r.attributes[0].Name)
	assert.Equal(t, uint32(0), r.attributes[0].Location)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, r.attributes[0].Format)
	assert.Equal(t, "colour", r.attributes[1].Name)

	layout := tightVertexLayout(r.attributes)
	assert.Equal(t, uint64(24), layout.ArrayStride)
	assert.Equal(t, uint64(8), layout.Attributes[1].Offset)

	gen, err := reflectStage(testVertexSource, device.StageVertex, "fullscreen")
	require.NoError(t, err)
	assert.Empty(t, gen.attributes)

	_, err = reflectStage(testVertexSource, device.StageVertex, "missing")
	assert.Error(t, err)
}

func TestReflectBindings(t *testing.T) {
	src, err := NewPreProcessor(WithImporter(func(string) (string, error) { return testCommonSource, nil })).
		Process(testPixelSource, common.ParameterBox{}, nil)
	require.NoError(t, err)

	r, err := reflectStage(src, device.StagePixel, "main")
	require.NoError(t, err)

	require.Len(t, r.groups[0], 1)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, r.groups[0][0].Buffer.Type)
	assert.Equal(t, uint64(light.GPULightSize), r.groups[0][0].Buffer.MinBindingSize)

	require.Len(t, r.groups[1], 2, "commented declarations are ignored")
	assert.True(t, r.groups[1][0].Texture.Multisampled)
	assert.Equal(t, wgpu.TextureSampleTypeUnfilterableFloat, r.groups[1][0].Texture.SampleType)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, r.groups[1][1].Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeComparison, r.groups[2][0].Sampler.Type)

	names := make([]string, 0, len(r.uniforms))
	for _, u := range r.uniforms {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"light", "gbuffer0", "shadow", "shadowSampler"}, names)
}

func TestStructSizesResolveNestedTypes(t *testing.T) {
	src := light.GPUAmbientSource + light.GPURangeFogSource + light.GPUVolumeFogSource + light.GPULightSource +
		light.GPUBasicEnvironmentSource + light.GPUShadowProjectionSource
	sizes := computeStructSizes(parseStructBlocks(stripComments(src)))

	assert.Equal(t, uint64(light.GPUBasicEnvironmentSize), sizes["BasicEnvironment"].size)
	assert.Equal(t, uint64(light.GPUOrthoShadowProjectionSize), sizes["OrthoShadowProjection"].size)
	assert.Equal(t, uint64(light.GPUArbitraryShadowProjectionSize), sizes["ArbitraryShadowProjection"].size)
	assert.Equal(t, uint64(light.GPUShadowSampleKernelSize), sizes["ShadowSampleKernel"].size)
}

func TestLibraryReturnsIdenticalProgramUntilSourceChanges(t *testing.T) {
	store := asset.NewFSStore(testFS())
	lib := NewLibrary(store)

	a, err := lib.Program("basic2D:fullscreen", "deferred/light:main", "MSAA_SAMPLES=2")
	require.NoError(t, err)
	b, err := lib.Program("basic2D:fullscreen", "deferred/light:main", "MSAA_SAMPLES=2")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Empty(t, a.VertexLayouts())

	c, err := lib.Program("basic2D:fullscreen", "deferred/light:main", "MSAA_SAMPLES=4")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, lib.Len())

	// imported files are dependencies too
	store.Invalidate("deferred/common.wgsl")
	d, err := lib.Program("basic2D:fullscreen", "deferred/light:main", "MSAA_SAMPLES=2")
	require.NoError(t, err)
	assert.NotSame(t, a, d)
	assert.Equal(t, a.Key(), d.Key())
}

func TestLibraryCachesFailuresUntilChange(t *testing.T) {
	fsys := testFS()
	store := asset.NewFSStore(fsys)
	lib := NewLibrary(store)

	_, err := lib.Program("basic2D:P2C", "deferred/missing:main", "")
	require.Error(t, err)
	var ioErr *asset.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, asset.ReasonNotFound, ioErr.Reason)

	fsys["deferred/missing.wgsl"] = &fstest.MapFile{Data: []byte(testPixelSource)}
	_, err = lib.Program("basic2D:P2C", "deferred/missing:main", "")
	assert.Error(t, err, "failure is cached until the file is reported changed")

	store.Invalidate("deferred/missing.wgsl")
	p, err := lib.Program("basic2D:P2C", "deferred/missing:main", "")
	require.NoError(t, err)
	assert.Len(t, p.VertexLayouts(), 1)
}

func TestProgramLinkSpecialisesInterfaces(t *testing.T) {
	lib := NewLibrary(asset.NewFSStore(testFS()))
	p, err := lib.Program("basic2D:fullscreen", "deferred/light:main,Filter=filter_none", "")
	require.NoError(t, err)
	assert.True(t, p.DynamicLinking())
	assert.Equal(t, []string{"Filter"}, p.Interfaces())

	linked, err := p.Linked([]device.ClassInterfaceBinding{{Slot: "Filter", Implementation: "filter_soft"}})
	require.NoError(t, err)
	assert.Contains(t, linked.Source(device.StagePixel), "filter_soft(scale())")

	again, err := p.Linked([]device.ClassInterfaceBinding{{Slot: "Filter", Implementation: "filter_soft"}})
	require.NoError(t, err)
	assert.Same(t, linked, again)

	_, err = p.Linked([]device.ClassInterfaceBinding{{Slot: "Nope", Implementation: "x"}})
	assert.Error(t, err)

	u, ok := linked.Uniform("shadowSampler")
	require.True(t, ok)
	assert.Equal(t, device.GroupSamplers, u.Group)
	assert.Equal(t, 4, u.Binding)
}

func TestMergeBindGroupLayoutsUnionsVisibility(t *testing.T) {
	vs := map[int][]wgpu.BindGroupLayoutEntry{0: {{Binding: 2, Visibility: wgpu.ShaderStageVertex}}}
	ps := map[int][]wgpu.BindGroupLayoutEntry{
		0: {{Binding: 2, Visibility: wgpu.ShaderStageFragment}, {Binding: 0, Visibility: wgpu.ShaderStageFragment}},
	}
	merged := mergeBindGroupLayouts(vs, ps)
	require.Len(t, merged[0].Entries, 2)
	assert.Equal(t, uint32(0), merged[0].Entries[0].Binding)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, merged[0].Entries[1].Visibility)
}

func TestBindInputLayoutIgnoresMissingAttributes(t *testing.T) {
	lib := NewLibrary(asset.NewFSStore(testFS()))
	p, err := lib.Program("basic2D:P2C", "deferred/light:main", "")
	require.NoError(t, err)

	elements := []InputElement{
		{Name: "position", Format: wgpu.VertexFormatFloat32x2, Offset: AppendAligned},
		{Name: "colour", Format: wgpu.VertexFormatUnorm8x4, Offset: AppendAligned},
		{Name: "texCoord", Format: wgpu.VertexFormatFloat32x2, Offset: AppendAligned},
	}
	layout := BindInputLayout(elements, p)
	assert.Equal(t, uint64(20), layout.ArrayStride)
	require.Len(t, layout.Attributes, 2)
	assert.Equal(t, uint32(1), layout.Attributes[1].ShaderLocation)
	assert.Equal(t, uint64(8), layout.Attributes[1].Offset)
	assert.Equal(t, wgpu.VertexFormatUnorm8x4, layout.Attributes[1].Format)
}

type testVariant struct {
	prog Program
}

func (v *testVariant) DependencyValidation() asset.DependencyValidation {
	return v.prog.DependencyValidation()
}

type testVariantDesc struct {
	samples   int
	perSample bool
}

func TestVariantCacheIdentityAndRebuild(t *testing.T) {
	store := asset.NewFSStore(testFS())
	builds := 0
	cache := NewVariantCache[testVariantDesc, *testVariant](NewLibrary(store), "test variants", func(lib Library, d testVariantDesc) (*testVariant, error) {
		builds++
		p, err := lib.Program("basic2D:fullscreen", "deferred/light:main", "MSAA_SAMPLES="+strconv.Itoa(d.samples))
		if err != nil {
			return nil, err
		}
		return &testVariant{prog: p}, nil
	})

	a, err := cache.Get(testVariantDesc{samples: 4})
	require.NoError(t, err)
	b, err := cache.Get(testVariantDesc{samples: 4})
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, builds)

	_, err = cache.Get(testVariantDesc{samples: 4, perSample: true})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	store.Invalidate("deferred/light.wgsl")
	c, err := cache.Get(testVariantDesc{samples: 4})
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 3, builds)
}
