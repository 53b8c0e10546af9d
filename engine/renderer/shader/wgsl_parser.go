package shader

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// wgslVertexFormatMap maps the WGSL types allowed on vertex inputs to a wgpu vertex format and its byte size.
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec2u":     {wgpu.VertexFormatUint32x2, 8},
	"vec2<u32>": {wgpu.VertexFormatUint32x2, 8},
	"vec4u":     {wgpu.VertexFormatUint32x4, 16},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
	"i32":       {wgpu.VertexFormatSint32, 4},
	"vec2i":     {wgpu.VertexFormatSint32x2, 8},
	"vec2<i32>": {wgpu.VertexFormatSint32x2, 8},
	"vec4i":     {wgpu.VertexFormatSint32x4, 16},
	"vec4<i32>": {wgpu.VertexFormatSint32x4, 16},
}

var wgslSampledTextureMap = map[string]sampledTextureInfo{
	"texture_2d":                    {wgpu.TextureViewDimension2D, false},
	"texture_2d_array":              {wgpu.TextureViewDimension2DArray, false},
	"texture_3d":                    {wgpu.TextureViewDimension3D, false},
	"texture_cube":                  {wgpu.TextureViewDimensionCube, false},
	"texture_multisampled_2d":       {wgpu.TextureViewDimension2D, true},
	"texture_depth_2d":              {wgpu.TextureViewDimension2D, false},
	"texture_depth_2d_array":        {wgpu.TextureViewDimension2DArray, false},
	"texture_depth_cube":            {wgpu.TextureViewDimensionCube, false},
	"texture_depth_multisampled_2d": {wgpu.TextureViewDimension2D, true},
}

var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var (
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex    = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex     = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex skips any leading attributes and captures the name and the (possibly parameterised) type.
	fieldRegex = regexp.MustCompile(`^(?:@\w+(?:\([^)]*\))?\s*)*(\w+)\s*:\s*(.+)$`)

	// entryPointRegex captures the stage attribute and the function name of every entry point.
	entryPointRegex = regexp.MustCompile(`@(vertex|fragment)\s*(?:@\w+(?:\([^)]*\))?\s*)*fn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name and type.
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// reflectStage reflects one processed stage source against the entry point it will be compiled with.
//
// Parameters:
//   - source: the processed WGSL source
//   - stage: the stage the source is compiled for
//   - entry: the entry point the program uses
//
// Returns:
//   - stageReflection: the reflected inputs and bindings
//   - error: an error if the entry point is missing or a vertex input has an unsupported type
func reflectStage(source string, stage device.ShaderStage, entry string) (stageReflection, error) {
	cleaned := stripComments(source)
	structs := parseStructBlocks(cleaned)

	out := stageReflection{entryPoints: parseEntryPoints(cleaned, stage)}
	if !slices.Contains(out.entryPoints, entry) {
		return out, fmt.Errorf("%s entry point %q not found", stage, entry)
	}

	if stage == device.StageVertex {
		attrs, err := parseEntryInputs(cleaned, entry, structs)
		if err != nil {
			return out, err
		}
		out.attributes = attrs
	}

	out.groups, out.uniforms = parseBindings(cleaned, stage, structs)
	return out, nil
}

// parseEntryPoints lists the entry point names declared for one stage, in source order.
func parseEntryPoints(cleaned string, stage device.ShaderStage) []string {
	want := "fragment"
	if stage == device.StageVertex {
		want = "vertex"
	}
	var names []string
	for _, m := range entryPointRegex.FindAllStringSubmatch(cleaned, -1) {
		if m[1] == want {
			names = append(names, m[2])
		}
	}
	return names
}

// parseEntryInputs resolves the vertex attributes consumed by the named entry function. Parameters carrying
// @location become attributes directly; struct-typed parameters contribute their @location members. A vertex
// generator (only builtin inputs) yields no attributes.
//
// Parameters:
//   - cleaned: WGSL source with comments stripped
//   - entry: the entry function name
//   - structs: the structs declared in the source
//
// Returns:
//   - []VertexAttribute: the attributes sorted by location
//   - error: an error for input types that cannot be fed from a vertex buffer
func parseEntryInputs(cleaned, entry string, structs []parsedStruct) ([]VertexAttribute, error) {
	params, ok := functionParams(cleaned, entry)
	if !ok {
		return nil, fmt.Errorf("vertex entry point %q has no parameter list", entry)
	}

	byName := make(map[string]parsedStruct, len(structs))
	for _, ps := range structs {
		byName[ps.name] = ps
	}

	var inputs []parsedField
	for _, p := range parseFieldList(params) {
		switch {
		case p.isBuiltin:
		case p.location >= 0:
			inputs = append(inputs, p)
		default:
			ps, ok := byName[p.typeName]
			if !ok {
				return nil, fmt.Errorf("vertex input %q has neither a location nor a struct type", p.name)
			}
			for _, f := range ps.fields {
				if !f.isBuiltin && f.location >= 0 {
					inputs = append(inputs, f)
				}
			}
		}
	}

	attrs := make([]VertexAttribute, 0, len(inputs))
	for _, in := range inputs {
		info, ok := wgslVertexFormatMap[in.typeName]
		if !ok {
			return nil, fmt.Errorf("vertex input %q has unsupported type %q", in.name, in.typeName)
		}
		attrs = append(attrs, VertexAttribute{
			Name:     in.name,
			Location: uint32(in.location),
			Format:   info.format,
			Size:     info.size,
		})
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Location < attrs[j].Location })
	return attrs, nil
}

// functionParams returns the text between the parentheses of the named function's parameter list.
func functionParams(cleaned, name string) (string, bool) {
	re := regexp.MustCompile(`\bfn\s+` + regexp.QuoteMeta(name) + `\s*\(`)
	loc := re.FindStringIndex(cleaned)
	if loc == nil {
		return "", false
	}
	start := loc[1]
	depth := 1
	for i := start; i < len(cleaned); i++ {
		switch cleaned[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return cleaned[start:i], true
			}
		}
	}
	return "", false
}

// parseBindings collects every @group/@binding declaration of a stage. Buffer bindings get a MinBindingSize from
// the bound type's layout when it can be resolved.
//
// Parameters:
//   - cleaned: WGSL source with comments stripped
//   - stage: the declaring stage, used for entry visibility
//   - structs: the structs declared in the source
//
// Returns:
//   - map[int][]wgpu.BindGroupLayoutEntry: entries per group, sorted by binding
//   - []BoundUniform: the named bindings in declaration order
func parseBindings(cleaned string, stage device.ShaderStage, structs []parsedStruct) (map[int][]wgpu.BindGroupLayoutEntry, []BoundUniform) {
	sizes := computeStructSizes(structs)
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	var uniforms []BoundUniform

	for _, m := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		space := strings.TrimSpace(m[3])
		typeName := strings.TrimSpace(m[5])

		entry := classifyResource(uint32(binding), stage.WGPU(), space, typeName)
		var size uint64
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(typeName, sizes); ok {
				size = layout.size
				entry.Buffer.MinBindingSize = size
			}
		}

		groups[group] = append(groups[group], entry)
		uniforms = append(uniforms, BoundUniform{
			Stage:   stage,
			Group:   group,
			Binding: binding,
			Name:    strings.TrimSpace(m[4]),
			Type:    typeName,
			Size:    size,
		})
	}

	for g := range groups {
		entries := groups[g]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
	}
	return groups, uniforms
}

func parseStructBlocks(cleaned string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(cleaned, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, parsedStruct{name: m[1], fields: parseFieldList(m[2])})
	}
	return structs
}

// parseFieldList parses comma separated "attrs name: type" items, as found in struct bodies and parameter lists.
func parseFieldList(body string) []parsedField {
	items := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(items))
	for _, item := range items {
		item = strings.Join(strings.Fields(item), " ")
		if item == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(item)
		if fm == nil {
			continue
		}

		f := parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			location:  -1,
			isBuiltin: builtinRegex.MatchString(item),
		}
		if lm := locationRegex.FindStringSubmatch(item); lm != nil {
			f.location, _ = strconv.Atoi(lm[1])
		}
		fields = append(fields, f)
	}
	return fields
}
