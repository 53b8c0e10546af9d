// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader
// source code for @oxy: annotations, replaces them with generated WGSL declarations,
// injected struct source or imported files, evaluates define-driven conditional blocks
// and binds class interface slots to their implementations.
//
// The pre-processor maintains two registries:
//   - structRegistry: maps AnnotationArg keys to embedded WGSL struct sources, their
//     resolved type names and the structs they depend on.
//   - addressSpaceRegistry: maps address space argument keys to WGSL var<> syntax strings.
package shader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/light"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// maxImportDepth bounds nested @oxy:import chains.
const maxImportDepth = 16

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// registryEntry pairs a WGSL struct source string (embedded from a .wgsl asset file)
// with the resolved WGSL type name used in generated @group/@binding declarations.
type registryEntry struct {
	// Source is the raw WGSL struct definition text injected by @oxy:include.
	Source string

	// Type is the WGSL type name emitted in @oxy:group declarations (e.g. "LightDesc").
	Type string

	// Deps are the struct keys that must be injected before Source.
	Deps []AnnotationArg
}

// ImportFunc returns the raw source of a file named by an @oxy:import annotation.
type ImportFunc func(name string) (string, error)

// ifFrame is one level of @oxy:if nesting.
type ifFrame struct {
	parentActive bool
	condition    bool
	inElse       bool
}

func (f ifFrame) active() bool {
	if f.inElse {
		return f.parentActive && !f.condition
	}
	return f.parentActive && f.condition
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string
	importer             ImportFunc

	// per Process call state
	defines    common.ParameterBox
	interfaces []Annotation
	imports    []string
	included   map[string]struct{}
	visiting   map[string]struct{}
}

// PreProcessor processes raw WGSL shader source code containing @oxy: annotations.
type PreProcessor interface {
	// Process pre-processes WGSL source. Numeric defines are emitted as WGSL constants ahead of the source,
	// @oxy:if blocks are kept or dropped by define, @oxy:include and @oxy:import inject source, @oxy:group
	// generates uniform declarations and @oxy:interface slots are substituted by the given bindings.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code
	//   - defines: the define table of the variant
	//   - bindings: class interface bindings; slots without a binding use their declared default
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if an annotation is malformed, a block is unbalanced, an import fails or a binding names
	//     an undeclared slot
	Process(source string, defines common.ParameterBox, bindings []device.ClassInterfaceBinding) (string, error)

	// Interfaces returns the interface slot annotations declared during the most recent Process call.
	//
	// Returns:
	//   - []Annotation: the interface declarations in source order
	Interfaces() []Annotation

	// Imports returns the files imported during the most recent Process call.
	//
	// Returns:
	//   - []string: the imported file names in import order
	Imports() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with all registered struct types and address space mappings
// pre-populated from the engine's GPU type packages.
//
// Parameters:
//   - opts: optional builder options
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(opts ...PreProcessorBuilderOption) PreProcessor {
	p := &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgLight:     {Source: light.GPULightSource, Type: "LightDesc"},
			AnnotationArgAmbient:   {Source: light.GPUAmbientSource, Type: "AmbientDesc"},
			AnnotationArgRangeFog:  {Source: light.GPURangeFogSource, Type: "RangeFogDesc"},
			AnnotationArgVolumeFog: {Source: light.GPUVolumeFogSource, Type: "VolumeFogDesc"},
			AnnotationArgBasicEnvironment: {
				Source: light.GPUBasicEnvironmentSource,
				Type:   "BasicEnvironment",
				Deps:   []AnnotationArg{AnnotationArgAmbient, AnnotationArgRangeFog, AnnotationArgVolumeFog, AnnotationArgLight},
			},
			AnnotationArgAmbientResolve: {
				Source: light.GPUAmbientResolveSource,
				Type:   "AmbientResolve",
				Deps:   []AnnotationArg{AnnotationArgAmbient, AnnotationArgRangeFog},
			},
			AnnotationArgMaterialOverride:   {Source: light.GPUMaterialOverrideSource, Type: "MaterialOverride"},
			AnnotationArgDebuggingGlobals:   {Source: light.GPUDebuggingGlobalsSource, Type: "DebuggingGlobals"},
			AnnotationArgScreenToShadow:     {Source: light.GPUScreenToShadowSource, Type: "ScreenToShadow"},
			AnnotationArgArbitraryShadow:    {Source: light.GPUShadowProjectionSource, Type: "ArbitraryShadowProjection"},
			AnnotationArgOrthoShadow:        {Source: light.GPUShadowProjectionSource, Type: "OrthoShadowProjection"},
			AnnotationArgShadowResolveParam: {Source: light.GPUShadowProjectionSource, Type: "ShadowResolveParameters"},
			AnnotationArgShadowSampleKernel: {Source: light.GPUShadowProjectionSource, Type: "ShadowSampleKernel"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform: "var<uniform>",
			annotationArgStorageTypeRead:    "var<storage, read>",
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *preProcessor) Process(source string, defines common.ParameterBox, bindings []device.ClassInterfaceBinding) (string, error) {
	p.defines = defines
	p.interfaces = p.interfaces[:0]
	p.imports = p.imports[:0]
	p.included = make(map[string]struct{})
	p.visiting = make(map[string]struct{})

	var out []string
	out = append(out, defineConstants(defines)...)

	body, err := p.processLines(source, 0)
	if err != nil {
		return "", err
	}
	out = append(out, body...)
	processed := strings.Join(out, "\n")

	return p.bindInterfaces(processed, bindings)
}

func (p *preProcessor) Interfaces() []Annotation {
	return p.interfaces
}

func (p *preProcessor) Imports() []string {
	return p.imports
}

func (p *preProcessor) processLines(source string, depth int) ([]string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	var stack []ifFrame
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active()
	}

	// iterate through each line of the source and attempt to parse it as an annotation, if it's an annotation replace it with the corresponding output, otherwise keep the line as is.
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return nil, err
		}
		if a == nil {
			if active() {
				out = append(out, line)
			}
			continue
		}

		switch a.Type {
		case annotationTypeIf:
			stack = append(stack, ifFrame{parentActive: active(), condition: p.evaluate(string(a.Args[0]))})
			continue
		case annotationTypeElse:
			if len(stack) == 0 || stack[len(stack)-1].inElse {
				return nil, fmt.Errorf("line %d: @oxy else without matching if", i+1)
			}
			stack[len(stack)-1].inElse = true
			continue
		case annotationTypeEndif:
			if len(stack) == 0 {
				return nil, fmt.Errorf("line %d: @oxy endif without matching if", i+1)
			}
			stack = stack[:len(stack)-1]
			continue
		}
		if !active() {
			continue
		}

		// handle annotation based on its type and arguments
		switch a.Type {
		case annotationTypeInclude:
			out = append(out, p.include(a.Args[0])...)
		case annotationTypeImport:
			imported, err := p.importFile(string(a.Args[0]), depth)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			out = append(out, imported...)
		case AnnotationTypeBindingGroup:
			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			varName := string(a.Args[1])
			var wgslType string
			if inner, ok := strings.CutPrefix(string(a.Args[2]), "array<"); ok {
				inner = strings.TrimSuffix(inner, ">")
				wgslType = fmt.Sprintf("array<%s>", p.structRegistry[AnnotationArg(inner)].Type)
			} else {
				wgslType = p.structRegistry[a.Args[2]].Type
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, varName, wgslType))
		case AnnotationTypeInterface:
			p.interfaces = append(p.interfaces, *a)
		default:
			return nil, fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unterminated @oxy if block")
	}
	return out, nil
}

// evaluate tests a define for an @oxy:if block. A define is true when present and not "0".
func (p *preProcessor) evaluate(name string) bool {
	negate := strings.HasPrefix(name, "!")
	name = strings.TrimPrefix(name, "!")
	v, ok := p.defines.Get(name)
	result := ok && v != "0"
	if negate {
		return !result
	}
	return result
}

// include returns the struct source for key preceded by its dependencies. Each source is emitted once per Process call.
func (p *preProcessor) include(key AnnotationArg) []string {
	entry := p.structRegistry[key]
	var out []string
	for _, dep := range entry.Deps {
		out = append(out, p.include(dep)...)
	}
	if _, done := p.included[entry.Source]; done {
		return out
	}
	p.included[entry.Source] = struct{}{}
	return append(out, entry.Source)
}

func (p *preProcessor) importFile(name string, depth int) ([]string, error) {
	if p.importer == nil {
		return nil, fmt.Errorf("@oxy import %q: no importer configured", name)
	}
	if depth >= maxImportDepth {
		return nil, fmt.Errorf("@oxy import %q: nested too deeply", name)
	}
	if _, cyc := p.visiting[name]; cyc {
		return nil, fmt.Errorf("@oxy import %q: import cycle", name)
	}
	if _, done := p.included[name]; done {
		return nil, nil
	}

	src, err := p.importer(name)
	if err != nil {
		return nil, fmt.Errorf("@oxy import %q: %w", name, err)
	}
	p.visiting[name] = struct{}{}
	p.imports = append(p.imports, name)
	lines, err := p.processLines(src, depth+1)
	delete(p.visiting, name)
	if err != nil {
		return nil, fmt.Errorf("@oxy import %q: %w", name, err)
	}
	p.included[name] = struct{}{}
	return lines, nil
}

func (p *preProcessor) bindInterfaces(source string, bindings []device.ClassInterfaceBinding) (string, error) {
	impls := make(map[string]string, len(p.interfaces))
	for _, a := range p.interfaces {
		impls[string(a.Args[0])] = string(a.Args[1])
	}
	for _, b := range bindings {
		if _, ok := impls[b.Slot]; !ok {
			return "", fmt.Errorf("unknown class interface slot %q", b.Slot)
		}
		impls[b.Slot] = b.Implementation
	}
	for _, a := range p.interfaces {
		slot := string(a.Args[0])
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(slot) + `\b`)
		source = re.ReplaceAllLiteralString(source, impls[slot])
	}
	return source, nil
}

// defineConstants renders the numeric defines as WGSL constants. Non-numeric values and names that are not valid
// identifiers only drive @oxy:if blocks.
func defineConstants(defines common.ParameterBox) []string {
	var out []string
	for _, name := range defines.Names() {
		if !identifierRegex.MatchString(name) {
			continue
		}
		v, _ := defines.Get(name)
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			out = append(out, fmt.Sprintf("const %s = %s;", name, v))
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil && strings.ContainsAny(v, ".eE") {
			out = append(out, fmt.Sprintf("const %s = %s;", name, v))
		}
	}
	return out
}
