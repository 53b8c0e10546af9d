// annotations.go defines the annotation types, argument constants, and parser for the
// Oxy WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @oxy: that drive struct injection, file imports, uniform declarations,
// define-driven conditional compilation and class interface slots.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// into the shader at the annotation site, after any structs it depends on.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include light
	annotationTypeInclude AnnotationType = "include"

	// annotationTypeImport injects another shader file from the same store. The imported
	// file is pre-processed with the same defines and becomes a dependency of the program.
	//
	// Syntax: //@oxy:import <file>
	//
	// Example: //@oxy:import deferred/gbuffer.wgsl
	annotationTypeImport AnnotationType = "import"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// for a registered struct type.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 1 storage_uniform light light
	AnnotationTypeBindingGroup AnnotationType = "group"

	// annotationTypeIf starts a block that is kept only when the named define exists and is not "0".
	// A leading "!" inverts the test.
	//
	// Syntax: //@oxy:if <NAME>
	annotationTypeIf AnnotationType = "if"

	// annotationTypeElse flips the innermost if block.
	annotationTypeElse AnnotationType = "else"

	// annotationTypeEndif closes the innermost if block.
	annotationTypeEndif AnnotationType = "endif"

	// AnnotationTypeInterface declares a class interface slot. Every whole-word use of the slot
	// name is replaced by the bound implementation, or by the default when nothing is bound.
	//
	// Syntax: //@oxy:interface <slot> <default_implementation>
	//
	// Example: //@oxy:interface ShadowFilter shadow_filter_poisson
	AnnotationTypeInterface AnnotationType = "interface"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:   [0] = struct type key (e.g. "light")
	//   - import:    [0] = file name
	//   - group:     [0] = address space, [1] = var name, [2] = WGSL type key
	//   - if:        [0] = define name, optionally prefixed with "!"
	//   - interface: [0] = slot name, [1] = default implementation
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source where this annotation
	// was found. Used for error reporting.
	Line int

	// Group is the @group index for group annotations. Nil otherwise.
	Group *int

	// Binding is the @binding index for group annotations. Nil otherwise.
	Binding *int
}

// AnnotationArg is a typed string used as an argument in annotations.
type AnnotationArg string

// ── Struct type arguments ──────────────────────────────────────────────────────
// These identify registered WGSL struct types. They can appear in @oxy:include annotations
// and in @oxy:group annotations (as the type field, optionally wrapped in array<>). Each maps
// to a Go GPU type with an embedded .wgsl asset file in engine/light.

const (
	AnnotationArgLight              AnnotationArg = "light"
	AnnotationArgAmbient            AnnotationArg = "ambient"
	AnnotationArgRangeFog           AnnotationArg = "range_fog"
	AnnotationArgVolumeFog          AnnotationArg = "volume_fog"
	AnnotationArgBasicEnvironment   AnnotationArg = "basic_environment"
	AnnotationArgAmbientResolve     AnnotationArg = "ambient_resolve"
	AnnotationArgMaterialOverride   AnnotationArg = "material_override"
	AnnotationArgDebuggingGlobals   AnnotationArg = "debugging_globals"
	AnnotationArgScreenToShadow     AnnotationArg = "screen_to_shadow"
	AnnotationArgArbitraryShadow    AnnotationArg = "arbitrary_shadow_projection"
	AnnotationArgOrthoShadow        AnnotationArg = "ortho_shadow_projection"
	AnnotationArgShadowResolveParam AnnotationArg = "shadow_resolve_parameters"
	AnnotationArgShadowSampleKernel AnnotationArg = "shadow_sample_kernel"
)

// ── Address space arguments ────────────────────────────────────────────────────

const (
	// annotationArgStorageTypeUniform maps to var<uniform> in WGSL.
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"

	// annotationArgStorageTypeRead maps to var<storage, read> in WGSL.
	annotationArgStorageTypeRead AnnotationArg = "storage_read"
)

// validStructTypes lists all AnnotationArg values that are accepted as struct type
// arguments. Each entry must have a corresponding registryEntry in the PreProcessor's structRegistry.
var validStructTypes = []AnnotationArg{
	AnnotationArgLight,
	AnnotationArgAmbient,
	AnnotationArgRangeFog,
	AnnotationArgVolumeFog,
	AnnotationArgBasicEnvironment,
	AnnotationArgAmbientResolve,
	AnnotationArgMaterialOverride,
	AnnotationArgDebuggingGlobals,
	AnnotationArgScreenToShadow,
	AnnotationArgArbitraryShadow,
	AnnotationArgOrthoShadow,
	AnnotationArgShadowResolveParam,
	AnnotationArgShadowSampleKernel,
}

// validAddressSpaces lists all AnnotationArg values that are accepted as address
// space arguments in @oxy:group annotations.
var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil

	case annotationTypeImport:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy import annotation requires exactly one file", lineNum)
		}
		return &Annotation{Type: annotationTypeImport, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil

	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires group, binding, address space, var name and struct type", lineNum)
		}
		groupInt, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation: %v", lineNum, args[1], err)
		}
		bindingInt, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation: %v", lineNum, args[2], err)
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		typeArg := args[5]
		if inner, ok := strings.CutPrefix(typeArg, "array<"); ok {
			typeArg = strings.TrimSuffix(inner, ">")
		}
		if !slices.Contains(validStructTypes, AnnotationArg(typeArg)) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, typeArg)
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil

	case annotationTypeIf:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy if annotation requires exactly one define name", lineNum)
		}
		return &Annotation{Type: annotationTypeIf, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil

	case annotationTypeElse, annotationTypeEndif:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy %s annotation takes no arguments", lineNum, args[0])
		}
		return &Annotation{Type: AnnotationType(args[0]), Line: lineNum}, nil

	case AnnotationTypeInterface:
		if len(args) != 3 {
			return nil, fmt.Errorf("line %d: @oxy interface annotation requires a slot and a default implementation", lineNum)
		}
		return &Annotation{
			Type: AnnotationTypeInterface,
			Args: []AnnotationArg{AnnotationArg(args[1]), AnnotationArg(args[2])},
			Line: lineNum,
		}, nil

	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
