package shader

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// Program is a processed and reflected vertex + pixel shader pair. Programs are immutable once built; linking class
// interfaces produces (and caches) a new specialised program.
type Program interface {
	device.Program
	device.Linkable

	// Attributes returns the vertex attributes consumed by the vertex entry point.
	//
	// Returns:
	//   - []VertexAttribute: the attributes sorted by location, empty for vertex generator shaders
	Attributes() []VertexAttribute

	// Uniforms returns every named binding declared by either stage.
	//
	// Returns:
	//   - []BoundUniform: the bindings, vertex stage first
	Uniforms() []BoundUniform

	// Uniform looks up a binding by its variable name.
	//
	// Parameters:
	//   - name: the WGSL variable name
	//
	// Returns:
	//   - BoundUniform: the binding
	//   - bool: false if no stage declares that name
	Uniform(name string) (BoundUniform, bool)

	// Interfaces returns the class interface slots declared by the pixel stage.
	//
	// Returns:
	//   - []string: the slot names in declaration order
	Interfaces() []string

	// Linked returns the program specialised for the given class interface bindings. Bindings override the ones
	// carried by the pixel shader name; equal binding sets return the identical program.
	//
	// Parameters:
	//   - bindings: the interface bindings
	//
	// Returns:
	//   - Program: the specialised program, or this program when bindings is empty
	//   - error: an error if a binding names a slot the pixel stage does not declare
	Linked(bindings []device.ClassInterfaceBinding) (Program, error)

	// DynamicLinking reports whether the pixel shader was requested with an interface list, meaning callers should
	// bind it with class interfaces.
	//
	// Returns:
	//   - bool: true for dynamically linked programs
	DynamicLinking() bool
}

type program struct {
	key        string
	names      [2]ShaderName
	defines    common.ParameterBox
	sources    [2]string
	attributes []VertexAttribute
	layouts    []wgpu.VertexBufferLayout
	groups     map[int]wgpu.BindGroupLayoutDescriptor
	uniforms   []BoundUniform
	interfaces []string
	validation asset.DependencyValidation
	store      asset.Store

	mu     *sync.Mutex
	linked map[string]Program
}

var _ Program = &program{}

// NewProgram reads, pre-processes and reflects a program from a store. Every file read (both stage files and all
// imports) is registered with the program's dependency validation, so a change to any of them marks it stale.
//
// Parameters:
//   - store: the source store
//   - vs: the vertex shader reference
//   - ps: the pixel shader reference
//   - defines: the define table shared by both stages
//
// Returns:
//   - Program: the program
//   - error: an error if a file could not be read, pre-processing failed or an entry point is missing
func NewProgram(store asset.Store, vs, ps ShaderName, defines common.ParameterBox) (Program, error) {
	if store == nil {
		panic("shader: NewProgram requires a store")
	}
	p := &program{
		names:      [2]ShaderName{vs, ps},
		defines:    defines,
		groups:     make(map[int]wgpu.BindGroupLayoutDescriptor),
		validation: asset.NewDependencyValidation(),
		store:      store,
		mu:         &sync.Mutex{},
		linked:     make(map[string]Program),
	}
	p.key = programKey(vs, ps, defines)

	reflected := make([]stageReflection, 2)
	for _, stage := range []device.ShaderStage{device.StageVertex, device.StagePixel} {
		name := p.names[stage]
		src, pp, err := p.process(name)
		if err != nil {
			return nil, fmt.Errorf("program %s: %w", p.key, err)
		}
		r, err := reflectStage(src, stage, name.Entry)
		if err != nil {
			return nil, fmt.Errorf("program %s: %s: %w", p.key, name.File, err)
		}
		p.sources[stage] = src
		reflected[stage] = r
		if stage == device.StagePixel {
			for _, a := range pp.Interfaces() {
				p.interfaces = append(p.interfaces, string(a.Args[0]))
			}
		}
	}

	p.attributes = reflected[device.StageVertex].attributes
	if len(p.attributes) > 0 {
		p.layouts = []wgpu.VertexBufferLayout{tightVertexLayout(p.attributes)}
	}
	p.groups = mergeBindGroupLayouts(reflected[device.StageVertex].groups, reflected[device.StagePixel].groups)
	p.uniforms = append(reflected[device.StageVertex].uniforms, reflected[device.StagePixel].uniforms...)
	return p, nil
}

// process reads one stage file and runs it through a fresh pre-processor. A fresh pre-processor per stage keeps
// concurrent builds independent.
func (p *program) process(name ShaderName) (string, PreProcessor, error) {
	raw, err := p.read(name.File)
	if err != nil {
		return "", nil, err
	}
	pp := NewPreProcessor(WithImporter(func(imported string) (string, error) {
		return p.read(resolveImport(name.File, imported))
	}))
	src, err := pp.Process(raw, p.defines, name.ClassInterfaces)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", name.File, err)
	}
	return src, pp, nil
}

func (p *program) read(file string) (string, error) {
	p.validation.RegisterDependency(p.store.Validation(file))
	data, err := p.store.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (p *program) Key() string {
	return p.key
}

func (p *program) Source(stage device.ShaderStage) string {
	return p.sources[stage]
}

func (p *program) EntryPoint(stage device.ShaderStage) string {
	return p.names[stage].Entry
}

func (p *program) VertexLayouts() []wgpu.VertexBufferLayout {
	return p.layouts
}

func (p *program) BindGroupLayouts() map[int]wgpu.BindGroupLayoutDescriptor {
	return p.groups
}

func (p *program) DependencyValidation() asset.DependencyValidation {
	return p.validation
}

func (p *program) Attributes() []VertexAttribute {
	return p.attributes
}

func (p *program) Uniforms() []BoundUniform {
	return p.uniforms
}

func (p *program) Uniform(name string) (BoundUniform, bool) {
	for _, u := range p.uniforms {
		if u.Name == name {
			return u, true
		}
	}
	return BoundUniform{}, false
}

func (p *program) Interfaces() []string {
	return p.interfaces
}

func (p *program) DynamicLinking() bool {
	return p.names[device.StagePixel].DynamicLinking
}

func (p *program) Link(bindings []device.ClassInterfaceBinding) (device.Program, error) {
	linked, err := p.Linked(bindings)
	if err != nil {
		return nil, err
	}
	return linked, nil
}

func (p *program) Linked(bindings []device.ClassInterfaceBinding) (Program, error) {
	if len(bindings) == 0 {
		return p, nil
	}
	ps := p.names[device.StagePixel]
	merged := mergeInterfaceBindings(ps.ClassInterfaces, bindings)
	ps.ClassInterfaces = merged
	key := ps.String()

	p.mu.Lock()
	defer p.mu.Unlock()
	if linked, ok := p.linked[key]; ok {
		return linked, nil
	}
	linked, err := NewProgram(p.store, p.names[device.StageVertex], ps, p.defines)
	if err != nil {
		return nil, err
	}
	p.validation.RegisterDependency(linked.DependencyValidation())
	p.linked[key] = linked
	return linked, nil
}

// mergeInterfaceBindings overlays draw-time bindings on the ones carried by the shader name, keeping slot order stable.
func mergeInterfaceBindings(base, over []device.ClassInterfaceBinding) []device.ClassInterfaceBinding {
	out := append([]device.ClassInterfaceBinding(nil), base...)
	for _, b := range over {
		replaced := false
		for i := range out {
			if out[i].Slot == b.Slot {
				out[i] = b
				replaced = true
			}
		}
		if !replaced {
			out = append(out, b)
		}
	}
	return out
}

// mergeBindGroupLayouts combines the per-stage layouts into one per group. A binding declared by both stages gets
// the union of their visibilities.
func mergeBindGroupLayouts(stages ...map[int][]wgpu.BindGroupLayoutEntry) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	for _, groups := range stages {
		for g, entries := range groups {
			if merged[g] == nil {
				merged[g] = make(map[uint32]wgpu.BindGroupLayoutEntry)
			}
			for _, e := range entries {
				if prev, ok := merged[g][e.Binding]; ok {
					e.Visibility |= prev.Visibility
					e.Buffer.MinBindingSize = max(e.Buffer.MinBindingSize, prev.Buffer.MinBindingSize)
				}
				merged[g][e.Binding] = e
			}
		}
	}

	out := make(map[int]wgpu.BindGroupLayoutDescriptor, len(merged))
	for g, byBinding := range merged {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(byBinding))
		for _, e := range byBinding {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
		out[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("group%d", g),
			Entries: entries,
		}
	}
	return out
}

// tightVertexLayout packs attributes back to back in location order. Input layout binding replaces it when the
// vertex data has a different format.
func tightVertexLayout(attrs []VertexAttribute) wgpu.VertexBufferLayout {
	out := wgpu.VertexBufferLayout{StepMode: wgpu.VertexStepModeVertex}
	for _, a := range attrs {
		out.Attributes = append(out.Attributes, wgpu.VertexAttribute{
			Format:         a.Format,
			Offset:         out.ArrayStride,
			ShaderLocation: a.Location,
		})
		out.ArrayStride += a.Size
	}
	return out
}

// resolveImport resolves an import relative to the importing file unless it is rooted with "/".
func resolveImport(from, name string) string {
	if rooted, ok := strings.CutPrefix(name, "/"); ok {
		return rooted
	}
	dir := from[:strings.LastIndex(from, "/")+1]
	return dir + name
}

func programKey(vs, ps ShaderName, defines common.ParameterBox) string {
	return vs.String() + "|" + ps.String() + "|" + defines.String()
}
