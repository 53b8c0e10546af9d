package lighting_parser

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
	"github.com/Carmen-Shannon/oxy-resolve/engine/light"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/shader"
)

// psResolveLightDynamic requests the light resolve with its interface slots left open for per-light binding.
const psResolveLightDynamic = psResolveLight + ",LightShape=light_directional,ShadowResolver=shadow_none"

// LightResolveShadersDesc selects one set of light resolve shaders. Every field is part of the cache key.
type LightResolveShadersDesc struct {
	GBufferType     int
	MSAASamples     uint32
	UseMsaaSamplers bool
	FlipDirection   bool
	DynamicLinking  bool
	Debugging       bool
}

// LightShaderType is the per-light part of the variant key. Lookups are exact; there is no partial matching.
type LightShaderType struct {
	Shape              light.Shape
	Shadows            ShadowKind
	DiffuseModel       light.DiffuseModel
	ShadowResolveModel light.ShadowResolveModel
	HasScreenSpaceAO   bool
}

// LightShader is a program ready to draw one light. ClassInterfaces is set for dynamically linked programs and must
// be passed to BindProgram.
type LightShader struct {
	Program         shader.Program
	ClassInterfaces []device.ClassInterfaceBinding
	DynamicLinking  bool
}

// LightResolveShaders is the lazily filled table of light shaders for one LightResolveShadersDesc.
type LightResolveShaders struct {
	desc       LightResolveShadersDesc
	lib        shader.Library
	validation asset.DependencyValidation

	mu      *sync.Mutex
	shaders map[LightShaderType]*LightShader
	failed  map[LightShaderType]struct{}
}

func newLightResolveShaders(lib shader.Library, desc LightResolveShadersDesc) (*LightResolveShaders, error) {
	if desc.MSAASamples == 0 {
		return nil, fmt.Errorf("light resolve shaders: sample count must be at least 1")
	}
	return &LightResolveShaders{
		desc:       desc,
		lib:        lib,
		validation: asset.NewDependencyValidation(),
		mu:         &sync.Mutex{},
		shaders:    make(map[LightShaderType]*LightShader),
		failed:     make(map[LightShaderType]struct{}),
	}, nil
}

// DependencyValidation changes whenever a program built by this set changes.
func (l *LightResolveShaders) DependencyValidation() asset.DependencyValidation {
	return l.validation
}

// Desc returns the descriptor the set was built for.
func (l *LightResolveShaders) Desc() LightResolveShadersDesc {
	return l.desc
}

// Shader returns the light shader for t, building it on first use. It returns nil when no shader exists for t: an
// out of range value, a build failure, or a program still compiling. Failed builds are not retried until the set is
// rebuilt.
//
// Parameters:
//   - t: the light shader type
//
// Returns:
//   - *LightShader: the shader, or nil
func (l *LightResolveShaders) Shader(t LightShaderType) *LightShader {
	if !t.valid() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.shaders[t]; ok {
		return s
	}
	if _, ok := l.failed[t]; ok {
		return nil
	}

	s, err := l.build(t)
	if err != nil {
		if !errors.Is(err, asset.ErrPending) {
			common.Logger().Warn("light resolve shader unavailable", "shape", t.Shape, "shadows", t.Shadows, "err", err)
			l.failed[t] = struct{}{}
		}
		return nil
	}
	l.shaders[t] = s
	return s
}

func (l *LightResolveShaders) build(t LightShaderType) (*LightShader, error) {
	vs := vsFullscreen
	if l.desc.FlipDirection {
		vs = vsFullscreenFlip
	}

	if l.desc.DynamicLinking {
		prog, err := l.lib.Program(vs, psResolveLightDynamic, l.defines(t))
		if err != nil {
			return nil, err
		}
		l.validation.RegisterDependency(prog.DependencyValidation())
		return &LightShader{
			Program:         prog,
			ClassInterfaces: dynamicBindings(t),
			DynamicLinking:  prog.DynamicLinking(),
		}, nil
	}

	prog, err := l.lib.Program(vs, psResolveLight, l.defines(t))
	if err != nil {
		return nil, err
	}
	l.validation.RegisterDependency(prog.DependencyValidation())
	return &LightShader{Program: prog}, nil
}

// defines builds the define string for t. Statically linked variants bake shape and shadows in; dynamically linked
// ones compile every shadow path and leave the choice to the interface bindings.
func (l *LightResolveShaders) defines(t LightShaderType) string {
	var d []string
	add := func(name string, value any) {
		d = append(d, fmt.Sprintf("%s=%v", name, value))
	}
	flag := func(name string, set bool) {
		if set {
			add(name, 1)
		}
	}

	add("GBUFFER_TYPE", l.desc.GBufferType)
	flag("GBUFFER_HAS_PARAMETERS", l.desc.GBufferType == 1)
	add("MSAA_SAMPLES", l.desc.MSAASamples)
	flag("MSAA_SAMPLERS", l.desc.UseMsaaSamplers)
	flag("PER_SAMPLE", l.desc.UseMsaaSamplers && l.desc.MSAASamples > 1)
	flag("LIGHT_RESOLVE_DEBUGGING", l.desc.Debugging)
	flag("DIFFUSE_OREN_NAYAR", t.DiffuseModel == light.DiffuseOrenNayar)
	flag("HAS_SCREENSPACE_AO", t.HasScreenSpaceAO)

	if l.desc.DynamicLinking {
		add("LIGHT_RESOLVE_DYNAMIC_LINK", 1)
		add("SHADOWS", 1)
		add("SHADOW_ARBITRARY", 1)
		add("SHADOW_ORTHO", 1)
		return strings.Join(d, ";")
	}

	add("LIGHT_SHAPE", uint8(t.Shape))
	flag("SHADOW_RESOLVE_SMOOTH", t.Shadows != NoShadows && t.ShadowResolveModel == light.ShadowResolveSmooth)
	switch t.Shadows {
	case PerspectiveShadows:
		add("SHADOWS", 1)
		add("SHADOW_ARBITRARY", 1)
		add("SHADOW_CASCADE_MODE", 1)
	case OrthoShadows, OrthoShadowsNearCascade, OrthoHybridShadows:
		add("SHADOWS", 1)
		add("SHADOW_ORTHO", 1)
		add("SHADOW_CASCADE_MODE", 2)
		flag("SHADOW_ENABLE_NEAR_CASCADE", t.Shadows == OrthoShadowsNearCascade)
		flag("SHADOW_RT_HYBRID", t.Shadows == OrthoHybridShadows)
	}
	return strings.Join(d, ";")
}

// dynamicBindings maps a light shader type onto the interface implementations of the dynamically linked program.
// The ray traced part of the hybrid resolve has no dynamic implementation, so hybrid lights fall back to the ortho
// resolver.
func dynamicBindings(t LightShaderType) []device.ClassInterfaceBinding {
	resolver := "shadow_none"
	switch t.Shadows {
	case PerspectiveShadows:
		resolver = "shadow_arbitrary"
	case OrthoShadows, OrthoShadowsNearCascade, OrthoHybridShadows:
		resolver = "shadow_ortho"
	}
	filter := "shadow_filter_poisson"
	if t.ShadowResolveModel == light.ShadowResolveSmooth {
		filter = "shadow_filter_smooth"
	}
	return []device.ClassInterfaceBinding{
		{Slot: "LightShape", Implementation: "light_" + t.Shape.String()},
		{Slot: "ShadowResolver", Implementation: resolver},
		{Slot: "ShadowFilter", Implementation: filter},
	}
}

func (t LightShaderType) valid() bool {
	return t.Shape <= light.ShapeDisc &&
		t.Shadows <= OrthoHybridShadows &&
		t.DiffuseModel <= light.DiffuseOrenNayar &&
		t.ShadowResolveModel <= light.ShadowResolveSmooth
}
