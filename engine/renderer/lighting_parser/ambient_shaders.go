package lighting_parser

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/shader"
)

// AmbientResolveShadersDesc keys the ambient resolve program by the optional inputs present this frame.
type AmbientResolveShadersDesc struct {
	GBufferType     int
	MSAASamples     uint32
	UseMsaaSamplers bool
	PerSample       bool
	HasAO           bool
	HasTiledLights  bool
	HasSSR          bool
	SkyProjection   uint32
	HasIBL          bool
	DoRangeFog      bool
	IBLReference    bool
}

// AmbientResolveShaders holds the ambient resolve program for one AmbientResolveShadersDesc.
type AmbientResolveShaders struct {
	Program shader.Program
}

// DependencyValidation returns the program's validation.
func (a *AmbientResolveShaders) DependencyValidation() asset.DependencyValidation {
	return a.Program.DependencyValidation()
}

func buildAmbientResolveShaders(lib shader.Library, desc AmbientResolveShadersDesc) (*AmbientResolveShaders, error) {
	vs := vsFullscreenFlip
	if desc.PerSample {
		vs = vsFullscreen
	}
	prog, err := lib.Program(vs, psResolveAmbient, desc.defines())
	if err != nil {
		return nil, err
	}
	return &AmbientResolveShaders{Program: prog}, nil
}

func (d AmbientResolveShadersDesc) defines() string {
	defs := []string{
		fmt.Sprintf("GBUFFER_TYPE=%d", d.GBufferType),
		fmt.Sprintf("MSAA_SAMPLES=%d", d.MSAASamples),
	}
	flags := []struct {
		name string
		set  bool
	}{
		{"GBUFFER_HAS_PARAMETERS", d.GBufferType == 1},
		{"MSAA_SAMPLERS", d.UseMsaaSamplers},
		{"PER_SAMPLE", d.PerSample},
		{"HAS_SCREENSPACE_AO", d.HasAO},
		{"HAS_TILED_LIGHTING", d.HasTiledLights},
		{"HAS_SCREENSPACE_REFLECTIONS", d.HasSSR},
		{"CALCULATE_IBL", d.HasIBL},
		{"DO_RANGE_FOG", d.DoRangeFog},
		{"IBL_REFERENCE", d.IBLReference},
	}
	for _, f := range flags {
		if f.set {
			defs = append(defs, f.name+"=1")
		}
	}
	if d.SkyProjection != 0 {
		defs = append(defs, fmt.Sprintf("SKY_PROJECTION=%d", d.SkyProjection))
	}
	return strings.Join(defs, ";")
}
