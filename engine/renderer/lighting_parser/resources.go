package lighting_parser

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
	"github.com/Carmen-Shannon/oxy-resolve/engine/light"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/shader"
)

// Shader references shared by the resolve passes.
const (
	vsFullscreen         = "basic2D.wgsl:fullscreen"
	vsFullscreenFlip     = "basic2D.wgsl:fullscreen_flip"
	vsFullscreenFrustum  = "basic2D.wgsl:fullscreen_viewfrustumvector"
	psPerSampleMask      = "deferred/persamplemask.wgsl:main"
	psResolveLight       = "deferred/resolvelight.wgsl:main"
	psResolveAmbient     = "deferred/resolveambient.wgsl:main"
	psSky                = "sky.wgsl:main"
	psDeferredDebugging  = "deferred/debugging.wgsl:main"
	psRTShadowMetrics    = "deferred/rtshadowmetrics.wgsl:main"
	lookupTableDimension = 32
	noiseDimension       = 64
)

// resourcesDesc keys LightingResolveResources.
type resourcesDesc struct {
	samplingCount uint32
}

// LightingResolveResources are the states, samplers and programs the resolve needs for one MSAA sampling count.
type LightingResolveResources struct {
	// AlwaysWriteToStencil writes the reference value to the stencil plane without a depth test.
	AlwaysWriteToStencil device.DepthStencilState
	// WritePixelFrequencyPixels tests the stencil plane against the reference without writing it. Front faces pass
	// on Equal, back faces on NotEqual, so the winding of the full screen strip picks the pixel set.
	WritePixelFrequencyPixels device.DepthStencilState
	ShadowComparisonSampler   *device.Sampler
	ShadowDepthSampler        *device.Sampler
	// PerSampleMask classifies pixels that need per-sample shading. Nil for a sampling count of 1.
	PerSampleMask shader.Program

	validation asset.DependencyValidation
}

// DependencyValidation returns the validation of the per-sample mask program.
func (r *LightingResolveResources) DependencyValidation() asset.DependencyValidation {
	return r.validation
}

func (p *lightingParserImpl) buildResources(lib shader.Library, desc resourcesDesc) (*LightingResolveResources, error) {
	res := &LightingResolveResources{
		AlwaysWriteToStencil: device.DepthStencilState{
			DepthCompare:     wgpu.CompareFunctionAlways,
			StencilEnable:    true,
			StencilReadMask:  0xff,
			StencilWriteMask: 0xff,
			Front:            device.StencilAlwaysWrite,
			Back:             device.StencilAlwaysWrite,
		},
		WritePixelFrequencyPixels: device.DepthStencilState{
			DepthCompare:     wgpu.CompareFunctionAlways,
			StencilEnable:    true,
			StencilReadMask:  0xff,
			StencilWriteMask: 0,
			Front:            device.StencilTestOnly(wgpu.CompareFunctionEqual),
			Back:             device.StencilTestOnly(wgpu.CompareFunctionNotEqual),
		},
		validation: asset.NewDependencyValidation(),
	}

	var err error
	res.ShadowComparisonSampler, err = p.device.CreateSampler("shadow comparison", common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeNearest,
		LodMaxClamp:  32,
		Compare:      wgpu.CompareFunctionLessEqual,
	})
	if err != nil {
		return nil, fmt.Errorf("lighting resolve resources: %w", err)
	}
	res.ShadowDepthSampler, err = p.device.CreateSampler("shadow depth", common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeNearest,
		LodMaxClamp:  32,
	})
	if err != nil {
		return nil, fmt.Errorf("lighting resolve resources: %w", err)
	}

	if desc.samplingCount > 1 {
		prog, err := lib.Program(vsFullscreen, psPerSampleMask, fmt.Sprintf("MSAA_SAMPLES=%d", desc.samplingCount))
		if err != nil {
			return nil, err
		}
		res.PerSampleMask = prog
		res.validation.RegisterDependency(prog.DependencyValidation())
	}
	return res, nil
}

// commonResources are created once per lighting parser and bound for every resolve.
type commonResources struct {
	noise            *device.TextureView
	ggxTable         *device.TextureView
	glossLUT         *device.TextureView
	glossTransLUT    *device.TextureView
	defaultSampler   *device.Sampler
	clampingSampler  *device.Sampler
	pointSampler     *device.Sampler
	sampleKernel     []byte
	materialOverride []byte
}

func (p *lightingParserImpl) commonResources() (*commonResources, error) {
	if p.common != nil {
		return p.common, nil
	}
	c := &commonResources{}
	var err error
	textures := []struct {
		out   **device.TextureView
		label string
		data  common.TextureStagingData
	}{
		{&c.noise, "balanced noise", noiseTexture(noiseDimension)},
		{&c.ggxTable, "ggx table", lookupTable(lookupTableDimension, ggxEnvironmentBRDF)},
		{&c.glossLUT, "gloss lut", lookupTable(lookupTableDimension, glossReflectance)},
		{&c.glossTransLUT, "gloss transmission lut", lookupTable(lookupTableDimension, glossTransmission)},
	}
	for _, t := range textures {
		if *t.out, err = p.device.CreateTexture(t.label, t.data); err != nil {
			return nil, fmt.Errorf("lighting common resources: %w", err)
		}
	}

	samplers := []struct {
		out   **device.Sampler
		label string
		mode  wgpu.AddressMode
		filt  wgpu.FilterMode
	}{
		{&c.defaultSampler, "default", wgpu.AddressModeRepeat, wgpu.FilterModeLinear},
		{&c.clampingSampler, "clamping", wgpu.AddressModeClampToEdge, wgpu.FilterModeLinear},
		{&c.pointSampler, "point", wgpu.AddressModeClampToEdge, wgpu.FilterModeNearest},
	}
	for _, s := range samplers {
		*s.out, err = p.device.CreateSampler(s.label, common.SamplerStagingData{
			AddressModeU: s.mode,
			AddressModeV: s.mode,
			AddressModeW: s.mode,
			MagFilter:    s.filt,
			MinFilter:    s.filt,
			MipmapFilter: wgpu.MipmapFilterModeLinear,
			LodMaxClamp:  32,
		})
		if err != nil {
			return nil, fmt.Errorf("lighting common resources: %w", err)
		}
	}

	kernel := light.SampleKernel32()
	c.sampleKernel = kernel.Marshal()
	override := light.DefaultMaterialOverride
	c.materialOverride = override.Marshal()
	p.common = c
	return c, nil
}

// noiseTexture fills an RGBA texture with integer hash noise. The pattern is fixed so frames are reproducible.
func noiseTexture(dim uint32) common.TextureStagingData {
	pixels := make([]byte, dim*dim*4)
	state := uint32(0x9e3779b9)
	for i := range pixels {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		pixels[i] = byte(state >> 24)
	}
	return common.TextureStagingData{Pixels: pixels, Width: dim, Height: dim}
}

// lookupTable evaluates fn over (n dot v, roughness) in [0,1] squared and stores the two results in red and green.
func lookupTable(dim uint32, fn func(nDotV, roughness float32) (float32, float32)) common.TextureStagingData {
	pixels := make([]byte, dim*dim*4)
	for y := range dim {
		for x := range dim {
			nDotV := (float32(x) + 0.5) / float32(dim)
			roughness := (float32(y) + 0.5) / float32(dim)
			a, b := fn(nDotV, roughness)
			i := (y*dim + x) * 4
			pixels[i] = unorm8(a)
			pixels[i+1] = unorm8(b)
			pixels[i+3] = 0xff
		}
	}
	return common.TextureStagingData{Pixels: pixels, Width: dim, Height: dim}
}

func unorm8(v float32) byte {
	return byte(math32.Round(math32.Max(0, math32.Min(1, v)) * 255))
}

// ggxEnvironmentBRDF is the analytic fit of the split sum scale and bias for GGX.
func ggxEnvironmentBRDF(nDotV, roughness float32) (float32, float32) {
	c0 := [4]float32{-1, -0.0275, -0.572, 0.022}
	c1 := [4]float32{1, 0.0425, 1.04, -0.04}
	r := [4]float32{}
	for i := range r {
		r[i] = roughness*c0[i] + c1[i]
	}
	a004 := math32.Min(r[0]*r[0], math32.Exp2(-9.28*nDotV))*r[0] + r[1]
	return a004*-1.04 + r[2], a004*1.04 + r[3]
}

func glossReflectance(nDotV, roughness float32) (float32, float32) {
	fresnel := math32.Pow(1-nDotV, 5)
	return 1 - roughness*0.5*(1-fresnel), fresnel
}

func glossTransmission(nDotV, roughness float32) (float32, float32) {
	r, f := glossReflectance(nDotV, roughness)
	return 1 - r*f, 1 - f
}
