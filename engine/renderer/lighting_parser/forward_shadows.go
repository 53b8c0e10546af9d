package lighting_parser

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-resolve/engine/light"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// Technique parameters forward shaders select their shadow path with.
const (
	ParamShadowCascadeMode       = "SHADOW_CASCADE_MODE"
	ParamShadowEnableNearCascade = "SHADOW_ENABLE_NEAR_CASCADE"
)

func (p *lightingParserImpl) BindShadowsForForwardResolve(ctx device.Context, parser *ParserContext, shadow *PreparedDMShadowFrustum) error {
	if shadow == nil || !shadow.IsReady() {
		return fmt.Errorf("forward shadows: shadow is not ready")
	}
	c, err := p.commonResources()
	if err != nil {
		return fmt.Errorf("forward shadows: %w", err)
	}
	res, err := p.resources.Get(resourcesDesc{samplingCount: 1})
	if err != nil {
		return fmt.Errorf("forward shadows: %w", err)
	}

	ctx.BindResources(device.StagePixel, SRShadowTextures, shadow.ShadowTextures)
	ctx.BindResources(device.StagePixel, SRNoise, c.noise)
	ctx.BindSamplers(device.StagePixel, SamplerShadow, res.ShadowComparisonSampler, res.ShadowDepthSampler)
	ctx.BindConstants(device.StagePixel, CBShadowResolveParameters, shadow.ResolveParameters.Marshal())
	ctx.BindConstants(device.StagePixel, CBShadowSampleKernel, c.sampleKernel)
	arbitrary, ortho := shadow.Arbitrary.Marshal(), shadow.Ortho.Marshal()
	for _, stage := range bothStages {
		ctx.BindConstants(stage, CBArbitraryShadowProjection, arbitrary)
		ctx.BindConstants(stage, CBOrthoShadowProjection, ortho)
	}

	mode, near := 1, 0
	if shadow.Mode == light.ShadowOrtho {
		mode = 2
	}
	if shadow.EnableNearCascade {
		near = 1
	}
	parser.RuntimeParameters.Set(ParamShadowCascadeMode, mode)
	parser.RuntimeParameters.Set(ParamShadowEnableNearCascade, near)
	return nil
}

func (p *lightingParserImpl) UnbindShadowsForForwardResolve(ctx device.Context, parser *ParserContext) {
	ctx.UnbindResources(device.StagePixel, SRShadowTextures, 1)
	parser.RuntimeParameters.Set(ParamShadowCascadeMode, 0)
	parser.RuntimeParameters.Set(ParamShadowEnableNearCascade, 0)
}
