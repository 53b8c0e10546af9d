package lighting_parser

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/jinzhu/copier"

	"github.com/Carmen-Shannon/oxy-resolve/common"
	"github.com/Carmen-Shannon/oxy-resolve/engine/asset"
	"github.com/Carmen-Shannon/oxy-resolve/engine/light"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

const perSampleStencilRef = 0xff

var bothStages = []device.ShaderStage{device.StageVertex, device.StagePixel}

// environmentTextures are the optional global lighting textures that finished loading this frame.
type environmentTextures struct {
	sky         *device.TextureView
	diffuseIBL  *device.TextureView
	specularIBL *device.TextureView
}

func (e environmentTextures) hasIBL() bool {
	return e.diffuseIBL != nil && e.specularIBL != nil
}

func (p *lightingParserImpl) ResolveGBuffer(ctx device.Context, parser *ParserContext, targets *MainTargets) error {
	if targets == nil || targets.LightingResolve == nil {
		return fmt.Errorf("lighting resolve: no lighting resolve target")
	}
	ctx.BeginAnnotation("lighting resolve")
	defer ctx.EndAnnotation()

	resolveCtx := NewResolveContext(targets)
	samples := resolveCtx.SamplingCount()
	doSampleFrequency := parser.Tweakables.SampleFrequencyOptimisation && samples > 1

	res, err := p.resources.Get(resourcesDesc{samplingCount: samples})
	if err != nil {
		return fmt.Errorf("lighting resolve: %w", err)
	}

	if doSampleFrequency {
		p.drawPerSampleMask(ctx, targets, res)
	}

	for i, plugin := range parser.Plugins {
		if err := isolate(func() error {
			return plugin.OnLightingResolvePrepare(ctx, parser, resolveCtx)
		}); err != nil {
			parser.Metrics.PluginFailures++
			parser.ReportError(fmt.Errorf("plugin %d prepare: %w", i, err))
		}
	}

	err = p.resolvePasses(ctx, parser, resolveCtx, targets, res, doSampleFrequency)

	ctx.UnbindResources(device.StagePixel, 0, transientResourceCount)
	ctx.BindRasterizer(device.DefaultRasterizer)
	ctx.BindDepthStencil(device.DSSReadWrite, 0)
	if err != nil {
		return err
	}

	p.queueDebuggingOverlays(parser, resolveCtx, targets)
	return nil
}

// resolvePasses binds the state shared by every pass and runs the per-pixel pass, then the per-sample pass when the
// stencil mask was drawn.
func (p *lightingParserImpl) resolvePasses(ctx device.Context, parser *ParserContext, resolveCtx *ResolveContext, targets *MainTargets, res *LightingResolveResources, doSampleFrequency bool) error {
	ctx.BindBlend(device.BlendOneSrcAlpha)
	ctx.BindRenderTargets([]*device.TextureView{targets.LightingResolve}, targets.Depth)
	bindGBuffer(ctx, targets)
	ctx.BindSamplers(device.StagePixel, SamplerShadow, res.ShadowComparisonSampler, res.ShadowDepthSampler)
	env, err := p.bindLightResolveResources(ctx, parser)
	if err != nil {
		return fmt.Errorf("lighting resolve: %w", err)
	}
	// lights and ambient accumulate additively
	ctx.ClearColour(targets.LightingResolve, [4]float32{0, 0, 0, 1})
	if resolveCtx.AmbientOcclusion != nil {
		ctx.BindResources(device.StagePixel, SRAmbientOcclusion, resolveCtx.AmbientOcclusion)
	}
	transform := parser.Projection.GlobalTransform()
	for _, stage := range bothStages {
		ctx.BindConstants(stage, CBGlobalTransform, transform)
	}
	ctx.BindRasterizer(device.CullDisable)
	ctx.BindTopology(wgpu.PrimitiveTopologyTriangleStrip)

	passCount := 1
	if doSampleFrequency {
		passCount = 2
	}
	for c := range passCount {
		pass := PassPerPixel + Pass(c)
		resolveCtx.SetPass(pass)
		if err := p.resolvePass(ctx, parser, resolveCtx, targets, res, env, doSampleFrequency); err != nil {
			return err
		}
		parser.Metrics.PassesRendered++
	}
	return nil
}

func (p *lightingParserImpl) resolvePass(ctx device.Context, parser *ParserContext, resolveCtx *ResolveContext, targets *MainTargets, res *LightingResolveResources, env environmentTextures, doSampleFrequency bool) error {
	pass := resolveCtx.CurrentPass()
	ctx.BeginAnnotation(pass.String())
	defer ctx.EndAnnotation()

	passDSS, passRef := device.DSSDisable, uint32(0)
	if doSampleFrequency {
		passDSS, passRef = res.WritePixelFrequencyPixels, perSampleStencilRef
	}
	ctx.BindDepthStencil(passDSS, passRef)

	p.ResolveLights(ctx, parser, resolveCtx, false)

	if err := p.resolveAmbient(ctx, parser, resolveCtx, targets, env); err != nil {
		return err
	}

	if parser.Tweakables.DoSky && env.sky != nil {
		p.drawSky(ctx, parser, env)
		ctx.BindBlend(device.BlendOneSrcAlpha)
		ctx.BindDepthStencil(passDSS, passRef)
		ctx.BindRenderTargets([]*device.TextureView{targets.LightingResolve}, targets.Depth)
		ctx.BindTopology(wgpu.PrimitiveTopologyTriangleStrip)
	}

	for i, fn := range resolveCtx.Resolves() {
		if err := isolate(func() error {
			fn(ctx, parser, resolveCtx, pass)
			return nil
		}); err != nil {
			parser.Metrics.PluginFailures++
			parser.ReportError(fmt.Errorf("queued resolve %d (%s pass): %w", i, pass, err))
		}
	}
	return nil
}

// drawPerSampleMask writes the reference value into the stencil plane of every pixel whose samples differ.
func (p *lightingParserImpl) drawPerSampleMask(ctx device.Context, targets *MainTargets, res *LightingResolveResources) {
	ctx.BeginAnnotation("per-sample mask")
	defer ctx.EndAnnotation()

	ctx.ClearStencil(targets.Depth, 0)
	ctx.BindRenderTargets([]*device.TextureView{targets.LightingResolve}, targets.Depth)
	ctx.BindResources(device.StagePixel, SRGBuffer0, targets.GBuffer[0], targets.GBuffer[1])
	ctx.BindBlend(device.BlendState{WriteMask: wgpu.ColorWriteMaskNone})
	ctx.BindRasterizer(device.CullDisable)
	ctx.BindDepthStencil(res.AlwaysWriteToStencil, perSampleStencilRef)
	ctx.BindProgram(res.PerSampleMask, nil)
	ctx.BindTopology(wgpu.PrimitiveTopologyTriangleStrip)
	ctx.Draw(4, 0)
}

func bindGBuffer(ctx device.Context, targets *MainTargets) {
	ctx.BindResources(device.StagePixel, SRGBuffer0, targets.GBuffer[:]...)
	ctx.BindResources(device.StagePixel, SRDepth, targets.Depth)
}

func (p *lightingParserImpl) ResolveLights(ctx device.Context, parser *ParserContext, resolveCtx *ResolveContext, debugging bool) {
	pass := resolveCtx.CurrentPass()
	if pass == PassPrepare {
		contractViolation("ResolveLights called during the prepare pass")
		return
	}
	if parser.Scene == nil || parser.Scene.LightCount() == 0 {
		return
	}
	if _, err := p.commonResources(); err != nil {
		parser.ReportError(fmt.Errorf("light resolve: %w", err))
		return
	}

	samples := uint32(1)
	if pass == PassPerSample {
		samples = resolveCtx.SamplingCount()
	}
	shaders, err := p.lightShaders.Get(LightResolveShadersDesc{
		GBufferType:     resolveCtx.GBufferType(),
		MSAASamples:     samples,
		UseMsaaSamplers: resolveCtx.UseMsaaSamplers(),
		FlipDirection:   pass == PassPerPixel,
		DynamicLinking:  parser.Tweakables.LightResolveDynamic != 0,
		Debugging:       debugging,
	})
	if err != nil {
		parser.ReportError(fmt.Errorf("light resolve shaders: %w", err))
		return
	}

	ctx.BeginAnnotation("lights")
	defer ctx.EndAnnotation()
	for i := range parser.Scene.LightCount() {
		if err := isolate(func() error {
			p.resolveLight(ctx, parser, resolveCtx, shaders, i, debugging)
			return nil
		}); err != nil {
			parser.Metrics.LightFailures++
			parser.ReportError(fmt.Errorf("light %d: %w", i, err))
		}
	}
}

func (p *lightingParserImpl) resolveLight(ctx device.Context, parser *ParserContext, resolveCtx *ResolveContext, shaders *LightResolveShaders, lightID int, debugging bool) {
	desc := parser.Scene.LightDesc(lightID)
	kind := ResolveShadowKind(parser, lightID)
	s := shaders.Shader(LightShaderType{
		Shape:              desc.Shape,
		Shadows:            kind,
		DiffuseModel:       desc.DiffuseModel,
		ShadowResolveModel: desc.ShadowResolveModel,
		HasScreenSpaceAO:   resolveCtx.AmbientOcclusion != nil,
	})
	if s == nil {
		parser.Metrics.LightsSkipped++
		return
	}

	if kind != NoShadows {
		if dm := FindDMShadowFrustum(parser, lightID); dm >= 0 && parser.PreparedDMShadows[dm].Frustum.IsReady() {
			p.bindDMShadow(ctx, parser, &parser.PreparedDMShadows[dm].Frustum, kind)
		}
	}
	if kind == OrthoHybridShadows {
		rt := &parser.PreparedRTShadows[FindRTShadowFrustum(parser, lightID)].Frustum
		ctx.BindResources(device.StagePixel, SRRTListHead, rt.ListHead, rt.LinkedLists, rt.Triangles)
		screenToRT := light.BuildScreenToShadow(rt.WorldToShadow, parser.Projection.CameraToWorld, parser.Projection.CameraToProjection)
		ctx.BindConstants(device.StagePixel, CBScreenToRTShadow, screenToRT.Marshal())
	}

	gpu := desc.ShaderDesc()
	ctx.BindConstants(device.StagePixel, CBLight, gpu.Marshal())
	if debugging {
		vp := ctx.Viewport()
		globals := light.GPUDebuggingGlobals{
			ViewportSize:  [2]uint32{uint32(vp.Width), uint32(vp.Height)},
			MousePosition: parser.MousePosition,
		}
		ctx.BindConstants(device.StagePixel, CBDebugging, globals.Marshal())
	}

	var interfaces []device.ClassInterfaceBinding
	if s.DynamicLinking {
		interfaces = s.ClassInterfaces
	}
	ctx.BindProgram(s.Program, interfaces)
	ctx.Draw(4, 0)
	parser.Metrics.LightsResolved++
}

func (p *lightingParserImpl) bindDMShadow(ctx device.Context, parser *ParserContext, shadow *PreparedDMShadowFrustum, kind ShadowKind) {
	ctx.BindResources(device.StagePixel, SRShadowTextures, shadow.ShadowTextures)
	if kind == PerspectiveShadows || shadow.Mode != light.ShadowOrtho {
		ctx.BindConstants(device.StagePixel, CBArbitraryShadowProjection, shadow.Arbitrary.Marshal())
	} else {
		ctx.BindConstants(device.StagePixel, CBOrthoShadowProjection, shadow.Ortho.Marshal())
	}
	screenToShadow := light.BuildScreenToShadow(shadow.WorldToShadow, parser.Projection.CameraToWorld, parser.Projection.CameraToProjection)
	ctx.BindConstants(device.StagePixel, CBScreenToShadow, screenToShadow.Marshal())
	ctx.BindConstants(device.StagePixel, CBShadowResolveParameters, shadow.ResolveParameters.Marshal())
	ctx.BindConstants(device.StagePixel, CBShadowSampleKernel, p.common.sampleKernel)
}

func (p *lightingParserImpl) BindLightResolveResources(ctx device.Context, parser *ParserContext) error {
	_, err := p.bindLightResolveResources(ctx, parser)
	return err
}

func (p *lightingParserImpl) bindLightResolveResources(ctx device.Context, parser *ParserContext) (environmentTextures, error) {
	c, err := p.commonResources()
	if err != nil {
		return environmentTextures{}, err
	}
	ctx.BindResources(device.StagePixel, SRNoise, c.noise)
	ctx.BindResources(device.StagePixel, SRGGXTable, c.ggxTable)
	ctx.BindResources(device.StagePixel, SRGlossLUT, c.glossLUT, c.glossTransLUT)
	ctx.BindSamplers(device.StagePixel, SamplerDefault, c.defaultSampler, c.clampingSampler, c.pointSampler)

	gl := parser.globalLighting()
	env := environmentTextures{
		sky:         p.environmentTexture(parser, gl.SkyTexture),
		diffuseIBL:  p.environmentTexture(parser, gl.DiffuseIBL),
		specularIBL: p.environmentTexture(parser, gl.SpecularIBL),
	}
	if env.sky != nil {
		ctx.BindResources(device.StagePixel, SRSky, env.sky)
	}
	if env.hasIBL() {
		ctx.BindResources(device.StagePixel, SRDiffuseIBL, env.diffuseIBL, env.specularIBL)
	}
	ctx.BindConstants(device.StagePixel, CBMaterialOverride, c.materialOverride)
	return env, nil
}

// environmentTexture returns the named texture, or nil when there is none or it is not loaded yet.
func (p *lightingParserImpl) environmentTexture(parser *ParserContext, name string) *device.TextureView {
	if name == "" || p.textures == nil {
		return nil
	}
	view, err := p.textures.Get(name)
	if errors.Is(err, asset.ErrPending) {
		parser.Metrics.PendingAssets++
		return nil
	}
	if err != nil {
		common.Logger().Debug("environment texture unavailable", "texture", name, "err", err)
		return nil
	}
	return view
}

func (p *lightingParserImpl) resolveAmbient(ctx device.Context, parser *ParserContext, resolveCtx *ResolveContext, targets *MainTargets, env environmentTextures) error {
	pass := resolveCtx.CurrentPass()
	gl := parser.globalLighting()
	hasSSR := resolveCtx.ScreenSpaceReflections != nil && targets.LightingResolveCopy != nil

	samples := uint32(1)
	if pass == PassPerSample {
		samples = resolveCtx.SamplingCount()
	}
	desc := AmbientResolveShadersDesc{
		GBufferType:     resolveCtx.GBufferType(),
		MSAASamples:     samples,
		UseMsaaSamplers: resolveCtx.UseMsaaSamplers(),
		PerSample:       pass == PassPerSample,
		HasAO:           resolveCtx.AmbientOcclusion != nil,
		HasTiledLights:  resolveCtx.TiledLighting != nil,
		HasSSR:          hasSSR,
		HasIBL:          env.hasIBL(),
		DoRangeFog:      gl.DoRangeFog,
		IBLReference:    parser.Tweakables.IBLRef,
	}
	if env.sky != nil {
		desc.SkyProjection = gl.SkyTextureProjection()
	}
	shaders, err := p.ambientShaders.Get(desc)
	if errors.Is(err, asset.ErrPending) {
		parser.Metrics.PendingAssets++
		return nil
	}
	if err != nil {
		return fmt.Errorf("ambient resolve: %w", err)
	}

	ctx.BeginAnnotation("ambient")
	defer ctx.EndAnnotation()
	if hasSSR {
		ctx.Copy(targets.LightingResolveCopy, targets.LightingResolve)
		ctx.BindResources(device.StagePixel, SRScreenSpaceRefl, resolveCtx.ScreenSpaceReflections, targets.LightingResolveCopy)
	}
	if resolveCtx.TiledLighting != nil {
		ctx.BindResources(device.StagePixel, SRTiledLighting, resolveCtx.TiledLighting)
	}

	vp := ctx.Viewport()
	ambient := light.GPUAmbientResolve{
		Ambient:  gl.AmbientDesc(),
		RangeFog: gl.RangeFogDesc(),
	}
	if vp.Width > 0 && vp.Height > 0 {
		ambient.ReciprocalViewportDims = [2]float32{1 / vp.Width, 1 / vp.Height}
	}
	ctx.BindConstants(device.StagePixel, CBAmbientResolve, ambient.Marshal())
	ctx.BindProgram(shaders.Program, nil)
	ctx.Draw(4, 0)
	return nil
}

// drawSky draws the sky behind the lit scene. It leaves blend, depth-stencil and topology changed; the caller
// restores them.
func (p *lightingParserImpl) drawSky(ctx device.Context, parser *ParserContext, env environmentTextures) {
	gl := parser.globalLighting()
	defines := fmt.Sprintf("SKY_BRIGHTNESS=%g", gl.SkyBrightness)
	if gl.SkyTextureType == light.SkyHemiEquirectangular || gl.SkyTextureType == light.SkyHemiCube {
		defines += ";SKY_HEMI=1"
	}
	prog, err := p.lib.Program(vsFullscreenFrustum, psSky, defines)
	if err != nil {
		if !errors.Is(err, asset.ErrPending) {
			parser.ReportError(fmt.Errorf("sky: %w", err))
		}
		return
	}

	ctx.BeginAnnotation("sky")
	defer ctx.EndAnnotation()
	ctx.BindDepthStencil(device.DSSReadOnly, 0)
	ctx.BindBlend(device.BlendOpaque)
	ctx.BindResources(device.StagePixel, SRSky, env.sky)
	ctx.BindProgram(prog, nil)
	ctx.BindTopology(wgpu.PrimitiveTopologyTriangleStrip)
	ctx.Draw(4, 0)
}

// queueDebuggingOverlays registers the enabled debugging views. Each overlay holds its own copies of the frame state
// it reads.
func (p *lightingParserImpl) queueDebuggingOverlays(parser *ParserContext, resolveCtx *ResolveContext, targets *MainTargets) {
	snapTargets := *targets

	if mode := parser.Tweakables.DeferredDebugging; mode != 0 {
		useMsaa := resolveCtx.UseMsaaSamplers()
		gbufferType := resolveCtx.GBufferType()
		parser.AddPendingOverlay(func(ctx device.Context, parser *ParserContext) {
			p.drawDeferredDebugging(ctx, parser, &snapTargets, mode, gbufferType, useMsaa)
		})
	}

	if parser.Tweakables.RTShadowMetrics && len(parser.PreparedRTShadows) > 0 {
		var shadows []RTShadow
		if err := copier.Copy(&shadows, parser.PreparedRTShadows); err != nil {
			parser.ReportError(fmt.Errorf("rt shadow metrics snapshot: %w", err))
		} else {
			parser.AddPendingOverlay(func(ctx device.Context, parser *ParserContext) {
				p.drawRTShadowMetrics(ctx, parser, shadows)
			})
		}
	}

	if parser.Tweakables.LightResolveDebugging {
		snap := resolveCtx.Snapshot()
		snap.SetPass(PassPerPixel)
		parser.AddPendingOverlay(func(ctx device.Context, parser *ParserContext) {
			p.drawLightResolveDebugging(ctx, parser, &snapTargets, &snap)
		})
	}
}

func (p *lightingParserImpl) drawDeferredDebugging(ctx device.Context, parser *ParserContext, targets *MainTargets, mode, gbufferType int, useMsaa bool) {
	defines := fmt.Sprintf("DEBUGGING_MODE=%d;GBUFFER_TYPE=%d", mode, gbufferType)
	if gbufferType == 1 {
		defines += ";GBUFFER_HAS_PARAMETERS=1"
	}
	if useMsaa {
		defines += ";MSAA_SAMPLERS=1"
	}
	prog, err := p.lib.Program(vsFullscreen, psDeferredDebugging, defines)
	if err != nil {
		reportUnlessPending(parser, fmt.Errorf("deferred debugging: %w", err))
		return
	}
	ctx.BeginAnnotation("deferred debugging")
	defer ctx.EndAnnotation()
	p.bindOverlayTarget(ctx, parser, device.BlendOpaque)
	bindGBuffer(ctx, targets)
	ctx.BindProgram(prog, nil)
	ctx.Draw(4, 0)
	ctx.UnbindResources(device.StagePixel, 0, SRDepth+1)
	ctx.BindRasterizer(device.DefaultRasterizer)
	ctx.BindDepthStencil(device.DSSReadWrite, 0)
}

func (p *lightingParserImpl) drawRTShadowMetrics(ctx device.Context, parser *ParserContext, shadows []RTShadow) {
	prog, err := p.lib.Program(vsFullscreen, psRTShadowMetrics, "")
	if err != nil {
		reportUnlessPending(parser, fmt.Errorf("rt shadow metrics: %w", err))
		return
	}
	ctx.BeginAnnotation("rt shadow metrics")
	defer ctx.EndAnnotation()
	p.bindOverlayTarget(ctx, parser, device.BlendStraightAlpha)
	ctx.BindProgram(prog, nil)
	for _, s := range shadows {
		if !s.Frustum.IsReady() {
			continue
		}
		ctx.BindResources(device.StagePixel, SRRTListHead, s.Frustum.ListHead, s.Frustum.LinkedLists)
		ctx.Draw(4, 0)
	}
	ctx.UnbindResources(device.StagePixel, SRRTListHead, 2)
	ctx.BindRasterizer(device.DefaultRasterizer)
	ctx.BindDepthStencil(device.DSSReadWrite, 0)
}

func (p *lightingParserImpl) drawLightResolveDebugging(ctx device.Context, parser *ParserContext, targets *MainTargets, resolveCtx *ResolveContext) {
	ctx.BeginAnnotation("light resolve debugging")
	defer ctx.EndAnnotation()
	p.bindOverlayTarget(ctx, parser, device.BlendOneSrcAlpha)
	bindGBuffer(ctx, targets)
	if err := p.BindLightResolveResources(ctx, parser); err != nil {
		reportUnlessPending(parser, fmt.Errorf("light resolve debugging: %w", err))
	} else {
		p.ResolveLights(ctx, parser, resolveCtx, true)
	}
	ctx.UnbindResources(device.StagePixel, 0, transientResourceCount+1)
	ctx.BindRasterizer(device.DefaultRasterizer)
	ctx.BindDepthStencil(device.DSSReadWrite, 0)
}

// reportUnlessPending reports err unless it only says an asset is still being built; that case is retried next frame.
func reportUnlessPending(parser *ParserContext, err error) {
	if errors.Is(err, asset.ErrPending) {
		parser.Metrics.PendingAssets++
		return
	}
	parser.ReportError(err)
}

// bindOverlayTarget binds the overlay target without depth and the full screen state the debugging views draw with.
func (p *lightingParserImpl) bindOverlayTarget(ctx device.Context, parser *ParserContext, blend device.BlendState) {
	ctx.BindRenderTargets([]*device.TextureView{parser.OverlayTarget}, nil)
	ctx.BindBlend(blend)
	ctx.BindDepthStencil(device.DSSDisable, 0)
	ctx.BindRasterizer(device.CullDisable)
	ctx.BindTopology(wgpu.PrimitiveTopologyTriangleStrip)
	transform := parser.Projection.GlobalTransform()
	for _, stage := range bothStages {
		ctx.BindConstants(stage, CBGlobalTransform, transform)
	}
}
