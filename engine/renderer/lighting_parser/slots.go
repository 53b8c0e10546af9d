package lighting_parser

// Constant buffer slots (bind group 0). The resolve shaders declare their uniforms at these bindings.
const (
	CBGlobalTransform           = 0
	CBReciprocalViewport        = 1
	CBBasicLightingEnvironment  = 2
	CBArbitraryShadowProjection = 3
	CBOrthoShadowProjection     = 4
	CBLight                     = 5
	CBScreenToShadow            = 6
	CBScreenToRTShadow          = 7
	CBAmbientResolve            = 8
	CBMaterialOverride          = 9
	CBDebugging                 = 10
	CBShadowResolveParameters   = 11
	CBShadowSampleKernel        = 12
)

// Resource slots (bind group 1).
const (
	SRGBuffer0         = 0
	SRGBuffer1         = 1
	SRGBuffer2         = 2
	SRShadowTextures   = 3
	SRDepth            = 4
	SRAmbientOcclusion = 5
	SRTiledLighting    = 6
	SRScreenSpaceRefl  = 7
	SRLightingCopy     = 8
	SRNoise            = 10
	SRSky              = 11
	SRGGXTable         = 16
	SRDiffuseIBL       = 19
	SRSpecularIBL      = 20
	SRGlossLUT         = 21
	SRGlossTransLUT    = 22
	SRRTListHead       = 23
	SRRTLinkedLists    = 24
	SRRTTriangles      = 25
)

// Sampler slots (bind group 2).
const (
	SamplerDefault     = 0
	SamplerClamping    = 1
	SamplerPoint       = 2
	SamplerShadow      = 4
	SamplerShadowDepth = 5
)

// transientResourceCount is the number of low resource slots cleared after the resolve.
const transientResourceCount = 9
