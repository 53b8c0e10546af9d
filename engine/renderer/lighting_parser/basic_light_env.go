package lighting_parser

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-resolve/engine/light"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

func (p *lightingParserImpl) InitBasicLightEnv(ctx device.Context, parser *ParserContext) light.GPUBasicEnvironment {
	gl := parser.globalLighting()
	env := light.GPUBasicEnvironment{
		Ambient:   gl.AmbientDesc(),
		RangeFog:  gl.RangeFogDesc(),
		VolumeFog: light.BlankVolumeFog,
	}

	count := 0
	if parser.Scene != nil {
		count = parser.Scene.LightCount()
	}
	for i := range env.Dominant {
		if i >= count {
			env.Dominant[i] = light.BlankLight
			continue
		}
		desc := parser.Scene.LightDesc(i)
		env.Dominant[i] = desc.ShaderDesc()
	}

	for i, plugin := range parser.Plugins {
		if err := isolate(func() error {
			plugin.InitBasicLightEnvironment(ctx, parser, &env)
			return nil
		}); err != nil {
			parser.Metrics.PluginFailures++
			parser.ReportError(fmt.Errorf("plugin %d basic environment: %w", i, err))
		}
	}

	data := env.Marshal()
	for _, stage := range bothStages {
		ctx.BindConstants(stage, CBBasicLightingEnvironment, data)
	}
	return env
}
