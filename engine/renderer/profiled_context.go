package renderer

import (
	"github.com/Carmen-Shannon/oxy-resolve/engine/profiler"
	"github.com/Carmen-Shannon/oxy-resolve/engine/renderer/device"
)

// profiledContext times every annotated section of the frame on the CPU side.
type profiledContext struct {
	device.Context
	profiler *profiler.Profiler
}

func (c *profiledContext) BeginAnnotation(label string) {
	c.profiler.Begin(label)
	c.Context.BeginAnnotation(label)
}

func (c *profiledContext) EndAnnotation() {
	c.Context.EndAnnotation()
	c.profiler.End()
}
