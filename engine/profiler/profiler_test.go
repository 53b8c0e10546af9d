package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestProfiler(interval time.Duration) (*Profiler, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := NewProfiler(WithUpdateInterval(interval), func(p *Profiler) { p.now = clock.now })
	return p, clock
}

func TestSectionsAccumulate(t *testing.T) {
	p, clock := newTestProfiler(time.Second)

	for range 3 {
		p.Begin("lighting resolve")
		clock.advance(2 * time.Millisecond)
		p.Begin("lights")
		clock.advance(3 * time.Millisecond)
		p.End()
		p.End()
	}

	timings := p.Timings()
	require.Len(t, timings, 2)
	assert.Equal(t, Timing{Label: "lighting resolve", Total: 15 * time.Millisecond, Count: 3}, timings[0])
	assert.Equal(t, Timing{Label: "lighting resolve/lights", Total: 9 * time.Millisecond, Count: 3}, timings[1])
}

func TestUnmatchedEndIsIgnored(t *testing.T) {
	p, _ := newTestProfiler(time.Second)
	p.End()
	assert.Empty(t, p.Timings())
}

func TestTickReportsAtInterval(t *testing.T) {
	p, clock := newTestProfiler(100 * time.Millisecond)

	p.Begin("overlay")
	clock.advance(time.Millisecond)
	p.End()

	assert.False(t, p.Tick())
	clock.advance(50 * time.Millisecond)
	assert.False(t, p.Tick())
	assert.Len(t, p.Timings(), 1)

	clock.advance(50 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.Empty(t, p.Timings(), "timings reset after a report")
	assert.False(t, p.Tick())
}

func TestDefaultInterval(t *testing.T) {
	p := NewProfiler(WithUpdateInterval(0))
	assert.Equal(t, time.Second, p.updateInterval)
}
