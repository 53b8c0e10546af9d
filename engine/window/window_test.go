package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResizedDropsMinimisedSizes(t *testing.T) {
	w := &engineWindow{width: 800, height: 600}
	var calls [][2]int
	w.SetResizeCallback(func(width, height int) { calls = append(calls, [2]int{width, height}) })

	w.resized(0, 0)
	assert.Equal(t, 800, w.Width())
	assert.Empty(t, calls)

	w.resized(1024, 768)
	assert.Equal(t, 1024, w.Width())
	assert.Equal(t, 768, w.Height())
	assert.Equal(t, [][2]int{{1024, 768}}, calls)
}

func TestMouseMovedTracksPosition(t *testing.T) {
	w := &engineWindow{}
	w.mouseMoved(3, 4)
	assert.Equal(t, [2]int32{3, 4}, w.MousePosition())

	var got [2]int32
	w.SetMouseMoveCallback(func(x, y int32) { got = [2]int32{x, y} })
	w.mouseMoved(10, 20)
	assert.Equal(t, [2]int32{10, 20}, got)
	assert.Equal(t, got, w.MousePosition())
}

func TestUninitialisedWindow(t *testing.T) {
	w := &engineWindow{}
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
	w.SetTitle("still fine")
	assert.Equal(t, "still fine", w.title)
}
