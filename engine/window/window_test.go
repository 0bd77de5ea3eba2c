package window

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-forward/engine/input"
	"github.com/stretchr/testify/assert"
)

func TestBuilderOptions(t *testing.T) {
	state := input.NewState()
	w := &engineWindow{}
	for _, opt := range []WindowBuilderOption{
		WithTitle("demo"),
		WithSize(800, 600),
		WithMinSize(100, 80),
		WithMaxSize(1920, 1080),
		WithClientAPI(ClientAPIOpenGL),
		WithResizable(false),
		WithEscapeCloses(false),
		WithInput(state),
	} {
		opt(w)
	}

	assert.Equal(t, "demo", w.title)
	width, height := w.FramebufferSize()
	assert.Equal(t, 800, width)
	assert.Equal(t, 600, height)
	assert.Equal(t, 100, w.minWidth)
	assert.Equal(t, 1080, w.maxHeight)
	assert.Equal(t, ClientAPIOpenGL, w.clientAPI)
	assert.False(t, w.resizable)
	assert.False(t, w.escapeCloses)
	assert.Same(t, state, w.Input())
}

func TestUninitializedWindow(t *testing.T) {
	w := &engineWindow{width: 640, height: 480}

	assert.False(t, w.IsRunning())
	assert.False(t, w.PollEvents())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())

	// no platform window, so these must not panic
	w.SetCursorCaptured(true)
	w.MakeContextCurrent()
	w.SwapBuffers()
	w.SetSwapInterval(1)

	var got [2]int
	w.SetResizeCallback(func(width, height int) { got = [2]int{width, height} })
	w.onResize(1024, 768)
	assert.Equal(t, [2]int{1024, 768}, got)
	assert.Equal(t, 640, w.Width())
	assert.Equal(t, 480, w.Height())
}
