package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	_ "github.com/Carmen-Shannon/oxy-forward/engine/device/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, device.PresentModeVSync, c.PresentMode())
	assert.True(t, c.Renderer.Shadows)
	assert.True(t, c.Renderer.DepthPrepass)
}

func TestParseOverlaysDefaults(t *testing.T) {
	c, err := Parse([]byte(`
window:
  width: 800
device:
  backend: headless
  vsync: false
  fence_timeout: 250ms
renderer:
  depth_prepass: false
culling:
  workers: 4
`))
	require.NoError(t, err)

	assert.Equal(t, 800, c.Window.Width)
	assert.Equal(t, 720, c.Window.Height)
	assert.Equal(t, "oxy-forward", c.Window.Title)
	assert.Equal(t, "headless", c.Device.Backend)
	assert.Equal(t, 250*time.Millisecond, c.Device.FenceTimeout)
	assert.Equal(t, device.PresentModeUncapped, c.PresentMode())
	assert.False(t, c.Renderer.DepthPrepass)
	assert.True(t, c.Renderer.Shadows)
	assert.Equal(t, uint32(2048), c.Renderer.ShadowResolution)
	assert.Equal(t, 4, c.Culling.Workers)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"unknown backend", func(c *Config) { c.Device.Backend = "vulkan" }},
		{"zero fence timeout", func(c *Config) { c.Device.FenceTimeout = 0 }},
		{"empty descriptor heap", func(c *Config) { c.Device.FrameDescriptors = 0 }},
		{"zero shadow resolution", func(c *Config) { c.Renderer.ShadowResolution = 0 }},
		{"tiny constant budget", func(c *Config) { c.Renderer.ConstantBudget = 128 }},
		{"negative workers", func(c *Config) { c.Culling.Workers = -1 }},
		{"fast profiler", func(c *Config) {
			c.Profiling.Enabled = true
			c.Profiling.Interval = 100 * time.Millisecond
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestParseReportsInvalidValues(t *testing.T) {
	_, err := Parse([]byte("renderer:\n  shadow_resolution: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Parse([]byte("window: [1, 2"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	c := Default()
	c.Window.Title = "cubes"
	c.Device.Backend = "headless"
	require.NoError(t, c.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
