// Package config loads the engine configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate and Load for values the engine cannot run with.
var ErrInvalidConfig = errors.New("invalid config")

type Window struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type Device struct {
	// Backend is a registered backend name; empty selects the highest priority one.
	Backend      string        `yaml:"backend"`
	VSync        bool          `yaml:"vsync"`
	FenceTimeout time.Duration `yaml:"fence_timeout"`

	PersistentDescriptors uint32 `yaml:"persistent_descriptors"`
	FrameDescriptors      uint32 `yaml:"frame_descriptors"`
}

type Renderer struct {
	ShadowResolution uint32 `yaml:"shadow_resolution"`
	ConstantBudget   uint64 `yaml:"constant_budget"`
	DepthPrepass     bool   `yaml:"depth_prepass"`
	Shadows          bool   `yaml:"shadows"`
}

type Culling struct {
	Enabled bool `yaml:"enabled"`
	// Workers above 1 fan culling out over a worker pool.
	Workers int `yaml:"workers"`
}

type Profiling struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Config is the complete engine configuration.
type Config struct {
	Window    Window    `yaml:"window"`
	Device    Device    `yaml:"device"`
	Renderer  Renderer  `yaml:"renderer"`
	Culling   Culling   `yaml:"culling"`
	Profiling Profiling `yaml:"profiling"`
}

// Default returns the configuration used for every value a file leaves out.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	return Config{
		Window: Window{Title: "oxy-forward", Width: 1280, Height: 720},
		Device: Device{
			VSync:                 true,
			FenceTimeout:          device.DefaultFenceTimeout,
			PersistentDescriptors: 256,
			FrameDescriptors:      1024,
		},
		Renderer: Renderer{
			ShadowResolution: 2048,
			ConstantBudget:   256 * 1024,
			DepthPrepass:     true,
			Shadows:          true,
		},
		Culling:   Culling{Enabled: true},
		Profiling: Profiling{Interval: time.Second},
	}
}

// Load reads a YAML file over the defaults and validates the result.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the loaded configuration
//   - error: an error if the file cannot be read or parsed, or ErrInvalidConfig
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the parsed configuration
//   - error: a decode error or ErrInvalidConfig
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Save writes the configuration as YAML.
//
// Parameters:
//   - path: the file to write
//
// Returns:
//   - error: an error if the file cannot be written
func (c Config) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, b, 0644)
}

// Validate reports the first value the engine cannot run with.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig, or nil
func (c Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	case c.Device.Backend != "" && !device.IsRegistered(c.Device.Backend):
		return fmt.Errorf("%w: backend %q is not available (registered: %v)", ErrInvalidConfig, c.Device.Backend, device.Available())
	case c.Device.FenceTimeout <= 0:
		return fmt.Errorf("%w: fence timeout %s", ErrInvalidConfig, c.Device.FenceTimeout)
	case c.Device.PersistentDescriptors == 0 || c.Device.FrameDescriptors == 0:
		return fmt.Errorf("%w: descriptor heap sizes %d/%d", ErrInvalidConfig, c.Device.PersistentDescriptors, c.Device.FrameDescriptors)
	case c.Renderer.ShadowResolution == 0:
		return fmt.Errorf("%w: shadow resolution 0", ErrInvalidConfig)
	case c.Renderer.ConstantBudget < device.ConstantAlignment:
		return fmt.Errorf("%w: constant budget %d is below %d", ErrInvalidConfig, c.Renderer.ConstantBudget, device.ConstantAlignment)
	case c.Culling.Workers < 0:
		return fmt.Errorf("%w: culling workers %d", ErrInvalidConfig, c.Culling.Workers)
	case c.Profiling.Enabled && c.Profiling.Interval < time.Second:
		return fmt.Errorf("%w: profiling interval %s is below 1s", ErrInvalidConfig, c.Profiling.Interval)
	}
	return nil
}

// PresentMode maps VSync to a device present mode.
func (c Config) PresentMode() device.PresentMode {
	if c.Device.VSync {
		return device.PresentModeVSync
	}
	return device.PresentModeUncapped
}
