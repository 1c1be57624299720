package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/gravsim/internal/camera"
	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/frame"
	"github.com/san-kum/gravsim/internal/logging"
	"github.com/san-kum/gravsim/internal/particle"
)

const (
	DefaultFixedStep = time.Second / 120
	DefaultTimeStep  = 0.008
	DefaultSoftening = 0.01
	DefaultWidth     = 800
	DefaultHeight    = 800
	DefaultTitle     = "gravsim"
)

type Config struct {
	Backend     string              `yaml:"backend"`
	Seed        uint64              `yaml:"seed"`
	Particles   particle.SeedConfig `yaml:"particles"`
	Sim         SimConfig           `yaml:"sim"`
	Camera      camera.Config       `yaml:"camera"`
	Tracking    TrackingConfig      `yaml:"tracking"`
	Window      WindowConfig        `yaml:"window"`
	Shaders     ShaderConfig        `yaml:"shaders"`
	Log         logging.Config      `yaml:"log"`
	MetricsAddr string              `yaml:"metrics_addr,omitempty"`
}

type SimConfig struct {
	// FixedStep is the wall-clock cadence of physics steps.
	FixedStep time.Duration `yaml:"fixed_step"`
	// TimeStep is the simulated time advanced per step.
	TimeStep  float32 `yaml:"time_step"`
	Softening float32 `yaml:"softening"`
	// ReportWindow is the number of frames per frame-time report.
	ReportWindow int `yaml:"report_window"`
}

type TrackingConfig struct {
	Policy frame.TrackingPolicy `yaml:"policy"`
	Index  int                  `yaml:"index"`
}

type WindowConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Title     string `yaml:"title"`
	TargetFPS int    `yaml:"target_fps"`
	HUD       bool   `yaml:"hud"`
}

type ShaderConfig struct {
	// Dir loads shaders from disk instead of the embedded copies.
	Dir   string              `yaml:"dir,omitempty"`
	Paths compute.ShaderPaths `yaml:"paths"`
	// Watch reloads programs when a file in Dir changes.
	Watch bool `yaml:"watch"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend:   "opengl",
		Particles: particle.DefaultSeedConfig(),
		Sim: SimConfig{
			FixedStep:    DefaultFixedStep,
			TimeStep:     DefaultTimeStep,
			Softening:    DefaultSoftening,
			ReportWindow: 100,
		},
		Camera: camera.DefaultConfig(),
		Tracking: TrackingConfig{
			Policy: frame.TrackEveryFrame,
		},
		Window: WindowConfig{
			Width:  DefaultWidth,
			Height: DefaultHeight,
			Title:  DefaultTitle,
			HUD:    true,
		},
		Shaders: ShaderConfig{Paths: compute.DefaultShaderPaths()},
		Log:     logging.DefaultConfig(),
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path over base; keys missing from the file keep base's
// values.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var ErrInvalid = errors.New("invalid config")

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if !slices.Contains(compute.Backends, c.Backend) {
		bad("backend %q not in %v", c.Backend, compute.Backends)
	}
	if err := c.Particles.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if c.Sim.FixedStep <= 0 {
		bad("sim.fixed_step must be positive, got %v", c.Sim.FixedStep)
	}
	if c.Sim.TimeStep < 0 {
		bad("sim.time_step must not be negative, got %v", c.Sim.TimeStep)
	}
	if c.Sim.Softening < 0 {
		bad("sim.softening must not be negative, got %v", c.Sim.Softening)
	}
	if c.Tracking.Index < 0 || c.Tracking.Index >= c.Particles.Count {
		bad("tracking.index %d outside [0,%d)", c.Tracking.Index, c.Particles.Count)
	}
	if c.Camera.MinRadius <= 0 {
		bad("camera.min_radius must be positive, got %v", c.Camera.MinRadius)
	}
	if c.Camera.Sensitivity <= 0 {
		bad("camera.sensitivity must be positive, got %v", c.Camera.Sensitivity)
	}
	if c.Camera.ZoomSpeed <= 0 {
		bad("camera.zoom_speed must be positive, got %v", c.Camera.ZoomSpeed)
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		bad("camera.fov %v outside (0,180)", c.Camera.FOV)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		bad("window size %dx%d", c.Window.Width, c.Window.Height)
	}
	return errors.Join(errs...)
}
