package config

import (
	"sort"

	"github.com/san-kum/gravsim/internal/particle"
)

type Preset struct {
	Description string
	apply       func(*Config)
}

var Presets = map[string]Preset{
	"disc": {
		Description: "central mass with a thin orbiting disc (default)",
		apply:       func(c *Config) {},
	},
	"sphere": {
		Description: "central mass with an unflattened orbiting ball",
		apply: func(c *Config) {
			c.Particles.Flatten = 1
			c.Camera.Radius = 2.5
		},
	},
	"shell": {
		Description: "every satellite on the unit sphere",
		apply: func(c *Config) {
			c.Particles.Flatten = 1
			c.Particles.Radius = 1
			c.Camera.Radius = 3
		},
	},
	"cloud": {
		Description: "motionless cloud of random masses collapsing onto particle 0",
		apply: func(c *Config) {
			c.Particles.Policy = particle.PolicyCloud
			c.Camera.Radius = 2.5
		},
	},
	"swarm": {
		Description: "four times the particles in a thicker disc",
		apply: func(c *Config) {
			c.Particles.Count = 256 * 80
			c.Particles.Flatten = 0.2
			c.Camera.Radius = 2
		},
	},
}

// GetPreset returns the defaults with the named preset applied, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
