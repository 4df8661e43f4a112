package config

import (
	"sort"

	"github.com/san-kum/meshsynth/internal/engine"
)

// Presets are complete configurations keyed by name.
var Presets = map[string]*Config{
	"vina":    vina(),
	"string4": string4(),
	"ladder":  ladder(),
}

// vina is the production voice: one row of 42 particles.
func vina() *Config {
	c := DefaultConfig()
	c.Preset = "vina"
	return c
}

// string4 is the four-particle reference string, plucked lengthwise.
func string4() *Config {
	ec := engine.DefaultConfig()
	ec.Grid.MobileColumns = 4
	ec.Params.HalfLife = 0.2
	ec.Params.Pluck = engine.Pluck{Targets: []int{2}, Lane: 0, Impulse: 0.1}
	ec.Params.Output.Left = 2
	ec.Params.Output.Right = 3
	c := fromEngine(ec)
	c.Preset = "string4"
	c.Render.Duration = 1
	return c
}

// ladder is two coupled rows of 13. Each output reads one row so the
// channels differ after a pluck on the top row.
func ladder() *Config {
	ec := engine.DefaultConfig()
	ec.Grid.Rows = 2
	ec.Grid.MobileColumns = 13
	ec.Params.Pluck = engine.Pluck{Targets: []int{6}, Lane: 1, Impulse: 0.5}
	ec.Params.Output = engine.Output{Left: 20, Right: 21, Lane: 1, Mode: engine.OutputVelocity, Gain: 1, DCRejectHz: engine.DefaultDCRejectHz}
	c := fromEngine(ec)
	c.Preset = "ladder"
	c.Settle.Enabled = true
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
