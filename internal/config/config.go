package config

import (
	"fmt"
	"os"

	"github.com/san-kum/meshsynth/internal/dynamo"
	"github.com/san-kum/meshsynth/internal/engine"
	"github.com/san-kum/meshsynth/internal/mesh"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSampleRate     = 48000.0
	DefaultRenderDuration = 3.0
	DefaultSettleHalfLife = 0.05
	DefaultSettleDuration = 1.0
	DefaultMaxSpeed       = 1e3
	DefaultDataDir        = "runs"
	DefaultLogLevel       = "info"
)

type Config struct {
	Preset   string        `yaml:"preset,omitempty"`
	Mesh     MeshConfig    `yaml:"mesh"`
	Physics  PhysicsConfig `yaml:"physics"`
	Runtime  RuntimeConfig `yaml:"runtime"`
	Pluck    PluckConfig   `yaml:"pluck"`
	Output   OutputConfig  `yaml:"output"`
	Settle   SettleConfig  `yaml:"settle"`
	Render   RenderConfig  `yaml:"render"`
	DataDir  string        `yaml:"data_dir"`
	LogLevel string        `yaml:"log_level"`
}

type MeshConfig struct {
	Rows              int     `yaml:"rows"`
	MobileColumns     int     `yaml:"mobile_columns"`
	HorizontalSpacing float64 `yaml:"horizontal_spacing"`
	VerticalSpacing   float64 `yaml:"vertical_spacing"`
}

type PhysicsConfig struct {
	Stiffness  float64    `yaml:"stiffness"`
	RestLength float64    `yaml:"rest_length"`
	Mass       float64    `yaml:"mass"`
	Gravity    [4]float64 `yaml:"gravity,flow"`
}

type RuntimeConfig struct {
	HalfLife        float64 `yaml:"half_life"`
	ReleaseHalfLife float64 `yaml:"release_half_life"`
	Oversample      int     `yaml:"oversample"`
	MaxStep         float64 `yaml:"max_step"`
	Tuning          float64 `yaml:"tuning"`
	Glide           float64 `yaml:"glide"`
	Pitch           float64 `yaml:"pitch"`
}

type PluckConfig struct {
	Targets []int   `yaml:"targets,flow"`
	Lane    int     `yaml:"lane"`
	Impulse float64 `yaml:"impulse"`
}

type OutputConfig struct {
	Left       int     `yaml:"left"`
	Right      int     `yaml:"right"`
	Lane       int     `yaml:"lane"`
	Mode       string  `yaml:"mode"`
	Gain       float64 `yaml:"gain"`
	DCRejectHz float64 `yaml:"dc_reject_hz"` // 0 disables
}

// SettleConfig controls the relaxation run used to build a pre-settled
// state before rendering.
type SettleConfig struct {
	Enabled  bool    `yaml:"enabled"`
	HalfLife float64 `yaml:"half_life"`
	Duration float64 `yaml:"duration"`
}

type RenderConfig struct {
	SampleRate    float64 `yaml:"sample_rate"`
	Duration      float64 `yaml:"duration"`
	PluckInterval float64 `yaml:"pluck_interval"` // seconds between plucks, 0 = pluck once
	ReleaseAfter  float64 `yaml:"release_after"`  // seconds until the gate is released, 0 = never
	Voices        int     `yaml:"voices"`
	Spread        float64 `yaml:"spread"` // V/oct between successive voices
	MaxSpeed      float64 `yaml:"max_speed"`
}

func DefaultConfig() *Config {
	return fromEngine(engine.DefaultConfig())
}

func fromEngine(ec engine.Config) *Config {
	p := ec.Params
	return &Config{
		Mesh: MeshConfig{
			Rows:              ec.Grid.Rows,
			MobileColumns:     ec.Grid.MobileColumns,
			HorizontalSpacing: ec.Grid.HorizontalSpacing,
			VerticalSpacing:   ec.Grid.VerticalSpacing,
		},
		Physics: PhysicsConfig{
			Stiffness:  ec.Physics.Stiffness,
			RestLength: ec.Physics.RestLength,
			Mass:       ec.Physics.Mass,
			Gravity:    ec.Physics.Gravity,
		},
		Runtime: RuntimeConfig{
			HalfLife:        p.HalfLife,
			ReleaseHalfLife: p.ReleaseHalfLife,
			Oversample:      p.Oversample,
			MaxStep:         p.MaxStep,
			Tuning:          p.Tuning,
			Glide:           p.Glide,
			Pitch:           p.Pitch,
		},
		Pluck: PluckConfig{
			Targets: append([]int(nil), p.Pluck.Targets...),
			Lane:    p.Pluck.Lane,
			Impulse: p.Pluck.Impulse,
		},
		Output: OutputConfig{
			Left:       p.Output.Left,
			Right:      p.Output.Right,
			Lane:       p.Output.Lane,
			Mode:       string(p.Output.Mode),
			Gain:       p.Output.Gain,
			DCRejectHz: p.Output.DCRejectHz,
		},
		Settle: SettleConfig{
			HalfLife: DefaultSettleHalfLife,
			Duration: DefaultSettleDuration,
		},
		Render: RenderConfig{
			SampleRate: DefaultSampleRate,
			Duration:   DefaultRenderDuration,
			Voices:     1,
			MaxSpeed:   DefaultMaxSpeed,
		},
		DataDir:  DefaultDataDir,
		LogLevel: DefaultLogLevel,
	}
}

// Load reads a config file on top of the defaults.
func Load(path string) (*Config, error) {
	return LoadOver(DefaultConfig(), path)
}

// LoadOver reads a config file on top of base, so keys missing from the
// file keep base's values. base is not modified.
func LoadOver(base *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Pluck.Targets = append([]int(nil), c.Pluck.Targets...)
	return &cp
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EngineConfig converts the file form into the engine's configuration.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Grid: mesh.Grid{
			Rows:              c.Mesh.Rows,
			MobileColumns:     c.Mesh.MobileColumns,
			HorizontalSpacing: c.Mesh.HorizontalSpacing,
			VerticalSpacing:   c.Mesh.VerticalSpacing,
		},
		Physics: mesh.Physics{
			Stiffness:  c.Physics.Stiffness,
			RestLength: c.Physics.RestLength,
			Mass:       c.Physics.Mass,
			Gravity:    dynamo.Vec4(c.Physics.Gravity),
		},
		Params: engine.Params{
			HalfLife:        c.Runtime.HalfLife,
			ReleaseHalfLife: c.Runtime.ReleaseHalfLife,
			Oversample:      c.Runtime.Oversample,
			MaxStep:         c.Runtime.MaxStep,
			Tuning:          c.Runtime.Tuning,
			Glide:           c.Runtime.Glide,
			Pitch:           c.Runtime.Pitch,
			Pluck: engine.Pluck{
				Targets: append([]int(nil), c.Pluck.Targets...),
				Lane:    c.Pluck.Lane,
				Impulse: c.Pluck.Impulse,
			},
			Output: engine.Output{
				Left:       c.Output.Left,
				Right:      c.Output.Right,
				Lane:       c.Output.Lane,
				Mode:       engine.OutputMode(c.Output.Mode),
				Gain:       c.Output.Gain,
				DCRejectHz: c.Output.DCRejectHz,
			},
		},
	}
}

// Validate checks the whole file, including the engine parameters against
// the mesh they will drive.
func (c *Config) Validate() error {
	ec := c.EngineConfig()
	t, err := mesh.BuildGrid(ec.Grid)
	if err != nil {
		return fmt.Errorf("mesh: %w", err)
	}
	if err := ec.Physics.Validate(); err != nil {
		return fmt.Errorf("physics: %w", err)
	}
	if err := ec.Params.Validate(t); err != nil {
		return err
	}

	r := c.Render
	if !(r.SampleRate > 0) {
		return fmt.Errorf("%w: render sample rate must be positive, got %g", dynamo.ErrParameterBounds, r.SampleRate)
	}
	if !(r.Duration > 0) {
		return fmt.Errorf("%w: render duration must be positive, got %g", dynamo.ErrParameterBounds, r.Duration)
	}
	if r.PluckInterval < 0 || r.ReleaseAfter < 0 {
		return fmt.Errorf("%w: pluck interval and release time must be non-negative", dynamo.ErrParameterBounds)
	}
	if r.Voices < 1 {
		return fmt.Errorf("%w: voices must be at least 1, got %d", dynamo.ErrParameterBounds, r.Voices)
	}
	if !(r.MaxSpeed > 0) {
		return fmt.Errorf("%w: max speed must be positive, got %g", dynamo.ErrParameterBounds, r.MaxSpeed)
	}
	if c.Settle.Enabled {
		if !(c.Settle.HalfLife > 0) || !(c.Settle.Duration >= 0) {
			return fmt.Errorf("%w: settle half-life %g duration %g", dynamo.ErrParameterBounds, c.Settle.HalfLife, c.Settle.Duration)
		}
	}
	return nil
}
