package engine

import (
	"fmt"
	"math"

	"github.com/san-kum/meshsynth/internal/dynamo"
	"github.com/san-kum/meshsynth/internal/mesh"
)

// Tuning defaults. These were set by ear against the original instrument,
// not derived from the physics; the tuning constant in particular is the
// value that puts the default string close to a C.
const (
	DefaultTuning          = 76.0808
	DefaultGlide           = 0.98
	DefaultHalfLife        = 1.0
	DefaultReleaseHalfLife = 0.045
	DefaultMaxStep         = 0.004
	DefaultImpulse         = 1.7
	DefaultDCRejectHz      = 10.0
)

type OutputMode string

const (
	// OutputVelocity reads particle velocity.
	OutputVelocity OutputMode = "velocity"
	// OutputDisplacement reads particle position relative to rest.
	OutputDisplacement OutputMode = "displacement"
)

// Pluck is the excitation: Impulse is added to Vel[Lane] of every target.
type Pluck struct {
	Targets []int
	Lane    int
	Impulse float64
}

// Output selects the particles and lane read as the stereo frame.
// DCRejectHz is the cutoff of the high-pass applied by Update; 0 disables it.
type Output struct {
	Left       int
	Right      int
	Lane       int
	Mode       OutputMode
	Gain       float64
	DCRejectHz float64
}

// Params are the runtime parameters. They may be replaced between calls to
// Update with SetParams.
type Params struct {
	HalfLife        float64 // seconds, while the gate is held
	ReleaseHalfLife float64 // seconds, after the gate is released
	Oversample      int     // RK4 sub-steps per sample; 0 picks one from MaxStep
	MaxStep         float64 // largest sub-step when Oversample is 0
	Tuning          float64 // simulated seconds per second of audio
	Glide           float64 // one-pole smoothing of pitch changes, [0,1)
	Pitch           float64 // V/oct, 0 = base pitch
	Pluck           Pluck
	Output          Output
}

func DefaultParams() Params {
	return Params{
		HalfLife:        DefaultHalfLife,
		ReleaseHalfLife: DefaultReleaseHalfLife,
		Oversample:      1,
		MaxStep:         DefaultMaxStep,
		Tuning:          DefaultTuning,
		Glide:           DefaultGlide,
		Pluck:           Pluck{Targets: []int{3}, Lane: 0, Impulse: DefaultImpulse},
		Output:          Output{Left: 37, Right: 38, Lane: 0, Mode: OutputVelocity, Gain: 1, DCRejectHz: DefaultDCRejectHz},
	}
}

// Clone returns a copy that shares no slices with p.
func (p Params) Clone() Params {
	c := p
	c.Pluck.Targets = append([]int(nil), p.Pluck.Targets...)
	return c
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 1) {
		return fmt.Errorf("%w: %s must be positive and finite, got %g", dynamo.ErrParameterBounds, name, v)
	}
	return nil
}

// Validate checks p against the topology it will drive.
func (p Params) Validate(t *mesh.Topology) error {
	if err := positive("half-life", p.HalfLife); err != nil {
		return err
	}
	if err := positive("release half-life", p.ReleaseHalfLife); err != nil {
		return err
	}
	if err := positive("tuning", p.Tuning); err != nil {
		return err
	}
	if p.Oversample < 0 {
		return fmt.Errorf("%w: oversample must be non-negative, got %d", dynamo.ErrParameterBounds, p.Oversample)
	}
	if p.Oversample == 0 {
		if err := positive("max step", p.MaxStep); err != nil {
			return err
		}
	}
	if !(p.Glide >= 0 && p.Glide < 1) {
		return fmt.Errorf("%w: glide must be in [0,1), got %g", dynamo.ErrParameterBounds, p.Glide)
	}
	if math.IsNaN(p.Pitch) || math.IsInf(p.Pitch, 0) {
		return fmt.Errorf("%w: pitch must be finite, got %g", dynamo.ErrParameterBounds, p.Pitch)
	}

	if err := checkLane(p.Pluck.Lane); err != nil {
		return err
	}
	if math.IsNaN(p.Pluck.Impulse) || math.IsInf(p.Pluck.Impulse, 0) {
		return fmt.Errorf("%w: pluck impulse must be finite, got %g", dynamo.ErrParameterBounds, p.Pluck.Impulse)
	}
	for _, i := range p.Pluck.Targets {
		if err := checkMobile(t, "pluck target", i); err != nil {
			return err
		}
	}

	if err := checkLane(p.Output.Lane); err != nil {
		return err
	}
	if err := checkMobile(t, "left output", p.Output.Left); err != nil {
		return err
	}
	if err := checkMobile(t, "right output", p.Output.Right); err != nil {
		return err
	}
	switch p.Output.Mode {
	case OutputVelocity, OutputDisplacement:
	default:
		return fmt.Errorf("%w: unknown output mode %q", dynamo.ErrParameterBounds, p.Output.Mode)
	}
	if math.IsNaN(p.Output.Gain) || math.IsInf(p.Output.Gain, 0) {
		return fmt.Errorf("%w: output gain must be finite, got %g", dynamo.ErrParameterBounds, p.Output.Gain)
	}
	if !(p.Output.DCRejectHz >= 0) || math.IsInf(p.Output.DCRejectHz, 1) {
		return fmt.Errorf("%w: DC reject cutoff must be non-negative and finite, got %g", dynamo.ErrParameterBounds, p.Output.DCRejectHz)
	}
	return nil
}

func checkLane(lane int) error {
	if lane < 0 || lane >= len(dynamo.Vec4{}) {
		return fmt.Errorf("%w: lane %d out of range [0,4)", dynamo.ErrParameterBounds, lane)
	}
	return nil
}

func checkMobile(t *mesh.Topology, what string, i int) error {
	if i < 0 || i >= t.Particles() {
		return fmt.Errorf("%w: %s index %d out of range [0,%d)", dynamo.ErrParameterBounds, what, i, t.Particles())
	}
	if !t.IsMobile(i) {
		return fmt.Errorf("%w: %s index %d is an anchor", dynamo.ErrParameterBounds, what, i)
	}
	return nil
}

// Config is everything needed to build an Engine.
type Config struct {
	Grid    mesh.Grid
	Physics mesh.Physics
	Params  Params
}

// DefaultConfig is the single 42-particle string.
func DefaultConfig() Config {
	return Config{
		Grid: mesh.Grid{
			Rows:              1,
			MobileColumns:     42,
			HorizontalSpacing: 0.01,
			VerticalSpacing:   0.01,
		},
		Physics: mesh.Physics{
			Stiffness:  89,
			RestLength: 0.004,
			Mass:       0.001,
		},
		Params: DefaultParams(),
	}
}
