package engine

import (
	"fmt"
	"math"

	"github.com/san-kum/meshsynth/internal/dynamo"
	"github.com/san-kum/meshsynth/internal/integrators"
	"github.com/san-kum/meshsynth/internal/mesh"
)

// Engine is one voice: a mesh, its state and the runtime parameters that
// turn simulated time into audio. An Engine is not safe for concurrent use;
// the audio callback owns it.
type Engine struct {
	topo   *mesh.Topology
	deriv  *mesh.Deriv
	rk4    *integrators.RK4[mesh.State]
	state  mesh.State
	origin mesh.State

	params     Params
	preSettled mesh.State

	gate        bool
	speed       float64
	targetSpeed float64

	dc [2]dcReject
}

// New builds the topology, validates the configuration against it and
// returns an engine at rest. It returns no engine on error.
func New(cfg Config) (*Engine, error) {
	t, err := mesh.BuildGrid(cfg.Grid)
	if err != nil {
		return nil, fmt.Errorf("build mesh: %w", err)
	}
	return NewWithTopology(t, cfg.Physics, cfg.Params)
}

// NewWithTopology is New for a hand-built topology.
func NewWithTopology(t *mesh.Topology, phys mesh.Physics, p Params) (*Engine, error) {
	if err := phys.Validate(); err != nil {
		return nil, fmt.Errorf("physics: %w", err)
	}
	if err := p.Validate(t); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}

	e := &Engine{
		topo:   t,
		deriv:  mesh.NewDeriv(t, phys),
		state:  t.RestState(),
		origin: t.RestState(),
		params: p.Clone(),
	}
	e.rk4 = integrators.NewRK4[mesh.State](mesh.Space{}, e.deriv.Eval, e.state)
	e.Initialize()
	return e, nil
}

// Initialize returns the mesh to its rest layout with zero velocity, opens
// the gate and snaps the playback speed to the current pitch.
func (e *Engine) Initialize() {
	copy(e.state, e.origin)
	e.gate = true
	e.targetSpeed = pitchSpeed(e.params.Pitch)
	e.speed = e.targetSpeed
	e.resetFilters()
}

func (e *Engine) resetFilters() {
	e.dc[0].reset()
	e.dc[1].reset()
}

func pitchSpeed(voct float64) float64 {
	return math.Exp2(voct)
}

// Pluck adds the configured impulse to each target particle.
func (e *Engine) Pluck() {
	lane := e.params.Pluck.Lane
	for _, i := range e.params.Pluck.Targets {
		e.state[i].Vel[lane] += e.params.Pluck.Impulse
	}
}

// Update advances the mesh by one audio sample and returns the output frame,
// passed through the DC-reject stage when Output.DCRejectHz is set. It does
// not allocate.
func (e *Engine) Update(sampleRate float64) StereoFrame {
	e.advance(sampleRate)
	hl := e.params.HalfLife
	if !e.gate {
		hl = e.params.ReleaseHalfLife
	}
	e.Brake(sampleRate, hl)

	f := e.Output()
	if hz := e.params.Output.DCRejectHz; hz > 0 {
		f.Left = e.dc[0].update(f.Left, sampleRate, hz)
		f.Right = e.dc[1].update(f.Right, sampleRate, hz)
	}
	return f
}

// advance integrates one sample's worth of simulated time without braking.
func (e *Engine) advance(sampleRate float64) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 1) {
		panic(dynamo.Violation(dynamo.ErrParameterBounds, "sample rate %g", sampleRate))
	}

	if e.speed != e.targetSpeed {
		e.speed += (1 - e.params.Glide) * (e.targetSpeed - e.speed)
	}

	dt := e.params.Tuning * e.speed / sampleRate
	n := e.params.Oversample
	if n <= 0 {
		n = int(math.Ceil(dt / e.params.MaxStep))
		if n < 1 {
			n = 1
		}
	}
	h := dt / float64(n)
	for k := 0; k < n; k++ {
		e.rk4.Step(e.state, h)
	}
}

// Brake scales every velocity so that, applied once per sample, speeds halve
// every halfLife seconds. An infinite half-life leaves velocities unchanged.
func (e *Engine) Brake(sampleRate, halfLife float64) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 1) || !(halfLife > 0) {
		panic(dynamo.Violation(dynamo.ErrParameterBounds, "brake sample rate %g half-life %g", sampleRate, halfLife))
	}
	factor := math.Pow(0.5, 1/(sampleRate*halfLife))
	for i := range e.state {
		e.state[i].Vel = e.state[i].Vel.Scale(factor)
	}
}

// Settle runs the mesh for duration seconds of audio, braking with halfLife
// after every sample instead of the running half-life. The result depends
// only on the starting state and the arguments.
func (e *Engine) Settle(sampleRate, halfLife, duration float64) error {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 1) {
		return fmt.Errorf("%w: settle sample rate %g", dynamo.ErrParameterBounds, sampleRate)
	}
	if !(halfLife > 0) {
		return fmt.Errorf("%w: settle half-life %g", dynamo.ErrParameterBounds, halfLife)
	}
	if !(duration >= 0) || math.IsInf(duration, 1) {
		return fmt.Errorf("%w: settle duration %g", dynamo.ErrParameterBounds, duration)
	}

	frames := int(math.Round(sampleRate * duration))
	for i := 0; i < frames; i++ {
		e.advance(sampleRate)
		e.Brake(sampleRate, halfLife)
	}
	e.resetFilters()
	if !e.state.IsValid() {
		return fmt.Errorf("%w: settle diverged after %d frames", dynamo.ErrUnstable, frames)
	}
	return nil
}

// CapturePreSettled stores a copy of the current state for later use by
// SetPreSettledState.
func (e *Engine) CapturePreSettled() {
	e.preSettled = e.state.Clone()
}

// LoadPreSettled installs a precomputed settled state, typically one read
// back from storage.
func (e *Engine) LoadPreSettled(s mesh.State) error {
	if err := e.topo.CheckState(s); err != nil {
		return fmt.Errorf("pre-settled state: %w", err)
	}
	e.preSettled = s.Clone()
	return nil
}

// PreSettled returns a copy of the stored settled state, or nil.
func (e *Engine) PreSettled() mesh.State {
	if e.preSettled == nil {
		return nil
	}
	return e.preSettled.Clone()
}

// SetPreSettledState copies the stored settled state into the live state.
func (e *Engine) SetPreSettledState() error {
	if e.preSettled == nil {
		return dynamo.ErrNoPreSettledState
	}
	copy(e.state, e.preSettled)
	e.resetFilters()
	return nil
}

// MaxSpeed returns the largest particle speed.
func (e *Engine) MaxSpeed() float64 {
	return e.state.MaxSpeed()
}

// Energy returns the total mechanical energy of the mesh.
func (e *Engine) Energy() float64 {
	return e.deriv.Energy(e.state)
}

// Output reads the stereo frame from the current state without advancing it.
// It is the raw reading, before the DC-reject stage applied by Update.
func (e *Engine) Output() StereoFrame {
	o := e.params.Output
	l, r := e.state[o.Left], e.state[o.Right]
	if o.Mode == OutputDisplacement {
		return StereoFrame{
			Left:  o.Gain * (l.Pos[o.Lane] - e.origin[o.Left].Pos[o.Lane]),
			Right: o.Gain * (r.Pos[o.Lane] - e.origin[o.Right].Pos[o.Lane]),
		}
	}
	return StereoFrame{Left: o.Gain * l.Vel[o.Lane], Right: o.Gain * r.Vel[o.Lane]}
}

// Snapshot returns a copy of the live state.
func (e *Engine) Snapshot() mesh.State {
	return e.state.Clone()
}

// Particle returns particle i of the live state.
func (e *Engine) Particle(i int) mesh.Particle {
	return e.state[i]
}

// Rest returns the rest position of particle i.
func (e *Engine) Rest(i int) dynamo.Vec4 {
	return e.origin[i].Pos
}

func (e *Engine) Topology() *mesh.Topology { return e.topo }
func (e *Engine) Physics() mesh.Physics    { return e.deriv.Physics }
func (e *Engine) Params() Params           { return e.params.Clone() }
func (e *Engine) Gate() bool               { return e.gate }
func (e *Engine) Speed() float64           { return e.speed }

// SetGate holds (true) or releases (false) the note. Releasing switches
// Update to the release half-life.
func (e *Engine) SetGate(on bool) {
	e.gate = on
}

// SetPitch sets the target playback speed in V/oct; Update glides to it.
func (e *Engine) SetPitch(voct float64) {
	if math.IsNaN(voct) || math.IsInf(voct, 0) {
		return
	}
	e.params.Pitch = voct
	e.targetSpeed = pitchSpeed(voct)
}

// SetStiffness changes the spring constant. Zero is allowed at runtime and
// lets the particles fly free.
func (e *Engine) SetStiffness(k float64) error {
	if !(k >= 0) || math.IsInf(k, 1) {
		return fmt.Errorf("%w: stiffness must be non-negative and finite, got %g", dynamo.ErrParameterBounds, k)
	}
	e.deriv.Stiffness = k
	return nil
}

// SetGravity changes the constant acceleration on mobile particles.
func (e *Engine) SetGravity(g dynamo.Vec4) error {
	if !g.IsFinite() {
		return fmt.Errorf("%w: gravity must be finite, got %v", dynamo.ErrParameterBounds, g)
	}
	e.deriv.Gravity = g
	return nil
}

// SetParams replaces the runtime parameters. On error the old parameters
// stay in effect.
func (e *Engine) SetParams(p Params) error {
	if err := p.Validate(e.topo); err != nil {
		return err
	}
	e.params = p.Clone()
	e.targetSpeed = pitchSpeed(p.Pitch)
	return nil
}

// Precompute settles a fresh engine built from cfg and returns the settled
// state, ready for storage or LoadPreSettled.
func Precompute(cfg Config, sampleRate, halfLife, duration float64) (mesh.State, error) {
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := e.Settle(sampleRate, halfLife, duration); err != nil {
		return nil, err
	}
	return e.Snapshot(), nil
}
