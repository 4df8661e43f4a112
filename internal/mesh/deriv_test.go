package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/meshsynth/internal/dynamo"
)

var stringPhysics = Physics{Stiffness: 89, RestLength: 0.004, Mass: 0.001}

func TestPhysics_Validate(t *testing.T) {
	tests := []struct {
		name  string
		p     Physics
		valid bool
	}{
		{"default", stringPhysics, true},
		{"zero rest length", Physics{Stiffness: 1, RestLength: 0, Mass: 1}, true},
		{"zero stiffness", Physics{Stiffness: 0, RestLength: 0.004, Mass: 0.001}, false},
		{"negative mass", Physics{Stiffness: 89, RestLength: 0.004, Mass: -1}, false},
		{"NaN mass", Physics{Stiffness: 89, RestLength: 0.004, Mass: math.NaN()}, false},
		{"negative rest length", Physics{Stiffness: 89, RestLength: -0.1, Mass: 0.001}, false},
		{"infinite gravity", Physics{Stiffness: 89, RestLength: 0.004, Mass: 0.001, Gravity: dynamo.Vec4{0, math.Inf(-1)}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.valid && !errors.Is(err, dynamo.ErrParameterBounds) {
				t.Errorf("expected ErrParameterBounds, got %v", err)
			}
		})
	}
}

func TestDeriv_SingleSpring(t *testing.T) {
	rest := State{{}, {Pos: dynamo.Vec4{0.02, 0, 0, 0}, Vel: dynamo.Vec4{0, 3, 0, 0}}}
	topo, err := NewTopology(rest, []bool{false, true}, []Spring{{0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	d := NewDeriv(topo, Physics{Stiffness: 10, RestLength: 0.01, Mass: 2})

	state := rest.Clone()
	slope := make(State, 2)
	d.Eval(slope, state)

	if slope[0] != (Particle{}) {
		t.Errorf("anchor slope should be zero, got %+v", slope[0])
	}
	if slope[1].Pos != state[1].Vel {
		t.Errorf("position slope %v should equal velocity %v", slope[1].Pos, state[1].Vel)
	}
	// stretched by 0.01 m: F = 0.1 N toward the anchor, a = 0.05 m/s^2.
	if math.Abs(slope[1].Vel[0]+0.05) > 1e-12 || slope[1].Vel[1] != 0 {
		t.Errorf("expected acceleration (-0.05, 0), got %v", slope[1].Vel)
	}
}

func TestDeriv_ChainEquilibrium(t *testing.T) {
	topo, err := BuildGrid(grid(1, 4))
	if err != nil {
		t.Fatal(err)
	}
	d := NewDeriv(topo, stringPhysics)

	state := topo.RestState()
	slope := make(State, len(state))
	d.Eval(slope, state)

	for i, s := range slope {
		if s.Vel.Mag() > 1e-9 {
			t.Errorf("particle %d: expected balanced forces, got acceleration %v", i, s.Vel)
		}
	}
}

func TestDeriv_GravityMobileOnly(t *testing.T) {
	topo, err := BuildGrid(grid(1, 3))
	if err != nil {
		t.Fatal(err)
	}
	g := dynamo.Vec4{0, -9.8, 0, 0}
	d := NewDeriv(topo, Physics{Stiffness: 89, RestLength: 0.01, Mass: 0.001, Gravity: g})

	state := topo.RestState()
	slope := make(State, len(state))
	d.Eval(slope, state)

	for i, s := range slope {
		if topo.IsMobile(i) {
			if math.Abs(s.Vel[1]-g[1]) > 1e-9 {
				t.Errorf("mobile %d: expected gravity %v, got %v", i, g, s.Vel)
			}
		} else if s.Vel != (dynamo.Vec4{}) {
			t.Errorf("anchor %d accelerated: %v", i, s.Vel)
		}
	}
}

func TestDeriv_NewtonThirdLaw(t *testing.T) {
	rest := State{
		{},
		{Pos: dynamo.Vec4{0.01, 0.003, 0, 0}},
		{Pos: dynamo.Vec4{0.021, -0.002, 0.001, 0}},
		{Pos: dynamo.Vec4{0.03, 0, 0, 0}},
	}
	topo, err := NewTopology(rest, []bool{false, true, true, false}, []Spring{{0, 1}, {1, 2}, {2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	d := NewDeriv(topo, stringPhysics)

	slope := make(State, 4)
	d.Eval(slope, rest)

	// The middle spring acts on two mobile particles; remove the outer
	// springs' contributions and the remainder must cancel.
	outer := NewDeriv(mustTopology(t, rest, []bool{false, true, true, false}, []Spring{{0, 1}, {2, 3}}), stringPhysics)
	outerSlope := make(State, 4)
	outer.Eval(outerSlope, rest)

	sum := slope[1].Vel.Sub(outerSlope[1].Vel).Add(slope[2].Vel.Sub(outerSlope[2].Vel))
	if sum.Mag() > 1e-9 {
		t.Errorf("internal spring forces do not cancel: %v", sum)
	}
}

func mustTopology(t *testing.T, rest State, mobile []bool, springs []Spring) *Topology {
	t.Helper()
	topo, err := NewTopology(rest, mobile, springs)
	if err != nil {
		t.Fatal(err)
	}
	return topo
}

func TestDeriv_PureFunction(t *testing.T) {
	topo, err := BuildGrid(grid(2, 3))
	if err != nil {
		t.Fatal(err)
	}
	d := NewDeriv(topo, stringPhysics)

	state := topo.RestState()
	state[3].Vel = dynamo.Vec4{0.5, -0.2, 0, 0}
	state[4].Pos[1] += 0.002
	before := state.Clone()

	a := make(State, len(state))
	b := make(State, len(state))
	d.Eval(a, state)
	d.Eval(b, state)

	for i := range a {
		if a[i] != b[i] {
			t.Errorf("particle %d: repeated evaluation differs", i)
		}
		if state[i] != before[i] {
			t.Errorf("particle %d: input state mutated", i)
		}
	}
}

func TestDeriv_DegenerateSpringPanics(t *testing.T) {
	topo, err := BuildGrid(grid(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	d := NewDeriv(topo, stringPhysics)

	state := topo.RestState()
	state[2].Pos = state[1].Pos

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, dynamo.ErrDegenerateSpring) {
			t.Errorf("expected ErrDegenerateSpring panic, got %v", r)
		}
	}()
	d.Eval(make(State, len(state)), state)
}

func TestDeriv_Energy(t *testing.T) {
	topo, err := BuildGrid(grid(1, 4))
	if err != nil {
		t.Fatal(err)
	}
	d := NewDeriv(topo, stringPhysics)

	state := topo.RestState()
	stretch := 0.01 - stringPhysics.RestLength
	want := 5 * 0.5 * stringPhysics.Stiffness * stretch * stretch
	if got := d.Energy(state); math.Abs(got-want) > 1e-12 {
		t.Errorf("rest energy = %g, want %g", got, want)
	}

	state[2].Vel = dynamo.Vec4{2, 0, 0, 0}
	want += 0.5 * stringPhysics.Mass * 4
	if got := d.Energy(state); math.Abs(got-want) > 1e-12 {
		t.Errorf("energy with motion = %g, want %g", got, want)
	}
}

func TestSpace_AddScale(t *testing.T) {
	a := State{{Pos: dynamo.Vec4{1, 2, 0, 0}, Vel: dynamo.Vec4{3, 0, 0, 0}}}
	b := State{{Pos: dynamo.Vec4{0.5, 0, 0, 0}, Vel: dynamo.Vec4{-1, 1, 0, 0}}}

	var sp Space
	dst := sp.New(a)
	sp.Add(dst, a, b)
	if dst[0].Pos != (dynamo.Vec4{1.5, 2, 0, 0}) || dst[0].Vel != (dynamo.Vec4{2, 1, 0, 0}) {
		t.Errorf("Add = %+v", dst[0])
	}

	sp.Scale(dst, dst, 2)
	if dst[0].Pos != (dynamo.Vec4{3, 4, 0, 0}) || dst[0].Vel != (dynamo.Vec4{4, 2, 0, 0}) {
		t.Errorf("Scale = %+v", dst[0])
	}
}

func TestState_MaxSpeed(t *testing.T) {
	s := State{
		{Vel: dynamo.Vec4{3, 4, 0, 0}},
		{Vel: dynamo.Vec4{1, 0, 0, 0}},
	}
	if got := s.MaxSpeed(); math.Abs(got-5) > 1e-12 {
		t.Errorf("MaxSpeed = %g, want 5", got)
	}
}
