package mesh

import (
	"fmt"
	"math"

	"github.com/san-kum/meshsynth/internal/dynamo"
)

// Physics holds the scalar parameters of the force model.
type Physics struct {
	Stiffness  float64     // N/m
	RestLength float64     // m
	Mass       float64     // kg, per particle
	Gravity    dynamo.Vec4 // constant acceleration applied to mobile particles
}

func (p Physics) Validate() error {
	if !(p.Stiffness > 0) || math.IsInf(p.Stiffness, 0) {
		return fmt.Errorf("%w: stiffness must be positive and finite, got %g", dynamo.ErrParameterBounds, p.Stiffness)
	}
	if !(p.RestLength >= 0) || math.IsInf(p.RestLength, 0) {
		return fmt.Errorf("%w: rest length must be non-negative and finite, got %g", dynamo.ErrParameterBounds, p.RestLength)
	}
	if !(p.Mass > 0) || math.IsInf(p.Mass, 0) {
		return fmt.Errorf("%w: mass must be positive and finite, got %g", dynamo.ErrParameterBounds, p.Mass)
	}
	if !p.Gravity.IsFinite() {
		return fmt.Errorf("%w: gravity must be finite, got %v", dynamo.ErrParameterBounds, p.Gravity)
	}
	return nil
}

// Deriv is the Hooke's-law force model over a Topology. Eval keeps no state
// between calls; it reads only the topology and the Physics fields.
type Deriv struct {
	Physics
	topo *Topology
}

func NewDeriv(t *Topology, p Physics) *Deriv {
	return &Deriv{Physics: p, topo: t}
}

// Eval writes d(state)/dt into slope.
func (d *Deriv) Eval(slope, state State) {
	t := d.topo
	n := len(t.mobile)
	if len(state) != n || len(slope) != n {
		panic(dynamo.Violation(dynamo.ErrDimensionMismatch, "deriv: slope=%d state=%d topology=%d", len(slope), len(state), n))
	}

	for i := range state {
		slope[i].Pos = state[i].Vel
		if t.mobile[i] {
			slope[i].Vel = d.Gravity
		} else {
			slope[i].Vel = dynamo.Vec4{}
		}
	}

	k := d.Stiffness
	rest := d.RestLength
	m := d.Mass
	for i, s := range t.springs {
		dr := state[s.B].Pos.Sub(state[s.A].Pos)
		length := dr.Mag()
		if length == 0 {
			panic(dynamo.Violation(dynamo.ErrDegenerateSpring, "spring %d joins coincident particles %d and %d", i, s.A, s.B))
		}
		fmag := k * (length - rest)
		acc := dr.Scale(fmag / (m * length))
		if t.mobile[s.A] {
			slope[s.A].Vel = slope[s.A].Vel.Add(acc)
		}
		if t.mobile[s.B] {
			slope[s.B].Vel = slope[s.B].Vel.Sub(acc)
		}
	}
}

// Energy returns kinetic plus potential energy: spring strain and the work
// done against Gravity by mobile particles.
func (d *Deriv) Energy(state State) float64 {
	t := d.topo
	e := 0.0
	for i, p := range state {
		e += 0.5 * d.Mass * p.Vel.Quadrature()
		if t.mobile[i] {
			e -= d.Mass * d.Gravity.Dot(p.Pos)
		}
	}
	for _, s := range t.springs {
		stretch := state[s.B].Pos.Sub(state[s.A].Pos).Mag() - d.RestLength
		e += 0.5 * d.Stiffness * stretch * stretch
	}
	return e
}
