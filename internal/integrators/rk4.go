package integrators

import (
	"math"

	"github.com/san-kum/meshsynth/internal/dynamo"
)

// Deriv writes the rate of change of state into slope.
type Deriv[S any] func(slope, state S)

// RK4 is the classical fourth-order Runge-Kutta stepper. The slope vectors
// and the work register are sized once by NewRK4 and reused, so Step never
// allocates.
type RK4[S any] struct {
	space          Space[S]
	deriv          Deriv[S]
	w              S
	k1, k2, k3, k4 S
}

// NewRK4 allocates the work registers shaped like the given state.
func NewRK4[S any](space Space[S], deriv Deriv[S], like S) *RK4[S] {
	return &RK4[S]{
		space: space,
		deriv: deriv,
		w:     space.New(like),
		k1:    space.New(like),
		k2:    space.New(like),
		k3:    space.New(like),
		k4:    space.New(like),
	}
}

// Step advances state in place by dt. dt must be positive and finite.
func (r *RK4[S]) Step(state S, dt float64) {
	if !(dt > 0) || math.IsInf(dt, 1) {
		panic(dynamo.Violation(dynamo.ErrParameterBounds, "rk4 step dt=%g", dt))
	}

	sp := r.space

	r.deriv(r.k1, state)

	sp.Scale(r.w, r.k1, dt/2)
	sp.Add(r.w, r.w, state)
	r.deriv(r.k2, r.w)

	sp.Scale(r.w, r.k2, dt/2)
	sp.Add(r.w, r.w, state)
	r.deriv(r.k3, r.w)

	sp.Scale(r.w, r.k3, dt)
	sp.Add(r.w, r.w, state)
	r.deriv(r.k4, r.w)

	sp.Add(r.w, r.k2, r.k3)
	sp.Scale(r.w, r.w, 2)
	sp.Add(r.w, r.w, r.k1)
	sp.Add(r.w, r.w, r.k4)
	sp.Scale(r.w, r.w, dt/6)
	sp.Add(state, state, r.w)
}
