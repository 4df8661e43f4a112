// Package mesh models a mass-spring mesh: point masses joined by springs,
// some of them pinned as anchors.
//
// A [Topology] is the static description (particle count, mobility,
// rest positions, spring list) and is immutable once built. A [State] is the
// dynamical part, one [Particle] per index. [Deriv] computes the rate of
// change of a State under Hooke's-law springs and a constant bias force, and
// [Space] lets the generic RK4 stepper treat a State as a vector.
//
//	topo, err := mesh.BuildGrid(mesh.Grid{Rows: 1, MobileColumns: 42,
//	    HorizontalSpacing: 0.01, VerticalSpacing: 0.01})
//	deriv := mesh.NewDeriv(topo, physics)
//	state := topo.RestState()
//	rk4 := integrators.NewRK4[mesh.State](mesh.Space{}, deriv.Eval, state)
//	rk4.Step(state, dt)
package mesh
