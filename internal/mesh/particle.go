package mesh

import (
	"math"

	"github.com/san-kum/meshsynth/internal/dynamo"
)

// Particle is one point mass.
type Particle struct {
	Pos dynamo.Vec4 `json:"pos"`
	Vel dynamo.Vec4 `json:"vel"`
}

// State is the full dynamical state of a mesh, addressed by particle index.
type State []Particle

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, p := range s {
		if !p.Pos.IsFinite() || !p.Vel.IsFinite() {
			return false
		}
	}
	return true
}

// MaxSpeed returns the largest particle speed.
func (s State) MaxSpeed() float64 {
	q := 0.0
	for _, p := range s {
		if v := p.Vel.Quadrature(); v > q {
			q = v
		}
	}
	return math.Sqrt(q)
}

// Space implements integrators.Space for State, particle by particle.
type Space struct{}

func (Space) New(like State) State {
	return make(State, len(like))
}

func (Space) Add(dst, a, b State) {
	for i := range dst {
		dst[i].Pos = a[i].Pos.Add(b[i].Pos)
		dst[i].Vel = a[i].Vel.Add(b[i].Vel)
	}
}

func (Space) Scale(dst, src State, k float64) {
	for i := range dst {
		dst[i].Pos = src[i].Pos.Scale(k)
		dst[i].Vel = src[i].Vel.Scale(k)
	}
}
