package mesh

import (
	"fmt"

	"github.com/san-kum/meshsynth/internal/dynamo"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Spring names two particles by index. It never owns them.
type Spring struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Grid describes a rows x columns mesh. Column 0 and the last column are
// anchors; the MobileColumns between them move. Each row is a chain of
// horizontal springs, and adjacent rows are coupled by a transverse spring
// at every mobile column.
type Grid struct {
	Rows              int
	MobileColumns     int
	HorizontalSpacing float64 // meters
	VerticalSpacing   float64 // meters
}

func (g Grid) Columns() int   { return g.MobileColumns + 2 }
func (g Grid) Particles() int { return g.Rows * g.Columns() }

// ParticleIndex maps (column, row) to a state index. Rows are interleaved
// so the particles of one column are contiguous.
func (g Grid) ParticleIndex(c, r int) int {
	return r + c*g.Rows
}

func (g Grid) IsMobileColumn(c int) bool {
	return c > 0 && c <= g.MobileColumns
}

func (g Grid) Validate() error {
	if g.Rows < 1 {
		return fmt.Errorf("%w: rows must be at least 1, got %d", dynamo.ErrInvalidTopology, g.Rows)
	}
	if g.MobileColumns < 1 {
		return fmt.Errorf("%w: mobile columns must be at least 1, got %d", dynamo.ErrInvalidTopology, g.MobileColumns)
	}
	if !(g.HorizontalSpacing > 0) {
		return fmt.Errorf("%w: horizontal spacing must be positive, got %g", dynamo.ErrInvalidTopology, g.HorizontalSpacing)
	}
	if !(g.VerticalSpacing > 0) {
		return fmt.Errorf("%w: vertical spacing must be positive, got %g", dynamo.ErrInvalidTopology, g.VerticalSpacing)
	}
	return nil
}

// Topology is the static part of a mesh: how many particles, which of them
// are mobile, where they rest, and which pairs are joined by springs.
// It is immutable once built.
type Topology struct {
	mobile      []bool
	mobileCount int
	springs     []Spring
	rest        State
}

// BuildGrid lays out a Grid and validates the result.
func BuildGrid(g Grid) (*Topology, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	n := g.Particles()
	rest := make(State, n)
	mobile := make([]bool, n)
	for c := 0; c < g.Columns(); c++ {
		for r := 0; r < g.Rows; r++ {
			i := g.ParticleIndex(c, r)
			rest[i].Pos = dynamo.Vec4{g.HorizontalSpacing * float64(c), g.VerticalSpacing * float64(r), 0, 0}
			mobile[i] = g.IsMobileColumn(c)
		}
	}

	springs := make([]Spring, 0, g.Rows*(g.Columns()-1)+(g.Rows-1)*g.MobileColumns)
	for r := 0; r < g.Rows; r++ {
		for c := 1; c < g.Columns(); c++ {
			springs = append(springs, Spring{A: g.ParticleIndex(c-1, r), B: g.ParticleIndex(c, r)})
		}
	}
	for r := 1; r < g.Rows; r++ {
		for c := 1; c <= g.MobileColumns; c++ {
			springs = append(springs, Spring{A: g.ParticleIndex(c, r-1), B: g.ParticleIndex(c, r)})
		}
	}

	return NewTopology(rest, mobile, springs)
}

// NewTopology validates an arbitrary layout. rest supplies the initial
// positions; its velocities are ignored.
func NewTopology(rest State, mobile []bool, springs []Spring) (*Topology, error) {
	n := len(rest)
	if n == 0 {
		return nil, fmt.Errorf("%w: no particles", dynamo.ErrInvalidTopology)
	}
	if len(mobile) != n {
		return nil, fmt.Errorf("%w: %d mobility flags for %d particles", dynamo.ErrDimensionMismatch, len(mobile), n)
	}

	t := &Topology{
		mobile:  make([]bool, n),
		springs: make([]Spring, len(springs)),
		rest:    make(State, n),
	}
	copy(t.mobile, mobile)
	copy(t.springs, springs)
	for i, p := range rest {
		if !p.Pos.IsFinite() {
			return nil, fmt.Errorf("%w: particle %d rest position %v", dynamo.ErrInvalidState, i, p.Pos)
		}
		t.rest[i].Pos = p.Pos
	}
	for _, m := range t.mobile {
		if m {
			t.mobileCount++
		}
	}
	if t.mobileCount == n {
		return nil, fmt.Errorf("%w: all %d particles are mobile, at least one anchor is required", dynamo.ErrInvalidTopology, n)
	}

	for i, s := range t.springs {
		if s.A < 0 || s.A >= n || s.B < 0 || s.B >= n {
			return nil, fmt.Errorf("%w: spring %d (%d,%d) out of range [0,%d)", dynamo.ErrInvalidTopology, i, s.A, s.B, n)
		}
		if s.A == s.B {
			return nil, fmt.Errorf("%w: spring %d joins particle %d to itself", dynamo.ErrInvalidTopology, i, s.A)
		}
		if t.rest[s.B].Pos.Sub(t.rest[s.A].Pos).Quadrature() == 0 {
			return nil, fmt.Errorf("%w: spring %d endpoints %d and %d coincide at rest", dynamo.ErrDegenerateSpring, i, s.A, s.B)
		}
	}

	if err := t.checkAnchored(); err != nil {
		return nil, err
	}
	return t, nil
}

// checkAnchored rejects any mobile particle that has no spring path to an
// anchor; it would drift without restoring force.
func (t *Topology) checkAnchored() error {
	g := simple.NewUndirectedGraph()
	for i := range t.mobile {
		g.AddNode(simple.Node(i))
	}
	for _, s := range t.springs {
		if !g.HasEdgeBetween(int64(s.A), int64(s.B)) {
			g.SetEdge(g.NewEdge(simple.Node(s.A), simple.Node(s.B)))
		}
	}

	for _, component := range topo.ConnectedComponents(g) {
		anchored := false
		floating := -1
		for _, node := range component {
			id := int(node.ID())
			if t.mobile[id] {
				if floating < 0 || id < floating {
					floating = id
				}
			} else {
				anchored = true
			}
		}
		if floating >= 0 && !anchored {
			return fmt.Errorf("%w: mobile particle %d is not connected to any anchor", dynamo.ErrInvalidTopology, floating)
		}
	}
	return nil
}

func (t *Topology) Particles() int       { return len(t.mobile) }
func (t *Topology) MobileParticles() int { return t.mobileCount }
func (t *Topology) IsMobile(i int) bool  { return t.mobile[i] }
func (t *Topology) SpringCount() int     { return len(t.springs) }
func (t *Topology) Spring(i int) Spring  { return t.springs[i] }
func (t *Topology) AnchorParticles() int { return len(t.mobile) - t.mobileCount }

// Springs returns a copy of the spring list.
func (t *Topology) Springs() []Spring {
	c := make([]Spring, len(t.springs))
	copy(c, t.springs)
	return c
}

// RestState returns the initial positions with zero velocity.
func (t *Topology) RestState() State {
	return t.rest.Clone()
}

// CheckState verifies s can be simulated on this topology.
func (t *Topology) CheckState(s State) error {
	if len(s) != len(t.mobile) {
		return fmt.Errorf("%w: state has %d particles, topology has %d", dynamo.ErrDimensionMismatch, len(s), len(t.mobile))
	}
	if !s.IsValid() {
		return dynamo.ErrInvalidState
	}
	for i, sp := range t.springs {
		if s[sp.B].Pos.Sub(s[sp.A].Pos).Quadrature() == 0 {
			return fmt.Errorf("%w: spring %d endpoints %d and %d coincide", dynamo.ErrDegenerateSpring, i, sp.A, sp.B)
		}
	}
	return nil
}
