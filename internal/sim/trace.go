package sim

import "github.com/san-kum/meshsynth/internal/engine"

// Trace samples engine diagnostics every Every frames.
type Trace struct {
	Every    int
	Times    []float64
	MaxSpeed []float64
	Energy   []float64
	n        int
}

func NewTrace(every int) *Trace {
	return &Trace{Every: max(1, every)}
}

func (tr *Trace) OnFrame(e *engine.Engine, _ engine.StereoFrame, t float64) {
	if tr.n%tr.Every == 0 {
		tr.Times = append(tr.Times, t)
		tr.MaxSpeed = append(tr.MaxSpeed, e.MaxSpeed())
		tr.Energy = append(tr.Energy, e.Energy())
	}
	tr.n++
}
