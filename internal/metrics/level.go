package metrics

import (
	"math"

	"github.com/san-kum/meshsynth/internal/engine"
	"github.com/san-kum/meshsynth/internal/sim"
)

// PeakLevel is the largest absolute sample on either channel.
type PeakLevel struct {
	peak float64
}

func NewPeakLevel() *PeakLevel { return &PeakLevel{} }

func (p *PeakLevel) Name() string { return "peak_level" }

func (p *PeakLevel) Observe(_ *engine.Engine, f engine.StereoFrame, _ float64) {
	p.peak = math.Max(p.peak, f.Peak())
}

func (p *PeakLevel) Value() float64 { return p.peak }
func (p *PeakLevel) Reset()         { p.peak = 0 }

// RMSLevel is the root mean square over both channels.
type RMSLevel struct {
	sum     float64
	samples int
}

func NewRMSLevel() *RMSLevel { return &RMSLevel{} }

func (r *RMSLevel) Name() string { return "rms_level" }

func (r *RMSLevel) Observe(_ *engine.Engine, f engine.StereoFrame, _ float64) {
	r.sum += f.Left*f.Left + f.Right*f.Right
	r.samples += 2
}

func (r *RMSLevel) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return math.Sqrt(r.sum / float64(r.samples))
}

func (r *RMSLevel) Reset() {
	r.sum = 0
	r.samples = 0
}

// Standard returns the metrics the CLI attaches to every render.
func Standard(maxSpeed float64) []sim.Metric {
	return []sim.Metric{
		NewEnergy(),
		NewEnergyDrift(),
		NewStability(maxSpeed),
		NewPeakSpeed(),
		NewPeakLevel(),
		NewRMSLevel(),
	}
}
