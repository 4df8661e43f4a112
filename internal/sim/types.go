package sim

import "github.com/san-kum/meshsynth/internal/engine"

// Metric accumulates a scalar over every rendered frame.
type Metric interface {
	Name() string
	Observe(e *engine.Engine, f engine.StereoFrame, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnFrame(e *engine.Engine, f engine.StereoFrame, t float64)
}

type Config struct {
	SampleRate    float64
	Duration      float64
	PluckInterval float64 // seconds between plucks, 0 = pluck once at the start
	ReleaseAfter  float64 // seconds until the gate is released, 0 = hold
	MaxSpeed      float64 // divergence threshold, 0 = unchecked
}

func (c Config) Frames() int {
	return int(c.Duration*c.SampleRate + 0.5)
}

type Result struct {
	SampleRate    float64
	Frames        []engine.StereoFrame
	Plucks        []int
	Metrics       map[string]float64
	PeakSpeed     float64
	InitialEnergy float64
	FinalEnergy   float64
}

// Time returns the time of frame i in seconds.
func (r *Result) Time(i int) float64 {
	return float64(i) / r.SampleRate
}

// Channels splits the frames into left and right sample slices.
func (r *Result) Channels() (left, right []float64) {
	left = make([]float64, len(r.Frames))
	right = make([]float64, len(r.Frames))
	for i, f := range r.Frames {
		left[i], right[i] = f.Left, f.Right
	}
	return left, right
}
