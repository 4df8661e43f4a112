package engine

import "math"

// dcReject is a one-pole high-pass: the input minus a bilinear one-pole
// low-pass at the cutoff. The first sample after a reset snaps the
// low-pass to the input, so a voice that starts displaced from its rest
// layout begins at zero instead of with a step.
type dcReject struct {
	x      float64 // previous input
	y      float64 // previous low-pass output
	primed bool
}

func (f *dcReject) reset() { f.primed = false }

func (f *dcReject) snap(v float64) {
	f.x, f.y, f.primed = v, v, true
}

func (f *dcReject) update(v, sampleRate, cutoffHz float64) float64 {
	if !f.primed {
		f.snap(v)
		return 0
	}
	c := sampleRate / (math.Pi * cutoffHz)
	f.y = (v + f.x - f.y*(1-c)) / (1 + c)
	f.x = v
	return f.x - f.y
}
