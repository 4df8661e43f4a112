package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

var ErrNoSignal = errors.New("analysis: no periodic signal")

// PowerSpectrum returns the magnitude of the first len(data)/2 bins of the
// real FFT of data.
func PowerSpectrum(data []float64) []float64 {
	spec := fft.FFTReal(data)
	ps := make([]float64, len(spec)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}

// Spectrum removes the mean, applies a Hann window and returns bin
// frequencies with their magnitudes.
func Spectrum(samples []float64, sampleRate float64) (freqs, mags []float64) {
	x := make([]float64, len(samples))
	copy(x, samples)
	if len(x) > 0 {
		floats.AddConst(-floats.Sum(x)/float64(len(x)), x)
	}
	window.Apply(x, window.Hann)

	mags = PowerSpectrum(x)
	freqs = make([]float64, len(mags))
	for i := range freqs {
		freqs[i] = float64(i) * sampleRate / float64(len(x))
	}
	return freqs, mags
}

// DominantFrequency estimates the strongest partial in samples, refined by
// parabolic interpolation between the neighbouring bins.
func DominantFrequency(samples []float64, sampleRate float64) (float64, error) {
	if len(samples) < 8 {
		return 0, ErrNoSignal
	}
	_, mags := Spectrum(samples, sampleRate)
	mags[0] = 0

	k := floats.MaxIdx(mags)
	if mags[k] == 0 {
		return 0, ErrNoSignal
	}

	delta := 0.0
	if k > 0 && k < len(mags)-1 {
		a, b, c := mags[k-1], mags[k], mags[k+1]
		if d := a - 2*b + c; d != 0 {
			delta = 0.5 * (a - c) / d
		}
	}
	return (float64(k) + delta) * sampleRate / float64(len(samples)), nil
}

func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(samples, samples) / float64(len(samples)))
}
