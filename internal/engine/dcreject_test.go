package engine

import (
	"math"
	"testing"
)

func TestDCReject(t *testing.T) {
	const rate = 48000.0
	t.Run("snaps the first sample", func(t *testing.T) {
		var f dcReject
		if got := f.update(5, rate, 10); got != 0 {
			t.Errorf("first sample = %g, want 0", got)
		}
		for i := 0; i < 100; i++ {
			if got := f.update(5, rate, 10); math.Abs(got) > 1e-12 {
				t.Fatalf("sample %d of a constant input = %g, want 0", i, got)
			}
		}
	})

	t.Run("removes a step", func(t *testing.T) {
		var f dcReject
		f.update(0, rate, 10)
		first := f.update(1, rate, 10)
		if first < 0.99 {
			t.Errorf("step should pass at first, got %g", first)
		}
		var got float64
		for i := 0; i < int(rate); i++ {
			got = f.update(1, rate, 10)
		}
		if math.Abs(got) > 1e-6 {
			t.Errorf("step after one second = %g, want ~0", got)
		}
	})

	t.Run("passes audio", func(t *testing.T) {
		var f dcReject
		peak := 0.0
		for i := 0; i < int(rate/10); i++ {
			y := f.update(math.Sin(2*math.Pi*1000*float64(i)/rate), rate, 10)
			if i > int(rate/20) {
				peak = math.Max(peak, math.Abs(y))
			}
		}
		if peak < 0.99 || peak > 1.01 {
			t.Errorf("1 kHz peak = %g, want ~1", peak)
		}
	})

	t.Run("reset re-snaps", func(t *testing.T) {
		var f dcReject
		f.update(0, rate, 10)
		f.reset()
		if got := f.update(3, rate, 10); got != 0 {
			t.Errorf("first sample after reset = %g, want 0", got)
		}
	})
}
