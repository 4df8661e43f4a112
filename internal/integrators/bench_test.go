package integrators

import "testing"

func BenchmarkRK4(b *testing.B) {
	x := []float64{1.0, 0.0}
	integ := NewRK4[[]float64](Float64Space{}, oscillator, x)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integ.Step(x, 0.01)
	}
}

func chain(slope, x []float64) {
	n := len(x) / 2
	for i := 0; i < n; i++ {
		slope[i*2] = x[i*2+1]
		var left, right float64
		if i > 0 {
			left = x[(i-1)*2]
		}
		if i < n-1 {
			right = x[(i+1)*2]
		}
		slope[i*2+1] = left + right - 2*x[i*2]
	}
}

func BenchmarkRK4_Chain44(b *testing.B) {
	x := make([]float64, 88)
	for i := range x {
		x[i] = float64(i) * 0.01
	}
	integ := NewRK4[[]float64](Float64Space{}, chain, x)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integ.Step(x, 0.001)
	}
}
