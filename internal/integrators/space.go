package integrators

// Space is the vector-space contract RK4 needs from a state type: a way to
// allocate a same-shaped value, element-wise addition and scalar scaling.
// Add and Scale write into dst and must allow dst to alias an operand.
type Space[S any] interface {
	New(like S) S
	Add(dst, a, b S)
	Scale(dst, src S, k float64)
}

// Float64Space treats a []float64 as a vector.
type Float64Space struct{}

func (Float64Space) New(like []float64) []float64 {
	return make([]float64, len(like))
}

func (Float64Space) Add(dst, a, b []float64) {
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}

func (Float64Space) Scale(dst, src []float64, k float64) {
	for i := range dst {
		dst[i] = k * src[i]
	}
}
