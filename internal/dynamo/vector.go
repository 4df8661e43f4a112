package dynamo

import "math"

// Vec4 is a fixed 4-lane vector. Lanes 0..2 are spatial; lane 3 is spare
// and normally zero.
type Vec4 [4]float64

func (v Vec4) Add(o Vec4) Vec4 {
	return Vec4{v[0] + o[0], v[1] + o[1], v[2] + o[2], v[3] + o[3]}
}

func (v Vec4) Sub(o Vec4) Vec4 {
	return Vec4{v[0] - o[0], v[1] - o[1], v[2] - o[2], v[3] - o[3]}
}

func (v Vec4) Scale(k float64) Vec4 {
	return Vec4{k * v[0], k * v[1], k * v[2], k * v[3]}
}

func (v Vec4) Dot(o Vec4) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] + v[3]*o[3]
}

// Quadrature returns the squared magnitude.
func (v Vec4) Quadrature() float64 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2] + v[3]*v[3]
}

func (v Vec4) Mag() float64 {
	return math.Sqrt(v.Quadrature())
}

func (v Vec4) IsFinite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
