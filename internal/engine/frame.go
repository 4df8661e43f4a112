package engine

// StereoFrame is one output sample per channel.
type StereoFrame struct {
	Left  float64
	Right float64
}

func (f StereoFrame) Add(o StereoFrame) StereoFrame {
	return StereoFrame{Left: f.Left + o.Left, Right: f.Right + o.Right}
}

func (f StereoFrame) Scale(k float64) StereoFrame {
	return StereoFrame{Left: k * f.Left, Right: k * f.Right}
}

// Peak returns the larger absolute channel value.
func (f StereoFrame) Peak() float64 {
	l, r := f.Left, f.Right
	if l < 0 {
		l = -l
	}
	if r < 0 {
		r = -r
	}
	if l > r {
		return l
	}
	return r
}
