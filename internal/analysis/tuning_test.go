package analysis

import (
	"math"
	"testing"
)

func TestNoteHz(t *testing.T) {
	tests := []struct {
		note float64
		hz   float64
	}{
		{69, 440},
		{57, 220},
		{60, 261.6255653},
	}
	for _, tt := range tests {
		if got := NoteHz(tt.note); math.Abs(got-tt.hz) > 1e-6 {
			t.Errorf("NoteHz(%g) = %g, want %g", tt.note, got, tt.hz)
		}
	}
}

func TestRetune(t *testing.T) {
	got := Retune(76.0808, 2000, 1000)
	if math.Abs(got-38.0404) > 1e-12 {
		t.Errorf("expected 38.0404, got %g", got)
	}
}

func TestCents(t *testing.T) {
	if got := Cents(880, 440); math.Abs(got-1200) > 1e-9 {
		t.Errorf("expected 1200 cents, got %g", got)
	}
}
