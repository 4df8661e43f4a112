package analysis

import "math"

// NoteHz is the equal-tempered frequency of a MIDI note, A4 = 69 = 440 Hz.
func NoteHz(note float64) float64 {
	return 440 * math.Exp2((note-69)/12)
}

// Retune scales a tuning constant so a voice measured at measuredHz plays
// targetHz instead. Pitch is proportional to the tuning constant because
// it sets simulated seconds per audio second.
func Retune(tuning, measuredHz, targetHz float64) float64 {
	return tuning * targetHz / measuredHz
}

// Cents is the interval from ref to hz.
func Cents(hz, ref float64) float64 {
	return 1200 * math.Log2(hz/ref)
}
