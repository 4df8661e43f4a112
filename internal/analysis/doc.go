// Package analysis measures rendered audio: spectra, the dominant partial
// and levels, plus helpers for retuning a voice to a target note.
//
//	hz, err := analysis.DominantFrequency(left, 48000)
//	if err != nil {
//	    return err
//	}
//	tuning := analysis.Retune(params.Tuning, hz, analysis.NoteHz(60))
package analysis
