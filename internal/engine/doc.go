// Package engine turns a mass-spring mesh into a playable voice.
//
// Each call to Update advances the mesh by one audio sample: the playback
// speed glides toward the pitch target, the mesh is integrated with RK4
// (optionally oversampled), velocities are braked by the running or release
// half-life, and two particles are read out as a stereo frame.
//
//	e, err := engine.New(engine.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	e.Pluck()
//	for i := range buf {
//	    buf[i] = e.Update(48000)
//	}
//
// Settle and the pre-settled state exist so that a voice can start from a
// mesh that has already relaxed, without paying for the relaxation on the
// audio thread.
package engine
