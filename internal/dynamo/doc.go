// Package dynamo provides the primitives shared by the mesh simulation.
//
// The package is a leaf: it knows nothing about topologies, integrators or
// audio. It defines:
//
//   - [Vec4]: the 4-lane vector used for particle positions and velocities
//   - the sentinel errors returned or raised by the rest of the module
//   - [Violation]: the panic value for invariants broken on the audio hot path
//
// # Errors
//
// Construction and I/O paths return errors that wrap one of the sentinels,
// so callers can use [errors.Is]:
//
//	eng, err := engine.New(cfg)
//	if errors.Is(err, dynamo.ErrInvalidTopology) {
//	    // reject the configuration
//	}
//
// The real-time path never returns errors. A violated invariant there is a
// programming error and panics with a [Violation].
package dynamo
