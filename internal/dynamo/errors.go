package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for mesh simulation.
var (
	// ErrInvalidTopology indicates a particle/spring layout that cannot be simulated.
	ErrInvalidTopology = errors.New("dynamo: invalid topology")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrDegenerateSpring indicates a spring whose endpoints coincide.
	ErrDegenerateSpring = errors.New("dynamo: zero-length spring")

	// ErrInvalidState indicates a state with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates the simulation became numerically unstable.
	ErrUnstable = errors.New("dynamo: simulation unstable (speed diverged)")

	// ErrDimensionMismatch indicates a state whose length does not match the topology.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and topology")

	// ErrNoPreSettledState indicates no settled snapshot has been captured or loaded.
	ErrNoPreSettledState = errors.New("dynamo: no pre-settled state available")

	// ErrContextCanceled indicates the render was interrupted.
	ErrContextCanceled = errors.New("dynamo: render canceled by context")
)

// SimulationError wraps an error with render context.
type SimulationError struct {
	Frame   int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("frame %d (t=%.4fs): %v", e.Frame, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Violation builds the panic value for a broken hot-path invariant. Callers
// test the condition themselves so the formatting arguments are only
// evaluated on failure:
//
//	if length == 0 {
//	    panic(dynamo.Violation(dynamo.ErrDegenerateSpring, "spring %d", i))
//	}
func Violation(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
