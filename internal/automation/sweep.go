package automation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/meshsynth/internal/dynamo"
	"github.com/san-kum/meshsynth/internal/engine"
	"github.com/san-kum/meshsynth/internal/metrics"
	"github.com/san-kum/meshsynth/internal/sim"
)

// Sweepable parameters.
const (
	ParamStiffness = "stiffness"
	ParamPitch     = "pitch"
	ParamTuning    = "tuning"
	ParamHalfLife  = "half_life"
	ParamImpulse   = "impulse"
	ParamMass      = "mass"
)

// ParameterSweep renders one voice per value of a parameter, evenly spaced
// from Min to Max inclusive.
type ParameterSweep struct {
	Param string
	Min   float64
	Max   float64
	Steps int
}

// SweepResult summarises one render of a sweep. A voice that diverged has
// Stable false and DivergedAt set to the time the speed limit was crossed.
type SweepResult struct {
	Value      float64
	Stable     bool
	DivergedAt float64
	PeakSpeed  float64
	PeakLevel  float64
	RMSLevel   float64
}

// Values lists the parameter values the sweep visits.
func (sw ParameterSweep) Values() []float64 {
	if sw.Steps == 1 {
		return []float64{sw.Min}
	}
	vals := make([]float64, sw.Steps)
	step := (sw.Max - sw.Min) / float64(sw.Steps-1)
	for i := range vals {
		vals[i] = sw.Min + float64(i)*step
	}
	vals[len(vals)-1] = sw.Max
	return vals
}

func (sw ParameterSweep) validate() error {
	if sw.Steps < 1 {
		return fmt.Errorf("%w: sweep needs at least one step, got %d", dynamo.ErrParameterBounds, sw.Steps)
	}
	if math.IsNaN(sw.Min) || math.IsNaN(sw.Max) || math.IsInf(sw.Min, 0) || math.IsInf(sw.Max, 0) {
		return fmt.Errorf("%w: sweep range [%g, %g]", dynamo.ErrParameterBounds, sw.Min, sw.Max)
	}
	if _, err := setParam(engine.Config{}, sw.Param, 0); err != nil {
		return err
	}
	if positiveOnly[sw.Param] && !(math.Min(sw.Min, sw.Max) > 0) {
		return fmt.Errorf("%w: %s must be positive, sweep range is [%g, %g]", dynamo.ErrParameterBounds, sw.Param, sw.Min, sw.Max)
	}
	return nil
}

// positiveOnly lists the parameters an engine cannot be built with at zero
// or below.
var positiveOnly = map[string]bool{
	ParamStiffness: true,
	ParamTuning:    true,
	ParamHalfLife:  true,
	ParamMass:      true,
}

func setParam(cfg engine.Config, name string, v float64) (engine.Config, error) {
	cfg.Params = cfg.Params.Clone()
	switch name {
	case ParamStiffness:
		cfg.Physics.Stiffness = v
	case ParamPitch:
		cfg.Params.Pitch = v
	case ParamTuning:
		cfg.Params.Tuning = v
	case ParamHalfLife:
		cfg.Params.HalfLife = v
	case ParamImpulse:
		cfg.Params.Pluck.Impulse = v
	case ParamMass:
		cfg.Physics.Mass = v
	default:
		return cfg, fmt.Errorf("%w: unknown sweep parameter %q", dynamo.ErrParameterBounds, name)
	}
	return cfg, nil
}

// RunSweep renders base once per sweep value. Divergence is recorded in the
// result rather than returned; configuration errors and cancellation stop
// the sweep.
func RunSweep(ctx context.Context, base engine.Config, sw ParameterSweep, cfg sim.Config) ([]SweepResult, error) {
	if err := sw.validate(); err != nil {
		return nil, err
	}

	values := sw.Values()
	results := make([]SweepResult, 0, len(values))
	for _, v := range values {
		ec, err := setParam(base, sw.Param, v)
		if err != nil {
			return results, err
		}
		e, err := engine.New(ec)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sw.Param, v, err)
		}

		speed := metrics.NewPeakSpeed()
		peak := metrics.NewPeakLevel()
		rms := metrics.NewRMSLevel()
		r := sim.New(e)
		r.AddMetric(speed)
		r.AddMetric(peak)
		r.AddMetric(rms)

		res := SweepResult{Value: v, Stable: true}
		err = r.RunWithCallback(ctx, cfg, func(engine.StereoFrame, float64) bool { return true })
		var simErr *dynamo.SimulationError
		switch {
		case err == nil:
		case errors.Is(err, dynamo.ErrUnstable) && errors.As(err, &simErr):
			res.Stable = false
			res.DivergedAt = simErr.Time
		default:
			return results, fmt.Errorf("%s=%g: %w", sw.Param, v, err)
		}

		res.PeakSpeed = speed.Value()
		res.PeakLevel = peak.Value()
		res.RMSLevel = rms.Value()
		results = append(results, res)
	}
	return results, nil
}

// StabilityLimit returns the last value before the first unstable result,
// and false if every value was stable.
func StabilityLimit(results []SweepResult) (float64, bool) {
	for i, r := range results {
		if !r.Stable {
			if i == 0 {
				return math.NaN(), true
			}
			return results[i-1].Value, true
		}
	}
	return 0, false
}
