package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/meshsynth/internal/dynamo"
	"github.com/san-kum/meshsynth/internal/engine"
)

// blockSize is how many frames are rendered between context checks.
const blockSize = 256

// Renderer drives one engine offline.
type Renderer struct {
	eng       *engine.Engine
	metrics   []Metric
	observers []Observer
}

func New(e *engine.Engine) *Renderer {
	return &Renderer{
		eng:       e,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (r *Renderer) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Renderer) AddObserver(o Observer) { r.observers = append(r.observers, o) }
func (r *Renderer) Engine() *engine.Engine { return r.eng }

// Run renders cfg.Duration seconds. On divergence or cancellation it returns
// the frames rendered so far together with a *dynamo.SimulationError.
func (r *Renderer) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	frames := cfg.Frames()
	result := &Result{
		SampleRate: cfg.SampleRate,
		Frames:     make([]engine.StereoFrame, 0, frames),
		Metrics:    make(map[string]float64),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	result.InitialEnergy = r.eng.Energy()
	err := r.render(ctx, cfg, func(i int, f engine.StereoFrame, plucked bool) bool {
		if plucked {
			result.Plucks = append(result.Plucks, i)
		}
		result.Frames = append(result.Frames, f)
		if s := r.eng.MaxSpeed(); s > result.PeakSpeed {
			result.PeakSpeed = s
		}
		return true
	})
	result.FinalEnergy = r.eng.Energy()

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, err
}

// RunWithCallback renders like Run but hands each frame to callback instead
// of collecting it. Returning false from callback stops the render early.
func (r *Renderer) RunWithCallback(ctx context.Context, cfg Config, callback func(engine.StereoFrame, float64) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	for _, m := range r.metrics {
		m.Reset()
	}
	return r.render(ctx, cfg, func(i int, f engine.StereoFrame, _ bool) bool {
		return callback(f, float64(i)/cfg.SampleRate)
	})
}

func (r *Renderer) render(ctx context.Context, cfg Config, emit func(int, engine.StereoFrame, bool) bool) error {
	e := r.eng
	sr := cfg.SampleRate
	frames := cfg.Frames()

	pluckEvery := 0
	if cfg.PluckInterval > 0 {
		pluckEvery = max(1, int(cfg.PluckInterval*sr+0.5))
	}
	releaseAt := -1
	if cfg.ReleaseAfter > 0 {
		releaseAt = int(cfg.ReleaseAfter*sr + 0.5)
	}

	for i := 0; i < frames; i++ {
		if i%blockSize == 0 {
			select {
			case <-ctx.Done():
				return &dynamo.SimulationError{
					Frame:   i,
					Time:    float64(i) / sr,
					Wrapped: fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err()),
				}
			default:
			}
		}

		plucked := i == 0 || (pluckEvery > 0 && i%pluckEvery == 0)
		if plucked {
			e.SetGate(true)
			e.Pluck()
		}
		if i == releaseAt {
			e.SetGate(false)
		}

		f := e.Update(sr)
		t := float64(i) / sr

		if cfg.MaxSpeed > 0 {
			if s := e.MaxSpeed(); !(s <= cfg.MaxSpeed) {
				return &dynamo.SimulationError{
					Frame:   i,
					Time:    t,
					Wrapped: fmt.Errorf("%w: max speed %g exceeds %g", dynamo.ErrUnstable, s, cfg.MaxSpeed),
				}
			}
		}

		for _, m := range r.metrics {
			m.Observe(e, f, t)
		}
		for _, obs := range r.observers {
			obs.OnFrame(e, f, t)
		}
		if !emit(i, f, plucked) {
			return nil
		}
	}
	return nil
}

func validateConfig(cfg Config) error {
	if !(cfg.SampleRate > 0) || math.IsInf(cfg.SampleRate, 1) {
		return fmt.Errorf("%w: sample rate must be positive, got %g", dynamo.ErrParameterBounds, cfg.SampleRate)
	}
	if !(cfg.Duration > 0) || math.IsInf(cfg.Duration, 1) {
		return fmt.Errorf("%w: duration must be positive, got %g", dynamo.ErrParameterBounds, cfg.Duration)
	}
	if cfg.PluckInterval < 0 || cfg.ReleaseAfter < 0 || cfg.MaxSpeed < 0 {
		return fmt.Errorf("%w: pluck interval, release time and max speed must be non-negative", dynamo.ErrParameterBounds)
	}
	return nil
}
