package sim

import (
	"context"
	"fmt"
	"runtime"

	"github.com/san-kum/meshsynth/internal/engine"
	"github.com/san-kum/meshsynth/internal/mesh"
	"golang.org/x/sync/errgroup"
)

// Ensemble renders several voices of the same configuration at once. Voice
// i is detuned by i*Spread V/oct. Every voice owns its engine, so the
// goroutines share nothing mutable.
type Ensemble struct {
	base         engine.Config
	voices       int
	Spread       float64
	PreSettled   mesh.State
	NewMetrics   func() []Metric
	NewObservers func() []Observer // one fresh set per voice
}

func NewEnsemble(base engine.Config, voices int) *Ensemble {
	return &Ensemble{base: base, voices: voices}
}

func (en *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	if en.voices < 1 {
		return nil, fmt.Errorf("ensemble needs at least one voice, got %d", en.voices)
	}

	results := make([]*Result, en.voices)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < en.voices; i++ {
		g.Go(func() error {
			ec := en.base
			ec.Params.Pitch += float64(i) * en.Spread

			e, err := engine.New(ec)
			if err != nil {
				return fmt.Errorf("voice %d: %w", i, err)
			}
			if en.PreSettled != nil {
				if err := e.LoadPreSettled(en.PreSettled); err != nil {
					return fmt.Errorf("voice %d: %w", i, err)
				}
				if err := e.SetPreSettledState(); err != nil {
					return fmt.Errorf("voice %d: %w", i, err)
				}
			}

			r := New(e)
			if en.NewMetrics != nil {
				for _, m := range en.NewMetrics() {
					r.AddMetric(m)
				}
			}
			if en.NewObservers != nil {
				for _, o := range en.NewObservers() {
					r.AddObserver(o)
				}
			}
			res, err := r.Run(ctx, cfg)
			results[i] = res
			if err != nil {
				return fmt.Errorf("voice %d: %w", i, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Mix averages the voices frame by frame. Shorter results are treated as
// silent past their end.
func Mix(results []*Result) []engine.StereoFrame {
	n := 0
	for _, r := range results {
		if r != nil && len(r.Frames) > n {
			n = len(r.Frames)
		}
	}
	out := make([]engine.StereoFrame, n)
	if len(results) == 0 {
		return out
	}
	k := 1 / float64(len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		for i, f := range r.Frames {
			out[i] = out[i].Add(f.Scale(k))
		}
	}
	return out
}
