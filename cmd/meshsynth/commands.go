package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/meshsynth/internal/analysis"
	"github.com/san-kum/meshsynth/internal/automation"
	"github.com/san-kum/meshsynth/internal/audio"
	"github.com/san-kum/meshsynth/internal/config"
	"github.com/san-kum/meshsynth/internal/engine"
	"github.com/san-kum/meshsynth/internal/mesh"
	"github.com/san-kum/meshsynth/internal/metrics"
	"github.com/san-kum/meshsynth/internal/sim"
	"github.com/san-kum/meshsynth/internal/storage"
	"github.com/san-kum/meshsynth/internal/viz"
	"github.com/spf13/cobra"
)

func openStore(cfg *config.Config) (*storage.Store, error) {
	store := storage.New(cfg.DataDir)
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	return store, nil
}

// startState returns the state a voice begins from: a named snapshot from
// the store, a fresh settle run if the config asks for one, or nil for the
// rest layout.
func startState(cfg *config.Config, store *storage.Store) (mesh.State, string, error) {
	if settled != "" {
		snap, err := store.LoadSettled(settled)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load settled state: %w", err)
		}
		return snap.State, snap.Name, nil
	}
	if !cfg.Settle.Enabled {
		return nil, "", nil
	}

	start := time.Now()
	s, err := engine.Precompute(cfg.EngineConfig(), cfg.Render.SampleRate, cfg.Settle.HalfLife, cfg.Settle.Duration)
	if err != nil {
		return nil, "", fmt.Errorf("settle failed: %w", err)
	}
	logger.Debug("settled", "half_life", cfg.Settle.HalfLife, "duration", cfg.Settle.Duration, "took", time.Since(start))
	return s, "", nil
}

func newVoice(cfg *config.Config, store *storage.Store) (*engine.Engine, error) {
	e, err := engine.New(cfg.EngineConfig())
	if err != nil {
		return nil, err
	}
	s, name, err := startState(cfg, store)
	if err != nil {
		return nil, err
	}
	if s != nil {
		if err := e.LoadPreSettled(s); err != nil {
			return nil, err
		}
		if err := e.SetPreSettledState(); err != nil {
			return nil, err
		}
		logger.Info("starting from pre-settled state", "name", name)
	}
	return e, nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	pre, preName, err := startState(cfg, store)
	if err != nil {
		return err
	}

	r := cfg.Render
	simCfg := sim.Config{
		SampleRate:    r.SampleRate,
		Duration:      r.Duration,
		PluckInterval: r.PluckInterval,
		ReleaseAfter:  r.ReleaseAfter,
		MaxSpeed:      r.MaxSpeed,
	}

	ens := sim.NewEnsemble(cfg.EngineConfig(), r.Voices)
	ens.Spread = r.Spread
	ens.PreSettled = pre
	ens.NewMetrics = func() []sim.Metric { return metrics.Standard(r.MaxSpeed) }
	if scoreFile != "" {
		score, err := automation.LoadScore(scoreFile)
		if err != nil {
			return err
		}
		logger.Info("playing score", "name", score.Name, "events", len(score.Events))
		ens.NewObservers = func() []sim.Observer { return []sim.Observer{score.Clone()} }
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("rendering", "preset", cfg.Preset, "voices", r.Voices, "frames", simCfg.Frames(), "sample_rate", r.SampleRate)
	start := time.Now()
	results, err := ens.Run(ctx, simCfg)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	elapsed := time.Since(start)

	frames := sim.Mix(results)
	meta := storage.RunMetadata{
		Preset:     cfg.Preset,
		SampleRate: r.SampleRate,
		Duration:   r.Duration,
		Voices:     r.Voices,
		Plucks:     results[0].Plucks,
		PreSettled: preName,
		Metrics:    averageMetrics(results),
	}
	runID, err := store.Save(meta, frames)
	if err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	fmt.Printf("completed in %v (%.1fx realtime)\n", elapsed, r.Duration/elapsed.Seconds())
	fmt.Printf("run id: %s\n", runID)
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(meta.Metrics) {
		fmt.Printf("  %s: %.6g\n", name, meta.Metrics[name])
	}
	return nil
}

// averageMetrics reports the mean of each metric across voices.
func averageMetrics(results []*sim.Result) map[string]float64 {
	out := make(map[string]float64)
	if len(results) == 0 {
		return out
	}
	for _, res := range results {
		for k, v := range res.Metrics {
			out[k] += v
		}
	}
	for k := range out {
		out[k] /= float64(len(results))
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sw := automation.ParameterSweep{Param: sweepParam, Min: sweepMin, Max: sweepMax, Steps: sweepSteps}
	simCfg := sim.Config{
		SampleRate: cfg.Render.SampleRate,
		Duration:   duration,
		MaxSpeed:   cfg.Render.MaxSpeed,
	}
	logger.Info("sweeping", "param", sw.Param, "min", sw.Min, "max", sw.Max, "steps", sw.Steps)
	results, err := automation.RunSweep(ctx, cfg.EngineConfig(), sw, simCfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTABLE\tPEAK SPEED\tPEAK\tRMS\n", strings.ToUpper(sw.Param))
	for _, r := range results {
		stable := "yes"
		if !r.Stable {
			stable = fmt.Sprintf("no (%.3fs)", r.DivergedAt)
		}
		fmt.Fprintf(w, "%.4g\t%s\t%.4g\t%.4g\t%.4g\n", r.Value, stable, r.PeakSpeed, r.PeakLevel, r.RMSLevel)
	}
	w.Flush()

	if limit, found := automation.StabilityLimit(results); found {
		fmt.Printf("\nstable up to %s = %.4g\n", sw.Param, limit)
	}
	return nil
}

func settleMesh(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	s, err := engine.Precompute(cfg.EngineConfig(), cfg.Render.SampleRate, halfLife, duration)
	if err != nil {
		return fmt.Errorf("settle failed: %w", err)
	}

	path, err := store.SaveSettled(storage.Settled{
		Name:       args[0],
		Preset:     cfg.Preset,
		SampleRate: cfg.Render.SampleRate,
		HalfLife:   halfLife,
		Duration:   duration,
		State:      s,
	})
	if err != nil {
		return fmt.Errorf("failed to save settled state: %w", err)
	}
	logger.Info("settled", "took", time.Since(start), "max_speed", s.MaxSpeed())
	fmt.Printf("saved: %s\n", path)
	return nil
}

func playVoice(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	e, err := newVoice(cfg, store)
	if err != nil {
		return err
	}

	player := audio.NewPlayer(e, cfg.Render.SampleRate, logger)
	if err := player.Start(); err != nil {
		return err
	}
	defer func() {
		if err := player.Stop(); err != nil {
			logger.Warn("audio stop", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(duration*float64(time.Second)))
		defer cancel()
	}

	player.Pluck()
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(time.Duration(interval * float64(time.Second)))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopped", "peak", player.Peak())
			return nil
		case <-ticker.C:
			player.Pluck()
			logger.Debug("pluck", "peak", player.Peak())
		}
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	e, err := newVoice(cfg, store)
	if err != nil {
		return err
	}
	return viz.Run(e, cfg.Render.SampleRate)
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store := storage.New(cfg.DataDir)

	runs, err := store.List()
	if err != nil {
		return err
	}
	settledNames, err := store.ListSettled()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPRESET\tVOICES\tDURATION\tPEAK\tTIMESTAMP")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2fs\t%.4g\t%s\n",
				run.ID, run.Preset, run.Voices, run.Duration,
				run.Metrics["peak_level"], run.Timestamp.Format("2006-01-02 15:04:05"))
		}
		w.Flush()
	}

	if len(settledNames) > 0 {
		fmt.Println("\nsettled states:")
		for _, name := range settledNames {
			fmt.Printf("  %s\n", name)
		}
	}
	return nil
}

func loadRun(cmd *cobra.Command, runID string) (*storage.RunMetadata, []engine.StereoFrame, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store := storage.New(cfg.DataDir)
	meta, err := store.Load(runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load run: %w", err)
	}
	frames, err := store.LoadFrames(runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load frames: %w", err)
	}
	return meta, frames, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, frames, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return errors.New("run has no frames")
	}

	left, right := channels(frames)
	fmt.Println(asciigraph.PlotMany([][]float64{left, right},
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Magenta),
		asciigraph.Caption(fmt.Sprintf("%s: %d frames at %.0f Hz (left cyan, right magenta)", meta.ID, len(frames), meta.SampleRate)),
	))
	return nil
}

func channels(frames []engine.StereoFrame) (left, right []float64) {
	left = make([]float64, len(frames))
	right = make([]float64, len(frames))
	for i, f := range frames {
		left[i], right[i] = f.Left, f.Right
	}
	return left, right
}

// nearestNote rounds hz to the closest equal-tempered MIDI note.
func nearestNote(hz float64) float64 {
	return math.Round(69 + 12*math.Log2(hz/440))
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, frames, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	left, _ := channels(frames)

	f0, err := analysis.DominantFrequency(left, meta.SampleRate)
	if err != nil {
		return err
	}
	note := nearestNote(f0)
	target := analysis.NoteHz(note)

	tuning := engine.DefaultTuning
	if p := config.GetPreset(meta.Preset); p != nil {
		tuning = p.Runtime.Tuning
	}

	fmt.Printf("dominant:  %.2f Hz\n", f0)
	fmt.Printf("rms:       %.4g\n", analysis.RMS(left))
	fmt.Printf("nearest:   MIDI %.0f (%.2f Hz), %+.1f cents\n", note, target, analysis.Cents(f0, target))
	fmt.Printf("retune:    tuning %.4f -> %.4f\n", tuning, analysis.Retune(tuning, f0, target))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, frames, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(outPath, *meta, frames); err != nil {
		return err
	}
	if outPath != "-" {
		fmt.Printf("exported to %s\n", outPath)
	}
	return nil
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}
