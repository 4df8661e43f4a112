package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/san-kum/meshsynth/internal/config"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	dotenvFile string
	sampleRate float64
	duration   float64
	voices     int
	spread     float64
	pitch      float64
	interval   float64
	release    float64
	settled    string
	halfLife   float64
	outPath    string
	logLevel   string
	scoreFile  string
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int

	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "meshsynth"})
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "meshsynth",
		Short:         "mass-spring physical modelling synthesizer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&dotenvFile, "env", ".env", "dotenv file with MESHSYNTH_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	voiceFlags := func(cmd *cobra.Command) {
		cmd.Flags().Float64Var(&sampleRate, "sample-rate", config.DefaultSampleRate, "sample rate in Hz")
		cmd.Flags().Float64Var(&pitch, "pitch", 0, "pitch in V/oct")
		cmd.Flags().StringVar(&settled, "settled", "", "start from a saved settled state")
	}

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "render plucks offline and store the run",
		Args:  cobra.NoArgs,
		RunE:  renderRun,
	}
	voiceFlags(renderCmd)
	renderCmd.Flags().Float64Var(&duration, "time", config.DefaultRenderDuration, "duration in seconds")
	renderCmd.Flags().IntVar(&voices, "voices", 1, "number of voices")
	renderCmd.Flags().Float64Var(&spread, "spread", 0, "detune between voices in V/oct")
	renderCmd.Flags().Float64Var(&interval, "interval", 0, "seconds between plucks (0 = once)")
	renderCmd.Flags().Float64Var(&release, "release", 0, "seconds until the gate is released (0 = hold)")
	renderCmd.Flags().StringVar(&scoreFile, "score", "", "yaml score of timed events to play")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "render across a parameter range and report stability",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64Var(&sampleRate, "sample-rate", config.DefaultSampleRate, "sample rate in Hz")
	sweepCmd.Flags().Float64Var(&duration, "time", 0.5, "duration of each render in seconds")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "pitch", "parameter to sweep (stiffness, pitch, tuning, half_life, impulse, mass)")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 3, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 13, "number of values")

	settleCmd := &cobra.Command{
		Use:   "settle [name]",
		Short: "relax the mesh and save the settled state",
		Args:  cobra.ExactArgs(1),
		RunE:  settleMesh,
	}
	settleCmd.Flags().Float64Var(&sampleRate, "sample-rate", config.DefaultSampleRate, "sample rate in Hz")
	settleCmd.Flags().Float64Var(&halfLife, "half-life", config.DefaultSettleHalfLife, "braking half-life in seconds")
	settleCmd.Flags().Float64Var(&duration, "time", config.DefaultSettleDuration, "settle duration in seconds")

	playCmd := &cobra.Command{
		Use:   "play",
		Short: "play the voice on the default audio device",
		Args:  cobra.NoArgs,
		RunE:  playVoice,
	}
	voiceFlags(playCmd)
	playCmd.Flags().Float64Var(&duration, "time", 10, "seconds to play")
	playCmd.Flags().Float64Var(&interval, "interval", 1, "seconds between plucks")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch the mesh move in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	voiceFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs and settled states",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run's waveform",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis and retuning hint",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				c := config.GetPreset(p)
				fmt.Printf("  %-8s %dx%d\n", p, c.Mesh.Rows, c.Mesh.MobileColumns)
			}
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file, - for stdout")

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the effective configuration as yaml",
		Args:  cobra.ExactArgs(1),
		RunE:  writeConfig,
	}

	rootCmd.AddCommand(renderCmd, sweepCmd, settleCmd, playCmd, liveCmd, listCmd, plotCmd, analyzeCmd, presetsCmd, exportJSONCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: preset or defaults,
// then the config file, then the environment, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(cfg, configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg, dotenvFile); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("sample-rate") {
		cfg.Render.SampleRate = sampleRate
	}
	if flags.Changed("pitch") {
		cfg.Runtime.Pitch = pitch
	}
	if cmd.Name() == "render" {
		if flags.Changed("time") {
			cfg.Render.Duration = duration
		}
		if flags.Changed("voices") {
			cfg.Render.Voices = voices
		}
		if flags.Changed("spread") {
			cfg.Render.Spread = spread
		}
		if flags.Changed("interval") {
			cfg.Render.PluckInterval = interval
		}
		if flags.Changed("release") {
			cfg.Render.ReleaseAfter = release
		}
	}

	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("ignoring log level", "level", cfg.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
