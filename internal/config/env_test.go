package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDotenv(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApplyEnv_FromFile(t *testing.T) {
	path := writeDotenv(t, "MESHSYNTH_DATA_DIR=/tmp/voices\nMESHSYNTH_SAMPLE_RATE=44100\n")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg, path); err != nil {
		t.Fatal(err)
	}
	if cfg.DataDir != "/tmp/voices" {
		t.Errorf("expected data dir from file, got %q", cfg.DataDir)
	}
	if cfg.Render.SampleRate != 44100 {
		t.Errorf("expected 44100, got %g", cfg.Render.SampleRate)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("log level should be untouched, got %q", cfg.LogLevel)
	}
}

func TestApplyEnv_ProcessWins(t *testing.T) {
	path := writeDotenv(t, "MESHSYNTH_LOG_LEVEL=warn\n")
	t.Setenv(EnvLogLevel, "debug")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg, path); err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected process env to win, got %q", cfg.LogLevel)
	}
}

func TestApplyEnv_MissingFile(t *testing.T) {
	cfg := DefaultConfig()
	if err := ApplyEnv(cfg, filepath.Join(t.TempDir(), "none.env")); err != nil {
		t.Errorf("missing dotenv should be ignored, got %v", err)
	}
}

func TestApplyEnv_BadSampleRate(t *testing.T) {
	t.Setenv(EnvSampleRate, "fast")
	if err := ApplyEnv(DefaultConfig(), ""); err == nil {
		t.Error("expected error for non-numeric sample rate")
	}
}
