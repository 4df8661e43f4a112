package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	EnvDataDir    = "MESHSYNTH_DATA_DIR"
	EnvLogLevel   = "MESHSYNTH_LOG_LEVEL"
	EnvSampleRate = "MESHSYNTH_SAMPLE_RATE"
)

// ApplyEnv overlays environment settings on cfg. Process environment wins
// over the dotenv file; a missing dotenv file is not an error.
func ApplyEnv(cfg *Config, dotenvPath string) error {
	file := map[string]string{}
	if dotenvPath != "" {
		m, err := godotenv.Read(dotenvPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", dotenvPath, err)
		}
		if m != nil {
			file = m
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}

	if v, ok := lookup(EnvDataDir); ok && v != "" {
		cfg.DataDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvSampleRate); ok && v != "" {
		sr, err := strconv.ParseFloat(v, 64)
		if err != nil || !(sr > 0) {
			return fmt.Errorf("%s: invalid sample rate %q", EnvSampleRate, v)
		}
		cfg.Render.SampleRate = sr
	}
	return nil
}
