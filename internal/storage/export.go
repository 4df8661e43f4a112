package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/meshsynth/internal/engine"
)

type ExportData struct {
	Preset     string             `json:"preset"`
	SampleRate float64            `json:"sample_rate"`
	Duration   float64            `json:"duration"`
	Frames     int                `json:"frames"`
	Times      []float64          `json:"times"`
	Left       []float64          `json:"left"`
	Right      []float64          `json:"right"`
	Metrics    map[string]float64 `json:"metrics"`
}

func newExportData(meta RunMetadata, frames []engine.StereoFrame) ExportData {
	data := ExportData{
		Preset:     meta.Preset,
		SampleRate: meta.SampleRate,
		Duration:   meta.Duration,
		Frames:     len(frames),
		Times:      make([]float64, len(frames)),
		Left:       make([]float64, len(frames)),
		Right:      make([]float64, len(frames)),
		Metrics:    meta.Metrics,
	}
	for i, f := range frames {
		data.Times[i] = float64(i) / meta.SampleRate
		data.Left[i] = f.Left
		data.Right[i] = f.Right
	}
	return data
}

// ExportJSON writes a run as a single JSON document. A path of "-" writes
// to stdout.
func ExportJSON(path string, meta RunMetadata, frames []engine.StereoFrame) error {
	if path == "-" {
		return WriteJSON(os.Stdout, meta, frames)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteJSON(file, meta, frames); err != nil {
		return err
	}
	return file.Close()
}

func WriteJSON(w io.Writer, meta RunMetadata, frames []engine.StereoFrame) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(meta, frames))
}
