package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/san-kum/meshsynth/internal/mesh"
)

const settledDir = "settled"

// Settled is a relaxed mesh state saved so a voice can skip settling at
// startup.
type Settled struct {
	Name       string     `json:"name"`
	Preset     string     `json:"preset"`
	Created    time.Time  `json:"created"`
	SampleRate float64    `json:"sample_rate"`
	HalfLife   float64    `json:"half_life"`
	Duration   float64    `json:"duration"`
	State      mesh.State `json:"state"`
}

func (s *Store) settledPath(name string) string {
	return filepath.Join(s.baseDir, settledDir, name+".json")
}

// SaveSettled writes snap under its name, replacing any earlier snapshot.
func (s *Store) SaveSettled(snap Settled) (string, error) {
	if err := checkName(snap.Name); err != nil {
		return "", err
	}
	if len(snap.State) == 0 {
		return "", fmt.Errorf("settled %s: empty state", snap.Name)
	}
	if snap.Created.IsZero() {
		snap.Created = time.Now()
	}
	if err := os.MkdirAll(filepath.Join(s.baseDir, settledDir), 0755); err != nil {
		return "", err
	}
	path := s.settledPath(snap.Name)
	if err := writeJSON(path, snap); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) LoadSettled(name string) (*Settled, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.settledPath(name))
	if err != nil {
		return nil, err
	}
	var snap Settled
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("settled %s: %w", name, err)
	}
	return &snap, nil
}

func (s *Store) ListSettled() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, settledDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if n, ok := strings.CutSuffix(e.Name(), ".json"); ok && !e.IsDir() {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}
