package automation

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/san-kum/meshsynth/internal/dynamo"
	"github.com/san-kum/meshsynth/internal/engine"
	"gopkg.in/yaml.v3"
)

// Action is what an Event does to the voice.
type Action string

const (
	ActionPluck     Action = "pluck"
	ActionGateOn    Action = "gate_on"
	ActionGateOff   Action = "gate_off"
	ActionPitch     Action = "pitch"     // Value in V/oct
	ActionStiffness Action = "stiffness" // Value in N/m
)

// Event is one timed change to a voice.
type Event struct {
	At     float64 `yaml:"at"` // seconds
	Action Action  `yaml:"action"`
	Value  float64 `yaml:"value,omitempty"`
}

// Score is a scripted sequence of events played against a voice while it
// renders. It implements sim.Observer; an event fires after the first frame
// whose time reaches At, so it takes effect from the next frame.
type Score struct {
	Name   string  `yaml:"name"`
	Events []Event `yaml:"events"`

	next int
}

// LoadScore reads a score from a YAML file.
func LoadScore(path string) (*Score, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Score
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("score %s: %w", path, err)
	}
	s.sort()
	return &s, nil
}

func (s *Score) Validate() error {
	for i, ev := range s.Events {
		if !(ev.At >= 0) || math.IsInf(ev.At, 1) {
			return fmt.Errorf("%w: event %d at %g", dynamo.ErrParameterBounds, i, ev.At)
		}
		switch ev.Action {
		case ActionPluck, ActionGateOn, ActionGateOff:
		case ActionPitch:
			if math.IsNaN(ev.Value) || math.IsInf(ev.Value, 0) {
				return fmt.Errorf("%w: event %d pitch %g", dynamo.ErrParameterBounds, i, ev.Value)
			}
		case ActionStiffness:
			if !(ev.Value >= 0) || math.IsInf(ev.Value, 1) {
				return fmt.Errorf("%w: event %d stiffness %g", dynamo.ErrParameterBounds, i, ev.Value)
			}
		default:
			return fmt.Errorf("%w: event %d has unknown action %q", dynamo.ErrParameterBounds, i, ev.Action)
		}
	}
	return nil
}

func (s *Score) sort() {
	sort.SliceStable(s.Events, func(i, j int) bool { return s.Events[i].At < s.Events[j].At })
}

// Clone returns an unplayed copy; each voice needs its own.
func (s *Score) Clone() *Score {
	c := &Score{Name: s.Name, Events: make([]Event, len(s.Events))}
	copy(c.Events, s.Events)
	c.sort()
	return c
}

// Rewind restarts playback from the first event.
func (s *Score) Rewind() { s.next = 0 }

// Done reports whether every event has fired.
func (s *Score) Done() bool { return s.next >= len(s.Events) }

func (s *Score) OnFrame(e *engine.Engine, _ engine.StereoFrame, t float64) {
	for s.next < len(s.Events) && s.Events[s.next].At <= t {
		apply(e, s.Events[s.next])
		s.next++
	}
}

// apply never fails: events were validated when the score was loaded.
func apply(e *engine.Engine, ev Event) {
	switch ev.Action {
	case ActionPluck:
		e.SetGate(true)
		e.Pluck()
	case ActionGateOn:
		e.SetGate(true)
	case ActionGateOff:
		e.SetGate(false)
	case ActionPitch:
		e.SetPitch(ev.Value)
	case ActionStiffness:
		_ = e.SetStiffness(ev.Value)
	}
}
