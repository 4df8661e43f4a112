package audio

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/san-kum/meshsynth/internal/engine"
)

const BufferSize = 512

const (
	gateNone int32 = iota
	gateOff
	gateOn
)

// Player streams one engine to the default output device. After Start the
// PortAudio callback is the only goroutine that touches the engine; other
// goroutines talk to it through Pluck and SetGate.
type Player struct {
	eng        *engine.Engine
	sampleRate float64
	logger     *log.Logger

	stream *portaudio.Stream

	pluck atomic.Bool
	gate  atomic.Int32
	peak  atomic.Uint64
}

func NewPlayer(e *engine.Engine, sampleRate float64, logger *log.Logger) *Player {
	return &Player{eng: e, sampleRate: sampleRate, logger: logger}
}

func (p *Player) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, p.sampleRate, BufferSize, p.Process)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("start stream: %w", err)
	}

	p.stream = stream
	p.logger.Info("audio started", "sample_rate", p.sampleRate, "buffer", BufferSize)
	return nil
}

func (p *Player) Stop() error {
	if p.stream == nil {
		return nil
	}
	err := p.stream.Stop()
	if cerr := p.stream.Close(); err == nil {
		err = cerr
	}
	p.stream = nil
	portaudio.Terminate()
	p.logger.Info("audio stopped")
	return err
}

// Pluck asks the callback to pluck at the start of its next buffer.
func (p *Player) Pluck() { p.pluck.Store(true) }

func (p *Player) SetGate(on bool) {
	if on {
		p.gate.Store(gateOn)
	} else {
		p.gate.Store(gateOff)
	}
}

// Peak returns the largest absolute sample written so far.
func (p *Player) Peak() float64 {
	return math.Float64frombits(p.peak.Load())
}

// Process fills one non-interleaved stereo buffer. It is the PortAudio
// callback and must not block or allocate.
func (p *Player) Process(out [][]float32) {
	switch p.gate.Swap(gateNone) {
	case gateOn:
		p.eng.SetGate(true)
	case gateOff:
		p.eng.SetGate(false)
	}
	if p.pluck.Swap(false) {
		p.eng.SetGate(true)
		p.eng.Pluck()
	}

	peak := p.Peak()
	for i := range out[0] {
		f := p.eng.Update(p.sampleRate)
		out[0][i] = clip(f.Left)
		out[1][i] = clip(f.Right)
		peak = math.Max(peak, f.Peak())
	}
	p.peak.Store(math.Float64bits(peak))
}

func clip(x float64) float32 {
	switch {
	case x > 1:
		return 1
	case x < -1:
		return -1
	case math.IsNaN(x):
		return 0
	}
	return float32(x)
}
