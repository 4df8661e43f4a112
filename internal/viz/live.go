package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/meshsynth/internal/engine"
)

const (
	width           = 72
	height          = 14
	historyCapacity = 240
	tickRate        = 60
)

type TickMsg time.Time

// Model is the live view. It owns the engine and advances it by one
// tick's worth of audio frames per TickMsg; nothing is played.
type Model struct {
	eng        *engine.Engine
	sampleRate float64
	perTick    int

	canvas   *Canvas
	view     Viewport
	zoom     float64
	theme    Theme
	styles   styles
	running  bool
	showHelp bool

	frames        int
	speedHistory  []float64
	energyHistory []float64
	status        string
}

func NewModel(e *engine.Engine, sampleRate float64) Model {
	m := Model{
		eng:           e,
		sampleRate:    sampleRate,
		perTick:       max(1, int(sampleRate/tickRate)),
		canvas:        NewCanvas(width, height),
		zoom:          50,
		theme:         Themes[0],
		styles:        newStyles(Themes[0]),
		running:       true,
		speedHistory:  make([]float64, 0, historyCapacity),
		energyHistory: make([]float64, 0, historyCapacity),
	}

	n := e.Topology().Particles()
	xs, ys := make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		r := e.Rest(i)
		xs[i], ys[i] = r[0], r[1]
	}
	m.view = Fit(xs, ys, 0.05)
	m.draw()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/tickRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.handleKey(msg.String())
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		m.draw()
		return m, tick()
	}
	return m, nil
}

func (m *Model) handleKey(key string) {
	e := m.eng
	switch key {
	case " ", "space":
		m.running = !m.running
	case "p":
		e.SetGate(true)
		e.Pluck()
		m.status = "plucked"
	case "g":
		e.SetGate(!e.Gate())
	case "r":
		e.Initialize()
		m.frames = 0
		m.speedHistory = m.speedHistory[:0]
		m.energyHistory = m.energyHistory[:0]
		m.status = "reset"
	case "c":
		e.CapturePreSettled()
		m.status = "captured settled state"
	case "s":
		if err := e.SetPreSettledState(); err != nil {
			m.status = err.Error()
		} else {
			m.status = "restored settled state"
		}
	case "up", "k":
		m.scaleStiffness(1.05)
	case "down", "j":
		m.scaleStiffness(1 / 1.05)
	case "]":
		e.SetPitch(e.Params().Pitch + 1.0/12)
	case "[":
		e.SetPitch(e.Params().Pitch - 1.0/12)
	case "+", "=":
		m.zoom *= 1.25
	case "-", "_":
		m.zoom /= 1.25
	case "t":
		m.theme = NextTheme(m.theme)
		m.styles = newStyles(m.theme)
	case "?":
		m.showHelp = !m.showHelp
	}
}

func (m *Model) scaleStiffness(factor float64) {
	if err := m.eng.SetStiffness(m.eng.Physics().Stiffness * factor); err != nil {
		m.status = err.Error()
	}
}

// step renders one tick of audio frames and records diagnostics.
func (m *Model) step() {
	for i := 0; i < m.perTick; i++ {
		m.eng.Update(m.sampleRate)
	}
	m.frames += m.perTick

	m.speedHistory = appendCapped(m.speedHistory, m.eng.MaxSpeed())
	m.energyHistory = appendCapped(m.energyHistory, m.eng.Energy())
}

func appendCapped(h []float64, v float64) []float64 {
	if len(h) == historyCapacity {
		copy(h, h[1:])
		h = h[:len(h)-1]
	}
	return append(h, v)
}

// draw plots every spring with particle displacements exaggerated by zoom.
func (m *Model) draw() {
	m.canvas.Clear()
	e := m.eng
	t := e.Topology()
	point := func(i int) (int, int) {
		r := e.Rest(i)
		p := e.Particle(i).Pos
		x := r[0] + m.zoom*(p[0]-r[0])
		y := r[1] + m.zoom*(p[1]-r[1])
		return m.view.Project(m.canvas, x, y)
	}
	for i := 0; i < t.SpringCount(); i++ {
		s := t.Spring(i)
		x0, y0 := point(s.A)
		x1, y1 := point(s.B)
		m.canvas.DrawLine(x0, y0, x1, y1)
	}
}

func (m Model) Time() float64 {
	return float64(m.frames) / m.sampleRate
}

func (m Model) View() string {
	st := m.styles
	e := m.eng

	var s strings.Builder
	s.WriteString(st.header.Render("MESHSYNTH") + "\n")
	if m.running {
		s.WriteString(st.on.Render("RUNNING") + "\n\n")
	} else {
		s.WriteString(st.off.Render("PAUSED") + "\n\n")
	}

	if len(m.speedHistory) > 1 {
		chart := asciigraph.Plot(m.speedHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Max speed"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.Time()))
	row("Max speed", fmt.Sprintf("%.4g", e.MaxSpeed()))
	row("Energy", fmt.Sprintf("%.6g", e.Energy()))
	row("Stiffness", fmt.Sprintf("%.2f", e.Physics().Stiffness))
	row("Pitch", fmt.Sprintf("%+.2f V/oct", e.Params().Pitch))
	row("Zoom", fmt.Sprintf("x%.0f", m.zoom))
	if e.Gate() {
		row("Gate", st.on.Render("held"))
	} else {
		row("Gate", st.off.Render("released"))
	}
	if peak := e.Output().Peak(); !math.IsNaN(peak) {
		row("Level", ProgressBar(peak, 20))
	}
	if m.status != "" {
		s.WriteString("\n" + st.value.Render(m.status) + "\n")
	}
	s.WriteString(st.help.Render("SP:Pause P:Pluck G:Gate R:Reset Q:Quit ?:Help"))

	main := lipgloss.JoinHorizontal(lipgloss.Top, st.canvas.Render(m.canvas.String()), st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + main
	}
	return main
}

const helpText = `
  Space   pause / resume
  P       pluck
  G       hold / release the gate
  R       reset to rest
  C       capture the current state as the settled state
  S       restore the settled state
  Up/K    stiffer springs (+5%)
  Down/J  softer springs (-5%)
  [ ]     pitch down / up a semitone
  + -     exaggerate displacement
  T       cycle themes
  Q       quit
`

// Run starts the live view on the terminal's alternate screen.
func Run(e *engine.Engine, sampleRate float64) error {
	_, err := tea.NewProgram(NewModel(e, sampleRate), tea.WithAltScreen()).Run()
	return err
}
