package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/psmwave/internal/driver"
	"github.com/san-kum/psmwave/internal/metrics"
)

const (
	fieldWidth      = 64
	fieldHeight     = 24
	historyCapacity = 120
	maxStepsPerTick = 256
)

// Stepper is the part of the simulator the live view drives.
type Stepper interface {
	driver.Stepper
	TotalSteps() int
}

// Component selects which displacement is drawn.
type Component int

const (
	ComponentUX Component = iota
	ComponentUZ
	ComponentMagnitude
)

func (c Component) String() string {
	switch c {
	case ComponentUX:
		return "ux"
	case ComponentUZ:
		return "uz"
	case ComponentMagnitude:
		return "|u|"
	default:
		return "unknown"
	}
}

// Pick returns the field for c. The magnitude is a new matrix.
func (c Component) Pick(ux, uz *mat.Dense) *mat.Dense {
	switch c {
	case ComponentUZ:
		return uz
	case ComponentMagnitude:
		r, cols := ux.Dims()
		out := mat.NewDense(r, cols, nil)
		out.Apply(func(i, j int, v float64) float64 { return math.Hypot(v, uz.At(i, j)) }, ux)
		return out
	default:
		return ux
	}
}

// Snapshot stores the displacement at one time for time travel.
type Snapshot struct {
	Time   float64
	Step   int
	UX, UZ *mat.Dense
	Energy float64
}

type TickMsg time.Time

type LiveOptions struct {
	Title string
	// StepsPerTick is the number of forward steps per frame.
	StepsPerTick int
	FPS          int
	Width        int
	Height       int
	// Clip fixes the color scale; zero follows each frame's peak.
	Clip float64
	// OnRecord receives the frames captured between two presses of g.
	OnRecord func(frames []*mat.Dense) error
}

// LiveModel runs a simulator inside a Bubble Tea program and draws the
// wavefield as it propagates.
type LiveModel struct {
	sim          Stepper
	opts         LiveOptions
	heatmap      *Heatmap
	component    Component
	stepsPerTick int
	running      bool
	done         bool
	err          error
	current      Snapshot
	energy       []float64
	history      []Snapshot
	playHead     int
	recording    bool
	frames       []*mat.Dense
	message      string
	showHelp     bool
	showGraph    bool
}

func NewLiveModel(sim Stepper, opts LiveOptions) LiveModel {
	if opts.StepsPerTick < 1 {
		opts.StepsPerTick = 1
	}
	if opts.FPS < 1 {
		opts.FPS = 30
	}
	if opts.Width < 1 {
		opts.Width = fieldWidth
	}
	if opts.Height < 1 {
		opts.Height = fieldHeight
	}
	hm := NewHeatmap(opts.Width, opts.Height)
	hm.Clip = opts.Clip

	m := LiveModel{
		sim:          sim,
		opts:         opts,
		heatmap:      hm,
		stepsPerTick: opts.StepsPerTick,
		running:      true,
		energy:       make([]float64, 0, historyCapacity),
		history:      make([]Snapshot, 0, historyCapacity),
		playHead:     -1,
		showGraph:    true,
	}
	m.capture()
	return m
}

func (m LiveModel) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.opts.FPS), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m LiveModel) Init() tea.Cmd {
	return m.tick()
}

// Update handles input events and steps the simulation.
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "c":
			m.component = (m.component + 1) % 3
		case "+", "=":
			m.stepsPerTick = min(maxStepsPerTick, m.stepsPerTick*2)
		case "-", "_":
			m.stepsPerTick = max(1, m.stepsPerTick/2)
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "t":
			NextTheme()
			m.heatmap.SetTheme(CurrentTheme)
		case "e":
			m.showGraph = !m.showGraph
		case "g":
			m.toggleRecording()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		if m.recording {
			snap := m.shown()
			m.frames = append(m.frames, m.component.Pick(snap.UX, snap.UZ))
		}
		return m, m.tick()
	}
	return m, nil
}

// step advances the simulator by stepsPerTick forward steps and records
// the resulting snapshot.
func (m *LiveModel) step() {
	if m.done || m.err != nil {
		return
	}
	for i := 0; i < m.stepsPerTick; i++ {
		ok, err := m.sim.Forward()
		if err != nil {
			m.err = err
			m.running = false
			break
		}
		if !ok {
			m.done = true
			m.running = false
			break
		}
	}
	m.capture()
}

func (m *LiveModel) capture() {
	ux, uz := m.sim.Snapshot()
	snap := Snapshot{
		Time:   m.sim.Time(),
		Step:   m.sim.Step(),
		UX:     ux,
		UZ:     uz,
		Energy: metrics.FieldEnergy(ux, uz),
	}
	m.current = snap

	m.energy = append(m.energy, snap.Energy)
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[1:]
	}
	m.history = append(m.history, snap)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

// scrub moves the playback position through the history, pausing the
// live run on first use. Moving past the newest snapshot returns to live.
func (m *LiveModel) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

func (m *LiveModel) toggleRecording() {
	if !m.recording {
		m.recording = true
		m.frames = m.frames[:0]
		m.message = "recording"
		return
	}
	m.recording = false
	switch {
	case m.opts.OnRecord == nil:
		m.message = "recording discarded"
	case len(m.frames) == 0:
		m.message = "nothing recorded"
	default:
		if err := m.opts.OnRecord(m.frames); err != nil {
			m.message = "save failed: " + err.Error()
		} else {
			m.message = fmt.Sprintf("saved %d frames", len(m.frames))
		}
	}
	m.frames = nil
}

// shown is the snapshot on screen: the playback position or the newest.
func (m LiveModel) shown() Snapshot {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	return m.current
}

func (m LiveModel) status() string {
	switch {
	case m.err != nil:
		return StatusError.Render("ERROR")
	case m.playHead != -1:
		lag := m.history[m.playHead].Time - m.current.Time
		if m.running {
			return StatusPaused.Render(fmt.Sprintf("REPLAYING (%.3gs)", lag))
		}
		return StatusPaused.Render(fmt.Sprintf("REPLAY PAUSED (%.3gs)", lag))
	case m.done:
		return StatusRunning.Render("DONE")
	case m.running:
		return StatusRunning.Render("RUNNING")
	default:
		return StatusPaused.Render("PAUSED")
	}
}

func (m LiveModel) View() string {
	snap := m.shown()
	field := m.component.Pick(snap.UX, snap.UZ)

	var s strings.Builder
	s.WriteString(HeaderStyle.Render(strings.ToUpper(m.opts.Title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	total := m.sim.TotalSteps()
	progress := 0.0
	if total > 0 {
		progress = float64(snap.Step) / float64(total)
	}
	s.WriteString(ProgressBar(progress, 30) + "\n\n")

	s.WriteString(stat("Time", fmt.Sprintf("%.4gs", snap.Time)))
	s.WriteString(stat("Step", fmt.Sprintf("%d/%d", snap.Step, total)))
	s.WriteString(stat("Component", m.component.String()))
	s.WriteString(stat("Speed", fmt.Sprintf("%d steps/frame", m.stepsPerTick)))
	s.WriteString(stat("Peak", fmt.Sprintf("%.4g", metrics.MaxAbs(field))))
	s.WriteString(stat("Energy", fmt.Sprintf("%.4g", snap.Energy)))
	s.WriteString(stat("Theme", m.heatmap.Theme.Name))
	if m.recording {
		s.WriteString(stat("Recording", fmt.Sprintf("%d frames", len(m.frames))))
	}

	if len(m.energy) > 1 {
		s.WriteString("\n")
		if m.showGraph {
			s.WriteString(asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy")))
		} else {
			s.WriteString(SparklineChart(m.energy, 30))
		}
		s.WriteString("\n")
	}
	if m.err != nil {
		s.WriteString("\n" + StatusError.Render(m.err.Error()) + "\n")
	}
	if m.message != "" {
		s.WriteString("\n" + Subtle.Render(m.message) + "\n")
	}
	s.WriteString("\n" + Separator(30) + "\n")
	s.WriteString(KeyHint.Render("SP:Pause C:Component T:Theme\n+/-:Speed [ ]:Time-Travel\nG:Record E:Graph ?:Help Q:Quit"))

	fieldView := FieldPanel.Render(m.heatmap.Render(field) + "\n" + Legend(m.heatmap.Theme, m.heatmap.Scale(field), m.opts.Width/2))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, fieldView, StatsPanel.Render(s.String()))
	if m.showHelp {
		return liveHelp + "\n\n" + mainView
	}
	return mainView
}

func stat(label, value string) string {
	return MetricLabel.Render(label) + MetricValue.Render(value) + "\n"
}

const liveHelp = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  C        - Cycle ux, uz, |u|        ║
║  + / -    - Double/halve speed       ║
║  [        - Rewind (time travel)     ║
║  ]        - Forward (time travel)    ║
║  T        - Cycle themes             ║
║  E        - Energy graph/sparkline   ║
║  G        - Toggle GIF recording     ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// RunLive opens the live view on the alternate screen and blocks until
// the user quits.
func RunLive(sim Stepper, opts LiveOptions) error {
	_, err := tea.NewProgram(NewLiveModel(sim, opts), tea.WithAltScreen()).Run()
	return err
}
