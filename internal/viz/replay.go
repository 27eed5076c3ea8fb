package viz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/psmwave/internal/metrics"
	"github.com/san-kum/psmwave/internal/record"
)

var ErrRecordMismatch = errors.New("viz: ux and uz records differ")

// ReplayModel plays back a saved pair of displacement records.
type ReplayModel struct {
	title     string
	ux, uz    *record.Record
	heatmap   *Heatmap
	component Component
	frame     int
	playing   bool
	loop      bool
	fps       int
	energy    []float64
	showHelp  bool
}

func NewReplayModel(title string, ux, uz *record.Record) (ReplayModel, error) {
	if ux.NT() != uz.NT() || ux.NX != uz.NX || ux.NZ != uz.NZ {
		return ReplayModel{}, fmt.Errorf("%w: %d frames of %dx%d vs %d frames of %dx%d",
			ErrRecordMismatch, ux.NT(), ux.NZ, ux.NX, uz.NT(), uz.NZ, uz.NX)
	}
	if ux.NT() == 0 {
		return ReplayModel{}, fmt.Errorf("%w: no frames", ErrRecordMismatch)
	}

	energy := make([]float64, ux.NT())
	for i := range energy {
		energy[i] = metrics.FieldEnergy(ux.Frames[i], uz.Frames[i])
	}

	return ReplayModel{
		title:   title,
		ux:      ux,
		uz:      uz,
		heatmap: NewHeatmap(fieldWidth, fieldHeight),
		playing: true,
		loop:    true,
		fps:     5,
		energy:  energy,
	}, nil
}

// Frame is the index of the frame on screen.
func (m ReplayModel) Frame() int { return m.frame }

func (m ReplayModel) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m ReplayModel) Init() tea.Cmd {
	return m.tick()
}

func (m ReplayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.playing = !m.playing
		case "l":
			m.loop = !m.loop
		case "c":
			m.component = (m.component + 1) % 3
		case "left", "[":
			m.playing = false
			m.frame = max(0, m.frame-1)
		case "right", "]":
			m.playing = false
			m.frame = min(m.ux.NT()-1, m.frame+1)
		case "home":
			m.frame = 0
		case "end":
			m.frame = m.ux.NT() - 1
		case "+", "=":
			m.fps = min(60, m.fps*2)
		case "-", "_":
			m.fps = max(1, m.fps/2)
		case "t":
			NextTheme()
			m.heatmap.SetTheme(CurrentTheme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.playing {
			m.frame++
			if m.frame >= m.ux.NT() {
				if m.loop {
					m.frame = 0
				} else {
					m.frame = m.ux.NT() - 1
					m.playing = false
				}
			}
		}
		return m, m.tick()
	}
	return m, nil
}

func (m ReplayModel) View() string {
	field := m.component.Pick(m.ux.Frames[m.frame], m.uz.Frames[m.frame])

	var s strings.Builder
	s.WriteString(HeaderStyle.Render(strings.ToUpper(m.title)) + "\n")
	if m.playing {
		s.WriteString(StatusRunning.Render("PLAYING") + "\n\n")
	} else {
		s.WriteString(StatusPaused.Render("PAUSED") + "\n\n")
	}
	s.WriteString(ProgressBar(float64(m.frame+1)/float64(m.ux.NT()), 30) + "\n\n")

	s.WriteString(stat("Frame", fmt.Sprintf("%d/%d", m.frame+1, m.ux.NT())))
	s.WriteString(stat("Time", fmt.Sprintf("%.4gs", m.ux.Times[m.frame])))
	s.WriteString(stat("Grid", fmt.Sprintf("%dx%d", m.ux.NX, m.ux.NZ)))
	s.WriteString(stat("Component", m.component.String()))
	s.WriteString(stat("Peak", fmt.Sprintf("%.4g", metrics.MaxAbs(field))))
	s.WriteString(stat("Energy", fmt.Sprintf("%.4g", m.energy[m.frame])))
	s.WriteString(stat("Speed", fmt.Sprintf("%d fps", m.fps)))
	s.WriteString(stat("Loop", fmt.Sprintf("%v", m.loop)))

	if len(m.energy) > 1 {
		s.WriteString("\n" + asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy")) + "\n")
	}
	s.WriteString("\n" + Separator(30) + "\n")
	s.WriteString(KeyHint.Render("SP:Play ←/→:Step L:Loop\nC:Component T:Theme +/-:Speed\n?:Help Q:Quit"))

	fieldView := FieldPanel.Render(m.heatmap.Render(field) + "\n" + Legend(m.heatmap.Theme, m.heatmap.Scale(field), fieldWidth/2))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, fieldView, StatsPanel.Render(s.String()))
	if m.showHelp {
		return replayHelp + "\n\n" + mainView
	}
	return mainView
}

const replayHelp = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Play/Pause               ║
║  ← / →    - Step one frame           ║
║  Home/End - First/last frame         ║
║  L        - Toggle looping           ║
║  C        - Cycle ux, uz, |u|        ║
║  + / -    - Double/halve speed       ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// RunReplay plays back a record pair until the user quits.
func RunReplay(title string, ux, uz *record.Record) error {
	m, err := NewReplayModel(title, ux, uz)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
