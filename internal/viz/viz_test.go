package viz

import (
	"errors"
	"image/color"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/psmwave/internal/grid"
	"github.com/san-kum/psmwave/internal/record"
)

type fakeStepper struct {
	n, total int
	failAt   int
}

var errBlowUp = errors.New("blow up")

func (f *fakeStepper) Forward() (bool, error) {
	if f.failAt > 0 && f.n == f.failAt {
		return false, errBlowUp
	}
	if f.n >= f.total {
		return false, nil
	}
	f.n++
	return true, nil
}

func (f *fakeStepper) Snapshot() (ux, uz *mat.Dense) {
	v := float64(f.n)
	return mat.NewDense(2, 3, []float64{v, 0, 0, 0, 0, 0}),
		mat.NewDense(2, 3, []float64{0, 0, 0, 0, 0, -v})
}

func (f *fakeStepper) Time() float64   { return float64(f.n) * 0.1 }
func (f *fakeStepper) Step() int       { return f.n }
func (f *fakeStepper) TotalSteps() int { return f.total }

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m LiveModel, msg tea.Msg) LiveModel {
	t.Helper()
	next, _ := m.Update(msg)
	lm, ok := next.(LiveModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return lm
}

func TestThemeColor(t *testing.T) {
	tests := []struct {
		v    float64
		want color.RGBA
	}{
		{-1, color.RGBA{0, 0, 77, 255}},
		{-5, color.RGBA{0, 0, 77, 255}},
		{0, color.RGBA{255, 255, 255, 255}},
		{math.NaN(), color.RGBA{255, 255, 255, 255}},
		{1, color.RGBA{128, 0, 0, 255}},
		{3, color.RGBA{128, 0, 0, 255}},
	}
	for _, tt := range tests {
		if got := ThemeSeismic.Color(tt.v); got != tt.want {
			t.Errorf("Color(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}

	if got := ThemeSeismic.Hex(0); got != "#ffffff" {
		t.Errorf("Hex(0) = %s", got)
	}
	p := ThemeGray.Palette(3)
	if len(p) != 3 || p[1] != (color.RGBA{128, 128, 128, 255}) {
		t.Errorf("unexpected palette %v", p)
	}
}

func TestGetTheme(t *testing.T) {
	if GetTheme("polar").Name != "polar" {
		t.Error("expected polar theme")
	}
	if GetTheme("nope").Name != "seismic" {
		t.Error("unknown theme should fall back to seismic")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("theme names out of sync")
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{0, 0},
		{1, levels},
		{-2, -levels},
		{0.5, levels / 2},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := quantize(tt.v); got != tt.want {
			t.Errorf("quantize(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestHeatmapRender(t *testing.T) {
	u := mat.NewDense(8, 10, nil)
	u.Set(3, 4, 2)

	hm := NewHeatmap(5, 4)
	out := hm.Render(u)
	if n := len(strings.Split(out, "\n")); n != 4 {
		t.Errorf("expected 4 rows, got %d", n)
	}
	if hm.Scale(u) != 2 {
		t.Errorf("expected scale 2, got %v", hm.Scale(u))
	}
	if hm.Scale(mat.NewDense(2, 2, nil)) != 1 {
		t.Error("zero field should scale by one")
	}

	hm.Clip = 5
	if hm.Scale(u) != 5 {
		t.Error("fixed clip ignored")
	}

	if NewHeatmap(0, 4).Render(u) != "" {
		t.Error("zero width should render nothing")
	}
}

func TestComponentPick(t *testing.T) {
	ux := mat.NewDense(1, 2, []float64{3, 0})
	uz := mat.NewDense(1, 2, []float64{4, -2})

	if ComponentUX.Pick(ux, uz) != ux || ComponentUZ.Pick(ux, uz) != uz {
		t.Error("ux/uz should be returned as is")
	}
	mag := ComponentMagnitude.Pick(ux, uz)
	if mag.At(0, 0) != 5 || mag.At(0, 1) != 2 {
		t.Errorf("unexpected magnitude %v", mat.Formatted(mag))
	}
	if ComponentMagnitude.String() != "|u|" {
		t.Error(ComponentMagnitude.String())
	}
}

func TestLiveModel_Step(t *testing.T) {
	sim := &fakeStepper{total: 10}
	m := NewLiveModel(sim, LiveOptions{Title: "test", StepsPerTick: 3})

	m = update(t, m, TickMsg{})
	if sim.n != 3 || m.current.Step != 3 {
		t.Fatalf("expected 3 steps, got %d", sim.n)
	}
	if m.current.Energy != 18 {
		t.Errorf("expected energy 18, got %v", m.current.Energy)
	}

	for i := 0; i < 5; i++ {
		m = update(t, m, TickMsg{})
	}
	if sim.n != 10 || !m.done || m.running {
		t.Errorf("expected finished run, n=%d done=%v running=%v", sim.n, m.done, m.running)
	}
	if !strings.Contains(m.View(), "DONE") {
		t.Error("view should show DONE")
	}
}

func TestLiveModel_Keys(t *testing.T) {
	sim := &fakeStepper{total: 100}
	m := NewLiveModel(sim, LiveOptions{})

	m = update(t, m, key(" "))
	m = update(t, m, TickMsg{})
	if sim.n != 0 {
		t.Error("paused model should not step")
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("view should show PAUSED")
	}

	m = update(t, m, key("+"))
	m = update(t, m, key("+"))
	if m.stepsPerTick != 4 {
		t.Errorf("expected 4 steps per tick, got %d", m.stepsPerTick)
	}
	m = update(t, m, key("-"))
	if m.stepsPerTick != 2 {
		t.Errorf("expected 2 steps per tick, got %d", m.stepsPerTick)
	}

	m = update(t, m, key("c"))
	if m.component != ComponentUZ {
		t.Errorf("expected uz, got %v", m.component)
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Error("q should quit")
	}
}

func TestLiveModel_Scrub(t *testing.T) {
	sim := &fakeStepper{total: 100}
	m := NewLiveModel(sim, LiveOptions{})
	for i := 0; i < 4; i++ {
		m = update(t, m, TickMsg{})
	}

	m = update(t, m, key("["))
	if m.running || m.playHead != 3 {
		t.Fatalf("expected paused replay at 3, got running=%v head=%d", m.running, m.playHead)
	}
	if m.shown().Step != 3 {
		t.Errorf("expected step 3 on screen, got %d", m.shown().Step)
	}

	m = update(t, m, key("]"))
	m = update(t, m, key("]"))
	if m.playHead != -1 {
		t.Errorf("expected live view, got head %d", m.playHead)
	}
	if sim.n != 4 {
		t.Error("scrubbing should not step the simulator")
	}
}

func TestLiveModel_Record(t *testing.T) {
	var saved []*mat.Dense
	sim := &fakeStepper{total: 100}
	m := NewLiveModel(sim, LiveOptions{OnRecord: func(frames []*mat.Dense) error {
		saved = frames
		return nil
	}})

	m = update(t, m, key("g"))
	m = update(t, m, TickMsg{})
	m = update(t, m, TickMsg{})
	m = update(t, m, key("g"))

	if len(saved) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(saved))
	}
	if saved[1].At(0, 0) != 2 {
		t.Errorf("expected ux frame at step 2, got %v", saved[1].At(0, 0))
	}
	if m.recording || m.message != "saved 2 frames" {
		t.Errorf("unexpected state %v %q", m.recording, m.message)
	}
}

func TestLiveModel_Error(t *testing.T) {
	sim := &fakeStepper{total: 100, failAt: 2}
	m := NewLiveModel(sim, LiveOptions{StepsPerTick: 5})

	m = update(t, m, TickMsg{})
	if !errors.Is(m.err, errBlowUp) || m.running {
		t.Fatalf("expected stopped model with error, got %v", m.err)
	}
	if !strings.Contains(m.View(), "ERROR") {
		t.Error("view should show ERROR")
	}
}

func testRecords(t *testing.T, nt int) (*record.Record, *record.Record) {
	t.Helper()
	g, err := grid.FromCounts(0, 3, 3, 0, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	times := make([]float64, nt)
	ux := make([]*mat.Dense, nt)
	uz := make([]*mat.Dense, nt)
	for i := range times {
		times[i] = float64(i)
		ux[i] = g.NewField()
		uz[i] = g.NewField()
		ux[i].Set(0, 0, float64(i))
	}
	rx, err := record.New(g, times, ux)
	if err != nil {
		t.Fatal(err)
	}
	rz, err := record.New(g, times, uz)
	if err != nil {
		t.Fatal(err)
	}
	return rx, rz
}

func TestReplayModel(t *testing.T) {
	ux, uz := testRecords(t, 3)
	m, err := NewReplayModel("replay", ux, uz)
	if err != nil {
		t.Fatal(err)
	}

	step := func(msg tea.Msg) {
		next, _ := m.Update(msg)
		m = next.(ReplayModel)
	}

	step(TickMsg{})
	step(TickMsg{})
	if m.Frame() != 2 {
		t.Errorf("expected frame 2, got %d", m.Frame())
	}
	step(TickMsg{})
	if m.Frame() != 0 {
		t.Errorf("expected loop to frame 0, got %d", m.Frame())
	}

	step(key("l"))
	step(tea.KeyMsg{Type: tea.KeyEnd})
	step(TickMsg{})
	if m.Frame() != 2 || m.playing {
		t.Errorf("expected stop at last frame, got %d playing=%v", m.Frame(), m.playing)
	}

	step(key("["))
	if m.Frame() != 1 {
		t.Errorf("expected frame 1, got %d", m.Frame())
	}
	if !strings.Contains(m.View(), "2/3") {
		t.Error("view should show frame counter")
	}
}

func TestReplayModel_Mismatch(t *testing.T) {
	ux, _ := testRecords(t, 3)
	_, uz := testRecords(t, 2)
	if _, err := NewReplayModel("x", ux, uz); !errors.Is(err, ErrRecordMismatch) {
		t.Errorf("expected ErrRecordMismatch, got %v", err)
	}
}

func TestSeparator(t *testing.T) {
	if !strings.Contains(Separator(20), "◆") {
		t.Error("expected diamond in separator")
	}
	if strings.Contains(Separator(4), "◆") {
		t.Error("narrow separator should be a plain rule")
	}
}
