package viz

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/psmwave/internal/metrics"
)

// levels is the number of quantized colors per half of the colormap.
const levels = 16

// Heatmap draws a field with one half-block character per two grid rows:
// the foreground paints the upper sample and the background the lower.
type Heatmap struct {
	Width, Height int
	// Clip is the magnitude mapped to the colormap ends; zero scales each
	// frame by its own peak.
	Clip  float64
	Theme Theme

	cells map[[2]int]string
}

func NewHeatmap(w, h int) *Heatmap {
	return &Heatmap{
		Width:  w,
		Height: h,
		Theme:  CurrentTheme,
		cells:  make(map[[2]int]string),
	}
}

// SetTheme switches the colormap and drops cached cells.
func (hm *Heatmap) SetTheme(t Theme) {
	hm.Theme = t
	hm.cells = make(map[[2]int]string)
}

// Scale returns the clip value used for u.
func (hm *Heatmap) Scale(u *mat.Dense) float64 {
	if hm.Clip > 0 {
		return hm.Clip
	}
	if peak := metrics.MaxAbs(u); peak > 0 {
		return peak
	}
	return 1
}

// Render draws u resampled to Width columns and 2·Height rows, with row
// zero (the shallowest) at the top.
func (hm *Heatmap) Render(u *mat.Dense) string {
	nz, nx := u.Dims()
	if nz == 0 || nx == 0 || hm.Width < 1 || hm.Height < 1 {
		return ""
	}
	clip := hm.Scale(u)

	var sb strings.Builder
	for row := 0; row < hm.Height; row++ {
		top := min(nz-1, (2*row)*nz/(2*hm.Height))
		bot := min(nz-1, (2*row+1)*nz/(2*hm.Height))
		for col := 0; col < hm.Width; col++ {
			ix := min(nx-1, col*nx/hm.Width)
			sb.WriteString(hm.cell(quantize(u.At(top, ix)/clip), quantize(u.At(bot, ix)/clip)))
		}
		if row < hm.Height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (hm *Heatmap) cell(upper, lower int) string {
	key := [2]int{upper, lower}
	if s, ok := hm.cells[key]; ok {
		return s
	}
	if hm.cells == nil {
		hm.cells = make(map[[2]int]string)
	}
	s := lipgloss.NewStyle().
		Foreground(lipgloss.Color(hm.Theme.Hex(float64(upper) / levels))).
		Background(lipgloss.Color(hm.Theme.Hex(float64(lower) / levels))).
		Render("▀")
	hm.cells[key] = s
	return s
}

// quantize maps v in [-1, 1] to an integer level in [-levels, levels].
func quantize(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(-1, math.Min(1, v))
	return int(math.Round(v * levels))
}

// Legend renders the colormap from -clip to +clip on one line.
func Legend(t Theme, clip float64, width int) string {
	if width < 1 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < width; i++ {
		v := -1 + 2*float64(i)/float64(max(1, width-1))
		sb.WriteString(lipgloss.NewStyle().Background(lipgloss.Color(t.Hex(v))).Render(" "))
	}
	return sb.String() + Subtle.Render(strings.Join([]string{"", formatClip(-clip), "..", formatClip(clip)}, " "))
}

func formatClip(v float64) string {
	return strconv.FormatFloat(v, 'g', 3, 64)
}
