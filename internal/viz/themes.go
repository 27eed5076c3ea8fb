package viz

import (
	"image/color"
	"math"

	"github.com/charmbracelet/lipgloss"
)

// Stop is one anchor of a diverging colormap; At runs from -1 to 1.
type Stop struct {
	At      float64
	R, G, B uint8
}

// Theme pairs a diverging colormap for displacement fields with the UI
// accent colors.
type Theme struct {
	Name    string
	Stops   []Stop
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Muted   lipgloss.Color
}

// Available themes
var (
	ThemeSeismic = Theme{
		Name: "seismic",
		Stops: []Stop{
			{-1, 0, 0, 77},
			{-0.5, 0, 0, 255},
			{0, 255, 255, 255},
			{0.5, 255, 0, 0},
			{1, 128, 0, 0},
		},
		Primary: lipgloss.Color("#00ccff"),
		Accent:  lipgloss.Color("#ff4444"),
		Muted:   lipgloss.Color("#666688"),
	}

	ThemeGray = Theme{
		Name: "gray",
		Stops: []Stop{
			{-1, 0, 0, 0},
			{1, 255, 255, 255},
		},
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Muted:   lipgloss.Color("#888888"),
	}

	ThemePolar = Theme{
		Name: "polar",
		Stops: []Stop{
			{-1, 0, 255, 255},
			{-0.3, 0, 80, 160},
			{0, 10, 10, 10},
			{0.3, 160, 80, 0},
			{1, 255, 255, 0},
		},
		Primary: lipgloss.Color("#ffd700"),
		Accent:  lipgloss.Color("#00ffff"),
		Muted:   lipgloss.Color("#4488aa"),
	}

	// Default theme
	CurrentTheme = ThemeSeismic

	// All available themes
	Themes = []Theme{
		ThemeSeismic,
		ThemeGray,
		ThemePolar,
	}
)

// GetTheme returns a theme by name
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeSeismic
}

// SetTheme changes the current theme
func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

// NextTheme switches to the theme after the current one.
func NextTheme() {
	names := ThemeNames()
	for i, name := range names {
		if name == CurrentTheme.Name {
			SetTheme(names[(i+1)%len(names)])
			return
		}
	}
}

// ThemeNames returns list of available theme names
func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// Color maps v in [-1, 1] onto the colormap. Values outside are clamped
// and NaN maps to the midpoint.
func (t Theme) Color(v float64) color.RGBA {
	if math.IsNaN(v) {
		v = 0
	}
	v = math.Max(-1, math.Min(1, v))
	stops := t.Stops
	if v <= stops[0].At {
		return stops[0].rgba()
	}
	for i := 1; i < len(stops); i++ {
		if v <= stops[i].At {
			a, b := stops[i-1], stops[i]
			f := (v - a.At) / (b.At - a.At)
			return color.RGBA{
				R: lerp(a.R, b.R, f),
				G: lerp(a.G, b.G, f),
				B: lerp(a.B, b.B, f),
				A: 255,
			}
		}
	}
	return stops[len(stops)-1].rgba()
}

// Hex is Color as a "#rrggbb" string.
func (t Theme) Hex(v float64) string {
	c := t.Color(v)
	return hexColor(int(c.R), int(c.G), int(c.B))
}

// Palette samples the colormap at n evenly spaced points from -1 to 1.
func (t Theme) Palette(n int) color.Palette {
	p := make(color.Palette, n)
	for i := range p {
		p[i] = t.Color(-1 + 2*float64(i)/float64(n-1))
	}
	return p
}

func (s Stop) rgba() color.RGBA { return color.RGBA{R: s.R, G: s.G, B: s.B, A: 255} }

func lerp(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + f*(float64(b)-float64(a))))
}
