package export

import (
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/psmwave/internal/viz"
)

func TestTraceToSVG(t *testing.T) {
	svg := TraceToSVG([]float64{0, 1, 2}, []float64{0, 1, -1}, 200, 100, "#00ccff")
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Error("expected a complete svg document")
	}
	if !strings.Contains(svg, `stroke="#00ccff"`) {
		t.Error("stroke color missing")
	}
	if strings.Count(svg, " L") != 2 {
		t.Errorf("expected 2 line segments, got %d", strings.Count(svg, " L"))
	}

	if TraceToSVG([]float64{0}, []float64{1}, 10, 10, "#fff") != "" {
		t.Error("single sample should produce nothing")
	}
	if TraceToSVG([]float64{0, 1}, []float64{1}, 10, 10, "#fff") != "" {
		t.Error("length mismatch should produce nothing")
	}
}

func TestFieldToSVG(t *testing.T) {
	u := mat.NewDense(2, 3, []float64{-1, 0, 1, 0, 0, 0})
	svg := FieldToSVG(u, 1, viz.ThemeSeismic, 4)
	if n := strings.Count(svg, "<rect"); n != 6 {
		t.Errorf("expected 6 cells, got %d", n)
	}
	if !strings.Contains(svg, `width="12" height="8"`) {
		t.Error("unexpected document size")
	}
	if !strings.Contains(svg, `fill="#00004d"`) || !strings.Contains(svg, `fill="#800000"`) {
		t.Error("expected colormap end colors")
	}
}

func TestFrameImage(t *testing.T) {
	u := mat.NewDense(2, 3, []float64{-1, 0, 1, 0, 0, 0})
	img := FrameImage(u, 1, viz.ThemeGray, 2)

	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 4 {
		t.Fatalf("unexpected bounds %v", b)
	}
	if img.ColorIndexAt(0, 0) != 0 || img.ColorIndexAt(5, 1) != paletteSize-1 {
		t.Errorf("unexpected end indices %d %d", img.ColorIndexAt(0, 0), img.ColorIndexAt(5, 1))
	}
	if got := img.ColorIndexAt(3, 3); got != paletteIndex(0) {
		t.Errorf("expected midpoint index, got %d", got)
	}
}

func TestSaveGIF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.gif")

	frames := []*mat.Dense{
		mat.NewDense(2, 2, []float64{0, 1, 0, 0}),
		mat.NewDense(2, 2, []float64{0, 0, 2, 0}),
	}
	opts := DefaultImageOptions()
	if err := SaveGIF(path, frames, opts); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(anim.Image) != 2 || anim.Delay[0] != opts.Delay {
		t.Errorf("unexpected animation: %d frames, delay %v", len(anim.Image), anim.Delay)
	}

	if err := SaveGIF(path, nil, opts); err != ErrNoFrames {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	u := mat.NewDense(3, 4, nil)
	u.Set(1, 1, 1)

	if err := SavePNG(path, u, ImageOptions{Theme: viz.ThemePolar, Scale: 3}); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 9 {
		t.Errorf("unexpected bounds %v", b)
	}
}
