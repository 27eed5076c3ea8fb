package export

import (
	"errors"
	"image"
	"image/gif"
	"image/png"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/psmwave/internal/metrics"
	"github.com/san-kum/psmwave/internal/viz"
)

var ErrNoFrames = errors.New("export: no frames to write")

// paletteSize is the number of colormap entries in exported images.
const paletteSize = 256

type ImageOptions struct {
	Theme viz.Theme
	// Clip is the magnitude mapped to the colormap ends; zero uses the
	// peak over all exported frames.
	Clip float64
	// Scale is the pixel size of one grid cell.
	Scale int
	// Delay between GIF frames in hundredths of a second.
	Delay int
}

func DefaultImageOptions() ImageOptions {
	return ImageOptions{Theme: viz.CurrentTheme, Scale: 2, Delay: 10}
}

func (o ImageOptions) clip(frames []*mat.Dense) float64 {
	if o.Clip > 0 {
		return o.Clip
	}
	var peak float64
	for _, f := range frames {
		peak = math.Max(peak, metrics.MaxAbs(f))
	}
	if peak == 0 {
		return 1
	}
	return peak
}

// FrameImage paints u with row zero at the top, one Scale×Scale block per
// cell.
func FrameImage(u *mat.Dense, clip float64, theme viz.Theme, scale int) *image.Paletted {
	scale = max(1, scale)
	nz, nx := u.Dims()
	img := image.NewPaletted(image.Rect(0, 0, nx*scale, nz*scale), theme.Palette(paletteSize))
	for iz := 0; iz < nz; iz++ {
		for ix := 0; ix < nx; ix++ {
			idx := paletteIndex(u.At(iz, ix) / clip)
			for py := 0; py < scale; py++ {
				for px := 0; px < scale; px++ {
					img.SetColorIndex(ix*scale+px, iz*scale+py, idx)
				}
			}
		}
	}
	return img
}

func paletteIndex(v float64) uint8 {
	if math.IsNaN(v) {
		v = 0
	}
	v = math.Max(-1, math.Min(1, v))
	return uint8(math.Round((v + 1) / 2 * (paletteSize - 1)))
}

// SaveGIF writes the frames as a looping animation with a shared color
// scale.
func SaveGIF(path string, frames []*mat.Dense, opts ImageOptions) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	clip := opts.clip(frames)
	anim := gif.GIF{LoopCount: 0}
	for _, f := range frames {
		anim.Image = append(anim.Image, FrameImage(f, clip, opts.Theme, opts.Scale))
		anim.Delay = append(anim.Delay, opts.Delay)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gif.EncodeAll(file, &anim)
}

func SavePNG(path string, u *mat.Dense, opts ImageOptions) error {
	img := FrameImage(u, opts.clip([]*mat.Dense{u}), opts.Theme, opts.Scale)

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return png.Encode(file, img)
}
