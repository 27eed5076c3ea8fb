// Package record stores a sequence of 2D displacement frames together with
// their sample times and the physical extent of the grid.
//
// Two encodings are supported. The binary form (.sfd) is little endian:
//
//	int32   version major, minor, patch
//	int32   float width in bytes (4 or 8)
//	int32   nx, nz, nt
//	float32 xmin, xmax, zmin, zmax
//	float   times[nt]
//	float   data[nt][nz][nx]
//
// The text form (.txt) has a "nx nz nt" line, an "xmin xmax" line, a
// "zmin zmax" line, then for every frame its time on one line followed by
// nz lines of nx values.
package record

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/psmwave/internal/grid"
)

var (
	ErrBadRecord         = errors.New("record: malformed record")
	ErrUnsupportedFormat = errors.New("record: unsupported format")
)

// Version is written into every binary record.
var Version = [3]int32{1, 0, 0}

type Format int

const (
	Binary Format = iota
	Text
)

func (f Format) String() string {
	switch f {
	case Binary:
		return "sfd"
	case Text:
		return "txt"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Ext is the file extension for the format, with the dot.
func (f Format) Ext() string { return "." + f.String() }

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "sfd", "bin", "binary":
		return Binary, nil
	case "txt", "text":
		return Text, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

type Record struct {
	XMin, XMax float64
	ZMin, ZMax float64
	NX, NZ     int

	Times  []float64
	Frames []*mat.Dense
}

// New builds a record for frames sampled on g. The frames are not copied.
func New(g grid.Grid, times []float64, frames []*mat.Dense) (*Record, error) {
	r := &Record{
		XMin:   g.XMin,
		XMax:   g.XMax,
		ZMin:   g.ZMin,
		ZMax:   g.ZMax,
		NX:     g.NX,
		NZ:     g.NZ,
		Times:  times,
		Frames: frames,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Record) NT() int { return len(r.Frames) }

func (r *Record) Validate() error {
	if r.NX < 1 || r.NZ < 1 {
		return fmt.Errorf("%w: grid %dx%d", ErrBadRecord, r.NZ, r.NX)
	}
	if len(r.Times) != len(r.Frames) {
		return fmt.Errorf("%w: %d times for %d frames", ErrBadRecord, len(r.Times), len(r.Frames))
	}
	for i, f := range r.Frames {
		rows, cols := f.Dims()
		if rows != r.NZ || cols != r.NX {
			return fmt.Errorf("%w: frame %d is %dx%d, want %dx%d", ErrBadRecord, i, rows, cols, r.NZ, r.NX)
		}
	}
	return nil
}

// Grid reconstructs the sampling grid from the extent and counts.
func (r *Record) Grid() (grid.Grid, error) {
	return grid.FromCounts(r.XMin, r.XMax, r.NX, r.ZMin, r.ZMax, r.NZ)
}

// Extent is (xmin, xmax, zmax, zmin) for plotting with z downward.
func (r *Record) Extent() [4]float64 {
	return [4]float64{r.XMin, r.XMax, r.ZMax, r.ZMin}
}

// Save writes r to path in the format implied by its extension.
func Save(path string, r *Record) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch format {
	case Text:
		err = WriteText(f, r)
	default:
		err = WriteBinary(f, r, 8)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Load reads a record in the format implied by the extension of path.
func Load(path string) (*Record, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if format == Text {
		return ReadText(f)
	}
	return ReadBinary(f)
}
