package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/psmwave/internal/record"
)

var (
	ErrOutOfRecord = errors.New("analysis: position outside the recorded grid")
	ErrMismatch    = errors.New("analysis: ux and uz records do not match")
)

// intervalTol is the relative spread of sample spacings still treated as
// uniform.
const intervalTol = 1e-6

// Trace is the displacement history at one receiver cell.
type Trace struct {
	X, Z   float64
	IX, IZ int
	Times  []float64
	UX, UZ []float64
}

// ExtractTrace samples both records at the cell containing (x, z).
func ExtractTrace(ux, uz *record.Record, x, z float64) (*Trace, error) {
	if ux.NX != uz.NX || ux.NZ != uz.NZ || ux.NT() != uz.NT() {
		return nil, fmt.Errorf("%w: %dx%dx%d vs %dx%dx%d", ErrMismatch, ux.NT(), ux.NZ, ux.NX, uz.NT(), uz.NZ, uz.NX)
	}
	g, err := ux.Grid()
	if err != nil {
		return nil, err
	}
	ix, iz := g.Index(x, z)
	if !g.Contains(ix, iz) {
		return nil, fmt.Errorf("%w: (%g, %g)", ErrOutOfRecord, x, z)
	}

	tr := &Trace{
		X:     g.X(ix),
		Z:     g.Z(iz),
		IX:    ix,
		IZ:    iz,
		Times: append([]float64(nil), ux.Times...),
		UX:    make([]float64, ux.NT()),
		UZ:    make([]float64, uz.NT()),
	}
	for i := range ux.Frames {
		tr.UX[i] = ux.Frames[i].At(iz, ix)
		tr.UZ[i] = uz.Frames[i].At(iz, ix)
	}
	return tr, nil
}

// Interval returns the sample spacing of a uniformly sampled trace, or 0
// when the times are irregular or fewer than two.
func (t *Trace) Interval() float64 {
	if len(t.Times) < 2 {
		return 0
	}
	dt := (t.Times[len(t.Times)-1] - t.Times[0]) / float64(len(t.Times)-1)
	if dt <= 0 {
		return 0
	}
	for i := 1; i < len(t.Times); i++ {
		if math.Abs(t.Times[i]-t.Times[i-1]-dt) > intervalTol*dt {
			return 0
		}
	}
	return dt
}

// Section is one frame row at a fixed depth.
type Section struct {
	Z      float64
	Time   float64
	X      []float64
	Values []float64
}

// ExtractSection returns row z of frame i of r.
func ExtractSection(r *record.Record, frame int, z float64) (*Section, error) {
	if frame < 0 || frame >= r.NT() {
		return nil, fmt.Errorf("%w: frame %d of %d", ErrOutOfRecord, frame, r.NT())
	}
	g, err := r.Grid()
	if err != nil {
		return nil, err
	}
	_, iz := g.Index(g.XMin, z)
	if !g.Contains(0, iz) {
		return nil, fmt.Errorf("%w: z=%g", ErrOutOfRecord, z)
	}

	s := &Section{
		Z:      g.Z(iz),
		Time:   r.Times[frame],
		X:      make([]float64, g.NX),
		Values: make([]float64, g.NX),
	}
	copy(s.Values, r.Frames[frame].RawRowView(iz))
	for ix := range s.X {
		s.X[ix] = g.X(ix)
	}
	return s, nil
}
