// Package boundary treats the edge strips of a displacement field after each
// time step, either by overwriting them (rigid) or by tapering them with a
// decaying envelope (absorbing).
package boundary

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrUnsupportedBoundary = errors.New("boundary: unsupported boundary type")
	ErrInvalidParameter    = errors.New("boundary: invalid parameter")
)

type Kind int

const (
	Rigid Kind = iota
	Absorbing
)

func (k Kind) String() string {
	switch k {
	case Rigid:
		return "solid"
	case Absorbing:
		return "atten"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts "solid"/"rigid" and "atten"/"absorbing".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "solid", "rigid":
		return Rigid, nil
	case "atten", "absorbing", "absorb":
		return Absorbing, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedBoundary, s)
}

// Boundary mutates a field's edge strips in place.
type Boundary interface {
	Apply(u *mat.Dense)
}

// strips holds the widths of the edge regions on an nz×nx field:
// a columns on each x side, b rows on each z side.
type strips struct {
	nx, nz int
	a, b   int
}

func newStrips(nx, nz, a, b int) (strips, error) {
	if nx < 1 || nz < 1 {
		return strips{}, fmt.Errorf("%w: field is %dx%d", ErrInvalidParameter, nz, nx)
	}
	if a < 0 || b < 0 {
		return strips{}, fmt.Errorf("%w: negative absorb length (a=%d, b=%d)", ErrInvalidParameter, a, b)
	}
	if 2*a > nx || 2*b > nz {
		return strips{}, fmt.Errorf("%w: absorb length exceeds half the grid (a=%d of nx=%d, b=%d of nz=%d)",
			ErrInvalidParameter, a, nx, b, nz)
	}
	return strips{nx: nx, nz: nz, a: a, b: b}, nil
}

func (s strips) check(u *mat.Dense) {
	r, c := u.Dims()
	if r != s.nz || c != s.nx {
		panic(fmt.Sprintf("boundary: field is %dx%d, boundary expects %dx%d: %v", r, c, s.nz, s.nx, mat.ErrShape))
	}
}

// RigidBoundary overwrites every edge strip with a constant.
type RigidBoundary struct {
	strips
	Value float64
}

func NewRigid(nx, nz, a, b int, value float64) (*RigidBoundary, error) {
	s, err := newStrips(nx, nz, a, b)
	if err != nil {
		return nil, err
	}
	return &RigidBoundary{strips: s, Value: value}, nil
}

func (r *RigidBoundary) Apply(u *mat.Dense) {
	r.check(u)
	for iz := 0; iz < r.nz; iz++ {
		row := u.RawRowView(iz)
		if iz < r.b || iz >= r.nz-r.b {
			for ix := range row {
				row[ix] = r.Value
			}
			continue
		}
		for ix := 0; ix < r.a; ix++ {
			row[ix] = r.Value
			row[r.nx-1-ix] = r.Value
		}
	}
}

// AbsorbingBoundary multiplies the edge strips by exp(-(alpha·d)²), where d
// counts cells from the strip's inner edge (d = 1 next to the interior,
// d = width at the domain edge). Corners are tapered by both envelopes.
type AbsorbingBoundary struct {
	strips
	Alpha float64

	ex, ez []float64 // envelope indexed by distance from the domain edge
}

func NewAbsorbing(nx, nz, a, b int, alpha float64) (*AbsorbingBoundary, error) {
	s, err := newStrips(nx, nz, a, b)
	if err != nil {
		return nil, err
	}
	if alpha < 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, fmt.Errorf("%w: alpha=%g", ErrInvalidParameter, alpha)
	}
	return &AbsorbingBoundary{
		strips: s,
		Alpha:  alpha,
		ex:     Envelope(a, alpha),
		ez:     Envelope(b, alpha),
	}, nil
}

// Envelope returns the taper for a strip of width n. Index 0 is the domain
// edge. Values are in (0, 1] and increase toward the interior.
func Envelope(n int, alpha float64) []float64 {
	env := make([]float64, n)
	for j := range env {
		d := alpha * float64(n-j)
		env[j] = math.Exp(-d * d)
	}
	return env
}

func (ab *AbsorbingBoundary) Apply(u *mat.Dense) {
	ab.check(u)
	for iz := 0; iz < ab.nz; iz++ {
		row := u.RawRowView(iz)
		for j, e := range ab.ex {
			row[j] *= e
			row[ab.nx-1-j] *= e
		}
	}
	for j, e := range ab.ez {
		lo, hi := u.RawRowView(j), u.RawRowView(ab.nz-1-j)
		for ix := range lo {
			lo[ix] *= e
			hi[ix] *= e
		}
	}
}

// New builds a boundary of the given kind. param is the fixed value for
// Rigid and alpha for Absorbing.
func New(kind Kind, nx, nz, a, b int, param float64) (Boundary, error) {
	switch kind {
	case Rigid:
		r, err := NewRigid(nx, nz, a, b, param)
		if err != nil {
			return nil, err
		}
		return r, nil
	case Absorbing:
		ab, err := NewAbsorbing(nx, nz, a, b, param)
		if err != nil {
			return nil, err
		}
		return ab, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedBoundary, kind)
}
