// Package medium holds the density and elastic stiffness of a 2D medium and
// evaluates the elastodynamic force terms for its symmetry class.
//
// Three classes are supported:
//
//   - [Isotropic]: c11, c12; c44 = (c11-c12)/2 is derived
//   - [VTI]: c11, c12, c33, c44
//   - [HTI]: c11, c12, c33, c55; c44 = (c11-c12)/2 is derived
//
// A Medium is created with [New], populated once with [Medium.InitByVal]
// and read-only afterwards.
package medium

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/psmwave/internal/grid"
	"github.com/san-kum/psmwave/internal/spectral"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Class is the elastic symmetry class of a medium.
type Class int

const (
	Isotropic Class = iota
	VTI
	HTI
)

func (c Class) String() string {
	switch c {
	case Isotropic:
		return "I"
	case VTI:
		return "VTI"
	case HTI:
		return "HTI"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// ParseClass accepts "I", "iso", "isotropic", "VTI" and "HTI" in any case.
func ParseClass(s string) (Class, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "I", "ISO", "ISOTROPIC":
		return Isotropic, nil
	case "VTI":
		return VTI, nil
	case "HTI":
		return HTI, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedClass, s)
}

// Required lists the fields InitByVal needs for the class, in the order the
// config and CLI accept them.
func (c Class) Required() []string {
	switch c {
	case Isotropic:
		return []string{"rho", "c11", "c12"}
	case VTI:
		return []string{"rho", "c11", "c12", "c33", "c44"}
	case HTI:
		return []string{"rho", "c11", "c12", "c33", "c55"}
	}
	return nil
}

// Stiffness carries the raw fields handed to InitByVal. Fields a class does
// not use are ignored; derived fields are overwritten.
type Stiffness struct {
	Rho, C11, C12, C33, C44, C55 *mat.Dense
}

func (s Stiffness) get(name string) *mat.Dense {
	switch name {
	case "rho":
		return s.Rho
	case "c11":
		return s.C11
	case "c12":
		return s.C12
	case "c33":
		return s.C33
	case "c44":
		return s.C44
	case "c55":
		return s.C55
	}
	return nil
}

type Medium struct {
	class Class
	grid  grid.Grid
	ready bool

	rho, c11, c12, c33, c44, c55 *mat.Dense

	// coupling coefficient of the mixed derivative: c12+c44 (I, VTI) or c12+c55 (HTI)
	cross *mat.Dense

	vpmax, vsmax float64
}

// New returns an uninitialized medium of the given class on g.
func New(class Class, g grid.Grid) (*Medium, error) {
	if class < Isotropic || class > HTI {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedClass, class)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &Medium{class: class, grid: g}, nil
}

func (m *Medium) Class() Class    { return m.class }
func (m *Medium) Grid() grid.Grid { return m.grid }
func (m *Medium) Ready() bool     { return m.ready }

// InitByVal validates and stores the fields required by the medium's class,
// derives c44 where the class defines it, and computes the extreme wave
// speeds. On error the medium stays unready.
func (m *Medium) InitByVal(s Stiffness) error {
	fields := make(map[string]*mat.Dense, 6)
	for _, name := range m.class.Required() {
		f := s.get(name)
		if f == nil {
			return fmt.Errorf("%w: %s medium needs %s", ErrMissingField, m.class, name)
		}
		if !m.grid.SameShape(f) {
			r, c := f.Dims()
			return &ShapeError{Field: name, Rows: r, Cols: c, WantRows: m.grid.NZ, WantCols: m.grid.NX}
		}
		fields[name] = mat.DenseCopyOf(f)
	}
	rho := fields["rho"]
	if floats.Min(rho.RawMatrix().Data) <= 0 {
		return fmt.Errorf("%w: min rho %g", ErrInvalidDensity, floats.Min(rho.RawMatrix().Data))
	}

	m.rho, m.c11, m.c12 = rho, fields["c11"], fields["c12"]
	switch m.class {
	case Isotropic:
		m.c44 = halfDifference(m.c11, m.c12)
		m.cross = sum(m.c12, m.c44)
	case VTI:
		m.c33, m.c44 = fields["c33"], fields["c44"]
		m.cross = sum(m.c12, m.c44)
	case HTI:
		m.c33, m.c55 = fields["c33"], fields["c55"]
		m.c44 = halfDifference(m.c11, m.c12)
		m.cross = sum(m.c12, m.c55)
	}

	m.vpmax = maxSpeed(m.c11, m.rho)
	m.vsmax = maxSpeed(m.shear(), m.rho)
	m.ready = true
	return nil
}

// shear is the constant governing shear propagation in the x-z plane.
func (m *Medium) shear() *mat.Dense {
	if m.class == HTI {
		return m.c55
	}
	return m.c44
}

// VpMax is max(sqrt(c11/rho)); zero before InitByVal.
func (m *Medium) VpMax() float64 { return m.vpmax }

// VsMax is max(sqrt(c44/rho)), or max(sqrt(c55/rho)) for HTI; zero before InitByVal.
func (m *Medium) VsMax() float64 { return m.vsmax }

// Rho returns the density field. Callers must not modify it.
func (m *Medium) Rho() (*mat.Dense, error) {
	if !m.ready {
		return nil, ErrNotReady
	}
	return m.rho, nil
}

// Field returns a stored density or stiffness field by name
// ("rho", "c11", "c12", "c33", "c44", "c55"). Callers must not modify it.
func (m *Medium) Field(name string) (*mat.Dense, error) {
	if !m.ready {
		return nil, ErrNotReady
	}
	var f *mat.Dense
	switch name {
	case "rho":
		f = m.rho
	case "c11":
		f = m.c11
	case "c12":
		f = m.c12
	case "c33":
		f = m.c33
	case "c44":
		f = m.c44
	case "c55":
		f = m.c55
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s medium has no %s", ErrMissingField, m.class, name)
	}
	return f, nil
}

// StepValue returns the force terms (fx, fz) of the elastodynamic equation
// for displacement (ux, uz), using op for every spatial derivative.
//
//	I:   fx = c11·∂xx ux + (c12+c44)·∂z∂x uz + c44·∂zz ux
//	     fz = c11·∂zz uz + (c12+c44)·∂z∂x ux + c44·∂xx uz
//	VTI: fx = c11·∂xx ux + c44·∂zz ux + (c12+c44)·∂x∂z uz
//	     fz = (c44+c12)·∂z∂x ux + c44·∂xx uz + c33·∂zz uz
//	HTI: fx = c11·∂xx ux + c55·∂zz ux + (c12+c55)·∂x∂z uz
//	     fz = (c55+c12)·∂z∂x ux + c44·∂xx uz + c33·∂zz uz
func (m *Medium) StepValue(op *spectral.Operator, ux, uz *mat.Dense) (fx, fz *mat.Dense, err error) {
	if !m.ready {
		return nil, nil, ErrNotReady
	}
	if !m.grid.SameShape(ux) || !m.grid.SameShape(uz) {
		r, c := ux.Dims()
		if m.grid.SameShape(ux) {
			r, c = uz.Dims()
		}
		return nil, nil, &ShapeError{Field: "displacement", Rows: r, Cols: c, WantRows: m.grid.NZ, WantCols: m.grid.NX}
	}

	switch m.class {
	case Isotropic:
		fx = combine(
			term{m.c11, op.Dxx(ux)},
			term{m.cross, op.Dz(op.Dx(uz))},
			term{m.c44, op.Dzz(ux)},
		)
		fz = combine(
			term{m.c11, op.Dzz(uz)},
			term{m.cross, op.Dz(op.Dx(ux))},
			term{m.c44, op.Dxx(uz)},
		)
	case VTI, HTI:
		s := m.shear()
		fx = combine(
			term{m.c11, op.Dxx(ux)},
			term{s, op.Dzz(ux)},
			term{m.cross, op.Dx(op.Dz(uz))},
		)
		fz = combine(
			term{m.cross, op.Dz(op.Dx(ux))},
			term{m.c44, op.Dxx(uz)},
			term{m.c33, op.Dzz(uz)},
		)
	}
	return fx, fz, nil
}

type term struct {
	coef, deriv *mat.Dense
}

// combine returns Σ coef∘deriv elementwise. The first derivative buffer is
// reused as the accumulator.
func combine(terms ...term) *mat.Dense {
	acc := terms[0].deriv
	acc.MulElem(terms[0].coef, acc)
	var tmp mat.Dense
	for _, t := range terms[1:] {
		tmp.MulElem(t.coef, t.deriv)
		acc.Add(acc, &tmp)
	}
	return acc
}

func halfDifference(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Sub(a, b)
	out.Scale(0.5, &out)
	return &out
}

func sum(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Add(a, b)
	return &out
}

func maxSpeed(c, rho *mat.Dense) float64 {
	cd, rd := c.RawMatrix().Data, rho.RawMatrix().Data
	v := make([]float64, len(cd))
	floats.DivTo(v, cd, rd)
	return math.Sqrt(floats.Max(v))
}
