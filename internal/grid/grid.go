// Package grid describes the regular 2D computational domain.
//
// Fields live on an nz×nx lattice stored as [mat.Dense] with one row per
// z sample and one column per x sample, so u.At(iz, ix) is the value at
// (X(ix), Z(iz)).
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidGrid indicates bounds, spacing or counts that describe no cells.
var ErrInvalidGrid = errors.New("grid: invalid grid definition")

// ceilTol absorbs representation error in span/spacing so that a span of
// exactly n spacings does not round up to n+1 cells.
const ceilTol = 1e-9

type Grid struct {
	XMin, XMax, DX float64
	NX             int
	ZMin, ZMax, DZ float64
	NZ             int
}

// New derives the cell counts from bounds and spacing.
// nz is computed from dz.
func New(xmin, xmax, dx, zmin, zmax, dz float64) (Grid, error) {
	if dx <= 0 || dz <= 0 {
		return Grid{}, fmt.Errorf("%w: spacing must be positive (dx=%g, dz=%g)", ErrInvalidGrid, dx, dz)
	}
	if xmax <= xmin || zmax <= zmin {
		return Grid{}, fmt.Errorf("%w: empty range x=[%g,%g] z=[%g,%g]", ErrInvalidGrid, xmin, xmax, zmin, zmax)
	}
	g := Grid{
		XMin: xmin,
		XMax: xmax,
		DX:   dx,
		NX:   cells(xmax-xmin, dx),
		ZMin: zmin,
		ZMax: zmax,
		DZ:   dz,
		NZ:   cells(zmax-zmin, dz),
	}
	return g, g.Validate()
}

// FromCounts derives the spacing from bounds and cell counts.
func FromCounts(xmin, xmax float64, nx int, zmin, zmax float64, nz int) (Grid, error) {
	if nx < 1 || nz < 1 {
		return Grid{}, fmt.Errorf("%w: counts must be >= 1 (nx=%d, nz=%d)", ErrInvalidGrid, nx, nz)
	}
	if xmax <= xmin || zmax <= zmin {
		return Grid{}, fmt.Errorf("%w: empty range x=[%g,%g] z=[%g,%g]", ErrInvalidGrid, xmin, xmax, zmin, zmax)
	}
	g := Grid{
		XMin: xmin,
		XMax: xmax,
		DX:   (xmax - xmin) / float64(nx),
		NX:   nx,
		ZMin: zmin,
		ZMax: zmax,
		DZ:   (zmax - zmin) / float64(nz),
		NZ:   nz,
	}
	return g, g.Validate()
}

func cells(span, d float64) int {
	return int(math.Ceil(span/d - ceilTol))
}

func (g Grid) Validate() error {
	if g.NX < 1 || g.NZ < 1 {
		return fmt.Errorf("%w: counts must be >= 1 (nx=%d, nz=%d)", ErrInvalidGrid, g.NX, g.NZ)
	}
	if g.DX <= 0 || g.DZ <= 0 {
		return fmt.Errorf("%w: spacing must be positive (dx=%g, dz=%g)", ErrInvalidGrid, g.DX, g.DZ)
	}
	return nil
}

// Shape returns (rows, cols) = (nz, nx).
func (g Grid) Shape() (int, int) { return g.NZ, g.NX }

// Cells is the number of lattice points.
func (g Grid) Cells() int { return g.NX * g.NZ }

// MinSpacing is min(dx, dz), the length used by the stability bound.
func (g Grid) MinSpacing() float64 { return math.Min(g.DX, g.DZ) }

// NewField allocates a zeroed nz×nx field.
func (g Grid) NewField() *mat.Dense {
	return mat.NewDense(g.NZ, g.NX, nil)
}

// Uniform allocates a field filled with v.
func (g Grid) Uniform(v float64) *mat.Dense {
	data := make([]float64, g.Cells())
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(g.NZ, g.NX, data)
}

// X is the physical x coordinate of column ix.
func (g Grid) X(ix int) float64 { return g.XMin + float64(ix)*g.DX }

// Z is the physical z coordinate of row iz.
func (g Grid) Z(iz int) float64 { return g.ZMin + float64(iz)*g.DZ }

// Center returns the physical midpoint of the domain.
func (g Grid) Center() (x, z float64) {
	return g.XMin + (g.XMax-g.XMin)/2, g.ZMin + (g.ZMax-g.ZMin)/2
}

// Index maps a physical position to the cell containing it.
// The result may lie outside the grid; use Contains to check.
func (g Grid) Index(x, z float64) (ix, iz int) {
	return int(math.Floor((x - g.XMin) / g.DX)), int(math.Floor((z - g.ZMin) / g.DZ))
}

func (g Grid) Contains(ix, iz int) bool {
	return ix >= 0 && ix < g.NX && iz >= 0 && iz < g.NZ
}

// SameShape reports whether u has the grid's nz×nx shape.
func (g Grid) SameShape(u mat.Matrix) bool {
	r, c := u.Dims()
	return r == g.NZ && c == g.NX
}

// Extent is the plotting rectangle (xmin, xmax, zmax, zmin) with z growing
// downward, as image sinks expect.
func (g Grid) Extent() [4]float64 {
	return [4]float64{g.XMin, g.XMax, g.ZMax, g.ZMin}
}

func (g Grid) String() string {
	return fmt.Sprintf("x=[%.2f,%.2f] dx=%.4g nx=%d  z=[%.2f,%.2f] dz=%.4g nz=%d",
		g.XMin, g.XMax, g.DX, g.NX, g.ZMin, g.ZMax, g.DZ, g.NZ)
}
