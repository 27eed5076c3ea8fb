package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Energy tracks Σ(ux²+uz²)·dx·dz of the observed frames and reports the
// value of the last one.
type Energy struct {
	name    string
	cell    float64
	last    float64
	samples int
}

// NewEnergy weights each cell by its area dx·dz.
func NewEnergy(dx, dz float64) *Energy {
	return &Energy{
		name: "energy",
		cell: dx * dz,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(ux, uz *mat.Dense, t float64) {
	e.last = FieldEnergy(ux, uz) * e.cell
	e.samples++
}

func (e *Energy) Value() float64 {
	return e.last
}

func (e *Energy) Reset() {
	e.last = 0
	e.samples = 0
}

// FieldEnergy is Σ(ux²+uz²) over all cells.
func FieldEnergy(ux, uz *mat.Dense) float64 {
	x := ux.RawMatrix().Data
	z := uz.RawMatrix().Data
	return floats.Dot(x, x) + floats.Dot(z, z)
}

// EnergyGrowth reports the largest ratio between the energy of a frame and
// the first non-zero frame energy. Values well above one after the source
// stops point at a drifting or unstable run.
type EnergyGrowth struct {
	name      string
	reference float64
	maxGrowth float64
}

func NewEnergyGrowth() *EnergyGrowth {
	return &EnergyGrowth{name: "energy_growth"}
}

func (e *EnergyGrowth) Name() string { return e.name }

func (e *EnergyGrowth) Observe(ux, uz *mat.Dense, t float64) {
	energy := FieldEnergy(ux, uz)
	if e.reference == 0 {
		e.reference = energy
		if energy != 0 {
			e.maxGrowth = 1
		}
		return
	}
	if g := energy / e.reference; g > e.maxGrowth {
		e.maxGrowth = g
	}
}

func (e *EnergyGrowth) Value() float64 {
	return e.maxGrowth
}

func (e *EnergyGrowth) Reset() {
	e.reference = 0
	e.maxGrowth = 0
}
