package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// PeakAmplitude is the largest |ux| or |uz| seen in any observed frame.
type PeakAmplitude struct {
	name string
	peak float64
}

func NewPeakAmplitude() *PeakAmplitude {
	return &PeakAmplitude{name: "peak_amplitude"}
}

func (p *PeakAmplitude) Name() string { return p.name }

func (p *PeakAmplitude) Observe(ux, uz *mat.Dense, t float64) {
	p.peak = math.Max(p.peak, math.Max(MaxAbs(ux), MaxAbs(uz)))
}

func (p *PeakAmplitude) Value() float64 { return p.peak }

func (p *PeakAmplitude) Reset() { p.peak = 0 }

// MaxAbs is the largest absolute entry of u.
func MaxAbs(u *mat.Dense) float64 {
	var m float64
	for _, v := range u.RawMatrix().Data {
		m = math.Max(m, math.Abs(v))
	}
	return m
}
