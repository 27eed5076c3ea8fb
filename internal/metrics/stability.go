package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Stability is the fraction of observed frames whose displacement stays
// finite and below threshold in magnitude.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(ux, uz *mat.Dense, t float64) {
	s.samples++
	for _, u := range []*mat.Dense{ux, uz} {
		for _, val := range u.RawMatrix().Data {
			if math.IsNaN(val) || math.Abs(val) > s.threshold {
				s.violations++
				return
			}
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
