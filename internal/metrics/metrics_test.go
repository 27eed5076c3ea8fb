package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func field(vals ...float64) *mat.Dense {
	return mat.NewDense(1, len(vals), vals)
}

func TestEnergy(t *testing.T) {
	m := NewEnergy(2, 5)

	m.Observe(field(1, 2), field(0, 2), 0)
	if got, want := m.Value(), 9.0*10; math.Abs(got-want) > 1e-12 {
		t.Errorf("expected energy %f, got %f", want, got)
	}

	m.Observe(field(1, 0), field(0, 0), 1)
	if got := m.Value(); got != 10 {
		t.Errorf("expected last-frame energy 10, got %f", got)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Errorf("expected 0 after reset, got %f", m.Value())
	}
}

func TestEnergyGrowth(t *testing.T) {
	m := NewEnergyGrowth()

	m.Observe(field(0, 0), field(0, 0), 0)
	m.Observe(field(1, 0), field(0, 0), 1)
	m.Observe(field(2, 0), field(0, 0), 2)
	m.Observe(field(1, 1), field(0, 0), 3)

	if got := m.Value(); got != 4 {
		t.Errorf("expected growth 4, got %f", got)
	}
}

func TestPeakAmplitude(t *testing.T) {
	m := NewPeakAmplitude()
	m.Observe(field(0.5, -3), field(1, 2), 0)
	m.Observe(field(0.1), field(-0.2), 1)

	if got := m.Value(); got != 3 {
		t.Errorf("expected peak 3, got %f", got)
	}
}

func TestStability(t *testing.T) {
	tests := []struct {
		name   string
		frames [][2]*mat.Dense
		want   float64
	}{
		{"no frames", nil, 1},
		{"all bounded", [][2]*mat.Dense{{field(1), field(-1)}, {field(0.5), field(0)}}, 1},
		{"one above threshold", [][2]*mat.Dense{{field(1), field(0)}, {field(0), field(20)}}, 0.5},
		{"nan", [][2]*mat.Dense{{field(math.NaN()), field(0)}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStability(10)
			for i, f := range tt.frames {
				m.Observe(f[0], f[1], float64(i))
			}
			if got := m.Value(); got != tt.want {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}
