package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/psmwave/internal/grid"
	"github.com/san-kum/psmwave/internal/record"
)

func testRecord(t *testing.T, times []float64, sign float64) *record.Record {
	t.Helper()
	g, err := grid.FromCounts(0, 4, 4, 0, 3, 3)
	require.NoError(t, err)

	frames := make([]*mat.Dense, len(times))
	for k := range frames {
		f := g.NewField()
		for iz := 0; iz < g.NZ; iz++ {
			for ix := 0; ix < g.NX; ix++ {
				f.Set(iz, ix, sign*float64(k*100+iz*10+ix))
			}
		}
		frames[k] = f
	}
	r, err := record.New(g, times, frames)
	require.NoError(t, err)
	return r
}

func TestExtractTrace(t *testing.T) {
	times := []float64{0, 0.5, 1}
	ux := testRecord(t, times, 1)
	uz := testRecord(t, times, -1)

	tr, err := ExtractTrace(ux, uz, 2.5, 1.2)
	require.NoError(t, err)
	assert.Equal(t, 2, tr.IX)
	assert.Equal(t, 1, tr.IZ)
	assert.Equal(t, 2.0, tr.X)
	assert.Equal(t, 1.0, tr.Z)
	assert.Equal(t, []float64{12, 112, 212}, tr.UX)
	assert.Equal(t, []float64{-12, -112, -212}, tr.UZ)
	assert.InDelta(t, 0.5, tr.Interval(), 1e-12)

	_, err = ExtractTrace(ux, uz, 5, 0)
	assert.ErrorIs(t, err, ErrOutOfRecord)

	_, err = ExtractTrace(ux, testRecord(t, times[:2], 1), 1, 1)
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestInterval_Irregular(t *testing.T) {
	tr := &Trace{Times: []float64{0, 0.1, 0.5}}
	assert.Equal(t, 0.0, tr.Interval())

	tr = &Trace{Times: []float64{1}}
	assert.Equal(t, 0.0, tr.Interval())
}

func TestExtractSection(t *testing.T) {
	r := testRecord(t, []float64{0, 2}, 1)

	s, err := ExtractSection(r, 1, 2.1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.Z)
	assert.Equal(t, 2.0, s.Time)
	assert.Equal(t, []float64{0, 1, 2, 3}, s.X)
	assert.Equal(t, []float64{120, 121, 122, 123}, s.Values)

	_, err = ExtractSection(r, 2, 0)
	assert.ErrorIs(t, err, ErrOutOfRecord)
	_, err = ExtractSection(r, 0, -1)
	assert.ErrorIs(t, err, ErrOutOfRecord)
}

func TestPowerSpectrum_Constant(t *testing.T) {
	ps := PowerSpectrum([]float64{1, 1, 1, 1, 1, 1, 1, 1})
	require.Len(t, ps, 5)
	assert.InDelta(t, 8, ps[0], 1e-12)
	for _, v := range ps[1:] {
		assert.InDelta(t, 0, v, 1e-12)
	}
	assert.Nil(t, PowerSpectrum(nil))
}

func TestFrequencies(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, Frequencies(4, 0.5))
	assert.Nil(t, Frequencies(4, 0))
}

func TestDominantFrequency(t *testing.T) {
	const (
		n  = 64
		dt = 0.01
	)
	f0 := 8 / (n * dt)
	data := make([]float64, n)
	for i := range data {
		data[i] = 0.5 + math.Sin(2*math.Pi*f0*float64(i)*dt)
	}

	assert.InDelta(t, f0, DominantFrequency(data, dt), 1e-9)
	assert.Equal(t, 0.0, DominantFrequency(data, 0))
	assert.Equal(t, 0.0, DominantFrequency(data[:1], dt))
}

func TestLinearity(t *testing.T) {
	line := []Point{{-1, -2}, {0, 0}, {1, 2}, {2, 4}}
	assert.InDelta(t, 1, Linearity(line), 1e-12)

	circle := make([]Point, 36)
	for i := range circle {
		a := 2 * math.Pi * float64(i) / 36
		circle[i] = Point{math.Cos(a), math.Sin(a)}
	}
	assert.InDelta(t, 0, Linearity(circle), 1e-9)
	assert.Equal(t, 0.0, Linearity(nil))
}

func TestParticleMotion(t *testing.T) {
	tr := &Trace{UX: []float64{1, 2}, UZ: []float64{3, 4}}
	assert.Equal(t, []Point{{1, 3}, {2, 4}}, ParticleMotion(tr))
}

func TestHodogramToASCII(t *testing.T) {
	out := HodogramToASCII([]Point{{1, 1}}, 5, 5)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)

	assert.Equal(t, '•', []rune(lines[4])[4])
	assert.Equal(t, '┼', []rune(lines[2])[2])
	assert.Empty(t, HodogramToASCII(nil, 5, 5))
}
