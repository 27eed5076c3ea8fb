package driver

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// stepTol absorbs representation error in endt/dt.
const stepTol = 1e-9

// Samples requests snapshot times, either as an explicit list or as a count
// of evenly spaced times over [0, endt]. An empty request falls back to
// DefaultCount.
type Samples struct {
	Times []float64
	Count int
}

// Steps is the number of forward steps the driver takes, floor(endt/dt).
func Steps(endt, dt float64) int {
	if dt <= 0 || endt <= 0 {
		return 0
	}
	return int(math.Floor(endt/dt + stepTol))
}

// DefaultCount is one frame per twenty steps, at least one.
func DefaultCount(nt int) int {
	if n := nt / 20; n > 0 {
		return n
	}
	return 1
}

// SampleTimes resolves a request into concrete times. A count n yields n
// evenly spaced times from 0 to endt inclusive.
func SampleTimes(s Samples, endt float64, nt int) []float64 {
	if len(s.Times) > 0 {
		return append([]float64(nil), s.Times...)
	}
	n := s.Count
	if n <= 0 {
		n = DefaultCount(nt)
	}
	if n == 1 {
		return []float64{0}
	}
	return floats.Span(make([]float64, n), 0, endt)
}

// SampleIndices converts times to step indices with round(t/dt), drops
// indices outside [0, nt), and returns the survivors in increasing order
// without duplicates together with the time that produced each one.
func SampleIndices(times []float64, dt float64, nt int) ([]int, []float64) {
	type sample struct {
		idx int
		t   float64
	}
	kept := make([]sample, 0, len(times))
	for _, t := range times {
		if math.IsNaN(t) {
			continue
		}
		i := int(math.Round(t / dt))
		if i < 0 || i >= nt {
			continue
		}
		kept = append(kept, sample{idx: i, t: t})
	}
	sort.SliceStable(kept, func(a, b int) bool { return kept[a].idx < kept[b].idx })

	idx := make([]int, 0, len(kept))
	ts := make([]float64, 0, len(kept))
	for _, k := range kept {
		if len(idx) > 0 && idx[len(idx)-1] == k.idx {
			continue
		}
		idx = append(idx, k.idx)
		ts = append(ts, k.t)
	}
	return idx, ts
}

// Plan is a resolved sampling schedule for a run of Steps forward calls.
// Indices[i] is the zero-based loop step after which frame i is captured.
type Plan struct {
	Steps   int
	Times   []float64
	Indices []int
}

func NewPlan(s Samples, dt, endt float64) Plan {
	nt := Steps(endt, dt)
	idx, ts := SampleIndices(SampleTimes(s, endt, nt), dt, nt)
	return Plan{Steps: nt, Times: ts, Indices: idx}
}

// Frames is the number of snapshots the plan captures.
func (p Plan) Frames() int { return len(p.Indices) }
