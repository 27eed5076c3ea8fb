package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/psmwave/internal/driver"
	"github.com/san-kum/psmwave/internal/grid"
	"github.com/san-kum/psmwave/internal/metrics"
	"github.com/san-kum/psmwave/internal/source"
)

// DefaultStabilityThreshold is the displacement magnitude the stability
// metric treats as a blow-up.
const DefaultStabilityThreshold = 1e6

type Registry struct {
	wavelets map[string]func(args []float64) (source.Wavelet, error)
	metrics  map[string]func(g grid.Grid) driver.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		wavelets: make(map[string]func([]float64) (source.Wavelet, error)),
		metrics:  make(map[string]func(grid.Grid) driver.Metric),
	}

	for _, kind := range []source.Kind{source.None, source.Ricker} {
		r.wavelets[kind.String()] = func(args []float64) (source.Wavelet, error) {
			return source.NewWavelet(kind, args...)
		}
	}

	r.metrics["energy"] = func(g grid.Grid) driver.Metric { return metrics.NewEnergy(g.DX, g.DZ) }
	r.metrics["energy_growth"] = func(grid.Grid) driver.Metric { return metrics.NewEnergyGrowth() }
	r.metrics["peak_amplitude"] = func(grid.Grid) driver.Metric { return metrics.NewPeakAmplitude() }
	r.metrics["stability"] = func(grid.Grid) driver.Metric { return metrics.NewStability(DefaultStabilityThreshold) }

	return r
}

// GetWavelet builds a wavelet by source kind name; an empty name is the
// silent source.
func (r *Registry) GetWavelet(name string, args []float64) (source.Wavelet, error) {
	kind, err := source.ParseKind(name)
	if err != nil {
		return nil, err
	}
	fn, ok := r.wavelets[kind.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", source.ErrUnsupportedSource, name)
	}
	return fn(args)
}

func (r *Registry) GetMetric(name string, g grid.Grid) (driver.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(g), nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListWavelets() []string {
	names := make([]string, 0, len(r.wavelets))
	for name := range r.wavelets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(g grid.Grid) []driver.Metric {
	return []driver.Metric{
		metrics.NewEnergy(g.DX, g.DZ),
		metrics.NewPeakAmplitude(),
		metrics.NewStability(DefaultStabilityThreshold),
	}
}
