package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/psmwave/internal/config"
)

var ErrUnknownParameter = errors.New("experiment: unknown sweep parameter")

// SweepResult is the outcome of one configuration of a sweep.
type SweepResult struct {
	Name    string
	Value   float64
	Steps   int
	Courant float64
	Metrics map[string]float64
}

// sweepParams maps a parameter name onto the config field it varies.
var sweepParams = map[string]func(c *config.Config, v float64){
	"dt":    func(c *config.Config, v float64) { c.Simulation.Dt = v },
	"endt":  func(c *config.Config, v float64) { c.Simulation.EndT = v },
	"alpha": func(c *config.Config, v float64) { c.Boundary.Param = v },
	"fm":    setPeakFrequency,
}

// setPeakFrequency replaces the first wavelet argument of both source
// components.
func setPeakFrequency(c *config.Config, v float64) {
	c.Source.XArgs = withFirst(c.Source.XArgs, v)
	c.Source.ZArgs = withFirst(c.Source.ZArgs, v)
}

func withFirst(args []float64, v float64) []float64 {
	if len(args) == 0 {
		return []float64{v}
	}
	out := append([]float64(nil), args...)
	out[0] = v
	return out
}

func SweepParameters() []string {
	names := make([]string, 0, len(sweepParams))
	for name := range sweepParams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Vary returns one copy of base per value with the named parameter set.
func Vary(base *config.Config, param string, values []float64) ([]*config.Config, error) {
	set, ok := sweepParams[param]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownParameter, param, SweepParameters())
	}
	cfgs := make([]*config.Config, len(values))
	for i, v := range values {
		c := *base
		set(&c, v)
		c.Name = fmt.Sprintf("%s[%s=%g]", base.Name, param, v)
		cfgs[i] = &c
	}
	return cfgs, nil
}

// Sweep runs every config on its own experiment, at most workers at a
// time (GOMAXPROCS when workers < 1). The first failure cancels the rest
// and is returned.
func Sweep(ctx context.Context, cfgs []*config.Config, workers int, metricNames ...string) ([]SweepResult, error) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]SweepResult, len(cfgs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, cfg := range cfgs {
		g.Go(func() error {
			exp := New(cfg)
			if err := exp.Setup(metricNames...); err != nil {
				return fmt.Errorf("%s: %w", cfg.Name, err)
			}
			res, err := exp.Run(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", cfg.Name, err)
			}
			results[i] = SweepResult{
				Name:    cfg.Name,
				Steps:   res.Steps,
				Courant: exp.Simulator().Courant(),
				Metrics: res.Metrics,
			}
			log.WithField("run", cfg.Name).Debug("sweep run finished")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SweepValues runs base once per value of param and tags each result with
// its value.
func SweepValues(ctx context.Context, base *config.Config, param string, values []float64, workers int, metricNames ...string) ([]SweepResult, error) {
	cfgs, err := Vary(base, param, values)
	if err != nil {
		return nil, err
	}
	results, err := Sweep(ctx, cfgs, workers, metricNames...)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Value = values[i]
	}
	return results, nil
}

// Best returns the index of the result with the smallest value of metric,
// or -1 when no result reports it.
func Best(results []SweepResult, metric string) int {
	best, idx := math.Inf(1), -1
	for i, r := range results {
		if v, ok := r.Metrics[metric]; ok && v < best {
			best, idx = v, i
		}
	}
	return idx
}
