// Package driver steps a wave simulator through a run and captures
// displacement snapshots on a sampling plan.
package driver

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/psmwave/internal/wave"
)

// Metric summarises the captured frames of a run.
type Metric interface {
	Name() string
	Observe(ux, uz *mat.Dense, t float64)
	Value() float64
	Reset()
}

// Observer is notified of every captured frame. The fields must not be
// retained past the call unless copied.
type Observer interface {
	OnFrame(frame int, t float64, ux, uz *mat.Dense)
}

// Stepper is the part of the simulator the driver uses.
type Stepper interface {
	Forward() (bool, error)
	Snapshot() (ux, uz *mat.Dense)
	Time() float64
	Step() int
}

var _ Stepper = (*wave.Simulator)(nil)

type Result struct {
	Times   []float64
	Indices []int
	UX, UZ  []*mat.Dense
	Steps   int
	Metrics map[string]float64
	Elapsed time.Duration
}

type Driver struct {
	sim       Stepper
	metrics   []Metric
	observers []Observer

	// ProgressEvery is the step interval of debug progress logs; zero picks
	// a tenth of the run.
	ProgressEvery int
}

func New(sim Stepper) *Driver {
	return &Driver{
		sim:       sim,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (d *Driver) AddMetric(m Metric)     { d.metrics = append(d.metrics, m) }
func (d *Driver) AddObserver(o Observer) { d.observers = append(d.observers, o) }

// Run calls Forward plan.Steps times and captures a snapshot after loop
// step i whenever i is the next pending plan index. It stops early if the
// simulator reports completion, and returns the partial result with the
// context error on cancellation.
func (d *Driver) Run(ctx context.Context, plan Plan) (*Result, error) {
	result := &Result{
		Times:   make([]float64, 0, plan.Frames()),
		Indices: make([]int, 0, plan.Frames()),
		UX:      make([]*mat.Dense, 0, plan.Frames()),
		UZ:      make([]*mat.Dense, 0, plan.Frames()),
		Metrics: make(map[string]float64),
	}
	for _, m := range d.metrics {
		m.Reset()
	}

	every := d.ProgressEvery
	if every <= 0 {
		every = max(1, plan.Steps/10)
	}

	start := time.Now()
	next := 0
	for i := 0; i < plan.Steps; i++ {
		select {
		case <-ctx.Done():
			result.Elapsed = time.Since(start)
			return result, ctx.Err()
		default:
		}

		ok, err := d.sim.Forward()
		if err != nil {
			result.Elapsed = time.Since(start)
			return result, err
		}
		if !ok {
			break
		}
		result.Steps++

		if next < len(plan.Indices) && i == plan.Indices[next] {
			ux, uz := d.sim.Snapshot()
			t := plan.Times[next]
			result.Times = append(result.Times, t)
			result.Indices = append(result.Indices, i)
			result.UX = append(result.UX, ux)
			result.UZ = append(result.UZ, uz)
			for _, m := range d.metrics {
				m.Observe(ux, uz, t)
			}
			for _, o := range d.observers {
				o.OnFrame(next, t, ux, uz)
			}
			next++
		}

		if (i+1)%every == 0 {
			log.WithFields(log.Fields{
				"step":     i + 1,
				"steps":    plan.Steps,
				"sim_time": d.sim.Time(),
				"frames":   next,
				"runtime":  time.Since(start).Round(time.Millisecond),
			}).Debug("simulation progress")
		}
	}
	result.Elapsed = time.Since(start)

	for _, m := range d.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	log.WithFields(log.Fields{
		"steps":    result.Steps,
		"frames":   len(result.Times),
		"sim_time": d.sim.Time(),
		"elapsed":  result.Elapsed.Round(time.Millisecond),
	}).Info("simulation done")
	return result, nil
}
