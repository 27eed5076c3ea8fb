package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/psmwave/internal/boundary"
	"github.com/san-kum/psmwave/internal/config"
	"github.com/san-kum/psmwave/internal/driver"
	"github.com/san-kum/psmwave/internal/grid"
	"github.com/san-kum/psmwave/internal/medium"
	"github.com/san-kum/psmwave/internal/record"
	"github.com/san-kum/psmwave/internal/source"
	"github.com/san-kum/psmwave/internal/storage"
	"github.com/san-kum/psmwave/internal/wave"
)

var ErrNotSetup = errors.New("experiment: not set up")

type Experiment struct {
	cfg      *config.Config
	registry *Registry

	grid      grid.Grid
	medium    *medium.Medium
	source    source.Source
	boundary  boundary.Boundary
	simulator *wave.Simulator
	driver    *driver.Driver
	plan      driver.Plan
	format    record.Format
}

// Result pairs the driver output with the captured frames as records.
type Result struct {
	*driver.Result
	UX, UZ *record.Record
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
	}
}

// Setup builds the grid, medium, source, boundary and simulator described
// by the config and attaches the named metrics (the registry defaults when
// none are given).
func (e *Experiment) Setup(metricNames ...string) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	g, err := e.cfg.Grid.Resolve()
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"nx": g.NX,
		"nz": g.NZ,
		"dx": g.DX,
		"dz": g.DZ,
	}).Infof("grid %s", g)

	m, err := buildMedium(e.cfg.Medium, g)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"medium": m.Class(),
		"vpmax":  m.VpMax(),
		"vsmax":  m.VsMax(),
	}).Info("medium initialized")

	src, err := e.buildSource(g)
	if err != nil {
		return err
	}

	kind, err := boundary.ParseKind(e.cfg.Boundary.Type)
	if err != nil {
		return err
	}
	b, err := boundary.New(kind, g.NX, g.NZ, e.cfg.Boundary.XAbsorb, e.cfg.Boundary.ZAbsorb, e.cfg.Boundary.Param)
	if err != nil {
		return err
	}

	mode, err := wave.ParseMode(e.cfg.Simulation.Mode)
	if err != nil {
		return err
	}
	sim, err := wave.New(m, src, b, wave.Config{
		Dt:            e.cfg.Simulation.Dt,
		EndT:          e.cfg.Simulation.EndT,
		Mode:          mode,
		ValidateState: e.cfg.Simulation.ValidateState,
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"courant":   sim.Courant(),
		"limit":     wave.StabilityLimit,
		"traversal": sim.TraversalTime(),
		"mode":      mode,
	}).Info("stability check passed")

	format, err := record.ParseFormat(e.cfg.Record.Format)
	if err != nil {
		return err
	}

	d := driver.New(sim)
	if len(metricNames) == 0 {
		for _, metric := range e.registry.DefaultMetrics(g) {
			d.AddMetric(metric)
		}
	}
	for _, name := range metricNames {
		metric, err := e.registry.GetMetric(name, g)
		if err != nil {
			return err
		}
		d.AddMetric(metric)
	}

	e.grid = g
	e.medium = m
	e.source = src
	e.boundary = b
	e.simulator = sim
	e.driver = d
	e.plan = driver.NewPlan(driver.Samples(e.cfg.Record.Samples), e.cfg.Simulation.Dt, e.cfg.Simulation.EndT)
	e.format = format

	log.WithFields(log.Fields{
		"steps":  e.plan.Steps,
		"frames": e.plan.Frames(),
	}).Info("sampling plan")
	return nil
}

func buildMedium(cfg config.MediumConfig, g grid.Grid) (*medium.Medium, error) {
	class, err := medium.ParseClass(cfg.Type)
	if err != nil {
		return nil, err
	}
	m, err := medium.New(class, g)
	if err != nil {
		return nil, err
	}

	var s medium.Stiffness
	for _, f := range []struct {
		name string
		val  config.Value
		dst  **mat.Dense
	}{
		{"rho", cfg.Rho, &s.Rho},
		{"c11", cfg.C11, &s.C11},
		{"c12", cfg.C12, &s.C12},
		{"c33", cfg.C33, &s.C33},
		{"c44", cfg.C44, &s.C44},
		{"c55", cfg.C55, &s.C55},
	} {
		u, err := f.val.Resolve(g)
		if err != nil {
			return nil, fmt.Errorf("medium %s: %w", f.name, err)
		}
		*f.dst = u
	}

	if err := m.InitByVal(s); err != nil {
		return nil, err
	}
	return m, nil
}

func (e *Experiment) buildSource(g grid.Grid) (source.Source, error) {
	sc := e.cfg.Source
	fx, err := e.registry.GetWavelet(sc.XType, sc.XArgs)
	if err != nil {
		return source.Source{}, fmt.Errorf("source x: %w", err)
	}
	fz, err := e.registry.GetWavelet(sc.ZType, sc.ZArgs)
	if err != nil {
		return source.Source{}, fmt.Errorf("source z: %w", err)
	}
	ix, iz := sc.Position(g)
	src := source.New(ix, iz, fx, fz)
	if err := src.Validate(g.NX, g.NZ); err != nil {
		return source.Source{}, err
	}
	return src, nil
}

// Run drives the simulator through the sampling plan. On failure the
// partial driver result is returned alongside the error.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.simulator == nil {
		return nil, ErrNotSetup
	}

	res, err := e.driver.Run(ctx, e.plan)
	out := &Result{Result: res}
	if err != nil {
		return out, err
	}
	if len(res.UX) == 0 {
		log.Warn("no frames captured")
		return out, nil
	}

	if out.UX, err = record.New(e.grid, res.Times, res.UX); err != nil {
		return out, err
	}
	if out.UZ, err = record.New(e.grid, res.Times, res.UZ); err != nil {
		return out, err
	}
	return out, nil
}

// Metadata describes a finished run for the store.
func (e *Experiment) Metadata(res *Result) storage.RunMetadata {
	meta := storage.RunMetadata{
		Name:      e.cfg.Name,
		Timestamp: time.Now(),
		Medium:    e.medium.Class().String(),
		Mode:      e.simulator.Mode().String(),
		Boundary:  e.cfg.Boundary.Type,
		Grid: storage.GridInfo{
			XMin: e.grid.XMin,
			XMax: e.grid.XMax,
			DX:   e.grid.DX,
			NX:   e.grid.NX,
			ZMin: e.grid.ZMin,
			ZMax: e.grid.ZMax,
			DZ:   e.grid.DZ,
			NZ:   e.grid.NZ,
		},
		SourceX: e.source.SX,
		SourceZ: e.source.SZ,
		Dt:      e.cfg.Simulation.Dt,
		EndT:    e.cfg.Simulation.EndT,
		Courant: e.simulator.Courant(),
		VpMax:   e.medium.VpMax(),
		VsMax:   e.medium.VsMax(),
		Format:  e.format.String(),
	}
	if res != nil && res.Result != nil {
		meta.Steps = res.Steps
		meta.Frames = len(res.Times)
		meta.Metrics = res.Metrics
	}
	return meta
}

// Simulator returns the underlying simulator, nil before Setup.
func (e *Experiment) Simulator() *wave.Simulator {
	return e.simulator
}

// Driver returns the driver for adding observers.
func (e *Experiment) Driver() *driver.Driver {
	return e.driver
}

func (e *Experiment) Grid() grid.Grid       { return e.grid }
func (e *Experiment) Plan() driver.Plan     { return e.plan }
func (e *Experiment) Format() record.Format { return e.format }
