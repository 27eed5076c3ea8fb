// Package wave advances 2D elastic displacement fields in time with a
// leapfrog scheme, taking spatial derivatives from a spectral operator.
package wave

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/psmwave/internal/boundary"
	"github.com/san-kum/psmwave/internal/grid"
	"github.com/san-kum/psmwave/internal/medium"
	"github.com/san-kum/psmwave/internal/source"
	"github.com/san-kum/psmwave/internal/spectral"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// StabilityLimit is the upper bound on vpmax·dt/min(dx,dz).
const StabilityLimit = math.Sqrt2 / math.Pi

// stepTol absorbs representation error when endt is a whole number of steps.
const stepTol = 1e-9

// Mode selects the differentiation used for the displacement tracks.
type Mode int

const (
	// Periodic differentiates the field as is.
	Periodic Mode = iota
	// AntiSymmetric differentiates the anti-symmetrically extended field.
	AntiSymmetric
	// Blended runs one periodic and one anti-symmetric track and reports
	// their mean.
	Blended
)

func (m Mode) String() string {
	switch m {
	case Periodic:
		return "periodic"
	case AntiSymmetric:
		return "anti"
	case Blended:
		return "blended"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "periodic":
		return Periodic, nil
	case "anti", "antisymmetric", "anti-symmetric":
		return AntiSymmetric, nil
	case "blended", "both":
		return Blended, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
}

type Config struct {
	Dt   float64
	EndT float64
	Mode Mode

	// ValidateState makes Forward fail with ErrDiverged once a displacement
	// becomes NaN or Inf.
	ValidateState bool
}

// State is the simulator lifecycle stage.
type State int

const (
	Constructed State = iota
	Running
	Terminal
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Running:
		return "running"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// track is one set of displacement fields with its history, advanced with a
// single differentiation strategy.
type track struct {
	op               *spectral.Operator
	ux, uz, lux, luz *mat.Dense
}

func newTrack(g grid.Grid, ext spectral.Extension) *track {
	return &track{
		op:  spectral.New(g, ext),
		ux:  g.NewField(),
		uz:  g.NewField(),
		lux: g.NewField(),
		luz: g.NewField(),
	}
}

type Simulator struct {
	medium   *medium.Medium
	src      source.Source
	boundary boundary.Boundary
	cfg      Config
	grid     grid.Grid

	// dt²/rho per cell
	scale *mat.Dense

	tracks []*track
	nt     int
	total  int
	state  State

	courant float64
}

// New validates the configuration and the stability condition and returns a
// simulator with zeroed displacement. A nil boundary leaves edges untouched.
func New(m *medium.Medium, src source.Source, b boundary.Boundary, cfg Config) (*Simulator, error) {
	if cfg.Dt <= 0 || math.IsNaN(cfg.Dt) {
		return nil, fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.EndT <= 0 || math.IsNaN(cfg.EndT) {
		return nil, fmt.Errorf("%w: endt must be positive, got %g", ErrInvalidConfig, cfg.EndT)
	}
	if cfg.Mode < Periodic || cfg.Mode > Blended {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, cfg.Mode)
	}
	if m == nil || !m.Ready() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, medium.ErrNotReady)
	}
	g := m.Grid()
	if err := src.Validate(g.NX, g.NZ); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if src.FX == nil || src.FZ == nil {
		src = source.New(src.SX, src.SZ, src.FX, src.FZ)
	}

	courant, err := CheckStability(m.VpMax(), cfg.Dt, g.MinSpacing())
	if err != nil {
		return nil, err
	}

	rho, err := m.Rho()
	if err != nil {
		return nil, err
	}
	scale := mat.NewDense(g.NZ, g.NX, nil)
	scale.Apply(func(i, j int, _ float64) float64 {
		return cfg.Dt * cfg.Dt / rho.At(i, j)
	}, scale)

	s := &Simulator{
		medium:   m,
		src:      src,
		boundary: b,
		cfg:      cfg,
		grid:     g,
		scale:    scale,
		total:    int(math.Ceil(cfg.EndT/cfg.Dt - stepTol)),
		courant:  courant,
	}
	switch cfg.Mode {
	case Periodic:
		s.tracks = []*track{newTrack(g, spectral.Periodic)}
	case AntiSymmetric:
		s.tracks = []*track{newTrack(g, spectral.AntiSymmetric)}
	case Blended:
		s.tracks = []*track{newTrack(g, spectral.Periodic), newTrack(g, spectral.AntiSymmetric)}
	}
	return s, nil
}

// CheckStability returns the Courant number vpmax·dt/h and fails with a
// *StabilityError unless it is strictly below StabilityLimit.
func CheckStability(vpmax, dt, h float64) (float64, error) {
	c := vpmax * dt / h
	if !(c < StabilityLimit) {
		return c, &StabilityError{Courant: c, Limit: StabilityLimit}
	}
	return c, nil
}

// Forward advances one time step: inject the source, evaluate the force
// terms, leapfrog, apply the boundary and advance the clock. Once the
// simulation time reaches endt it returns false without doing anything.
// Every track is stepped before any is updated, so a failed step leaves the
// simulator at the previous step.
func (s *Simulator) Forward() (bool, error) {
	if s.nt >= s.total {
		s.state = Terminal
		return false, nil
	}
	s.state = Running

	t := s.Time()
	fx, fz := s.src.Amplitude(t)
	k := s.scale.At(s.src.SZ, s.src.SX)

	steps := make([]trackStep, len(s.tracks))
	for i, tr := range s.tracks {
		st, err := s.advance(tr, k*fx, k*fz)
		if err != nil {
			return false, &StepError{Step: s.nt, Time: t, Wrapped: err}
		}
		steps[i] = st
	}
	for i, tr := range s.tracks {
		tr.lux, tr.luz = steps[i].ux, steps[i].uz
		tr.ux, tr.uz = steps[i].nextX, steps[i].nextZ
	}

	s.nt++
	if s.nt >= s.total {
		s.state = Terminal
	}
	return true, nil
}

// trackStep is one track's displacement with the source injected and the
// displacement one step later.
type trackStep struct {
	ux, uz       *mat.Dense
	nextX, nextZ *mat.Dense
}

// advance steps tr without modifying it.
func (s *Simulator) advance(tr *track, dx, dz float64) (trackStep, error) {
	ux := mat.DenseCopyOf(tr.ux)
	uz := mat.DenseCopyOf(tr.uz)
	ux.Set(s.src.SZ, s.src.SX, ux.At(s.src.SZ, s.src.SX)+dx)
	uz.Set(s.src.SZ, s.src.SX, uz.At(s.src.SZ, s.src.SX)+dz)

	ax, az, err := s.medium.StepValue(tr.op, ux, uz)
	if err != nil {
		return trackStep{}, err
	}
	st := trackStep{
		ux:    ux,
		uz:    uz,
		nextX: leapfrog(ux, tr.lux, ax, s.scale),
		nextZ: leapfrog(uz, tr.luz, az, s.scale),
	}

	if s.boundary != nil {
		s.boundary.Apply(st.nextX)
		s.boundary.Apply(st.nextZ)
	}
	if s.cfg.ValidateState && (nonFinite(st.nextX) || nonFinite(st.nextZ)) {
		return trackStep{}, ErrDiverged
	}
	return st, nil
}

// leapfrog returns 2u - prev + scale∘f.
func leapfrog(u, prev, f, scale *mat.Dense) *mat.Dense {
	r, c := u.Dims()
	out := mat.NewDense(r, c, nil)
	od := out.RawMatrix().Data
	ud := u.RawMatrix().Data
	pd := prev.RawMatrix().Data
	fd := f.RawMatrix().Data
	sd := scale.RawMatrix().Data
	for i, v := range ud {
		od[i] = 2*v - pd[i] + sd[i]*fd[i]
	}
	return out
}

func nonFinite(u *mat.Dense) bool {
	return floats.HasNaN(u.RawMatrix().Data) || hasInf(u)
}

func hasInf(u *mat.Dense) bool {
	for _, v := range u.RawMatrix().Data {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func (s *Simulator) State() State { return s.state }

// Time is the current simulation time, Step()·dt.
func (s *Simulator) Time() float64 { return float64(s.nt) * s.cfg.Dt }

// Step is the number of completed forward steps.
func (s *Simulator) Step() int { return s.nt }

// TotalSteps is the number of steps until the simulation time reaches endt.
func (s *Simulator) TotalSteps() int { return s.total }

func (s *Simulator) Dt() float64           { return s.cfg.Dt }
func (s *Simulator) EndT() float64         { return s.cfg.EndT }
func (s *Simulator) Mode() Mode            { return s.cfg.Mode }
func (s *Simulator) Grid() grid.Grid       { return s.grid }
func (s *Simulator) Source() source.Source { return s.src }

// Courant is vpmax·dt/min(dx,dz) as checked at construction.
func (s *Simulator) Courant() float64 { return s.courant }

// TraversalTime is the time a P wave at vpmax needs to cross the x extent.
func (s *Simulator) TraversalTime() float64 {
	return (s.grid.XMax - s.grid.XMin) / s.medium.VpMax()
}

// Snapshot returns copies of the current displacement. In Blended mode the
// two tracks are averaged.
func (s *Simulator) Snapshot() (ux, uz *mat.Dense) {
	ux = mat.DenseCopyOf(s.tracks[0].ux)
	uz = mat.DenseCopyOf(s.tracks[0].uz)
	if len(s.tracks) == 1 {
		return ux, uz
	}
	for _, tr := range s.tracks[1:] {
		ux.Add(ux, tr.ux)
		uz.Add(uz, tr.uz)
	}
	w := 1 / float64(len(s.tracks))
	ux.Scale(w, ux)
	uz.Scale(w, uz)
	return ux, uz
}
