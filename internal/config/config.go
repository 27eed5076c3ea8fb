package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/psmwave/internal/grid"
)

const (
	DefaultExtent  = 1000.0
	DefaultSpacing = 5.0
	DefaultRho     = 3.8
	DefaultC11     = 76.95e6
	DefaultC12     = 25.65e6
	DefaultDt      = 2e-4
	DefaultEndT    = 0.12
	DefaultFm      = 40.0
	DefaultDelay   = 0.03
)

var (
	ErrInvalidConfig     = errors.New("config: invalid configuration")
	ErrUnsupportedFormat = errors.New("config: unsupported config file format")
)

type Config struct {
	Name       string           `yaml:"name,omitempty"`
	Grid       GridConfig       `yaml:"grid"`
	Medium     MediumConfig     `yaml:"medium"`
	Source     SourceConfig     `yaml:"source"`
	Boundary   BoundaryConfig   `yaml:"boundary"`
	Simulation SimulationConfig `yaml:"simulation"`
	Record     RecordConfig     `yaml:"record"`
	LogLevel   string           `yaml:"log_level,omitempty"`
}

// GridConfig gives each axis either a spacing or a cell count. When both
// are set the spacing wins.
type GridConfig struct {
	XMin float64 `yaml:"xmin"`
	XMax float64 `yaml:"xmax"`
	DX   float64 `yaml:"dx,omitempty"`
	NX   int     `yaml:"nx,omitempty"`
	ZMin float64 `yaml:"zmin"`
	ZMax float64 `yaml:"zmax"`
	DZ   float64 `yaml:"dz,omitempty"`
	NZ   int     `yaml:"nz,omitempty"`
}

type MediumConfig struct {
	Type string `yaml:"type"`
	Rho  Value  `yaml:"rho"`
	C11  Value  `yaml:"c11,omitempty"`
	C12  Value  `yaml:"c12,omitempty"`
	C33  Value  `yaml:"c33,omitempty"`
	C44  Value  `yaml:"c44,omitempty"`
	C55  Value  `yaml:"c55,omitempty"`
}

// SourceConfig places the source at a physical position, the domain
// center when X or Z is unset.
type SourceConfig struct {
	X     *float64  `yaml:"x,omitempty"`
	Z     *float64  `yaml:"z,omitempty"`
	XType string    `yaml:"x_type"`
	XArgs []float64 `yaml:"x_args,omitempty"`
	ZType string    `yaml:"z_type"`
	ZArgs []float64 `yaml:"z_args,omitempty"`
}

// BoundaryConfig selects the edge treatment. Param is the strip value of
// a rigid boundary or the decay rate of an absorbing one.
type BoundaryConfig struct {
	Type    string  `yaml:"type"`
	XAbsorb int     `yaml:"x_absorb"`
	ZAbsorb int     `yaml:"z_absorb"`
	Param   float64 `yaml:"param,omitempty"`
}

type SimulationConfig struct {
	EndT          float64 `yaml:"endt"`
	Dt            float64 `yaml:"dt"`
	Mode          string  `yaml:"mode,omitempty"`
	ValidateState bool    `yaml:"validate_state,omitempty"`
}

type RecordConfig struct {
	Samples Samples `yaml:"samples,omitempty"`
	Format  string  `yaml:"format,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name: "homogeneous",
		Grid: GridConfig{
			XMax: DefaultExtent,
			DX:   DefaultSpacing,
			ZMax: DefaultExtent,
			DZ:   DefaultSpacing,
		},
		Medium: MediumConfig{
			Type: "I",
			Rho:  Scalar(DefaultRho),
			C11:  Scalar(DefaultC11),
			C12:  Scalar(DefaultC12),
		},
		Source: SourceConfig{
			XType: "ricker",
			XArgs: []float64{DefaultFm, DefaultDelay},
			ZType: "ricker",
			ZArgs: []float64{DefaultFm, DefaultDelay},
		},
		Boundary: BoundaryConfig{
			Type: "solid",
		},
		Simulation: SimulationConfig{
			EndT: DefaultEndT,
			Dt:   DefaultDt,
			Mode: "periodic",
		},
		Record: RecordConfig{
			Format: "sfd",
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config on top of DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile picks the YAML or INI loader from the file extension.
func LoadFile(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Load(path)
	case ".ini", ".conf", ".cfg":
		return LoadINI(path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve turns the axis definitions into a grid. An axis with a spacing
// keeps it and gets ceil(span/d) cells; an axis with only a count gets
// span/n spacing.
func (g GridConfig) Resolve() (grid.Grid, error) {
	if err := axis("x", g.DX, g.NX); err != nil {
		return grid.Grid{}, err
	}
	if err := axis("z", g.DZ, g.NZ); err != nil {
		return grid.Grid{}, err
	}

	var (
		out grid.Grid
		err error
	)
	if g.DX <= 0 && g.DZ <= 0 {
		out, err = grid.FromCounts(g.XMin, g.XMax, g.NX, g.ZMin, g.ZMax, g.NZ)
	} else {
		out, err = grid.New(g.XMin, g.XMax, spacing(g.XMin, g.XMax, g.DX, g.NX),
			g.ZMin, g.ZMax, spacing(g.ZMin, g.ZMax, g.DZ, g.NZ))
	}
	if err != nil {
		return grid.Grid{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return out, nil
}

func axis(name string, d float64, n int) error {
	if d > 0 || n > 0 {
		return nil
	}
	return fmt.Errorf("%w: %w: %s axis needs d%s or n%s", ErrInvalidConfig, grid.ErrInvalidGrid, name, name, name)
}

// spacing is d when set, the span over n cells otherwise.
func spacing(lo, hi, d float64, n int) float64 {
	if d > 0 {
		return d
	}
	return (hi - lo) / float64(n)
}

// Position maps the physical source position to a grid cell.
func (s SourceConfig) Position(g grid.Grid) (ix, iz int) {
	x, z := g.Center()
	if s.X != nil {
		x = *s.X
	}
	if s.Z != nil {
		z = *s.Z
	}
	return g.Index(x, z)
}

func (c *Config) Validate() error {
	if c.Simulation.Dt <= 0 || c.Simulation.EndT <= 0 {
		return fmt.Errorf("%w: dt=%g endt=%g must be positive", ErrInvalidConfig, c.Simulation.Dt, c.Simulation.EndT)
	}
	if c.Boundary.XAbsorb < 0 || c.Boundary.ZAbsorb < 0 {
		return fmt.Errorf("%w: negative absorbing width", ErrInvalidConfig)
	}
	for _, t := range c.Record.Samples.Times {
		if math.IsNaN(t) || t < 0 {
			return fmt.Errorf("%w: sample time %g", ErrInvalidConfig, t)
		}
	}
	_, err := c.Grid.Resolve()
	return err
}

func Ptr(v float64) *float64 { return &v }
