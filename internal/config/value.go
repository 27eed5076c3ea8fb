package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/psmwave/internal/grid"
)

// Value describes a medium field. In YAML it is a number (uniform field),
// a string (path to a matrix file with nz rows of nx values) or a mapping
// {base, layers} where later layers override earlier ones.
type Value struct {
	Base   float64
	File   string
	Layers []Layer

	set bool
}

// Layer overrides the field over the rectangle [xmin,xmax)×[zmin,zmax).
// A nil bound is unbounded.
type Layer struct {
	Value float64  `yaml:"value"`
	XMin  *float64 `yaml:"xmin,omitempty"`
	XMax  *float64 `yaml:"xmax,omitempty"`
	ZMin  *float64 `yaml:"zmin,omitempty"`
	ZMax  *float64 `yaml:"zmax,omitempty"`
}

type layered struct {
	Base   float64 `yaml:"base"`
	Layers []Layer `yaml:"layers,omitempty"`
}

func Scalar(v float64) Value { return Value{Base: v, set: true} }

func FromFile(path string) Value { return Value{File: path, set: true} }

func Layered(base float64, layers ...Layer) Value {
	return Value{Base: base, Layers: layers, set: true}
}

// ParseValue reads a number or, failing that, a file path.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return Scalar(v)
	}
	return FromFile(s)
}

// IsZero reports an unset value, so omitempty drops it.
func (v Value) IsZero() bool { return !v.set }

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			*v = Value{}
			return nil
		}
		*v = ParseValue(node.Value)
		return nil
	case yaml.MappingNode:
		var l layered
		if err := node.Decode(&l); err != nil {
			return err
		}
		*v = Layered(l.Base, l.Layers...)
		return nil
	}
	return fmt.Errorf("%w: line %d: value must be a number, a path or {base, layers}", ErrInvalidConfig, node.Line)
}

func (v Value) MarshalYAML() (interface{}, error) {
	switch {
	case v.File != "":
		return v.File, nil
	case len(v.Layers) == 0:
		return v.Base, nil
	}
	return layered{Base: v.Base, Layers: v.Layers}, nil
}

// Resolve materializes the value on g. An unset value resolves to nil.
func (v Value) Resolve(g grid.Grid) (*mat.Dense, error) {
	if !v.set {
		return nil, nil
	}
	if v.File != "" {
		return loadMatrix(v.File, g)
	}

	u := g.Uniform(v.Base)
	for _, l := range v.Layers {
		for iz := 0; iz < g.NZ; iz++ {
			z := g.Z(iz)
			if !within(z, l.ZMin, l.ZMax) {
				continue
			}
			for ix := 0; ix < g.NX; ix++ {
				if within(g.X(ix), l.XMin, l.XMax) {
					u.Set(iz, ix, l.Value)
				}
			}
		}
	}
	return u, nil
}

func within(p float64, lo, hi *float64) bool {
	return (lo == nil || p >= *lo) && (hi == nil || p < *hi)
}

// loadMatrix reads nz rows of nx values separated by whitespace or commas.
// Blank lines and lines starting with '#' are skipped.
func loadMatrix(path string, g grid.Grid) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data := make([]float64, 0, g.Cells())
	rows := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) != g.NX {
			return nil, fmt.Errorf("%w: %s:%d has %d columns, want nx=%d", ErrInvalidConfig, path, line, len(fields), g.NX)
		}
		for _, s := range fields {
			x, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s:%d: %v", ErrInvalidConfig, path, line, err)
			}
			data = append(data, x)
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if rows != g.NZ {
		return nil, fmt.Errorf("%w: %s has %d rows, want nz=%d", ErrInvalidConfig, path, rows, g.NZ)
	}
	return mat.NewDense(g.NZ, g.NX, data), nil
}

// Samples requests snapshot times: an integer count in YAML or a list of
// times.
type Samples struct {
	Times []float64
	Count int
}

func (s Samples) IsZero() bool { return s.Count == 0 && len(s.Times) == 0 }

func (s *Samples) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var n int
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("%w: line %d: samples must be a count or a list of times", ErrInvalidConfig, node.Line)
		}
		*s = Samples{Count: n}
		return nil
	case yaml.SequenceNode:
		var times []float64
		if err := node.Decode(&times); err != nil {
			return err
		}
		*s = Samples{Times: times}
		return nil
	}
	return fmt.Errorf("%w: line %d: samples must be a count or a list of times", ErrInvalidConfig, node.Line)
}

func (s Samples) MarshalYAML() (interface{}, error) {
	if len(s.Times) > 0 {
		return s.Times, nil
	}
	return s.Count, nil
}

// ParseSamples reads "30" as a count and "[0.1, 0.2]" or "0.1, 0.2" as
// times.
func ParseSamples(str string) (Samples, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return Samples{}, nil
	}
	bracketed := strings.HasPrefix(str, "[")
	str = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(str, "["), "]"))
	if !bracketed && !strings.Contains(str, ",") {
		n, err := strconv.Atoi(str)
		if err != nil {
			return Samples{}, fmt.Errorf("%w: samples %q", ErrInvalidConfig, str)
		}
		return Samples{Count: n}, nil
	}
	times := make([]float64, 0)
	for _, f := range strings.Split(str, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		t, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Samples{}, fmt.Errorf("%w: sample time %q", ErrInvalidConfig, f)
		}
		times = append(times, t)
	}
	return Samples{Times: times}, nil
}
