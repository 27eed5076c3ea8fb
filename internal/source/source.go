// Package source provides time-dependent excitation terms injected at a
// single grid cell.
package source

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrUnsupportedSource = errors.New("source: unsupported source type")
	ErrMissingArgument   = errors.New("source: missing wavelet argument")
	ErrOutOfGrid         = errors.New("source: position outside grid")
)

// Wavelet maps simulation time to excitation amplitude.
type Wavelet func(t float64) float64

type Kind int

const (
	None Kind = iota
	Ricker
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Ricker:
		return "ricker"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "ricker":
		return Ricker, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedSource, s)
}

// NewWavelet builds the wavelet for kind from its positional arguments.
// Ricker takes the peak frequency and an optional delay.
func NewWavelet(kind Kind, args ...float64) (Wavelet, error) {
	switch kind {
	case None:
		return Zero, nil
	case Ricker:
		if len(args) < 1 {
			return nil, fmt.Errorf("%w: ricker needs a peak frequency", ErrMissingArgument)
		}
		delay := 0.0
		if len(args) > 1 {
			delay = args[1]
		}
		return RickerWavelet(args[0], delay), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, kind)
}

// Zero is the silent wavelet.
func Zero(float64) float64 { return 0 }

// RickerWavelet returns (1 - 2a²)·exp(-a²) with a = π·fm·(t - delay).
func RickerWavelet(fm, delay float64) Wavelet {
	return func(t float64) float64 {
		a := math.Pi * fm * (t - delay)
		a *= a
		return (1 - 2*a) * math.Exp(-a)
	}
}

// Source is a point excitation at cell (SX, SZ) with independent wavelets
// for the x and z displacement components.
type Source struct {
	SX, SZ int
	FX, FZ Wavelet
}

func New(sx, sz int, fx, fz Wavelet) Source {
	if fx == nil {
		fx = Zero
	}
	if fz == nil {
		fz = Zero
	}
	return Source{SX: sx, SZ: sz, FX: fx, FZ: fz}
}

// Validate checks that the source cell lies on an nx×nz grid.
func (s Source) Validate(nx, nz int) error {
	if s.SX < 0 || s.SX >= nx || s.SZ < 0 || s.SZ >= nz {
		return fmt.Errorf("%w: (%d,%d) not in [0,%d)x[0,%d)", ErrOutOfGrid, s.SX, s.SZ, nx, nz)
	}
	return nil
}

// Amplitude returns the x and z excitation at time t.
func (s Source) Amplitude(t float64) (fx, fz float64) {
	return s.FX(t), s.FZ(t)
}
