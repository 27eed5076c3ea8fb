// Package spectral implements Fourier-domain spatial differentiation on a
// regular grid (the pseudo-spectral method).
//
// Every derivative is computed by one row kernel: transform each row along
// x, multiply by (ik) or (-k²), transform back and keep the real part.
// Derivatives along z transpose the field, run the same kernel with the z
// wavenumbers and transpose back.
//
// With the [AntiSymmetric] extension each row is concatenated with its
// negation before the transform (length 2n), which suppresses the
// wraparound of non-periodic fields; only the first n outputs are kept.
package spectral

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/psmwave/internal/grid"
	"gonum.org/v1/gonum/mat"
)

// Extension selects how a field is continued beyond the domain before it is
// transformed.
type Extension int

const (
	// Periodic transforms the field as is.
	Periodic Extension = iota
	// AntiSymmetric transforms [u, -u] along the differentiated axis.
	AntiSymmetric
)

func (e Extension) String() string {
	switch e {
	case Periodic:
		return "periodic"
	case AntiSymmetric:
		return "anti"
	default:
		return fmt.Sprintf("Extension(%d)", int(e))
	}
}

// Wavenumbers returns the signed DFT wavenumbers for n samples spaced d
// apart: k[i] = i*step for i <= n/2, (i-n)*step otherwise, with
// step = 2π/(n·d).
func Wavenumbers(n int, d float64) []float64 {
	k := make([]float64, n)
	step := 2 * math.Pi / (float64(n) * d)
	for i := range k {
		if i <= n/2 {
			k[i] = float64(i) * step
		} else {
			k[i] = float64(i-n) * step
		}
	}
	return k
}

// Operator differentiates nz×nx fields. It is immutable and safe to share.
type Operator struct {
	ext    Extension
	nx, nz int
	kx, kz []float64

	// spectral multipliers, indexed [order-1]
	mx, mz [2][]complex128
}

// New builds an operator for fields on g.
func New(g grid.Grid, ext Extension) *Operator {
	f := 1
	if ext == AntiSymmetric {
		f = 2
	}
	op := &Operator{
		ext: ext,
		nx:  g.NX,
		nz:  g.NZ,
		kx:  Wavenumbers(f*g.NX, g.DX),
		kz:  Wavenumbers(f*g.NZ, g.DZ),
	}
	op.mx = multipliers(op.kx)
	op.mz = multipliers(op.kz)
	return op
}

func multipliers(k []float64) [2][]complex128 {
	first := make([]complex128, len(k))
	second := make([]complex128, len(k))
	for i, v := range k {
		first[i] = complex(0, v)
		second[i] = complex(-v*v, 0)
	}
	return [2][]complex128{first, second}
}

func (op *Operator) Extension() Extension { return op.ext }

// Kx returns a copy of the x wavenumbers (length nx, or 2nx when extended).
func (op *Operator) Kx() []float64 { return append([]float64(nil), op.kx...) }

// Kz returns a copy of the z wavenumbers (length nz, or 2nz when extended).
func (op *Operator) Kz() []float64 { return append([]float64(nil), op.kz...) }

// Dx returns ∂u/∂x.
func (op *Operator) Dx(u *mat.Dense) *mat.Dense { return op.alongX(u, op.mx[0]) }

// Dxx returns ∂²u/∂x².
func (op *Operator) Dxx(u *mat.Dense) *mat.Dense { return op.alongX(u, op.mx[1]) }

// Dz returns ∂u/∂z.
func (op *Operator) Dz(u *mat.Dense) *mat.Dense { return op.alongZ(u, op.mz[0]) }

// Dzz returns ∂²u/∂z².
func (op *Operator) Dzz(u *mat.Dense) *mat.Dense { return op.alongZ(u, op.mz[1]) }

func (op *Operator) alongX(u *mat.Dense, m []complex128) *mat.Dense {
	op.checkShape(u)
	return op.rows(u, m)
}

func (op *Operator) alongZ(u *mat.Dense, m []complex128) *mat.Dense {
	op.checkShape(u)
	var ut mat.Dense
	ut.CloneFrom(u.T())
	d := op.rows(&ut, m)
	var out mat.Dense
	out.CloneFrom(d.T())
	return &out
}

func (op *Operator) checkShape(u *mat.Dense) {
	r, c := u.Dims()
	if r != op.nz || c != op.nx {
		panic(fmt.Sprintf("spectral: field is %dx%d, operator expects %dx%d: %v", r, c, op.nz, op.nx, mat.ErrShape))
	}
}

// rows differentiates every row of u with multiplier m. len(m) is either
// the row length or twice it (anti-symmetric extension). Rows are split
// across goroutines, each with its own transform buffer.
func (op *Operator) rows(u *mat.Dense, m []complex128) *mat.Dense {
	r, c := u.Dims()
	n := len(m)
	out := mat.NewDense(r, c, nil)

	parallelFor(r, func(start, end int) {
		buf := make([]complex128, n)
		for i := start; i < end; i++ {
			row := u.RawRowView(i)
			for j, v := range row {
				buf[j] = complex(v, 0)
			}
			if n > c {
				for j, v := range row {
					buf[c+j] = complex(-v, 0)
				}
			}

			spec := fft.FFT(buf)
			for j := range spec {
				spec[j] *= m[j]
			}
			res := fft.IFFT(spec)

			dst := out.RawRowView(i)
			for j := range dst {
				dst[j] = real(res[j])
			}
		}
	})
	return out
}
