package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// PowerSpectrum returns |X[k]| for k in [0, n/2] of the real signal data.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	spec := fft.FFTReal(data)
	ps := make([]float64, len(data)/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}

// Frequencies are the bin centers of PowerSpectrum for n samples spaced dt
// apart.
func Frequencies(n int, dt float64) []float64 {
	if n == 0 || dt <= 0 {
		return nil
	}
	out := make([]float64, n/2+1)
	for k := range out {
		out[k] = float64(k) / (float64(n) * dt)
	}
	return out
}

// DominantFrequency is the frequency of the strongest bin above DC, or 0
// when the trace is too short or dt is not positive.
func DominantFrequency(data []float64, dt float64) float64 {
	if len(data) < 2 || dt <= 0 {
		return 0
	}
	ps := PowerSpectrum(data)
	k := floats.MaxIdx(ps[1:]) + 1
	return Frequencies(len(data), dt)[k]
}
