// Package analysis extracts and characterizes receiver data from recorded
// wavefields.
//
//   - [ExtractTrace]: displacement history of both components at one point
//   - [ExtractSection]: one row of a frame along x at a fixed depth
//   - [PowerSpectrum], [Frequencies]: amplitude spectrum of a trace
//   - [DominantFrequency]: strongest non-zero frequency of a trace
//   - [ParticleMotion], [HodogramToASCII]: ux against uz at a receiver
//
// # Receivers
//
// Receivers are placed by physical position and snapped to the cell that
// contains them:
//
//	tr, err := analysis.ExtractTrace(ux, uz, 500, 300)
//	if err != nil {
//	    return err
//	}
//	f := analysis.DominantFrequency(tr.UZ, tr.Interval())
package analysis
