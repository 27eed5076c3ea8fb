package wave_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/psmwave/internal/boundary"
	"github.com/san-kum/psmwave/internal/grid"
	"github.com/san-kum/psmwave/internal/medium"
	"github.com/san-kum/psmwave/internal/source"
	"github.com/san-kum/psmwave/internal/wave"
)

// homogeneous returns an isotropic medium with rho=1, c11=4, c12=2
// (vp=2, vs=1) on an n×n grid with spacing 10.
func homogeneous(n int) *medium.Medium {
	g, err := grid.FromCounts(0, float64(10*n), n, 0, float64(10*n), n)
	Expect(err).NotTo(HaveOccurred())
	m, err := medium.New(medium.Isotropic, g)
	Expect(err).NotTo(HaveOccurred())
	Expect(m.InitByVal(medium.Stiffness{
		Rho: g.Uniform(1),
		C11: g.Uniform(4),
		C12: g.Uniform(2),
	})).To(Succeed())
	return m
}

func centered(m *medium.Medium, w source.Wavelet) source.Source {
	g := m.Grid()
	return source.New(g.NX/2, g.NZ/2, w, w)
}

// poisonAt writes a NaN into the field on its n-th Apply call.
type poisonAt struct{ calls, n int }

func (p *poisonAt) Apply(u *mat.Dense) {
	p.calls++
	if p.calls == p.n {
		u.Set(0, 0, math.NaN())
	}
}

var _ = Describe("Simulator", func() {
	var m *medium.Medium

	BeforeEach(func() {
		m = homogeneous(32)
	})

	Describe("stability gate", func() {
		// vpmax = 2, min spacing = 10
		critical := wave.StabilityLimit * 10 / 2

		It("rejects a time step at or beyond the limit", func() {
			_, err := wave.New(m, centered(m, source.Zero), nil, wave.Config{Dt: 1.01 * critical, EndT: 100})
			Expect(err).To(MatchError(wave.ErrStabilityViolation))

			var se *wave.StabilityError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Courant).To(BeNumerically(">=", se.Limit))
			Expect(se.Limit).To(BeNumerically("~", math.Sqrt2/math.Pi, 1e-15))
		})

		It("accepts a time step with a 10% margin", func() {
			s, err := wave.New(m, centered(m, source.Zero), nil, wave.Config{Dt: 0.9 * critical, EndT: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Courant()).To(BeNumerically("~", 0.9*wave.StabilityLimit, 1e-12))
		})

		It("reports the Courant number from CheckStability", func() {
			c, err := wave.CheckStability(2, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(c).To(BeNumerically("~", 0.2, 1e-15))

			_, err = wave.CheckStability(math.NaN(), 1, 10)
			Expect(err).To(MatchError(wave.ErrStabilityViolation))
		})
	})

	Describe("construction", func() {
		It("rejects non-positive dt and endt", func() {
			_, err := wave.New(m, centered(m, nil), nil, wave.Config{Dt: 0, EndT: 1})
			Expect(err).To(MatchError(wave.ErrInvalidConfig))
			_, err = wave.New(m, centered(m, nil), nil, wave.Config{Dt: 1, EndT: -1})
			Expect(err).To(MatchError(wave.ErrInvalidConfig))
		})

		It("rejects an uninitialized medium", func() {
			raw, err := medium.New(medium.VTI, m.Grid())
			Expect(err).NotTo(HaveOccurred())
			_, err = wave.New(raw, source.New(0, 0, nil, nil), nil, wave.Config{Dt: 1, EndT: 10})
			Expect(err).To(MatchError(wave.ErrInvalidConfig))
			Expect(err).To(MatchError(medium.ErrNotReady))
		})

		It("rejects a source outside the grid", func() {
			_, err := wave.New(m, source.New(32, 0, nil, nil), nil, wave.Config{Dt: 1, EndT: 10})
			Expect(err).To(MatchError(source.ErrOutOfGrid))
		})

		It("starts constructed with zero displacement", func() {
			s, err := wave.New(m, centered(m, nil), nil, wave.Config{Dt: 1, EndT: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.State()).To(Equal(wave.Constructed))
			Expect(s.Time()).To(BeZero())

			ux, uz := s.Snapshot()
			Expect(mat.Norm(ux, 2)).To(BeZero())
			Expect(mat.Norm(uz, 2)).To(BeZero())
		})
	})

	Describe("Forward", func() {
		It("advances the clock by dt per step and then stops", func() {
			s, err := wave.New(m, centered(m, source.RickerWavelet(0.03, 10)), nil, wave.Config{Dt: 0.5, EndT: 1.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.TotalSteps()).To(Equal(3))

			for i := 1; i <= 3; i++ {
				ok, err := s.Forward()
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(s.Step()).To(Equal(i))
				Expect(s.Time()).To(BeNumerically("~", float64(i)*0.5, 1e-15))
			}
			Expect(s.State()).To(Equal(wave.Terminal))

			before, _ := s.Snapshot()
			ok, err := s.Forward()
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(s.Step()).To(Equal(3))

			after, _ := s.Snapshot()
			Expect(mat.Equal(before, after)).To(BeTrue())
		})

		It("enters Running on the first step", func() {
			s, err := wave.New(m, centered(m, nil), nil, wave.Config{Dt: 1, EndT: 10})
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Forward()
			Expect(err).NotTo(HaveOccurred())
			Expect(s.State()).To(Equal(wave.Running))
		})

		It("scales the injected source by dt²/rho", func() {
			// doubling rho and the stiffness keeps the force per unit mass, so
			// only the injection changes and the response halves
			g := m.Grid()
			heavy, err := medium.New(medium.Isotropic, g)
			Expect(err).NotTo(HaveOccurred())
			Expect(heavy.InitByVal(medium.Stiffness{
				Rho: g.Uniform(2),
				C11: g.Uniform(8),
				C12: g.Uniform(4),
			})).To(Succeed())

			w := source.RickerWavelet(0.03, 0)
			run := func(m *medium.Medium) *mat.Dense {
				s, err := wave.New(m, source.New(5, 7, w, nil), nil, wave.Config{Dt: 1, EndT: 3})
				Expect(err).NotTo(HaveOccurred())
				for i := 0; i < 3; i++ {
					_, err := s.Forward()
					Expect(err).NotTo(HaveOccurred())
				}
				ux, _ := s.Snapshot()
				return ux
			}

			light := run(m)
			Expect(light.At(7, 5)).NotTo(BeZero())

			var half mat.Dense
			half.Scale(0.5, light)
			Expect(mat.EqualApprox(&half, run(heavy), 1e-12)).To(BeTrue())
		})

		It("hands out copies from Snapshot", func() {
			s, err := wave.New(m, centered(m, source.RickerWavelet(0.03, 0)), nil, wave.Config{Dt: 1, EndT: 10})
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Forward()
			Expect(err).NotTo(HaveOccurred())

			ux, _ := s.Snapshot()
			ux.Zero()
			again, _ := s.Snapshot()
			Expect(mat.Norm(again, 2)).To(BeNumerically(">", 0))
		})

		It("fails with ErrDiverged on a non-finite field when validating", func() {
			nan := func(float64) float64 { return math.NaN() }
			s, err := wave.New(m, centered(m, nan), nil, wave.Config{Dt: 1, EndT: 10, ValidateState: true})
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Forward()
			Expect(err).To(MatchError(wave.ErrDiverged))
			var se *wave.StepError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Step).To(Equal(0))
		})
	})

	Describe("Blended mode", func() {
		It("reports the mean of the periodic and anti-symmetric tracks", func() {
			w := source.RickerWavelet(0.03, 20)
			run := func(mode wave.Mode) (*mat.Dense, *mat.Dense) {
				s, err := wave.New(m, centered(m, w), nil, wave.Config{Dt: 1, EndT: 15, Mode: mode})
				Expect(err).NotTo(HaveOccurred())
				for {
					ok, err := s.Forward()
					Expect(err).NotTo(HaveOccurred())
					if !ok {
						break
					}
				}
				return s.Snapshot()
			}

			px, pz := run(wave.Periodic)
			ax, az := run(wave.AntiSymmetric)
			bx, bz := run(wave.Blended)

			var want mat.Dense
			want.Add(px, ax)
			want.Scale(0.5, &want)
			Expect(mat.EqualApprox(&want, bx, 1e-12)).To(BeTrue())

			want.Add(pz, az)
			want.Scale(0.5, &want)
			Expect(mat.EqualApprox(&want, bz, 1e-12)).To(BeTrue())
		})

		It("leaves both tracks untouched when the second one diverges", func() {
			w := source.RickerWavelet(0.03, 20)
			cfg := wave.Config{Dt: 1, EndT: 10, Mode: wave.Blended, ValidateState: true}

			// calls 1 and 2 are the periodic track, 3 is the anti-symmetric ux
			s, err := wave.New(m, centered(m, w), &poisonAt{n: 3}, cfg)
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Forward()
			Expect(err).To(MatchError(wave.ErrDiverged))
			Expect(s.Step()).To(Equal(0))
			ux, uz := s.Snapshot()
			Expect(mat.Norm(ux, 2)).To(BeZero())
			Expect(mat.Norm(uz, 2)).To(BeZero())

			ok, err := s.Forward()
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			clean, err := wave.New(m, centered(m, w), nil, cfg)
			Expect(err).NotTo(HaveOccurred())
			_, err = clean.Forward()
			Expect(err).NotTo(HaveOccurred())

			gotX, gotZ := s.Snapshot()
			wantX, wantZ := clean.Snapshot()
			Expect(mat.Equal(gotX, wantX)).To(BeTrue())
			Expect(mat.Equal(gotZ, wantZ)).To(BeTrue())
		})
	})

	Describe("end to end", func() {
		It("keeps the wavefield inside the causal radius", func() {
			m := homogeneous(100)
			g := m.Grid()
			rigid, err := boundary.NewRigid(g.NX, g.NZ, 0, 0, 0)
			Expect(err).NotTo(HaveOccurred())

			dt := 1.0
			s, err := wave.New(m, centered(m, source.RickerWavelet(0.03, 30)), rigid, wave.Config{Dt: dt, EndT: 50 * dt})
			Expect(err).NotTo(HaveOccurred())

			steps := 0
			for {
				ok, err := s.Forward()
				Expect(err).NotTo(HaveOccurred())
				if !ok {
					break
				}
				steps++
			}
			Expect(steps).To(Equal(50))
			Expect(s.Time()).To(BeNumerically("~", 50*dt, 1e-9))

			ux, uz := s.Snapshot()
			radius := m.VpMax() * s.Time() / g.DX // cells
			var inside, outside float64
			for iz := 0; iz < g.NZ; iz++ {
				for ix := 0; ix < g.NX; ix++ {
					e := ux.At(iz, ix)*ux.At(iz, ix) + uz.At(iz, ix)*uz.At(iz, ix)
					if math.Hypot(float64(ix-50), float64(iz-50)) <= radius {
						inside += e
					} else {
						outside += e
					}
				}
			}
			Expect(inside).To(BeNumerically(">", 0))
			Expect(outside / (inside + outside)).To(BeNumerically("<", 1e-2))
		})
	})
})
