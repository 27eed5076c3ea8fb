package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/psmwave/internal/config"
	"github.com/san-kum/psmwave/internal/medium"
	"github.com/san-kum/psmwave/internal/source"
	"github.com/san-kum/psmwave/internal/wave"
)

func smallConfig() *config.Config {
	return &config.Config{
		Name: "small",
		Grid: config.GridConfig{XMax: 320, DX: 10, ZMax: 320, DZ: 10},
		Medium: config.MediumConfig{
			Type: "I",
			Rho:  config.Scalar(1),
			C11:  config.Scalar(4),
			C12:  config.Scalar(2),
		},
		Source: config.SourceConfig{
			XType: "ricker", XArgs: []float64{0.05, 20},
			ZType: "none",
		},
		Boundary:   config.BoundaryConfig{Type: "solid"},
		Simulation: config.SimulationConfig{EndT: 20, Dt: 1},
		Record:     config.RecordConfig{Samples: config.Samples{Count: 5}, Format: "txt"},
	}
}

func TestExperiment_Run(t *testing.T) {
	e := New(smallConfig())
	require.NoError(t, e.Setup())

	assert.Equal(t, 32, e.Grid().NX)
	assert.Equal(t, 20, e.Plan().Steps)
	assert.Equal(t, []int{0, 5, 10, 15}, e.Plan().Indices)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, res.Steps)
	require.NotNil(t, res.UX)
	require.NotNil(t, res.UZ)
	assert.Equal(t, 4, res.UX.NT())
	assert.Equal(t, []float64{0, 5, 10, 15}, res.UX.Times)
	assert.Contains(t, res.Metrics, "energy")
	assert.Equal(t, 1.0, res.Metrics["stability"])
	assert.Equal(t, wave.Terminal, e.Simulator().State())

	meta := e.Metadata(res)
	assert.Equal(t, "I", meta.Medium)
	assert.Equal(t, 16, meta.SourceX)
	assert.Equal(t, 4, meta.Frames)
	assert.Equal(t, "txt", meta.Format)
	assert.InDelta(t, 2.0, meta.VpMax, 1e-12)
	assert.InDelta(t, 0.2, meta.Courant, 1e-12)
}

func TestExperiment_SetupErrors(t *testing.T) {
	unstable := smallConfig()
	unstable.Simulation.Dt = 10
	assert.ErrorIs(t, New(unstable).Setup(), wave.ErrStabilityViolation)

	missing := smallConfig()
	missing.Medium.C12 = config.Value{}
	assert.ErrorIs(t, New(missing).Setup(), medium.ErrMissingField)

	badSource := smallConfig()
	badSource.Source.ZType = "gauss"
	assert.ErrorIs(t, New(badSource).Setup(), source.ErrUnsupportedSource)

	outside := smallConfig()
	outside.Source.X = config.Ptr(-5)
	assert.ErrorIs(t, New(outside).Setup(), source.ErrOutOfGrid)

	assert.Error(t, New(smallConfig()).Setup("entropy"))
}

func TestExperiment_RunBeforeSetup(t *testing.T) {
	_, err := New(smallConfig()).Run(context.Background())
	assert.ErrorIs(t, err, ErrNotSetup)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"none", "ricker"}, r.ListWavelets())
	assert.Equal(t, []string{"energy", "energy_growth", "peak_amplitude", "stability"}, r.ListMetrics())

	w, err := r.GetWavelet("", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, w(1))

	_, err = r.GetWavelet("ricker", nil)
	assert.ErrorIs(t, err, source.ErrMissingArgument)

	w, err = r.GetWavelet("Ricker", []float64{1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, w(0))
}

func TestVary(t *testing.T) {
	base := smallConfig()
	cfgs, err := Vary(base, "fm", []float64{0.1, 0.2})
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	assert.Equal(t, []float64{0.1, 20}, cfgs[0].Source.XArgs)
	assert.Equal(t, []float64{0.2, 20}, cfgs[1].Source.XArgs)
	assert.Equal(t, []float64{0.05, 20}, base.Source.XArgs)
	assert.Equal(t, "small[fm=0.2]", cfgs[1].Name)

	_, err = Vary(base, "rho", []float64{1})
	assert.ErrorIs(t, err, ErrUnknownParameter)
	assert.Equal(t, []string{"alpha", "dt", "endt", "fm"}, SweepParameters())
}

func TestSweepValues(t *testing.T) {
	results, err := SweepValues(context.Background(), smallConfig(), "dt", []float64{1, 0.5}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 20, results[0].Steps)
	assert.Equal(t, 40, results[1].Steps)
	assert.Equal(t, 0.5, results[1].Value)
	assert.InDelta(t, 0.1, results[1].Courant, 1e-12)
	assert.Contains(t, results[0].Metrics, "energy")

	best := Best(results, "peak_amplitude")
	assert.True(t, best == 0 || best == 1)
	assert.Equal(t, -1, Best(results, "missing"))
}

func TestSweep_FailureStopsSweep(t *testing.T) {
	unstable := smallConfig()
	unstable.Simulation.Dt = 10

	_, err := Sweep(context.Background(), []*config.Config{smallConfig(), unstable}, 1)
	assert.ErrorIs(t, err, wave.ErrStabilityViolation)
}
