package config

import "sort"

func ricker(fm, delay float64) SourceConfig {
	return SourceConfig{
		XType: "ricker", XArgs: []float64{fm, delay},
		ZType: "ricker", ZArgs: []float64{fm, delay},
	}
}

func square(extent, spacing float64) GridConfig {
	return GridConfig{XMax: extent, DX: spacing, ZMax: extent, DZ: spacing}
}

// Presets are keyed by medium class, then by scenario name.
var Presets = map[string]map[string]*Config{
	"I": {
		"homogeneous": {
			Name: "homogeneous", Grid: square(1000, 5),
			Medium: MediumConfig{Type: "I", Rho: Scalar(3.8), C11: Scalar(76.95e6), C12: Scalar(25.65e6)},
			Source: ricker(40, 0.03), Boundary: BoundaryConfig{Type: "solid"},
			Simulation: SimulationConfig{EndT: 0.12, Dt: 2e-4, Mode: "periodic"},
			Record:     RecordConfig{Samples: Samples{Count: 30}, Format: "sfd"},
		},
		"absorbing": {
			Name: "absorbing", Grid: square(1000, 5),
			Medium: MediumConfig{Type: "I", Rho: Scalar(3.8), C11: Scalar(76.95e6), C12: Scalar(25.65e6)},
			Source: ricker(40, 0.03), Boundary: BoundaryConfig{Type: "atten", XAbsorb: 20, ZAbsorb: 20, Param: 0.015},
			Simulation: SimulationConfig{EndT: 0.2, Dt: 2e-4, Mode: "periodic"},
			Record:     RecordConfig{Samples: Samples{Count: 40}, Format: "sfd"},
		},
		"lens": {
			Name: "lens", Grid: square(1280, 4),
			Medium: MediumConfig{
				Type: "I",
				Rho: Layered(3.8,
					Layer{Value: 2.8, ZMin: Ptr(600)},
					Layer{Value: 3.8, XMin: Ptr(520), XMax: Ptr(760), ZMin: Ptr(600), ZMax: Ptr(800)},
				),
				C11: Layered(76.95e6,
					Layer{Value: 34.3e6, ZMin: Ptr(600)},
					Layer{Value: 76.95e6, XMin: Ptr(520), XMax: Ptr(760), ZMin: Ptr(600), ZMax: Ptr(800)},
				),
				C12: Layered(25.65e6,
					Layer{Value: 11.43e6, ZMin: Ptr(600)},
					Layer{Value: 25.65e6, XMin: Ptr(520), XMax: Ptr(760), ZMin: Ptr(600), ZMax: Ptr(800)},
				),
			},
			Source:     SourceConfig{Z: Ptr(500), XType: "ricker", XArgs: []float64{40, 0.03}, ZType: "ricker", ZArgs: []float64{40, 0.03}},
			Boundary:   BoundaryConfig{Type: "solid"},
			Simulation: SimulationConfig{EndT: 0.13, Dt: 2e-4, Mode: "blended"},
			Record:     RecordConfig{Samples: Samples{Count: 50}, Format: "sfd"},
		},
	},
	"VTI": {
		"shale": {
			Name: "shale", Grid: square(1000, 4),
			Medium: MediumConfig{
				Type: "VTI", Rho: Scalar(2.8), C11: Scalar(26.4e6), C12: Scalar(6.11e6),
				C33: Scalar(15.6e6), C44: Scalar(4.38e6),
			},
			Source: SourceConfig{XType: "none", ZType: "ricker", ZArgs: []float64{30, 0.04}}, Boundary: BoundaryConfig{Type: "solid"},
			Simulation: SimulationConfig{EndT: 0.18, Dt: 2e-4, Mode: "periodic"},
			Record:     RecordConfig{Samples: Samples{Count: 30}, Format: "sfd"},
		},
	},
	"HTI": {
		"fractured": {
			Name: "fractured", Grid: square(1000, 4),
			Medium: MediumConfig{
				Type: "HTI", Rho: Scalar(2.8), C11: Scalar(15.6e6), C12: Scalar(6.11e6),
				C33: Scalar(26.4e6), C55: Scalar(4.38e6),
			},
			Source: SourceConfig{XType: "none", ZType: "ricker", ZArgs: []float64{30, 0.04}}, Boundary: BoundaryConfig{Type: "solid"},
			Simulation: SimulationConfig{EndT: 0.18, Dt: 2e-4, Mode: "periodic"},
			Record:     RecordConfig{Samples: Samples{Count: 30}, Format: "sfd"},
		},
		"fractured-absorbing": {
			Name: "fractured-absorbing", Grid: square(1000, 4),
			Medium: MediumConfig{
				Type: "HTI", Rho: Scalar(2.8), C11: Scalar(15.6e6), C12: Scalar(6.11e6),
				C33: Scalar(26.4e6), C55: Scalar(4.38e6),
			},
			Source:     SourceConfig{XType: "none", ZType: "ricker", ZArgs: []float64{30, 0.04}},
			Boundary:   BoundaryConfig{Type: "atten", XAbsorb: 20, ZAbsorb: 20, Param: 0.015},
			Simulation: SimulationConfig{EndT: 0.18, Dt: 2e-4, Mode: "periodic"},
			Record:     RecordConfig{Samples: Samples{Count: 30}, Format: "sfd"},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(medium, preset string) *Config {
	mediumPresets, ok := Presets[medium]
	if !ok {
		return nil
	}
	cfg, ok := mediumPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	c.LogLevel = "info"
	return &c
}

func ListPresets(medium string) []string {
	mediumPresets, ok := Presets[medium]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(mediumPresets))
	for name := range mediumPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListMedia() []string {
	media := make([]string, 0, len(Presets))
	for m := range Presets {
		media = append(media, m)
	}
	sort.Strings(media)
	return media
}
