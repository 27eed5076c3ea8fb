package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// LoadINI reads the sectioned key=value layout on top of DefaultConfig:
//
//	[grid]      xmin xmax dx nx zmin zmax dz nz
//	[medium]    medium_type rho c11 c12 c33 c44 c55
//	[source]    source_x source_z source_x_type source_x_args source_z_type source_z_args
//	[boundary]  boundary_type x_absorb_length z_absorb_length absorb_alpha
//	[simulate]  simulate_time simulate_delta_t use_anti_extension validate_state
//	[save]      save_times save_format
//
// Medium values are numbers or matrix file paths; argument lists are comma
// separated.
func LoadINI(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return fromINI(file)
}

func fromINI(file *ini.File) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Name = ""

	g := file.Section("grid")
	cfg.Grid = GridConfig{
		XMin: g.Key("xmin").MustFloat64(0),
		XMax: g.Key("xmax").MustFloat64(DefaultExtent),
		DX:   g.Key("dx").MustFloat64(0),
		NX:   g.Key("nx").MustInt(0),
		ZMin: g.Key("zmin").MustFloat64(0),
		ZMax: g.Key("zmax").MustFloat64(DefaultExtent),
		DZ:   g.Key("dz").MustFloat64(0),
		NZ:   g.Key("nz").MustInt(0),
	}
	if cfg.Grid.DX == 0 && cfg.Grid.NX == 0 {
		cfg.Grid.DX = DefaultSpacing
	}
	if cfg.Grid.DZ == 0 && cfg.Grid.NZ == 0 {
		cfg.Grid.DZ = DefaultSpacing
	}

	m := file.Section("medium")
	cfg.Medium = MediumConfig{
		Type: m.Key("medium_type").MustString("I"),
		Rho:  ParseValue(m.Key("rho").MustString(fmt.Sprint(DefaultRho))),
		C11:  ParseValue(m.Key("c11").String()),
		C12:  ParseValue(m.Key("c12").String()),
		C33:  ParseValue(m.Key("c33").String()),
		C44:  ParseValue(m.Key("c44").String()),
		C55:  ParseValue(m.Key("c55").String()),
	}

	s := file.Section("source")
	if s.HasKey("source_x") {
		v, err := s.Key("source_x").Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: source_x: %v", ErrInvalidConfig, err)
		}
		cfg.Source.X = Ptr(v)
	}
	if s.HasKey("source_z") {
		v, err := s.Key("source_z").Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: source_z: %v", ErrInvalidConfig, err)
		}
		cfg.Source.Z = Ptr(v)
	}
	cfg.Source.XType = s.Key("source_x_type").MustString(cfg.Source.XType)
	cfg.Source.ZType = s.Key("source_z_type").MustString(cfg.Source.ZType)
	for _, key := range []string{"source_x_args", "source_z_args"} {
		if !s.HasKey(key) {
			continue
		}
		args, err := s.Key(key).StrictFloat64s(",")
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
		if key == "source_x_args" {
			cfg.Source.XArgs = args
		} else {
			cfg.Source.ZArgs = args
		}
	}

	b := file.Section("boundary")
	cfg.Boundary = BoundaryConfig{
		Type:    b.Key("boundary_type").MustString("solid"),
		XAbsorb: b.Key("x_absorb_length").MustInt(0),
		ZAbsorb: b.Key("z_absorb_length").MustInt(0),
		Param:   b.Key("absorb_alpha").MustFloat64(0),
	}

	sim := file.Section("simulate")
	cfg.Simulation.EndT = sim.Key("simulate_time").MustFloat64(cfg.Simulation.EndT)
	cfg.Simulation.Dt = sim.Key("simulate_delta_t").MustFloat64(cfg.Simulation.Dt)
	if sim.Key("use_anti_extension").MustBool(false) {
		cfg.Simulation.Mode = "blended"
	}
	cfg.Simulation.ValidateState = sim.Key("validate_state").MustBool(false)

	save := file.Section("save")
	samples, err := ParseSamples(save.Key("save_times").String())
	if err != nil {
		return nil, err
	}
	cfg.Record = RecordConfig{
		Samples: samples,
		Format:  save.Key("save_format").MustString(cfg.Record.Format),
	}

	return cfg, nil
}
