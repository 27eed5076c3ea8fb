package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/psmwave/internal/analysis"
	"github.com/san-kum/psmwave/internal/config"
	"github.com/san-kum/psmwave/internal/experiment"
	"github.com/san-kum/psmwave/internal/export"
	"github.com/san-kum/psmwave/internal/record"
	"github.com/san-kum/psmwave/internal/storage"
	"github.com/san-kum/psmwave/internal/viz"
)

var (
	dataDir  string
	logLevel string
	// Simulation overrides
	configFile    string
	mediumClass   string
	preset        string
	dt            float64
	endt          float64
	mode          string
	samples       string
	format        string
	validateState bool
	metricNames   []string
	noSave        bool
	// Live view
	frameRate    int
	stepsPerTick int
	clip         float64
	gifPath      string
	// Inspection
	frame     int
	component string
	traceX    float64
	traceZ    float64
	hodogram  bool
	// Export
	jsonOut string
	svgOut  string
	pngOut  string
	gifOut  string
	scale   int
	theme   string
	// Sweep
	sweepParam   string
	sweepValues  []float64
	sweepMetrics []string
	workers      int
	bestMetric   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "psmwave",
		Short: "2D pseudo-spectral elastic wave simulator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".psmwave", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store its snapshots",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimulationFlags(runCmd)
	runCmd.Flags().StringSliceVar(&metricNames, "metrics", nil, "metrics to compute (default energy, peak_amplitude, stability)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation with a live wavefield view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimulationFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")
	liveCmd.Flags().IntVar(&stepsPerTick, "steps", 4, "simulation steps per frame")
	liveCmd.Flags().Float64Var(&clip, "clip", 0, "fixed color scale (0 follows the peak)")
	liveCmd.Flags().StringVar(&gifPath, "gif", "psmwave.gif", "file for recordings")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run details and a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().IntVar(&frame, "frame", -1, "frame index (negative counts from the end)")
	showCmd.Flags().StringVar(&component, "component", "ux", "ux, uz or mag")

	replayCmd := &cobra.Command{
		Use:   "replay [run_id]",
		Short: "play back a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  replayRun,
	}

	traceCmd := &cobra.Command{
		Use:   "trace [run_id]",
		Short: "plot the displacement recorded at one point",
		Args:  cobra.ExactArgs(1),
		RunE:  traceRun,
	}
	traceCmd.Flags().Float64Var(&traceX, "x", 0, "receiver x")
	traceCmd.Flags().Float64Var(&traceZ, "z", 0, "receiver z")
	traceCmd.Flags().BoolVar(&hodogram, "hodogram", false, "plot the particle motion")
	traceCmd.Flags().StringVar(&svgOut, "svg", "", "write the ux trace as SVG")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON, SVG, PNG or GIF",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&jsonOut, "json", "", "metadata and frame summary (- for stdout)")
	exportCmd.Flags().StringVar(&svgOut, "svg", "", "snapshot as SVG")
	exportCmd.Flags().StringVar(&pngOut, "png", "", "snapshot as PNG")
	exportCmd.Flags().StringVar(&gifOut, "gif", "", "all frames as an animated GIF")
	exportCmd.Flags().IntVar(&frame, "frame", -1, "frame index for SVG and PNG")
	exportCmd.Flags().StringVar(&component, "component", "ux", "ux, uz or mag")
	exportCmd.Flags().IntVar(&scale, "scale", 2, "pixels per grid cell")
	exportCmd.Flags().StringVar(&theme, "theme", "seismic", "color theme")
	exportCmd.Flags().Float64Var(&clip, "clip", 0, "fixed color scale (0 uses the peak)")

	presetsCmd := &cobra.Command{
		Use:   "presets [medium]",
		Short: "list available presets, optionally for one medium class",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			media := config.ListMedia()
			if len(args) > 0 {
				media = args
			}
			for _, m := range media {
				presets := config.ListPresets(m)
				if len(presets) == 0 {
					fmt.Printf("no presets for medium: %s\n", m)
					continue
				}
				fmt.Printf("presets for %s:\n", m)
				for _, p := range presets {
					fmt.Printf("  %s\n", p)
				}
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a config file to start from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().StringVar(&mediumClass, "medium", "I", "medium class of the preset")
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark a configuration at several step sizes",
		Args:  cobra.NoArgs,
		RunE:  benchConfig,
	}
	addSimulationFlags(benchCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a configuration over a range of one parameter",
		Args:  cobra.NoArgs,
		RunE:  sweepConfig,
	}
	addSimulationFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "dt", fmt.Sprintf("parameter to vary %v", experiment.SweepParameters()))
	sweepCmd.Flags().Float64SliceVar(&sweepValues, "values", nil, "parameter values")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 uses all CPUs)")
	sweepCmd.Flags().StringSliceVar(&sweepMetrics, "metrics", []string{"energy_growth", "peak_amplitude", "stability"}, "metrics to compute")
	sweepCmd.Flags().StringVar(&bestMetric, "best", "energy_growth", "metric to minimise")
	sweepCmd.MarkFlagRequired("values")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, showCmd, replayCmd, traceCmd, exportCmd, presetsCmd, initCmd, benchCmd, sweepCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func addSimulationFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or ini)")
	cmd.Flags().StringVar(&mediumClass, "medium", "I", "medium class of the preset")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&endt, "time", config.DefaultEndT, "simulated time")
	cmd.Flags().StringVar(&mode, "mode", "periodic", "extension mode (periodic, antisymmetric, blended)")
	cmd.Flags().StringVar(&samples, "samples", "", "snapshot count or comma separated times")
	cmd.Flags().StringVar(&format, "format", "sfd", "record format (sfd, txt)")
	cmd.Flags().BoolVar(&validateState, "validate", false, "stop when the field becomes NaN or Inf")
}

// loadConfig starts from the defaults, a preset or a config file, and
// applies the flags the user set on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(mediumClass, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s/%s (available: %v)", mediumClass, preset, config.ListPresets(mediumClass))
		}
	}
	if configFile != "" {
		c, err := config.LoadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Simulation.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Simulation.EndT = endt
	}
	if flags.Changed("mode") {
		cfg.Simulation.Mode = mode
	}
	if flags.Changed("validate") {
		cfg.Simulation.ValidateState = validateState
	}
	if flags.Changed("samples") {
		s, err := config.ParseSamples(samples)
		if err != nil {
			return nil, err
		}
		cfg.Record.Samples = s
	}
	if flags.Changed("format") {
		cfg.Record.Format = format
	}

	if !flags.Changed("log-level") && cfg.LogLevel != "" {
		lvl, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		log.SetLevel(lvl)
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(metricNames...); err != nil {
		return err
	}

	fmt.Printf("running %s simulation...\n", cfg.Name)
	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", result.Elapsed)
	fmt.Printf("steps: %d\n", result.Steps)
	fmt.Printf("frames: %d\n", len(result.Times))

	if !noSave && result.UX != nil {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(exp.Metadata(result), result.UX, result.UZ, exp.Format())
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp := experiment.New(cfg)
	if err := exp.Setup(); err != nil {
		return err
	}

	// the terminal belongs to the view from here on
	out := log.StandardLogger().Out
	log.SetOutput(io.Discard)
	defer log.SetOutput(out)

	opts := export.DefaultImageOptions()
	opts.Clip = clip
	return viz.RunLive(exp.Simulator(), viz.LiveOptions{
		Title:        cfg.Name,
		StepsPerTick: stepsPerTick,
		FPS:          frameRate,
		Clip:         clip,
		OnRecord: func(frames []*mat.Dense) error {
			return export.SaveGIF(gifPath, frames, opts)
		},
	})
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMEDIUM\tMODE\tGRID\tTIME\tDT\tSTEPS\tFRAMES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%s\t%.2gs\t%d\t%d\n",
			run.ID,
			run.Medium,
			run.Mode,
			run.Grid.NX, run.Grid.NZ,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Dt,
			run.Steps,
			run.Frames,
		)
	}
	return w.Flush()
}

func parseComponent(s string) (viz.Component, error) {
	switch strings.ToLower(s) {
	case "ux", "x":
		return viz.ComponentUX, nil
	case "uz", "z":
		return viz.ComponentUZ, nil
	case "mag", "magnitude":
		return viz.ComponentMagnitude, nil
	}
	return 0, fmt.Errorf("unknown component: %s", s)
}

// pickFrame resolves a frame index that may count from the end.
func pickFrame(r *record.Record, idx int) (int, error) {
	if idx < 0 {
		idx += r.NT()
	}
	if idx < 0 || idx >= r.NT() {
		return 0, fmt.Errorf("frame %d out of range (%d frames)", idx, r.NT())
	}
	return idx, nil
}

func loadRun(runID string) (*storage.RunMetadata, *record.Record, *record.Record, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	ux, uz, err := st.LoadRecords(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	if ux.NT() == 0 {
		return nil, nil, nil, fmt.Errorf("no data in run %s", runID)
	}
	return meta, ux, uz, nil
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, ux, uz, err := loadRun(args[0])
	if err != nil {
		return err
	}
	comp, err := parseComponent(component)
	if err != nil {
		return err
	}
	idx, err := pickFrame(ux, frame)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("medium: %s (%s, %s boundary)\n", meta.Medium, meta.Mode, meta.Boundary)
	fmt.Printf("grid: %dx%d, dx=%g dz=%g\n", meta.Grid.NX, meta.Grid.NZ, meta.Grid.DX, meta.Grid.DZ)
	fmt.Printf("source: (%d, %d)\n", meta.SourceX, meta.SourceZ)
	fmt.Printf("dt: %g, endt: %g, steps: %d\n", meta.Dt, meta.EndT, meta.Steps)
	fmt.Printf("courant: %.4f, vpmax: %.4g, vsmax: %.4g\n\n", meta.Courant, meta.VpMax, meta.VsMax)

	rows := storage.Summarize(ux, uz)
	if len(rows) > 1 {
		energy := make([]float64, len(rows))
		for i, r := range rows {
			energy[i] = r.Energy
		}
		fmt.Println(asciigraph.Plot(energy,
			asciigraph.Height(8),
			asciigraph.Width(64),
			asciigraph.Caption("energy per frame"),
		))
		fmt.Println()
	}

	field := comp.Pick(ux.Frames[idx], uz.Frames[idx])
	hm := viz.NewHeatmap(64, 24)
	fmt.Printf("%s at t=%g (frame %d/%d)\n", comp, ux.Times[idx], idx+1, ux.NT())
	fmt.Println(hm.Render(field))
	fmt.Println(viz.Legend(hm.Theme, hm.Scale(field), 32))
	return nil
}

func replayRun(cmd *cobra.Command, args []string) error {
	meta, ux, uz, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return viz.RunReplay(meta.ID, ux, uz)
}

func traceRun(cmd *cobra.Command, args []string) error {
	meta, ux, uz, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("x") {
		traceX = (ux.XMin + ux.XMax) / 2
	}
	if !cmd.Flags().Changed("z") {
		traceZ = (ux.ZMin + ux.ZMax) / 2
	}

	tr, err := analysis.ExtractTrace(ux, uz, traceX, traceZ)
	if err != nil {
		return err
	}

	fmt.Printf("trace: %s at (%g, %g), cell (%d, %d)\n", meta.ID, tr.X, tr.Z, tr.IX, tr.IZ)
	fmt.Printf("samples: %d\n\n", len(tr.Times))

	if len(tr.Times) > 1 {
		for _, series := range []struct {
			name string
			data []float64
		}{
			{"ux", tr.UX},
			{"uz", tr.UZ},
		} {
			fmt.Println(asciigraph.Plot(series.data,
				asciigraph.Height(10),
				asciigraph.Width(80),
				asciigraph.Caption(series.name),
			))
			fmt.Println()
		}
	}

	if interval := tr.Interval(); interval > 0 {
		fmt.Printf("dominant frequency ux: %.3f hz\n", analysis.DominantFrequency(tr.UX, interval))
		fmt.Printf("dominant frequency uz: %.3f hz\n", analysis.DominantFrequency(tr.UZ, interval))
	} else {
		fmt.Println("irregular sampling, no spectrum")
	}

	points := analysis.ParticleMotion(tr)
	fmt.Printf("linearity: %.3f\n", analysis.Linearity(points))
	if hodogram {
		fmt.Println()
		fmt.Print(analysis.HodogramToASCII(points, 41, 21))
	}

	if svgOut != "" {
		if err := os.WriteFile(svgOut, []byte(export.TraceToSVG(tr.Times, tr.UX, 800, 300, "#00ccff")), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgOut)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	if jsonOut == "" && svgOut == "" && pngOut == "" && gifOut == "" {
		jsonOut = "-"
	}

	meta, ux, uz, err := loadRun(runID)
	if err != nil {
		return err
	}

	if jsonOut != "" {
		rows := storage.Summarize(ux, uz)
		if jsonOut == "-" {
			if err := storage.WriteJSON(os.Stdout, *meta, rows); err != nil {
				return err
			}
		} else {
			if err := storage.ExportJSON(jsonOut, *meta, rows); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", jsonOut)
		}
	}

	comp, err := parseComponent(component)
	if err != nil {
		return err
	}
	opts := export.ImageOptions{
		Theme: viz.GetTheme(theme),
		Clip:  clip,
		Scale: scale,
		Delay: 10,
	}

	if svgOut != "" || pngOut != "" {
		idx, err := pickFrame(ux, frame)
		if err != nil {
			return err
		}
		field := comp.Pick(ux.Frames[idx], uz.Frames[idx])

		if svgOut != "" {
			c := clip
			if c <= 0 {
				c = viz.NewHeatmap(1, 1).Scale(field)
			}
			if err := os.WriteFile(svgOut, []byte(export.FieldToSVG(field, c, opts.Theme, float64(scale))), 0644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", svgOut)
		}
		if pngOut != "" {
			if err := export.SavePNG(pngOut, field, opts); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", pngOut)
		}
	}

	if gifOut != "" {
		frames := make([]*mat.Dense, ux.NT())
		for i := range frames {
			frames[i] = comp.Pick(ux.Frames[i], uz.Frames[i])
		}
		if err := export.SaveGIF(gifOut, frames, opts); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d frames)\n", gifOut, len(frames))
	}
	return nil
}

func benchConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.SetLevel(log.WarnLevel)

	fmt.Printf("benchmarking %s\n\n", cfg.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tCOURANT\tSTEPS\tTIME\tSTEPS/SEC")

	base := cfg.Simulation.Dt
	for _, f := range []float64{1, 0.5, 0.25} {
		c := *cfg
		c.Simulation.Dt = base * f
		c.Record.Samples = config.Samples{Count: 1}

		exp := experiment.New(&c)
		if err := exp.Setup(); err != nil {
			return err
		}

		start := time.Now()
		result, err := exp.Run(cmd.Context())
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		stepsPerSec := float64(result.Steps) / elapsed.Seconds()
		fmt.Fprintf(w, "%.3gs\t%.4f\t%d\t%v\t%.0f\n",
			c.Simulation.Dt, exp.Simulator().Courant(), result.Steps, elapsed, stepsPerSec)
	}
	return w.Flush()
}

func sweepConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.SetLevel(log.WarnLevel)

	fmt.Printf("sweeping %s over %s=%v\n\n", cfg.Name, sweepParam, sweepValues)
	results, err := experiment.SweepValues(cmd.Context(), cfg, sweepParam, sweepValues, workers, sweepMetrics...)
	if err != nil {
		return err
	}

	names := make([]string, 0)
	if len(results) > 0 {
		for name := range results[0].Metrics {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTEPS\tCOURANT\t%s\n", strings.ToUpper(sweepParam), strings.ToUpper(strings.Join(names, "\t")))
	for _, r := range results {
		fmt.Fprintf(w, "%g\t%d\t%.4f", r.Value, r.Steps, r.Courant)
		for _, name := range names {
			fmt.Fprintf(w, "\t%.6g", r.Metrics[name])
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best := experiment.Best(results, bestMetric); best >= 0 {
		fmt.Printf("\nbest %s: %s=%g (%.6g)\n", bestMetric, sweepParam, results[best].Value, results[best].Metrics[bestMetric])
	}
	return nil
}
