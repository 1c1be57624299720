package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/export"
	"github.com/san-kum/gravsim/internal/frame"
	"github.com/san-kum/gravsim/internal/gui"
	"github.com/san-kum/gravsim/internal/logging"
	"github.com/san-kum/gravsim/internal/session"
	"github.com/san-kum/gravsim/internal/tui"
	"github.com/san-kum/gravsim/internal/viz"
)

var (
	configFile  string
	preset      string
	backend     string
	seed        uint64
	particles   int
	fixedStep   time.Duration
	timeStep    float32
	softening   float32
	track       string
	trackIndex  int
	shaderDir   string
	watch       bool
	metricsAddr string
	logLevel    string
	logFile     string

	// bench
	frames int
	counts []int

	// snapshot
	snapFrames int

	// config
	outFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "gravsim",
		Short:        "gpu n-body particle simulation",
		SilenceUsage: true,
		RunE:         runGUI,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "disc", "preset configuration")
	pf.StringVar(&backend, "backend", "opengl", "compute backend (opengl, cpu)")
	pf.Uint64Var(&seed, "seed", 0, "random seed (0 for a random one)")
	pf.IntVar(&particles, "particles", 0, "particle count")
	pf.DurationVar(&fixedStep, "fixed-step", config.DefaultFixedStep, "wall-clock time per physics step")
	pf.Float32Var(&timeStep, "time-step", config.DefaultTimeStep, "simulated time per physics step")
	pf.Float32Var(&softening, "softening", config.DefaultSoftening, "gravitational softening length")
	pf.StringVar(&track, "track", "every_frame", "camera tracking policy (every_frame, never)")
	pf.IntVar(&trackIndex, "track-index", 0, "index of the tracked particle")
	pf.StringVar(&shaderDir, "shaders", "", "load shaders from this directory instead of the embedded copies")
	pf.BoolVar(&watch, "watch", false, "reload shaders when files in --shaders change")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	pf.StringVar(&logLevel, "log-level", "info", "log level")
	pf.StringVar(&logFile, "log-file", "", "write logs to this file")

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "run the simulation in a window",
		RunE:  runGUI,
	}

	headlessCmd := &cobra.Command{
		Use:   "headless",
		Short: "run the simulation in the terminal on the software device",
		RunE:  runHeadless,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the software device",
		RunE:  runBench,
	}
	benchCmd.Flags().IntVar(&frames, "frames", 300, "frames per run")
	benchCmd.Flags().IntSliceVar(&counts, "counts", []int{1024, 5120, 20480}, "particle counts to benchmark")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [file.csv|file.svg]",
		Short: "run frames on the software device and save the particles",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshot,
	}
	snapshotCmd.Flags().IntVar(&snapFrames, "frames", 120, "frames to run before saving")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tPARTICLES\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%s\n", name, cfg.Particles.Count, config.Presets[name].Description)
			}
			return w.Flush()
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the resolved configuration as yaml",
		RunE:  printConfig,
	}
	configCmd.Flags().StringVarP(&outFile, "out", "o", "", "write to this file instead of stdout")

	rootCmd.AddCommand(guiCmd, headlessCmd, benchCmd, snapshotCmd, presetsCmd, configCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig layers preset, config file and flags, in that order. A flag
// only overrides the file when it was set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}

	if configFile != "" {
		if _, err := config.LoadOver(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("particles") {
		cfg.Particles.Count = particles
	}
	if flags.Changed("fixed-step") {
		cfg.Sim.FixedStep = fixedStep
	}
	if flags.Changed("time-step") {
		cfg.Sim.TimeStep = timeStep
	}
	if flags.Changed("softening") {
		cfg.Sim.Softening = softening
	}
	if flags.Changed("track") {
		p, err := frame.ParseTrackingPolicy(track)
		if err != nil {
			return nil, err
		}
		cfg.Tracking.Policy = p
	}
	if flags.Changed("track-index") {
		cfg.Tracking.Index = trackIndex
	}
	if flags.Changed("shaders") {
		cfg.Shaders.Dir = shaderDir
	}
	if flags.Changed("watch") {
		cfg.Shaders.Watch = watch
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.Output = []string{logFile}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}

func finish(log *zap.Logger, err error) error {
	defer log.Sync()
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, compute.ErrInitialization):
		log.Error("initialization failed", zap.Error(err))
	default:
		log.Error("simulation failed", zap.Error(err))
	}
	return err
}

func runGUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Backend == "cpu" {
		return runTerminal(cmd, cfg)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	return finish(log, gui.Run(cmd.Context(), cfg, log))
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return runTerminal(cmd, cfg)
}

// runTerminal logs to a file unless told otherwise, so the log does not
// tear the display.
func runTerminal(cmd *cobra.Command, cfg *config.Config) error {
	cfg.Backend = "cpu"
	if len(cfg.Log.Output) == 0 {
		cfg.Log.Output = []string{"gravsim.log"}
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	return finish(log, tui.Run(cmd.Context(), cfg, log))
}

func runBench(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(base)
	if err != nil {
		return err
	}
	defer log.Sync()
	base.Backend = "cpu"

	fmt.Printf("benchmarking %d frames per run\n\n", frames)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARTICLES\tFRAMES\tSTEPS\tTIME\tMEAN FRAME\tFPS\tSTEPS/SEC")

	var last []float64
	for _, n := range counts {
		cfg := *base
		cfg.Particles.Count = n
		cfg.Tracking.Index = min(cfg.Tracking.Index, n-1)

		dev := compute.NewCPUDevice()
		s, err := session.New(dev, frame.NewRealtimeWindow(), &cfg, log.Named("bench"))
		if err != nil {
			return finish(log, err)
		}

		ms := make([]float64, 0, frames)
		start := time.Now()
		for i := 0; i < frames; i++ {
			if err := cmd.Context().Err(); err != nil {
				s.Close()
				return finish(log, err)
			}
			t := time.Now()
			s.Frame()
			ms = append(ms, float64(time.Since(t))/float64(time.Millisecond))
		}
		elapsed := time.Since(start)
		st := s.Status()
		s.Close()
		dev.Close()

		mean := elapsed / time.Duration(max(frames, 1))
		fmt.Fprintf(w, "%d\t%d\t%d\t%v\t%v\t%.0f\t%.0f\n",
			n, frames, st.Steps, elapsed.Round(time.Millisecond), mean.Round(time.Microsecond),
			float64(frames)/elapsed.Seconds(), float64(st.Steps)/elapsed.Seconds())
		last = ms
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(last) > 1 {
		graph := asciigraph.Plot(last,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("frame ms (%d particles)", counts[len(counts)-1])),
		)
		fmt.Println()
		fmt.Println(graph)
	}
	return nil
}

// runSnapshot steps on a fixed clock, so the same seed always saves the
// same particles.
func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	cfg.Backend = "cpu"

	canvas := viz.NewCanvas(100, 50)
	cfg.Window.Width, cfg.Window.Height = canvas.Dots()
	dev := compute.NewCPUDevice(compute.WithCanvas(canvas))
	defer dev.Close()

	s, err := session.New(dev, frame.NewSteppedWindow(cfg.Sim.FixedStep), cfg, log)
	if err != nil {
		return finish(log, err)
	}
	defer s.Close()

	for i := 0; i < snapFrames; i++ {
		s.Frame()
	}
	ps, err := s.Buffer.Snapshot()
	if err != nil {
		return finish(log, err)
	}
	if err := export.SaveSnapshot(args[0], ps, canvas); err != nil {
		return finish(log, err)
	}
	log.Info("snapshot saved",
		zap.String("path", args[0]),
		zap.Int("particles", len(ps)),
		zap.Uint64("steps", s.Status().Steps),
	)
	fmt.Printf("wrote %s\n", args[0])
	return finish(log, nil)
}

func printConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if outFile != "" {
		if err := config.Save(outFile, cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outFile)
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}
