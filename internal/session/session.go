// Package session assembles a runnable simulation from a config: shader
// programs, the particle buffer, the stepper, the camera and the frame
// orchestrator, all on one device.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/san-kum/gravsim/assets"
	"github.com/san-kum/gravsim/internal/camera"
	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/frame"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/particle"
	"github.com/san-kum/gravsim/internal/sim"
)

type Session struct {
	*frame.Orchestrator

	Programs *compute.Programs
	Metrics  *metrics.Collectors

	cfg *config.Config
	log *zap.Logger
}

// ShaderSource returns the embedded shaders, or the directory named by
// cfg.Dir when set.
func ShaderSource(cfg config.ShaderConfig) fs.FS {
	if cfg.Dir == "" {
		return assets.Shaders
	}
	return os.DirFS(cfg.Dir)
}

func initErr(err error) error {
	if errors.Is(err, compute.ErrInitialization) {
		return err
	}
	return fmt.Errorf("%w: %w", compute.ErrInitialization, err)
}

// New builds a session on dev presenting to win. The caller owns dev and
// win; Close releases everything New created. Every error wraps
// compute.ErrInitialization.
func New(dev compute.Device, win frame.Window, cfg *config.Config, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, initErr(err)
	}

	id := uuid.New()
	mx := metrics.NewCollectors(id.String())

	progs, err := compute.LoadPrograms(dev, ShaderSource(cfg.Shaders), cfg.Shaders.Paths, log)
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}
	buf, err := particle.Initialize(dev, cfg.Particles, rng)
	if err != nil {
		progs.Release()
		return nil, initErr(err)
	}

	clock, err := sim.NewClock(cfg.Sim.FixedStep)
	if err != nil {
		buf.Release()
		progs.Release()
		return nil, initErr(err)
	}
	stepper := sim.NewStepper(dev, buf, progs, clock, sim.Params{
		TimeStep:  cfg.Sim.TimeStep,
		G:         float32(cfg.Particles.G),
		Softening: cfg.Sim.Softening,
	})

	orch, err := frame.New(frame.Deps{
		Window:   win,
		Device:   dev,
		Programs: progs,
		Buffer:   buf,
		Stepper:  stepper,
		Camera:   camera.New(cfg.Camera),
	}, frame.Options{
		Tracking:     cfg.Tracking.Policy,
		TrackIndex:   cfg.Tracking.Index,
		ReportWindow: cfg.Sim.ReportWindow,
		Logger:       log,
		Metrics:      mx,
		ID:           id,
	})
	if err != nil {
		buf.Release()
		progs.Release()
		return nil, initErr(err)
	}
	orch.Resize(cfg.Window.Width, cfg.Window.Height)

	return &Session{
		Orchestrator: orch,
		Programs:     progs,
		Metrics:      mx,
		cfg:          cfg,
		log:          orch.Logger(),
	}, nil
}

// Watch requests a reload whenever a shader file changes on disk. Embedded
// shaders never change, so without a shader directory it does nothing.
func (s *Session) Watch(ctx context.Context) error {
	if !s.cfg.Shaders.Watch {
		return nil
	}
	if s.cfg.Shaders.Dir == "" {
		s.log.Warn("shader watch ignored: no shader directory configured")
		return nil
	}
	dirs := shaderDirs(s.cfg.Shaders)
	if err := compute.WatchShaders(ctx, dirs, s.log, s.RequestReload); err != nil {
		return err
	}
	s.log.Info("watching shaders", zap.Strings("dirs", dirs))
	return nil
}

// shaderDirs lists the distinct directories holding the configured shader
// sources.
func shaderDirs(cfg config.ShaderConfig) []string {
	var dirs []string
	for _, p := range []string{cfg.Paths.Compute, cfg.Paths.Vertex, cfg.Paths.Fragment} {
		dirs = append(dirs, filepath.Join(cfg.Dir, filepath.Dir(p)))
	}
	slices.Sort(dirs)
	return slices.Compact(dirs)
}

// ServeMetrics starts the /metrics endpoint in the background when an
// address is configured.
func (s *Session) ServeMetrics(ctx context.Context) {
	addr := s.cfg.MetricsAddr
	if addr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, addr, s.Metrics, s.log); err != nil {
			s.log.Error("metrics endpoint stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}

func (s *Session) Close() {
	s.Buffer.Release()
	s.Programs.Release()
}
