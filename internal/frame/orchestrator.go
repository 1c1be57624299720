// Package frame runs the per-frame loop: step the simulation, draw the
// particles, feed the camera and present.
package frame

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/san-kum/gravsim/internal/camera"
	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/input"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/particle"
	"github.com/san-kum/gravsim/internal/sim"
)

// Programs is the shader service as seen by the loop.
type Programs interface {
	Compute() compute.Program
	Render() compute.Program
	Reload() (compute.Stage, error)
}

// Deps are the collaborators an Orchestrator sequences. The orchestrator
// does not own them; the caller releases them after Run returns.
type Deps struct {
	Window   Window
	Device   compute.Device
	Programs Programs
	Buffer   *particle.Buffer
	Stepper  *sim.Stepper
	Camera   *camera.Orbit
}

type Options struct {
	Tracking   TrackingPolicy
	TrackIndex int
	// ReportWindow is the number of frames averaged per frame-time report.
	ReportWindow int
	ClearColor   mgl32.Vec4

	Logger  *zap.Logger
	Metrics *metrics.Collectors
	ID      uuid.UUID
}

// Result describes one frame.
type Result struct {
	Steps    int
	Degraded bool
	Tracked  bool
	Reloaded bool
	Elapsed  time.Duration
}

// Status is a snapshot for heads-up displays.
type Status struct {
	ID        uuid.UUID
	Frames    uint64
	Steps     uint64
	TimeStep  float32
	Particles int
	Degraded  bool
	Paused    bool
	Tracking  TrackingPolicy
	Target    mgl32.Vec3
	Report    metrics.Report
}

// Orchestrator owns the frame sequence for one simulation instance. Frame
// and Run must be called from the thread that owns the device; the request
// methods may be called from anywhere.
type Orchestrator struct {
	Deps
	opts Options
	log  *zap.Logger
	mx   *metrics.Collectors

	stats   *metrics.FrameStats
	last    time.Duration
	started bool

	degraded  bool
	trackFail bool
	paused    bool
	frames    uint64

	closeRequested  atomic.Bool
	reloadRequested atomic.Bool
}

func New(d Deps, opts Options) (*Orchestrator, error) {
	switch {
	case d.Window == nil, d.Device == nil, d.Programs == nil:
		return nil, errors.New("frame: window, device and programs are required")
	case d.Buffer == nil, d.Stepper == nil, d.Camera == nil:
		return nil, errors.New("frame: buffer, stepper and camera are required")
	}
	if opts.TrackIndex < 0 || opts.TrackIndex >= d.Buffer.Count() {
		return nil, fmt.Errorf("frame: track index %d outside [0,%d)", opts.TrackIndex, d.Buffer.Count())
	}
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ClearColor == (mgl32.Vec4{}) {
		opts.ClearColor = mgl32.Vec4{0, 0, 0, 1}
	}

	o := &Orchestrator{
		Deps:  d,
		opts:  opts,
		log:   opts.Logger.With(zap.String("sim_id", opts.ID.String())),
		mx:    opts.Metrics,
		stats: metrics.NewFrameStats(opts.ReportWindow),
	}
	if o.mx != nil {
		o.mx.Particles.Set(float64(d.Buffer.Count()))
		o.mx.TimeStep.Set(float64(d.Stepper.TimeStep()))
	}
	return o, nil
}

func (o *Orchestrator) ID() uuid.UUID       { return o.opts.ID }
func (o *Orchestrator) Logger() *zap.Logger { return o.log }

// Frame runs one iteration of the loop.
func (o *Orchestrator) Frame() Result {
	var res Result

	now := o.Window.Time()
	if o.started {
		res.Elapsed = now - o.last
	}
	o.last, o.started = now, true

	if o.reloadRequested.Swap(false) {
		swapped, _ := o.Reload()
		res.Reloaded = swapped != 0
	}

	o.Window.BeginFrame()

	elapsed := res.Elapsed
	if o.paused {
		elapsed = 0
	}
	n, err := o.Stepper.Advance(elapsed)
	res.Steps = n
	res.Degraded = errors.Is(err, sim.ErrDegraded)
	o.setDegraded(res.Degraded)
	if o.mx != nil && n > 0 {
		o.mx.Steps.Add(float64(n))
		o.mx.Dispatches.Add(float64(n))
	}

	view, proj := o.Camera.View(), o.Camera.Projection()
	c := o.opts.ClearColor
	o.Device.Clear(c[0], c[1], c[2], c[3])
	o.Buffer.BindAsVertexSource(particle.Layout())
	o.Device.DrawPoints(o.Programs.Render(), compute.RenderParams{
		View:       view,
		Projection: proj,
		Count:      o.Buffer.Count(),
	})

	if o.opts.Tracking == TrackEveryFrame {
		res.Tracked = o.track()
	}

	o.Window.Present()
	o.frames++

	took := o.Window.Time() - now
	if o.mx != nil {
		o.mx.FrameSeconds.Observe(took.Seconds())
	}
	if r, ok := o.stats.Observe(took); ok {
		o.log.Info("frame time",
			zap.Duration("mean", r.Mean),
			zap.Float64("fps", r.FPS()),
			zap.Duration("max", r.Max),
			zap.Int("frames", r.Frames),
		)
		if o.mx != nil {
			o.mx.FPS.Set(r.FPS())
		}
	}
	return res
}

// track reads the tracked particle and retargets the camera. A failed map
// skips the update for this frame.
func (o *Orchestrator) track() bool {
	p, err := o.Buffer.ReadParticle(o.opts.TrackIndex)
	if err != nil {
		if o.mx != nil {
			o.mx.Failures.WithLabelValues(metrics.FailureMap).Inc()
		}
		if !o.trackFail {
			o.log.Warn("camera tracking skipped", zap.Int("index", o.opts.TrackIndex), zap.Error(err))
		}
		o.trackFail = true
		return false
	}
	if o.trackFail {
		o.log.Info("camera tracking resumed", zap.Int("index", o.opts.TrackIndex))
		o.trackFail = false
	}
	o.Camera.SetTarget(p.Pos())
	return true
}

func (o *Orchestrator) setDegraded(d bool) {
	if d == o.degraded {
		return
	}
	o.degraded = d
	if d {
		o.log.Warn("simulation degraded: no valid compute program, physics paused")
		if o.mx != nil {
			o.mx.Failures.WithLabelValues(metrics.FailureDegraded).Inc()
		}
		return
	}
	o.log.Info("simulation recovered")
}

// Run calls Frame until the window closes, a close is requested or ctx is
// done, then waits for the device to drain.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.log.Info("simulation started",
		zap.String("device", o.Device.Name()),
		zap.Int("particles", o.Buffer.Count()),
		zap.Duration("fixed_step", o.Stepper.Clock().FixedStep()),
		zap.Stringer("tracking", o.opts.Tracking),
	)
	defer o.Device.Finish()

	for {
		if err := ctx.Err(); err != nil {
			o.log.Info("simulation cancelled", zap.Uint64("frames", o.frames))
			return err
		}
		if o.closeRequested.Load() || o.Window.ShouldClose() {
			o.log.Info("simulation closed", zap.Uint64("frames", o.frames))
			return nil
		}
		o.Frame()
	}
}

// Reload recompiles the programs now and reports which ones were replaced.
// A program that fails to build keeps its previous version in use.
func (o *Orchestrator) Reload() (compute.Stage, error) {
	swapped, err := o.Programs.Reload()
	result := "ok"
	switch {
	case err == nil:
		o.log.Info("programs reloaded")
	case swapped != 0:
		result = "partial"
		o.log.Warn("programs partially reloaded, keeping previous for the rest",
			zap.Stringer("reloaded", swapped),
			zap.Error(err),
		)
	default:
		result = "failed"
		o.log.Error("program reload failed, keeping previous programs", zap.Error(err))
	}
	if o.mx != nil {
		o.mx.Reloads.WithLabelValues(result).Inc()
		if err != nil {
			o.mx.Failures.WithLabelValues(metrics.FailureCompile).Inc()
		}
	}
	return swapped, err
}

// RequestReload schedules a reload at the start of the next frame.
func (o *Orchestrator) RequestReload() { o.reloadRequested.Store(true) }

// RequestClose makes Run return before the next frame.
func (o *Orchestrator) RequestClose() { o.closeRequested.Store(true) }

func (o *Orchestrator) TogglePause() bool {
	o.paused = !o.paused
	o.log.Info("simulation paused", zap.Bool("paused", o.paused))
	return o.paused
}

// ToggleTracking flips between every_frame and never.
func (o *Orchestrator) ToggleTracking() TrackingPolicy {
	if o.opts.Tracking == TrackEveryFrame {
		o.opts.Tracking = TrackNever
	} else {
		o.opts.Tracking = TrackEveryFrame
	}
	o.log.Info("camera tracking changed", zap.Stringer("tracking", o.opts.Tracking))
	return o.opts.Tracking
}

// AdjustTimeStep changes the simulated time step, clamped at zero.
func (o *Orchestrator) AdjustTimeStep(delta float32) float32 {
	ts := o.Stepper.AdjustTimeStep(delta)
	if o.mx != nil {
		o.mx.TimeStep.Set(float64(ts))
	}
	o.log.Debug("time step changed", zap.Float32("time_step", ts))
	return ts
}

// Resize updates the viewport and the camera projection. Zero-sized
// (minimized) windows are ignored.
func (o *Orchestrator) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	o.Device.Viewport(width, height)
	o.Camera.HandleResize(input.ResizeEvent{Width: width, Height: height})
}

func (o *Orchestrator) Status() Status {
	return Status{
		ID:        o.opts.ID,
		Frames:    o.frames,
		Steps:     o.Stepper.Steps(),
		TimeStep:  o.Stepper.TimeStep(),
		Particles: o.Buffer.Count(),
		Degraded:  o.degraded,
		Paused:    o.paused,
		Tracking:  o.opts.Tracking,
		Target:    o.Camera.Target(),
		Report:    o.stats.Report(),
	}
}

// Recent returns the frame times in the current report window.
func (o *Orchestrator) Recent() []time.Duration { return o.stats.Recent() }
