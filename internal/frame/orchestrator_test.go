package frame_test

import (
	"context"
	"errors"
	"testing/fstest"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/gravsim/internal/frame"
	"github.com/san-kum/gravsim/internal/input"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
)

var _ = Describe("Orchestrator", func() {
	Describe("a frame", func() {
		It("takes no steps on the first frame", func() {
			h := newHarness(setup{})
			res := h.orch.Frame()
			Expect(res.Steps).To(BeZero())
			Expect(res.Elapsed).To(BeZero())
			Expect(h.win.begins).To(Equal(1))
			Expect(h.win.Frames()).To(Equal(uint64(1)))
		})

		It("orders dispatch, draw and readback with a barrier at each hand-off", func() {
			h := newHarness(setup{})
			h.orch.Frame()
			h.dev.reset()

			res := h.orch.Frame()
			Expect(res.Steps).To(Equal(1))
			Expect(res.Tracked).To(BeTrue())
			Expect(h.dev.calls).To(Equal([]string{
				"bind storage",
				"dispatch 1",
				"barrier storage",
				"clear",
				"barrier vertex_attrib",
				"bind vertex",
				"draw 100",
				"barrier host_read",
				"map",
				"unmap",
			}))
		})

		It("skips both consumer barriers when nothing was dispatched", func() {
			h := newHarness(setup{})
			h.orch.Frame()
			Expect(h.dev.calls).To(Equal([]string{"clear", "bind vertex", "draw 100", "map", "unmap"}))
		})

		It("runs three dispatches for 1+99 particles over three fixed steps", func() {
			h := newHarness(setup{count: 100, step: 3 * fixedStep})
			h.orch.Frame()
			res := h.orch.Frame()

			Expect(res.Steps).To(Equal(3))
			Expect(h.stepper.Clock().Accumulator()).To(BeZero())
			Expect(h.dev.Stats().Dispatches).To(Equal(uint64(3)))
			Expect(testutil.ToFloat64(h.mx.Dispatches)).To(Equal(3.0))

			central, err := h.buf.ReadParticle(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(central.Position).To(Equal(mgl32.Vec4{0, 0, 0, 1e9}))
		})
	})

	Describe("tracking", func() {
		It("points the camera at the tracked particle every frame", func() {
			h := newHarness(setup{tracking: frame.TrackEveryFrame, index: 5})
			for i := 0; i < 4; i++ {
				h.orch.Frame()
			}
			p, err := h.buf.ReadParticle(5)
			Expect(err).NotTo(HaveOccurred())
			Expect(h.cam.Target()).To(Equal(p.Pos()))
			Expect(h.orch.Status().Target).To(Equal(p.Pos()))
		})

		It("never reads back with the never policy", func() {
			h := newHarness(setup{tracking: frame.TrackNever, index: 5})
			h.cam.SetTarget(mgl32.Vec3{1, 2, 3})
			for i := 0; i < 3; i++ {
				Expect(h.orch.Frame().Tracked).To(BeFalse())
			}
			Expect(h.dev.calls).NotTo(ContainElement("map"))
			Expect(h.dev.Stats().Maps).To(BeZero())
			Expect(h.cam.Target()).To(Equal(mgl32.Vec3{1, 2, 3}))
		})

		It("skips the update when the map fails and keeps going", func() {
			h := newHarness(setup{index: 3})
			h.cam.SetTarget(mgl32.Vec3{9, 9, 9})
			h.dev.failMap = true

			for i := 0; i < 3; i++ {
				res := h.orch.Frame()
				Expect(res.Tracked).To(BeFalse())
			}
			Expect(h.cam.Target()).To(Equal(mgl32.Vec3{9, 9, 9}))
			Expect(h.stepper.Steps()).To(Equal(uint64(2)))
			Expect(testutil.ToFloat64(h.mx.Failures.WithLabelValues(metrics.FailureMap))).To(Equal(3.0))
			Expect(h.logs.FilterMessage("camera tracking skipped").Len()).To(Equal(1))

			h.dev.failMap = false
			Expect(h.orch.Frame().Tracked).To(BeTrue())
			Expect(h.logs.FilterMessage("camera tracking resumed").Len()).To(Equal(1))
		})

		It("rejects a track index outside the buffer", func() {
			h := newHarness(setup{})
			_, err := frame.New(h.orch.Deps, frame.Options{TrackIndex: 100})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("hot reload", func() {
		It("keeps the previous programs when the new source fails", func() {
			h := newHarness(setup{})
			oldCompute, oldRender := h.progs.Compute(), h.progs.Render()

			h.shaders["shaders/nbody.comp"] = &fstest.MapFile{Data: []byte("broken")}
			h.shaders["shaders/particle.frag"] = &fstest.MapFile{Data: []byte("broken")}
			h.orch.RequestReload()

			h.orch.Frame()
			res := h.orch.Frame()
			Expect(res.Reloaded).To(BeFalse())
			Expect(res.Steps).To(Equal(1))
			Expect(res.Degraded).To(BeFalse())
			Expect(h.progs.Compute()).To(Equal(oldCompute))
			Expect(h.progs.Render()).To(Equal(oldRender))

			failed := h.logs.FilterMessage("program reload failed, keeping previous programs")
			Expect(failed.Len()).To(Equal(1))
			Expect(failed.All()[0].Level).To(Equal(zapcore.ErrorLevel))
			Expect(testutil.ToFloat64(h.mx.Reloads.WithLabelValues("failed"))).To(Equal(1.0))
			Expect(testutil.ToFloat64(h.mx.Failures.WithLabelValues(metrics.FailureCompile))).To(Equal(1.0))
		})

		It("reports a partial reload when only one program builds", func() {
			h := newHarness(setup{})
			oldCompute, oldRender := h.progs.Compute(), h.progs.Render()

			h.shaders["shaders/particle.frag"] = &fstest.MapFile{Data: []byte("broken")}
			h.orch.RequestReload()

			res := h.orch.Frame()
			Expect(res.Reloaded).To(BeTrue())
			Expect(h.progs.Compute()).NotTo(Equal(oldCompute))
			Expect(h.progs.Render()).To(Equal(oldRender))

			partial := h.logs.FilterMessage("programs partially reloaded, keeping previous for the rest")
			Expect(partial.Len()).To(Equal(1))
			Expect(partial.All()[0].Level).To(Equal(zapcore.WarnLevel))
			Expect(partial.All()[0].ContextMap()).To(HaveKeyWithValue("reloaded", "compute"))
			Expect(h.logs.FilterMessage("program reload failed, keeping previous programs").Len()).To(BeZero())
			Expect(testutil.ToFloat64(h.mx.Reloads.WithLabelValues("partial"))).To(Equal(1.0))
			Expect(testutil.ToFloat64(h.mx.Reloads.WithLabelValues("failed"))).To(BeZero())
		})

		It("swaps in programs that compile", func() {
			h := newHarness(setup{})
			old := h.progs.Compute()
			h.orch.RequestReload()
			Expect(h.orch.Frame().Reloaded).To(BeTrue())
			Expect(h.progs.Compute()).NotTo(Equal(old))
			Expect(h.orch.Frame().Reloaded).To(BeFalse())
			Expect(testutil.ToFloat64(h.mx.Reloads.WithLabelValues("ok"))).To(Equal(1.0))
		})
	})

	Describe("degraded state", func() {
		It("draws without dispatching and logs the transition once", func() {
			progs := &staticPrograms{render: 2}
			h := newHarness(setup{programs: progs})

			for i := 0; i < 5; i++ {
				res := h.orch.Frame()
				Expect(res.Degraded).To(BeTrue())
				Expect(res.Steps).To(BeZero())
			}
			Expect(h.dev.Stats().Dispatches).To(BeZero())
			Expect(h.dev.calls).To(ContainElement("draw 100"))
			Expect(h.orch.Status().Degraded).To(BeTrue())
			Expect(h.logs.FilterMessage("simulation degraded: no valid compute program, physics paused").Len()).To(Equal(1))
			Expect(testutil.ToFloat64(h.mx.Failures.WithLabelValues(metrics.FailureDegraded))).To(Equal(1.0))
		})

		It("recovers once a compute program appears", func() {
			progs := &staticPrograms{render: 2}
			h := newHarness(setup{programs: progs})
			h.orch.Frame()

			prog, err := h.dev.CompileCompute(glsl)
			Expect(err).NotTo(HaveOccurred())
			progs.compute = prog
			res := h.orch.Frame()
			Expect(res.Degraded).To(BeFalse())
			Expect(res.Steps).To(Equal(1))
			Expect(h.logs.FilterMessage("simulation recovered").Len()).To(Equal(1))
		})
	})

	Describe("Run", func() {
		It("stops on a close request and drains the device", func() {
			h := newHarness(setup{})
			reg := input.NewRegistry()
			h.orch.Bind(reg)
			h.win.onPresent = func() {
				if h.win.Frames() == 3 {
					reg.DispatchKey(input.KeyEvent{Key: input.KeyEscape, Action: input.Press})
				}
			}

			Expect(h.orch.Run(context.Background())).To(Succeed())
			Expect(h.win.Frames()).To(Equal(uint64(3)))
			Expect(h.dev.calls[len(h.dev.calls)-1]).To(Equal("finish"))
		})

		It("stops when the window closes", func() {
			h := newHarness(setup{})
			h.win.Close()
			Expect(h.orch.Run(context.Background())).To(Succeed())
			Expect(h.win.Frames()).To(BeZero())
		})

		It("returns the context error on cancellation", func() {
			h := newHarness(setup{})
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := h.orch.Run(ctx)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(h.dev.calls).To(Equal([]string{"finish"}))
		})
	})

	Describe("controls", func() {
		var (
			h   *harness
			reg *input.Registry
		)

		BeforeEach(func() {
			h = newHarness(setup{})
			reg = input.NewRegistry()
			h.orch.Bind(reg)
		})

		It("tunes the time step with alt+scroll and floors it at zero", func() {
			start := h.stepper.TimeStep()
			reg.DispatchScroll(input.ScrollEvent{DY: 2, Mods: input.ModAlt})
			Expect(h.stepper.TimeStep()).To(BeNumerically("~", start+2*sim.TimeStepNotch, 1e-6))
			Expect(h.cam.Radius()).To(BeNumerically("==", 1))

			reg.DispatchScroll(input.ScrollEvent{DY: -100, Mods: input.ModAlt})
			Expect(h.stepper.TimeStep()).To(BeZero())
			Expect(testutil.ToFloat64(h.mx.TimeStep)).To(BeZero())

			reg.DispatchKey(input.KeyEvent{Key: input.KeyUp, Action: input.Press})
			Expect(h.stepper.TimeStep()).To(BeNumerically("==", float32(sim.TimeStepNotch)))
		})

		It("zooms on plain scroll and orbits on drag", func() {
			reg.DispatchScroll(input.ScrollEvent{DY: 1})
			Expect(h.cam.Radius()).To(BeNumerically("~", 0.8, 1e-6))

			reg.DispatchButton(input.ButtonEvent{Button: input.ButtonLeft, Action: input.Press, X: 0, Y: 0})
			reg.DispatchCursor(input.CursorEvent{X: 50, Y: 0})
			Expect(h.cam.Yaw()).To(BeNumerically("~", 10, 1e-4))
		})

		It("pauses physics on space", func() {
			reg.DispatchKey(input.KeyEvent{Key: input.KeySpace, Action: input.Press})
			h.orch.Frame()
			Expect(h.orch.Frame().Steps).To(BeZero())
			Expect(h.orch.Status().Paused).To(BeTrue())

			reg.DispatchKey(input.KeyEvent{Key: input.KeySpace, Action: input.Press})
			Expect(h.orch.Frame().Steps).To(Equal(1))
		})

		It("requests a reload on R", func() {
			reg.DispatchKey(input.KeyEvent{Key: input.KeyR, Action: input.Press})
			Expect(h.orch.Frame().Reloaded).To(BeTrue())
		})

		It("toggles tracking on T", func() {
			reg.DispatchKey(input.KeyEvent{Key: input.KeyT, Action: input.Press})
			Expect(h.orch.Status().Tracking).To(Equal(frame.TrackNever))
			h.dev.reset()
			Expect(h.orch.Frame().Tracked).To(BeFalse())
			Expect(h.dev.calls).NotTo(ContainElement("map"))

			reg.DispatchKey(input.KeyEvent{Key: input.KeyT, Action: input.Repeat})
			Expect(h.orch.Status().Tracking).To(Equal(frame.TrackNever))
			reg.DispatchKey(input.KeyEvent{Key: input.KeyT, Action: input.Press})
			Expect(h.orch.Frame().Tracked).To(BeTrue())
		})

		It("updates the projection on resize and ignores minimized windows", func() {
			reg.DispatchResize(input.ResizeEvent{Width: 1280, Height: 720})
			p := h.cam.Projection()
			Expect(p).NotTo(Equal(mgl32.Ident4()))
			reg.DispatchResize(input.ResizeEvent{Width: 1280, Height: 0})
			Expect(h.cam.Projection()).To(Equal(p))
		})
	})

	It("reports frame time every window", func() {
		h := newHarness(setup{report: 10})
		for i := 0; i < 25; i++ {
			h.orch.Frame()
		}
		reports := h.logs.FilterMessage("frame time")
		Expect(reports.Len()).To(Equal(2))
		Expect(reports.All()[0].ContextMap()).To(HaveKeyWithValue("fps", BeNumerically("~", 120, 0.01)))
		Expect(h.orch.Status().Report.Mean).To(Equal(fixedStep))
		Expect(h.orch.Recent()).To(HaveLen(10))
	})
})

var _ = Describe("TrackingPolicy", func() {
	DescribeTable("parses names",
		func(in string, want frame.TrackingPolicy) {
			got, err := frame.ParseTrackingPolicy(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
			b, _ := got.MarshalText()
			var back frame.TrackingPolicy
			Expect(back.UnmarshalText(b)).To(Succeed())
			Expect(back).To(Equal(want))
		},
		Entry("every_frame", "every_frame", frame.TrackEveryFrame),
		Entry("never", "never", frame.TrackNever),
		Entry("alias", "off", frame.TrackNever),
	)

	It("rejects unknown names", func() {
		_, err := frame.ParseTrackingPolicy("sometimes")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("VirtualWindow", func() {
	It("advances a stepped clock per present", func() {
		w := frame.NewSteppedWindow(time.Millisecond)
		Expect(w.Time()).To(BeZero())
		w.Present()
		w.Present()
		Expect(w.Time()).To(Equal(2 * time.Millisecond))
		Expect(w.ShouldClose()).To(BeFalse())
		w.Close()
		Expect(w.ShouldClose()).To(BeTrue())
	})

	It("reads the wall clock in realtime mode", func() {
		w := frame.NewRealtimeWindow()
		a := w.Time()
		time.Sleep(2 * time.Millisecond)
		Expect(w.Time()).To(BeNumerically(">", a))
	})
})
