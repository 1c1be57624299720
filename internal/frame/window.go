package frame

import (
	"sync/atomic"
	"time"
)

// Window is the presentation surface the orchestrator drives. Present swaps
// buffers and polls input, dispatching any events before it returns.
type Window interface {
	ShouldClose() bool
	BeginFrame()
	Present()
	// Time is a monotonic clock reading.
	Time() time.Duration
}

// VirtualWindow is a Window without a display, for the terminal view, the
// benchmark and tests.
type VirtualWindow struct {
	now    func() time.Duration
	step   time.Duration
	ticks  time.Duration
	frames uint64
	closed atomic.Bool
}

// NewRealtimeWindow reads the wall clock.
func NewRealtimeWindow() *VirtualWindow {
	start := time.Now()
	return &VirtualWindow{now: func() time.Duration { return time.Since(start) }}
}

// NewSteppedWindow advances its clock by step on every Present, so frame
// timing is exact and repeatable.
func NewSteppedWindow(step time.Duration) *VirtualWindow {
	w := &VirtualWindow{step: step}
	w.now = func() time.Duration { return w.ticks }
	return w
}

func (w *VirtualWindow) ShouldClose() bool { return w.closed.Load() }
func (w *VirtualWindow) BeginFrame()       {}

func (w *VirtualWindow) Present() {
	w.frames++
	w.ticks += w.step
}

func (w *VirtualWindow) Time() time.Duration { return w.now() }
func (w *VirtualWindow) Close()              { w.closed.Store(true) }
func (w *VirtualWindow) Frames() uint64      { return w.frames }
