// Package metrics tracks frame timing and exports simulation counters to
// Prometheus.
package metrics

import "time"

// DefaultWindow is the number of frames averaged for a report.
const DefaultWindow = 100

// FrameStats keeps a rolling window of frame durations.
type FrameStats struct {
	samples []time.Duration
	next    int
	filled  int
	sum     time.Duration
	frames  uint64
}

// Report summarizes the last window of frames.
type Report struct {
	Frames int
	Mean   time.Duration
	Min    time.Duration
	Max    time.Duration
}

// FPS is the frame rate implied by the mean frame time.
func (r Report) FPS() float64 {
	if r.Mean <= 0 {
		return 0
	}
	return float64(time.Second) / float64(r.Mean)
}

func NewFrameStats(window int) *FrameStats {
	if window <= 0 {
		window = DefaultWindow
	}
	return &FrameStats{samples: make([]time.Duration, window)}
}

// Observe records one frame. Every Window() frames it returns a report of
// the full window and true.
func (f *FrameStats) Observe(d time.Duration) (Report, bool) {
	if d < 0 {
		d = 0
	}
	f.sum += d - f.samples[f.next]
	f.samples[f.next] = d
	f.next = (f.next + 1) % len(f.samples)
	if f.filled < len(f.samples) {
		f.filled++
	}
	f.frames++
	if f.frames%uint64(len(f.samples)) != 0 {
		return Report{}, false
	}
	return f.Report(), true
}

// Report summarizes the frames currently in the window.
func (f *FrameStats) Report() Report {
	if f.filled == 0 {
		return Report{}
	}
	r := Report{Frames: f.filled, Mean: f.sum / time.Duration(f.filled)}
	r.Min, r.Max = f.samples[0], f.samples[0]
	for _, s := range f.samples[:f.filled] {
		r.Min = min(r.Min, s)
		r.Max = max(r.Max, s)
	}
	return r
}

// Recent returns the samples in the window, oldest first.
func (f *FrameStats) Recent() []time.Duration {
	out := make([]time.Duration, 0, f.filled)
	start := f.next - f.filled
	if start < 0 {
		start += len(f.samples)
	}
	for i := 0; i < f.filled; i++ {
		out = append(out, f.samples[(start+i)%len(f.samples)])
	}
	return out
}

func (f *FrameStats) Frames() uint64 { return f.frames }
func (f *FrameStats) Window() int    { return len(f.samples) }
