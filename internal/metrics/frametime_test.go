package metrics

import (
	"testing"
	"time"
)

func TestFrameStatsReportsEveryWindow(t *testing.T) {
	f := NewFrameStats(4)
	reports := 0
	for i := 1; i <= 12; i++ {
		r, ok := f.Observe(time.Duration(i) * time.Millisecond)
		if !ok {
			continue
		}
		reports++
		if r.Frames != 4 {
			t.Errorf("report %d covered %d frames", reports, r.Frames)
		}
		// mean of i-3..i
		want := time.Duration(4*i-6) * time.Millisecond / 4
		if r.Mean != want {
			t.Errorf("frame %d: mean %v, want %v", i, r.Mean, want)
		}
		if r.Max != time.Duration(i)*time.Millisecond || r.Min != time.Duration(i-3)*time.Millisecond {
			t.Errorf("frame %d: min %v max %v", i, r.Min, r.Max)
		}
	}
	if reports != 3 {
		t.Errorf("expected 3 reports, got %d", reports)
	}
	if f.Frames() != 12 {
		t.Errorf("expected 12 frames, got %d", f.Frames())
	}
}

func TestFrameStatsPartialWindow(t *testing.T) {
	f := NewFrameStats(0)
	if f.Window() != DefaultWindow {
		t.Fatalf("default window %d", f.Window())
	}
	if r := f.Report(); r.Frames != 0 || r.FPS() != 0 {
		t.Errorf("empty report %+v", r)
	}

	f.Observe(10 * time.Millisecond)
	f.Observe(30 * time.Millisecond)
	r := f.Report()
	if r.Mean != 20*time.Millisecond {
		t.Errorf("mean %v", r.Mean)
	}
	if fps := r.FPS(); fps != 50 {
		t.Errorf("fps %v", fps)
	}
}

func TestFrameStatsRecentOrder(t *testing.T) {
	f := NewFrameStats(3)
	for i := 1; i <= 5; i++ {
		f.Observe(time.Duration(i))
	}
	got := f.Recent()
	want := []time.Duration{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("recent %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("recent %v, want %v", got, want)
			break
		}
	}
}
