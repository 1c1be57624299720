package frame

import (
	"fmt"
	"strings"
)

// TrackingPolicy decides when the camera target is refreshed from the
// particle buffer.
type TrackingPolicy int

const (
	// TrackEveryFrame reads the tracked particle back after every draw and
	// points the camera at it.
	TrackEveryFrame TrackingPolicy = iota
	// TrackNever leaves the camera target where it was set.
	TrackNever
)

func (p TrackingPolicy) String() string {
	switch p {
	case TrackEveryFrame:
		return "every_frame"
	case TrackNever:
		return "never"
	}
	return fmt.Sprintf("tracking(%d)", int(p))
}

func ParseTrackingPolicy(s string) (TrackingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "every_frame", "every-frame", "always":
		return TrackEveryFrame, nil
	case "never", "off", "none":
		return TrackNever, nil
	}
	return 0, fmt.Errorf("unknown tracking policy %q (want every_frame or never)", s)
}

func (p TrackingPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *TrackingPolicy) UnmarshalText(b []byte) error {
	v, err := ParseTrackingPolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
