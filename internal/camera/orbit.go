// Package camera implements an orbit camera driven by pointer input.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/san-kum/gravsim/internal/input"
)

const (
	DefaultSensitivity = 0.2
	DefaultZoomSpeed   = 0.2
	DefaultMinRadius   = 0.1

	// MaxPitch keeps the view direction off the world up axis.
	MaxPitch = 89.0

	DefaultFOV  = 45.0
	DefaultNear = 0.1
	DefaultFar  = 100.0
)

var worldUp = mgl32.Vec3{0, 1, 0}

// Config is the tunable part of an Orbit. Angles are in degrees.
type Config struct {
	Sensitivity float32 `yaml:"sensitivity"`
	ZoomSpeed   float32 `yaml:"zoom_speed"`
	MinRadius   float32 `yaml:"min_radius"`
	Radius      float32 `yaml:"radius"`
	Yaw         float32 `yaml:"yaw"`
	Pitch       float32 `yaml:"pitch"`
	FOV         float32 `yaml:"fov"`
}

func DefaultConfig() Config {
	return Config{
		Sensitivity: DefaultSensitivity,
		ZoomSpeed:   DefaultZoomSpeed,
		MinRadius:   DefaultMinRadius,
		Radius:      1,
		FOV:         DefaultFOV,
	}
}

// Orbit looks at a target from spherical coordinates (radius, yaw, pitch).
// Dragging with the left button turns it, scrolling zooms it. Pitch stays
// within [-MaxPitch, MaxPitch] and radius never drops below MinRadius.
type Orbit struct {
	cfg Config

	yaw, pitch, radius float32
	target             mgl32.Vec3
	projection         mgl32.Mat4

	dragging     bool
	lastX, lastY float64
}

func New(cfg Config) *Orbit {
	if cfg.MinRadius <= 0 {
		cfg.MinRadius = DefaultMinRadius
	}
	if cfg.FOV <= 0 {
		cfg.FOV = DefaultFOV
	}
	o := &Orbit{
		cfg:        cfg,
		yaw:        cfg.Yaw,
		pitch:      clampPitch(cfg.Pitch),
		radius:     max(cfg.Radius, cfg.MinRadius),
		projection: mgl32.Ident4(),
	}
	return o
}

func clampPitch(p float32) float32 {
	return mgl32.Clamp(p, -MaxPitch, MaxPitch)
}

func (o *Orbit) HandleButton(e input.ButtonEvent) {
	if e.Button != input.ButtonLeft {
		return
	}
	switch e.Action {
	case input.Press:
		o.dragging = true
		o.lastX, o.lastY = e.X, e.Y
	case input.Release:
		o.dragging = false
	}
}

func (o *Orbit) HandleCursor(e input.CursorEvent) {
	if !o.dragging {
		return
	}
	dx, dy := e.X-o.lastX, e.Y-o.lastY
	o.lastX, o.lastY = e.X, e.Y
	o.Rotate(float32(dx), float32(dy))
}

func (o *Orbit) HandleScroll(e input.ScrollEvent) {
	o.Zoom(float32(e.DY))
}

// HandleResize installs a perspective projection for the new aspect ratio.
// A zero-height (minimized) window keeps the old projection.
func (o *Orbit) HandleResize(e input.ResizeEvent) {
	if p, ok := Perspective(o.cfg.FOV, e.Width, e.Height, DefaultNear, DefaultFar); ok {
		o.projection = p
	}
}

// Rotate applies a pointer delta in pixels.
func (o *Orbit) Rotate(dx, dy float32) {
	o.yaw += dx * o.cfg.Sensitivity
	o.pitch = clampPitch(o.pitch + dy*o.cfg.Sensitivity)
}

// Zoom moves the camera towards the target for positive scroll.
func (o *Orbit) Zoom(scroll float32) {
	o.radius = max(o.radius-scroll*o.cfg.ZoomSpeed, o.cfg.MinRadius)
}

func (o *Orbit) SetTarget(p mgl32.Vec3) { o.target = p }
func (o *Orbit) Target() mgl32.Vec3     { return o.target }

func (o *Orbit) Yaw() float32    { return o.yaw }
func (o *Orbit) Pitch() float32  { return o.pitch }
func (o *Orbit) Radius() float32 { return o.radius }
func (o *Orbit) Dragging() bool  { return o.dragging }
func (o *Orbit) FOV() float32    { return o.cfg.FOV }

// Position is the eye point derived from the current state.
func (o *Orbit) Position() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(o.yaw))
	pitch := float64(mgl32.DegToRad(o.pitch))
	r := float64(o.radius)
	return mgl32.Vec3{
		float32(r * math.Cos(pitch) * math.Cos(yaw)),
		float32(r * math.Sin(pitch)),
		float32(r * math.Cos(pitch) * math.Sin(yaw)),
	}.Add(o.target)
}

// View is recomputed from the current state on every call.
func (o *Orbit) View() mgl32.Mat4 {
	return mgl32.LookAtV(o.Position(), o.target, worldUp)
}

func (o *Orbit) Projection() mgl32.Mat4     { return o.projection }
func (o *Orbit) SetProjection(p mgl32.Mat4) { o.projection = p }

// Perspective builds a projection for a width x height viewport. It reports
// false when the aspect ratio is undefined.
func Perspective(fovDeg float32, width, height int, near, far float32) (mgl32.Mat4, bool) {
	if width <= 0 || height <= 0 {
		return mgl32.Mat4{}, false
	}
	aspect := float32(width) / float32(height)
	return mgl32.Perspective(mgl32.DegToRad(fovDeg), aspect, near, far), true
}
