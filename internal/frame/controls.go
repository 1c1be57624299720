package frame

import (
	"github.com/san-kum/gravsim/internal/input"
	"github.com/san-kum/gravsim/internal/sim"
)

// Controls maps window input onto the orchestrator and its camera:
//
//	Escape        close
//	R             reload programs
//	Space         pause or resume physics
//	T             toggle camera tracking
//	Up / Down     time step up or down one notch
//	Alt + scroll  time step, one notch per scroll unit
//	scroll        zoom
//	left drag     orbit
type Controls struct {
	o *Orchestrator
}

// Bind subscribes the orchestrator's controls to r.
func (o *Orchestrator) Bind(r *input.Registry) *Controls {
	c := &Controls{o: o}
	r.Subscribe(c)
	return c
}

func (c *Controls) HandleKey(e input.KeyEvent) {
	if e.Action == input.Release {
		return
	}
	switch e.Key {
	case input.KeyEscape:
		c.o.RequestClose()
	case input.KeyR:
		if e.Action == input.Press {
			c.o.RequestReload()
		}
	case input.KeySpace:
		if e.Action == input.Press {
			c.o.TogglePause()
		}
	case input.KeyT:
		if e.Action == input.Press {
			c.o.ToggleTracking()
		}
	case input.KeyUp:
		c.o.AdjustTimeStep(sim.TimeStepNotch)
	case input.KeyDown:
		c.o.AdjustTimeStep(-sim.TimeStepNotch)
	}
}

func (c *Controls) HandleScroll(e input.ScrollEvent) {
	if e.Mods.Has(input.ModAlt) {
		c.o.AdjustTimeStep(float32(e.DY) * sim.TimeStepNotch)
		return
	}
	c.o.Camera.HandleScroll(e)
}

func (c *Controls) HandleButton(e input.ButtonEvent) { c.o.Camera.HandleButton(e) }
func (c *Controls) HandleCursor(e input.CursorEvent) { c.o.Camera.HandleCursor(e) }
func (c *Controls) HandleResize(e input.ResizeEvent) { c.o.Resize(e.Width, e.Height) }
