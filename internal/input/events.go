// Package input defines the window events the simulation consumes and a
// registry that fans them out to subscribed handlers.
package input

import "fmt"

type Action int

const (
	Release Action = iota
	Press
	Repeat
)

func (a Action) String() string {
	switch a {
	case Release:
		return "release"
	case Press:
		return "press"
	case Repeat:
		return "repeat"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Mod is a set of held modifier keys.
type Mod uint8

const (
	ModShift Mod = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

func (m Mod) Has(o Mod) bool { return m&o == o }

type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
)

type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeySpace
	KeyR
	KeyC
	KeyT
	KeyUp
	KeyDown
)

var keyNames = map[Key]string{
	KeyUnknown: "unknown",
	KeyEscape:  "escape",
	KeySpace:   "space",
	KeyR:       "r",
	KeyC:       "c",
	KeyT:       "t",
	KeyUp:      "up",
	KeyDown:    "down",
}

func (k Key) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return fmt.Sprintf("key(%d)", int(k))
}

// CursorEvent is an absolute pointer position in window pixels.
type CursorEvent struct {
	X, Y float64
}

// ButtonEvent carries the pointer position at the time of the press or
// release.
type ButtonEvent struct {
	Button Button
	Action Action
	Mods   Mod
	X, Y   float64
}

type ScrollEvent struct {
	DX, DY float64
	Mods   Mod
}

type KeyEvent struct {
	Key    Key
	Action Action
	Mods   Mod
}

type ResizeEvent struct {
	Width, Height int
}

type (
	CursorHandler interface{ HandleCursor(CursorEvent) }
	ButtonHandler interface{ HandleButton(ButtonEvent) }
	ScrollHandler interface{ HandleScroll(ScrollEvent) }
	KeyHandler    interface{ HandleKey(KeyEvent) }
	ResizeHandler interface{ HandleResize(ResizeEvent) }
)
