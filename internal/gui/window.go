package gui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/frame"
	"github.com/san-kum/gravsim/internal/input"
)

var (
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColWarn    = rl.NewColor(230, 140, 60, 255)
)

var keyMap = map[int32]input.Key{
	rl.KeyEscape: input.KeyEscape,
	rl.KeySpace:  input.KeySpace,
	rl.KeyR:      input.KeyR,
	rl.KeyC:      input.KeyC,
	rl.KeyT:      input.KeyT,
	rl.KeyUp:     input.KeyUp,
	rl.KeyDown:   input.KeyDown,
}

var buttonMap = map[rl.MouseButton]input.Button{
	rl.MouseLeftButton:   input.ButtonLeft,
	rl.MouseRightButton:  input.ButtonRight,
	rl.MouseMiddleButton: input.ButtonMiddle,
}

// Window is a raylib window with an OpenGL 4.3 core context. Present ends
// the raylib frame, which swaps and polls, then turns the polled state into
// input events on the registry.
type Window struct {
	input *input.Registry

	status  func() frame.Status
	hud     bool
	title   string
	cursorX float32
	cursorY float32
	width   int
	height  int
}

// OpenWindow creates the window and makes its context current on the
// calling thread.
func OpenWindow(cfg config.WindowConfig) *Window {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint | rl.FlagVsyncHint)
	rl.InitWindow(int32(cfg.Width), int32(cfg.Height), cfg.Title)
	rl.SetExitKey(0)
	if cfg.TargetFPS > 0 {
		rl.SetTargetFPS(int32(cfg.TargetFPS))
	}

	w := &Window{
		input:  input.NewRegistry(),
		hud:    cfg.HUD,
		title:  cfg.Title,
		width:  rl.GetScreenWidth(),
		height: rl.GetScreenHeight(),
	}
	w.input.OnKey(w)
	return w
}

func (w *Window) Input() *input.Registry { return w.input }
func (w *Window) Size() (int, int)       { return w.width, w.height }

// ShowStatus draws the result of status in the heads-up display.
func (w *Window) ShowStatus(status func() frame.Status) { w.status = status }

func (w *Window) ShouldClose() bool { return rl.WindowShouldClose() }
func (w *Window) BeginFrame()       { rl.BeginDrawing() }

func (w *Window) Time() time.Duration {
	return time.Duration(rl.GetTime() * float64(time.Second))
}

func (w *Window) Present() {
	if w.hud && w.status != nil {
		w.drawHUD(w.status())
	}
	rl.EndDrawing()
	w.poll()
}

func (w *Window) Close() { rl.CloseWindow() }

// HandleKey toggles the HUD on C.
func (w *Window) HandleKey(e input.KeyEvent) {
	if e.Key == input.KeyC && e.Action == input.Press {
		w.hud = !w.hud
	}
}

func mods() input.Mod {
	var m input.Mod
	if rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift) {
		m |= input.ModShift
	}
	if rl.IsKeyDown(rl.KeyLeftControl) || rl.IsKeyDown(rl.KeyRightControl) {
		m |= input.ModControl
	}
	if rl.IsKeyDown(rl.KeyLeftAlt) || rl.IsKeyDown(rl.KeyRightAlt) {
		m |= input.ModAlt
	}
	if rl.IsKeyDown(rl.KeyLeftSuper) || rl.IsKeyDown(rl.KeyRightSuper) {
		m |= input.ModSuper
	}
	return m
}

func (w *Window) poll() {
	m := mods()

	if rl.IsWindowResized() {
		w.width, w.height = rl.GetScreenWidth(), rl.GetScreenHeight()
		w.input.DispatchResize(input.ResizeEvent{Width: w.width, Height: w.height})
	}

	pos := rl.GetMousePosition()
	if pos.X != w.cursorX || pos.Y != w.cursorY {
		w.cursorX, w.cursorY = pos.X, pos.Y
		w.input.DispatchCursor(input.CursorEvent{X: float64(pos.X), Y: float64(pos.Y)})
	}

	for rb, b := range buttonMap {
		var action input.Action
		switch {
		case rl.IsMouseButtonPressed(rb):
			action = input.Press
		case rl.IsMouseButtonReleased(rb):
			action = input.Release
		default:
			continue
		}
		w.input.DispatchButton(input.ButtonEvent{
			Button: b,
			Action: action,
			Mods:   m,
			X:      float64(pos.X),
			Y:      float64(pos.Y),
		})
	}

	if wheel := rl.GetMouseWheelMoveV(); wheel.X != 0 || wheel.Y != 0 {
		w.input.DispatchScroll(input.ScrollEvent{DX: float64(wheel.X), DY: float64(wheel.Y), Mods: m})
	}

	for rk, k := range keyMap {
		var action input.Action
		switch {
		case rl.IsKeyPressed(rk):
			action = input.Press
		case rl.IsKeyPressedRepeat(rk):
			action = input.Repeat
		case rl.IsKeyReleased(rk):
			action = input.Release
		default:
			continue
		}
		w.input.DispatchKey(input.KeyEvent{Key: k, Action: action, Mods: m})
	}
}

func (w *Window) drawHUD(s frame.Status) {
	rl.DrawText(w.title, 20, 20, 20, ColSelect)

	state, col := "RUNNING", ColSelect
	switch {
	case s.Degraded:
		state, col = "DEGRADED", ColWarn
	case s.Paused:
		state, col = "PAUSED", ColTextDim
	}
	rl.DrawText(state, int32(w.width)-120, 20, 16, col)

	lines := []string{
		fmt.Sprintf("particles  %d", s.Particles),
		fmt.Sprintf("steps      %d", s.Steps),
		fmt.Sprintf("time step  %.4f", s.TimeStep),
		fmt.Sprintf("tracking   %s", s.Tracking),
		fmt.Sprintf("target     %.2f %.2f %.2f", s.Target.X(), s.Target.Y(), s.Target.Z()),
	}
	if s.Report.Frames > 0 {
		lines = append(lines, fmt.Sprintf("frame      %v (%.0f fps)", s.Report.Mean.Round(time.Microsecond), s.Report.FPS()))
	}
	for i, l := range lines {
		rl.DrawText(l, 20, int32(56+i*18), 14, ColText)
	}

	rl.DrawText("[DRAG] ORBIT  [SCROLL] ZOOM  [ALT+SCROLL] TIME STEP  [SPACE] PAUSE  [R] RELOAD  [T] TRACK  [C] HUD  [ESC] QUIT",
		20, int32(w.height)-30, 12, ColTextDim)
}
