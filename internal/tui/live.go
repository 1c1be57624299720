// Package tui shows the simulation in a terminal: the software device
// rasterizes the particles onto a braille canvas and bubbletea drives one
// frame per tick.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"go.uber.org/zap"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/frame"
	"github.com/san-kum/gravsim/internal/input"
	"github.com/san-kum/gravsim/internal/session"
	"github.com/san-kum/gravsim/internal/viz"
)

const (
	defaultCols = 80
	defaultRows = 24
	// chrome is the number of terminal rows taken by everything but the canvas.
	chrome = 12

	orbitStep = 25
	zoomStep  = 1
)

var keyMap = map[string]input.Key{
	" ":    input.KeySpace,
	"r":    input.KeyR,
	"t":    input.KeyT,
	"up":   input.KeyUp,
	"down": input.KeyDown,
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	sess   *session.Session
	canvas *viz.Canvas
	keys   *input.Registry

	graph  bool
	width  int
	height int
}

func newModel(s *session.Session, canvas *viz.Canvas) model {
	keys := input.NewRegistry()
	s.Bind(keys)
	return model{
		sess:   s,
		canvas: canvas,
		keys:   keys,
		graph:  true,
		width:  canvas.Width,
		height: canvas.Height + chrome,
	}
}

func (m model) Init() tea.Cmd { return tick() }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, tea.ClearScreen
	case tickMsg:
		m.sess.Frame()
		return m, tick()
	}
	return m, nil
}

// resize fits the canvas to the terminal. The device holds the canvas by
// pointer, so it is replaced in place.
func (m model) resize() {
	cols := max(m.width-6, 20)
	rows := max(m.height-chrome, 6)
	*m.canvas = *viz.NewCanvas(cols, rows)
	m.sess.Resize(m.canvas.Dots())
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	key := msg.String()
	if k, ok := keyMap[key]; ok {
		m.keys.DispatchKey(input.KeyEvent{Key: k, Action: input.Press})
		return m, nil
	}
	switch key {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "g":
		m.graph = !m.graph
		return m, tea.ClearScreen
	case "h", "left":
		m.sess.Camera.Rotate(-orbitStep, 0)
	case "l", "right":
		m.sess.Camera.Rotate(orbitStep, 0)
	case "k":
		m.sess.Camera.Rotate(0, -orbitStep)
	case "j":
		m.sess.Camera.Rotate(0, orbitStep)
	case "+", "=":
		m.sess.Camera.Zoom(zoomStep)
	case "-", "_":
		m.sess.Camera.Zoom(-zoomStep)
	}
	return m, nil
}

func (m model) View() string {
	s := m.sess.Status()
	var b strings.Builder

	icon, state := viz.StatusRunning.Render("●"), viz.StatusRunning.Render("running")
	switch {
	case s.Degraded:
		icon, state = viz.StatusDegraded.Render("●"), viz.StatusDegraded.Render("degraded")
	case s.Paused:
		icon, state = viz.StatusPaused.Render("○"), viz.StatusPaused.Render("paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s  %s\n\n", icon, viz.Title.Render("gravsim"), state,
		viz.Subtle.Render(m.sess.Device.Name())))

	for _, row := range strings.Split(m.canvas.String(), "\n") {
		b.WriteString("   " + viz.Points.Render(row) + "\n")
	}

	b.WriteString("\n   " + strings.Join([]string{
		viz.Metric("particles", "%d", s.Particles),
		viz.Metric("steps", "%d", s.Steps),
		viz.Metric("dt", "%.4f", s.TimeStep),
		viz.Metric("fps", "%.0f", s.Report.FPS()),
		viz.Metric("tracking", "%s", s.Tracking),
	}, "  ") + "\n")

	if m.graph {
		if g := frameGraph(m.sess.Recent()); g != "" {
			b.WriteString("\n" + indent(g, "   ") + "\n")
		}
	}

	b.WriteString("\n   " + viz.Keys("space", "pause", "↑↓", "dt", "hjkl", "orbit", "±", "zoom",
		"t", "track", "r", "reload", "g", "graph", "q", "quit") + "\n")
	return b.String()
}

func frameGraph(recent []time.Duration) string {
	if len(recent) < 2 {
		return ""
	}
	ms := make([]float64, len(recent))
	for i, d := range recent {
		ms[i] = float64(d) / float64(time.Millisecond)
	}
	return asciigraph.Plot(ms,
		asciigraph.Height(4),
		asciigraph.Width(40),
		asciigraph.Caption("frame ms"),
	)
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}

// Run shows the simulation until q is pressed or ctx is done. Logs must not
// go to the terminal while it runs.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	canvas := viz.NewCanvas(defaultCols-6, defaultRows-chrome)
	dev := compute.NewCPUDevice(compute.WithCanvas(canvas))
	defer dev.Close()

	cfg.Window.Width, cfg.Window.Height = canvas.Dots()
	s, err := session.New(dev, frame.NewRealtimeWindow(), cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := s.Watch(ctx); err != nil {
		log.Warn("shader hot reload disabled", zap.Error(err))
	}
	s.ServeMetrics(ctx)

	p := tea.NewProgram(newModel(s, canvas), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	dev.Finish()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
