// Package gui runs the simulation in a raylib window on the OpenGL device.
//
// Compute shaders need an OpenGL 4.3 context, which raylib only requests
// when built with the opengl43 tag:
//
//	go build -tags opengl43 ./cmd/gravsim
package gui

import (
	"context"

	"go.uber.org/zap"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/session"
)

// Run opens the window and blocks until it closes, Escape is pressed or ctx
// is done. raylib pins the calling goroutine to the main OS thread; Run must
// be called from it.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	win := OpenWindow(cfg.Window)
	defer win.Close()

	dev, err := compute.NewGLDevice()
	if err != nil {
		return err
	}
	defer dev.Close()
	log.Info("opengl device ready", zap.String("device", dev.Name()), zap.Int32("max_groups", dev.MaxGroups()))

	cfg.Window.Width, cfg.Window.Height = win.Size()
	s, err := session.New(dev, win, cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	s.Bind(win.Input())
	win.ShowStatus(s.Status)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := s.Watch(ctx); err != nil {
		log.Warn("shader hot reload disabled", zap.Error(err))
	}
	s.ServeMetrics(ctx)

	return s.Run(ctx)
}
