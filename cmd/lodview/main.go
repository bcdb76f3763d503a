// Package main is an interactive top-down view of the LOD grid.
//
// WASD or the arrow keys move the viewer, R reseeds the terrain, C clears
// the grid, F5 saves the current settings to the user config and Esc quits.
// Cells are coloured by LOD and dimmed while their chunk is still building
// or waiting to swap in.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/dunestream/internal/config"
	"github.com/Faultbox/dunestream/internal/debug"
	"github.com/Faultbox/dunestream/internal/logger"
	"github.com/Faultbox/dunestream/internal/streamer"
	"github.com/Faultbox/dunestream/internal/window"
	"github.com/Faultbox/dunestream/pkg/math"
)

func main() {
	os.Exit(run())
}

func run() int {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}

	if path := config.WriteConfigPath(); path != "" {
		if err := cfg.SaveTo(path); err != nil {
			fmt.Fprintf(os.Stderr, "Config write error: %v\n", err)
			return 1
		}
		fmt.Printf("config written to %s\n", path)
		return 0
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("=== Dunestream LOD viewer ===")

	v, err := newViewer(cfg)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		return 1
	}
	defer v.Close()

	v.Run()
	logger.Info("viewer closed normally")
	return 0
}

type viewer struct {
	cfg    *config.Config
	win    *window.Window
	input  *window.Input
	stream *streamer.Streamer
	pos    math.Vec2
}

func newViewer(cfg *config.Config) (*viewer, error) {
	win, err := window.New(window.Config{
		Title:      "dunestream",
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	s, err := streamer.New(cfg)
	if err != nil {
		win.Close()
		return nil, err
	}

	return &viewer{
		cfg:    cfg,
		win:    win,
		input:  window.NewInput(),
		stream: s,
	}, nil
}

func (v *viewer) Close() {
	v.stream.Close()
	v.win.Close()
}

func (v *viewer) Run() {
	lastTime := time.Now()
	titleTimer := time.Now()
	speed := v.cfg.Viewer.Speed
	if speed <= 0 {
		speed = v.cfg.LOD.CellSize
	}

	for {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if v.input.Update() || v.input.IsKeyPressed(sdl.SCANCODE_ESCAPE) {
			return
		}
		if v.input.IsKeyPressed(sdl.SCANCODE_R) {
			seed := v.stream.Seed() + 1
			v.stream.Reseed(seed)
			logger.Info("reseeded", zap.Uint32("seed", seed))
		}
		if v.input.IsKeyPressed(sdl.SCANCODE_C) {
			n := v.stream.Clear()
			logger.Info("grid cleared", zap.Int("despawned", n))
		}
		if v.input.IsKeyPressed(sdl.SCANCODE_F5) {
			v.save()
		}

		move := math.Vec2{
			X: v.input.Axis(sdl.SCANCODE_A, sdl.SCANCODE_D) + v.input.Axis(sdl.SCANCODE_LEFT, sdl.SCANCODE_RIGHT),
			Y: v.input.Axis(sdl.SCANCODE_W, sdl.SCANCODE_S) + v.input.Axis(sdl.SCANCODE_UP, sdl.SCANCODE_DOWN),
		}
		v.pos = v.pos.Add(move.Scale(speed * dt))

		v.stream.Step(v.pos)
		v.render()

		if time.Since(titleTimer) >= time.Second {
			st := v.stream.Store().Stats()
			v.win.SetTitle(fmt.Sprintf("dunestream  anchor %s  seed %d  live %d  visible %d  pending %d",
				v.stream.Grid().Anchor(), v.stream.Seed(), st.Live, st.Visible, v.stream.Grid().PendingLen()))
			titleTimer = time.Now()
		}
	}
}

// save writes the config with the current seed and window size.
func (v *viewer) save() {
	w, h := v.win.GetSize()
	v.cfg.Terrain.Seed = v.stream.Seed()
	if !v.cfg.Window.Fullscreen {
		v.cfg.Window.Width, v.cfg.Window.Height = w, h
	}
	if err := v.cfg.Save(); err != nil {
		logger.Warn("failed to save config", zap.Error(err))
		return
	}
	logger.Info("config saved", zap.String("dir", config.ConfigDir()))
}

func (v *viewer) render() {
	g := v.stream.Grid()
	w, h := v.win.GetSize()
	side := g.Config().Side()
	cell := int32(min(w, h) / (side + 1))
	cx, cy := int32(w/2), int32(h/2)

	v.win.Clear(20, 18, 16)

	for _, c := range debug.Overlay(g, v.stream.Store()) {
		col := c.Shade()
		x := cx + c.Offset.X*cell - cell/2
		y := cy + c.Offset.Y*cell - cell/2
		v.win.FillRect(x+1, y+1, cell-2, cell-2, col[0], col[1], col[2], 255)
		if c.Pending {
			v.win.DrawRect(x+1, y+1, cell-2, cell-2, 255, 255, 255, 120)
		}
		for i := 1; i < c.Bindings; i++ {
			v.win.FillRect(x+int32(i)*6, y+4, 4, 4, 255, 255, 255, 200)
		}
	}

	// viewer position relative to the anchor cell
	rel := g.Viewer().Sub(g.Anchor().Vec2())
	px := cx + int32(rel.X*float32(cell))
	py := cy + int32(rel.Y*float32(cell))
	v.win.FillRect(px-3, py-3, 7, 7, 255, 255, 255, 255)
	v.win.DrawLine(cx, cy, px, py, 255, 255, 255, 160)

	v.win.Present()
}
