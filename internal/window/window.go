// Package window handles the SDL2 window and 2D renderer of the grid viewer.
package window

import (
	"fmt"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/dunestream/internal/logger"
)

func init() {
	// SDL video calls must be made from the main thread
	runtime.LockOSThread()
}

// Config holds window configuration.
type Config struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	VSync      bool
}

// Window wraps an SDL2 window and its renderer.
type Window struct {
	config   Config
	window   *sdl.Window
	renderer *sdl.Renderer
	log      *zap.Logger
}

// New creates a window with an accelerated renderer.
func New(cfg Config) (*Window, error) {
	w := &Window{
		config: cfg,
		log:    logger.Named("window"),
	}

	w.log.Info("initializing SDL2")
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init failed: %w", err)
	}

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_RESIZABLE)
	if cfg.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}

	var err error
	w.window, err = sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width),
		int32(cfg.Height),
		flags,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}

	rflags := uint32(sdl.RENDERER_ACCELERATED)
	if cfg.VSync {
		rflags |= sdl.RENDERER_PRESENTVSYNC
	}
	w.renderer, err = sdl.CreateRenderer(w.window, -1, rflags)
	if err != nil {
		w.log.Warn("accelerated renderer unavailable, using software", zap.Error(err))
		w.renderer, err = sdl.CreateRenderer(w.window, -1, sdl.RENDERER_SOFTWARE)
	}
	if err != nil {
		_ = w.window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateRenderer failed: %w", err)
	}
	_ = w.renderer.SetDrawBlendMode(sdl.BLENDMODE_BLEND)

	w.log.Info("window created",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Bool("fullscreen", cfg.Fullscreen),
		zap.Bool("vsync", cfg.VSync),
	)

	return w, nil
}

// Close destroys the window and cleans up SDL2.
func (w *Window) Close() {
	w.log.Info("closing window")

	if w.renderer != nil {
		_ = w.renderer.Destroy()
	}
	if w.window != nil {
		_ = w.window.Destroy()
	}

	sdl.Quit()
}

// Clear fills the frame with one colour.
func (w *Window) Clear(r, g, b uint8) {
	_ = w.renderer.SetDrawColor(r, g, b, 255)
	_ = w.renderer.Clear()
}

// FillRect draws a filled rectangle.
func (w *Window) FillRect(x, y, width, height int32, r, g, b, a uint8) {
	_ = w.renderer.SetDrawColor(r, g, b, a)
	_ = w.renderer.FillRect(&sdl.Rect{X: x, Y: y, W: width, H: height})
}

// DrawRect draws a rectangle outline.
func (w *Window) DrawRect(x, y, width, height int32, r, g, b, a uint8) {
	_ = w.renderer.SetDrawColor(r, g, b, a)
	_ = w.renderer.DrawRect(&sdl.Rect{X: x, Y: y, W: width, H: height})
}

// DrawLine draws a line segment.
func (w *Window) DrawLine(x1, y1, x2, y2 int32, r, g, b, a uint8) {
	_ = w.renderer.SetDrawColor(r, g, b, a)
	_ = w.renderer.DrawLine(x1, y1, x2, y2)
}

// Present shows the frame.
func (w *Window) Present() {
	w.renderer.Present()
}

// GetSize returns the current window size.
func (w *Window) GetSize() (int, int) {
	width, height := w.window.GetSize()
	return int(width), int(height)
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) {
	w.window.SetTitle(title)
}
