// Package config handles streamer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Faultbox/dunestream/internal/lod"
	"github.com/Faultbox/dunestream/internal/terrain"
)

// Config holds all streamer settings.
type Config struct {
	LOD     LODConfig     `yaml:"lod"`
	Terrain TerrainConfig `yaml:"terrain"`
	Cache   CacheConfig   `yaml:"cache"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Sim     SimConfig     `yaml:"sim"`
	Debug   DebugConfig   `yaml:"debug"`
	Window  WindowConfig  `yaml:"window"`
	Logging LoggingConfig `yaml:"logging"`
}

// LODConfig holds the grid dimensions.
type LODConfig struct {
	Extent     int     `yaml:"extent"`      // view distance in cells
	LODExtent  int     `yaml:"lod_extent"`  // LOD ring half-width per slot
	CellSize   float32 `yaml:"cell_size"`   // world units per cell
	StallTicks int     `yaml:"stall_ticks"` // warn after this many ticks pending, 0 = off
}

// TerrainConfig holds heightfield generation and builder settings.
type TerrainConfig struct {
	NbVertices  int     `yaml:"nb_vertices"`
	Seed        uint32  `yaml:"seed"`
	Amplitude   float64 `yaml:"amplitude"`
	Scale       float32 `yaml:"scale"`
	Power       float64 `yaml:"power"`
	Skew        float64 `yaml:"skew"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
	Workers     int     `yaml:"workers"` // 0 = one per CPU
	Queue       int     `yaml:"queue"`   // 0 = four per worker
}

// CacheConfig holds the heightfield cache settings.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // empty = heights.db in the config dir
}

// ViewerConfig holds the scripted viewer path of the headless driver.
type ViewerConfig struct {
	Path    string  `yaml:"path"`    // "line", "orbit" or "still"
	Speed   float32 `yaml:"speed"`   // world units per second
	Heading float32 `yaml:"heading"` // degrees, line path only
	Radius  float32 `yaml:"radius"`  // orbit path only
}

// SimConfig holds tick loop settings.
type SimConfig struct {
	TickRate int `yaml:"tick_rate"` // ticks per second
	Ticks    int `yaml:"ticks"`     // stop after this many, 0 = until interrupted
}

// DebugConfig holds debug stream settings.
type DebugConfig struct {
	Listen string `yaml:"listen"` // websocket address, empty = off
}

// WindowConfig holds viewer window settings.
type WindowConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Viewer paths.
const (
	PathLine  = "line"
	PathOrbit = "orbit"
	PathStill = "still"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	p := terrain.DefaultParams()
	g := lod.DefaultConfig()
	return &Config{
		LOD: LODConfig{
			Extent:     g.Extent,
			LODExtent:  g.LODExtent,
			CellSize:   g.CellSize,
			StallTicks: 600,
		},
		Terrain: TerrainConfig{
			NbVertices:  p.NbVertices,
			Seed:        p.Seed,
			Amplitude:   p.Amplitude,
			Scale:       p.Scale,
			Power:       p.Power,
			Skew:        p.Skew,
			Octaves:     p.Octaves,
			Persistence: p.Persistence,
		},
		Cache: CacheConfig{
			Enabled: false,
		},
		Viewer: ViewerConfig{
			Path:   PathLine,
			Speed:  200,
			Radius: 2048,
		},
		Sim: SimConfig{
			TickRate: 30,
			Ticks:    0,
		},
		Window: WindowConfig{
			Width:  960,
			Height: 960,
			VSync:  true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks the settings that would otherwise fail deep inside the
// grid or builder.
func (c *Config) Validate() error {
	var errs []error
	if err := c.LODConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.LOD.StallTicks < 0 {
		errs = append(errs, fmt.Errorf("lod.stall_ticks must not be negative, got %d", c.LOD.StallTicks))
	}
	if c.Terrain.NbVertices <= 0 {
		errs = append(errs, fmt.Errorf("terrain.nb_vertices must be positive, got %d", c.Terrain.NbVertices))
	}
	if c.Terrain.Octaves <= 0 {
		errs = append(errs, fmt.Errorf("terrain.octaves must be positive, got %d", c.Terrain.Octaves))
	}
	if c.Terrain.Workers < 0 || c.Terrain.Queue < 0 {
		errs = append(errs, fmt.Errorf("terrain.workers and terrain.queue must not be negative"))
	}
	switch c.Viewer.Path {
	case PathLine, PathOrbit, PathStill:
	default:
		errs = append(errs, fmt.Errorf("viewer.path %q is not one of line, orbit, still", c.Viewer.Path))
	}
	if c.Viewer.Path == PathOrbit && c.Viewer.Radius <= 0 {
		errs = append(errs, fmt.Errorf("viewer.radius must be positive for an orbit, got %g", c.Viewer.Radius))
	}
	if c.Sim.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("sim.tick_rate must be positive, got %d", c.Sim.TickRate))
	}
	if c.Sim.Ticks < 0 {
		errs = append(errs, fmt.Errorf("sim.ticks must not be negative, got %d", c.Sim.Ticks))
	}
	return errors.Join(errs...)
}

// LODConfig returns the grid dimensions.
func (c *Config) LODConfig() lod.Config {
	return lod.Config{
		Extent:     c.LOD.Extent,
		LODExtent:  c.LOD.LODExtent,
		CellSize:   c.LOD.CellSize,
		StallTicks: c.LOD.StallTicks,
	}
}

// TerrainParams returns the generation params. Chunks are one grid cell
// wide.
func (c *Config) TerrainParams() terrain.Params {
	t := c.Terrain
	return terrain.Params{
		NbVertices:  t.NbVertices,
		Size:        c.LOD.CellSize,
		Seed:        t.Seed,
		Amplitude:   t.Amplitude,
		Scale:       t.Scale,
		Power:       t.Power,
		Skew:        t.Skew,
		Octaves:     t.Octaves,
		Persistence: t.Persistence,
	}
}

// CachePath returns the heightfield cache file.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(ConfigDir(), "heights.db")
}

// TickInterval returns the duration of one tick.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(max(c.Sim.TickRate, 1))
}
