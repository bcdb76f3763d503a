package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagExtent     = flag.Int("extent", -1, "View distance in cells")
	flagLODExtent  = flag.Int("lod-extent", -1, "LOD ring half-width per slot")
	flagCellSize   = flag.Float64("cell-size", 0, "World units per grid cell")
	flagSeed       = flag.Int64("seed", -1, "Terrain seed")
	flagWorkers    = flag.Int("workers", -1, "Mesh builder workers (0 = one per CPU)")
	flagCache      = flag.String("cache", "", "Heightfield cache file; enables the cache")
	flagStream     = flag.String("stream", "", "Debug websocket listen address, e.g. 127.0.0.1:8787")
	flagTicks      = flag.Int("ticks", -1, "Stop after this many ticks (0 = until interrupted)")
	flagFullscreen = flag.Bool("fullscreen", false, "Run the viewer fullscreen")
	flagWidth      = flag.Int("width", 0, "Viewer window width")
	flagHeight     = flag.Int("height", 0, "Viewer window height")
	flagWrite      = flag.String("write-config", "", "Write the effective config to this path and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// WriteConfigPath returns the -write-config path, or "" when unset.
func WriteConfigPath() string {
	return *flagWrite
}

// applyFlags applies CLI flag overrides to the config. Negative or empty
// flag values mean "not set".
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagExtent >= 0 {
		cfg.LOD.Extent = *flagExtent
	}
	if *flagLODExtent >= 0 {
		cfg.LOD.LODExtent = *flagLODExtent
	}
	if *flagCellSize > 0 {
		cfg.LOD.CellSize = float32(*flagCellSize)
	}
	if *flagSeed >= 0 {
		cfg.Terrain.Seed = uint32(*flagSeed)
	}
	if *flagWorkers >= 0 {
		cfg.Terrain.Workers = *flagWorkers
	}
	if *flagCache != "" {
		cfg.Cache.Enabled = true
		cfg.Cache.Path = *flagCache
	}
	if *flagStream != "" {
		cfg.Debug.Listen = *flagStream
	}
	if *flagTicks >= 0 {
		cfg.Sim.Ticks = *flagTicks
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
}
