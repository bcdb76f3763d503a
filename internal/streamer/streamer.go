// Package streamer wires the LOD grid to the terrain builder and runs the
// tick loop.
package streamer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/dunestream/internal/config"
	"github.com/Faultbox/dunestream/internal/debug"
	"github.com/Faultbox/dunestream/internal/logger"
	"github.com/Faultbox/dunestream/internal/lod"
	"github.com/Faultbox/dunestream/internal/terrain"
	"github.com/Faultbox/dunestream/internal/terrain/cache"
	"github.com/Faultbox/dunestream/pkg/math"
)

// StepReport summarises one tick.
type StepReport struct {
	Tick  lod.TickReport
	Build terrain.PumpReport
	Sent  int // debug clients the snapshot was queued for
}

// Summary accumulates step reports over a run.
type Summary struct {
	Ticks     int
	Steps     int
	Spawned   int
	Swapped   int
	Despawned int
	Built     int
	CacheHits int
	Discarded int
	Elapsed   time.Duration
	Chunks    terrain.StoreStats
}

func (s *Summary) add(r StepReport) {
	s.Ticks++
	s.Steps += r.Tick.Update.Steps
	s.Spawned += r.Tick.Spawned
	s.Swapped += r.Tick.Swapped
	s.Despawned += r.Tick.Update.Despawned
	s.Built += r.Build.Completed
	s.CacheHits += r.Build.CacheHits
	s.Discarded += r.Build.Discarded
}

// Streamer owns the grid, the chunk store and everything feeding them.
// Step, Reseed and Clear must be called from one goroutine.
type Streamer struct {
	cfg *config.Config
	log *zap.Logger

	cache   *cache.SQLite
	store   *terrain.Store
	builder *terrain.Builder
	grid    *lod.Grid

	stream   *debug.Stream
	server   *http.Server
	listener net.Listener
}

// New creates a streamer from a validated config.
func New(cfg *config.Config) (*Streamer, error) {
	s := &Streamer{
		cfg: cfg,
		log: logger.Named("streamer"),
	}

	var hc terrain.HeightCache
	if cfg.Cache.Enabled {
		c, err := cache.Open(cfg.CachePath())
		if err != nil {
			return nil, fmt.Errorf("opening heightfield cache: %w", err)
		}
		s.cache = c
		hc = c
		s.log.Info("heightfield cache opened", zap.String("path", cfg.CachePath()))
	}

	params := cfg.TerrainParams()
	s.pruneCache(params.Digest())
	s.store = terrain.NewStore(params.Size)

	grid, err := lod.NewGrid(cfg.LODConfig(), s.store)
	if err != nil {
		s.closeCache()
		return nil, fmt.Errorf("creating grid: %w", err)
	}
	s.grid = grid

	s.builder = terrain.NewBuilder(s.store, params, terrain.BuilderOptions{
		Workers: cfg.Terrain.Workers,
		Queue:   cfg.Terrain.Queue,
		Cache:   hc,
	})

	if cfg.Debug.Listen != "" {
		if err := s.serve(cfg.Debug.Listen); err != nil {
			s.builder.Close()
			s.closeCache()
			return nil, err
		}
	}

	s.log.Info("streamer initialized",
		zap.Int("extent", cfg.LOD.Extent),
		zap.Int("lod_extent", cfg.LOD.LODExtent),
		zap.Float32("cell_size", cfg.LOD.CellSize),
		zap.Uint32("seed", params.Seed),
	)
	return s, nil
}

func (s *Streamer) serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("debug stream listen on %s: %w", addr, err)
	}
	s.stream = debug.NewStream()
	mux := http.NewServeMux()
	mux.Handle("/ws", s.stream.Handler())
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.listener = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("debug stream stopped", zap.Error(err))
		}
	}()
	s.log.Info("debug stream listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the debug stream address, or "" when disabled.
func (s *Streamer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Grid returns the LOD grid.
func (s *Streamer) Grid() *lod.Grid { return s.grid }

// Store returns the chunk store.
func (s *Streamer) Store() *terrain.Store { return s.store }

// Step moves the viewer to a world position and runs one tick: finished
// builds are applied, then the grid updates, spawns and swaps.
func (s *Streamer) Step(viewer math.Vec2) StepReport {
	s.grid.SetViewer(viewer)

	var r StepReport
	r.Build = s.builder.Pump()
	r.Tick = s.grid.Tick()

	if s.stream != nil && s.stream.Clients() > 0 {
		n, err := s.stream.Publish(debug.Capture(s.grid, s.store))
		if err != nil {
			s.log.Warn("snapshot publish failed", zap.Error(err))
		}
		r.Sent = n
	}
	return r
}

// Run ticks at the configured rate, moving the viewer along path in
// simulated time, until ctx is done or Sim.Ticks ticks have run.
func (s *Streamer) Run(ctx context.Context, path Path) Summary {
	interval := s.cfg.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var sum Summary
	start := time.Now()
	s.log.Info("tick loop started",
		zap.Duration("interval", interval),
		zap.Int("ticks", s.cfg.Sim.Ticks),
	)

loop:
	for s.cfg.Sim.Ticks == 0 || sum.Ticks < s.cfg.Sim.Ticks {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}

		simTime := time.Duration(sum.Ticks) * interval
		r := s.Step(path.At(simTime))
		sum.add(r)

		if r.Tick.Update.Steps > 0 {
			s.log.Debug("anchor moved",
				zap.Stringer("anchor", s.grid.Anchor()),
				zap.Int("steps", r.Tick.Update.Steps),
				zap.Int("despawned", r.Tick.Update.Despawned),
				zap.Int("pending", r.Tick.Pending),
			)
		}
	}

	sum.Elapsed = time.Since(start)
	sum.Chunks = s.store.Stats()
	s.log.Info("tick loop stopped",
		zap.Int("ticks", sum.Ticks),
		zap.Int("steps", sum.Steps),
		zap.Int("spawned", sum.Spawned),
		zap.Int("swapped", sum.Swapped),
		zap.Int("despawned", sum.Despawned),
		zap.Int("built", sum.Built),
		zap.Int("cache_hits", sum.CacheHits),
		zap.Int("live", sum.Chunks.Live),
		zap.Duration("elapsed", sum.Elapsed),
	)
	return sum
}

// Reseed rebuilds every chunk with a new terrain seed.
func (s *Streamer) Reseed(seed uint32) {
	p := s.builder.Params()
	p.Seed = seed
	s.builder.SetParams(p)
	s.pruneCache(p.Digest())
}

// Seed returns the current terrain seed.
func (s *Streamer) Seed() uint32 {
	return s.builder.Params().Seed
}

// Clear despawns every chunk; the grid refills on the next ticks.
func (s *Streamer) Clear() int {
	return s.grid.Clear()
}

// Close stops the debug stream, the builder and the cache.
func (s *Streamer) Close() {
	s.log.Info("closing streamer")

	if s.server != nil {
		s.stream.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.server.Shutdown(ctx); err != nil {
			s.log.Warn("debug stream shutdown", zap.Error(err))
		}
		cancel()
	}
	s.builder.Close()
	s.closeCache()
}

// pruneCache drops heightfields generated with other params.
func (s *Streamer) pruneCache(digest uint64) {
	if s.cache == nil {
		return
	}
	n, err := s.cache.Prune(digest)
	if err != nil {
		s.log.Warn("pruning heightfield cache", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("heightfield cache pruned", zap.Int64("removed", n))
	}
}

func (s *Streamer) closeCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Close(); err != nil {
		s.log.Warn("closing heightfield cache", zap.Error(err))
	}
}
