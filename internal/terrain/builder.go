package terrain

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/dunestream/internal/logger"
	"github.com/Faultbox/dunestream/internal/lod"
	"github.com/Faultbox/dunestream/pkg/math"
)

// CacheKey identifies one sampled heightfield.
type CacheKey struct {
	Digest uint64 // Params.Digest of the generating params
	Coord  math.IVec2
	LOD    uint32
}

// HeightCache persists sampled heightfields between runs.
// Implementations must be safe for concurrent use.
type HeightCache interface {
	Load(key CacheKey) (samples []float32, ok bool, err error)
	Store(key CacheKey, samples []float32) error
}

// BuilderOptions configures a Builder. Zero values pick defaults.
type BuilderOptions struct {
	Workers int // defaults to runtime.NumCPU
	Queue   int // job queue depth, defaults to 4 per worker
	Cache   HeightCache
	Noise   func(Params) HeightFunc // defaults to NoiseFor
}

// PumpReport summarizes one Pump call.
type PumpReport struct {
	Submitted int
	Completed int
	Discarded int // results for despawned chunks or stale params
	CacheHits int
	Backlog   int // chunks waiting for queue space
	InFlight  int
}

type job struct {
	id     lod.ChunkID
	coord  math.IVec2
	lod    uint32
	gen    uint64
	digest uint64
	params Params
	hf     HeightFunc
}

type result struct {
	id     lod.ChunkID
	gen    uint64
	mesh   *Mesh
	field  *Heightfield
	cached bool
}

// Builder generates chunk meshes on a pool of worker goroutines.
//
// Pump, SetParams and Close must be called from the goroutine that owns
// the Store. Workers only see immutable job snapshots.
type Builder struct {
	store *Store
	cache HeightCache
	noise func(Params) HeightFunc
	log   *zap.Logger

	params Params
	hf     HeightFunc
	digest uint64
	gen    uint64

	jobs     chan job
	results  chan result
	backlog  []lod.ChunkID
	inflight int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBuilder starts the worker pool.
func NewBuilder(store *Store, params Params, opts BuilderOptions) *Builder {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	queue := opts.Queue
	if queue <= 0 {
		queue = 4 * workers
	}
	noise := opts.Noise
	if noise == nil {
		noise = NoiseFor
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Builder{
		store:   store,
		cache:   opts.Cache,
		noise:   noise,
		log:     logger.Named("builder"),
		params:  params,
		hf:      noise(params),
		digest:  params.Digest(),
		jobs:    make(chan job, queue),
		results: make(chan result, queue),
		cancel:  cancel,
	}

	b.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go b.work(ctx)
	}

	b.log.Info("builder started",
		zap.Int("workers", workers),
		zap.Int("queue", queue),
		zap.Bool("cache", opts.Cache != nil),
	)
	return b
}

// Params returns the params new jobs are built with.
func (b *Builder) Params() Params {
	return b.params
}

// Pump queues newly spawned chunks and applies finished builds to the
// store without blocking.
func (b *Builder) Pump() PumpReport {
	var rep PumpReport
	b.backlog = append(b.backlog, b.store.TakeAdded()...)

	n := 0
submit:
	for ; n < len(b.backlog); n++ {
		c, ok := b.store.Get(b.backlog[n])
		if !ok {
			continue
		}
		j := job{
			id:     c.ID,
			coord:  c.Coord,
			lod:    c.LOD,
			gen:    b.gen,
			digest: b.digest,
			params: b.params,
			hf:     b.hf,
		}
		select {
		case b.jobs <- j:
			rep.Submitted++
			b.inflight++
		default:
			break submit
		}
	}
	b.backlog = append(b.backlog[:0], b.backlog[n:]...)

	for {
		select {
		case r := <-b.results:
			b.inflight--
			b.apply(r, &rep)
		default:
			rep.Backlog = len(b.backlog)
			rep.InFlight = b.inflight
			return rep
		}
	}
}

// Idle reports whether no chunk is queued or being built.
func (b *Builder) Idle() bool {
	return b.inflight == 0 && len(b.backlog) == 0 && b.store.Stats().Added == 0
}

func (b *Builder) apply(r result, rep *PumpReport) {
	c, ok := b.store.Get(r.id)
	if !ok || r.gen != b.gen {
		rep.Discarded++
		return
	}
	c.Mesh = r.mesh
	c.Collider = nil
	if c.LOD == 0 {
		c.Collider = r.field
	}
	c.gen = r.gen
	c.Ready = true
	rep.Completed++
	if r.cached {
		rep.CacheHits++
	}
}

// SetParams rebuilds every live chunk with new params. Chunks keep their
// current mesh and readiness until the rebuild lands.
func (b *Builder) SetParams(p Params) {
	b.params = p
	b.hf = b.noise(p)
	b.digest = p.Digest()
	b.gen++

	b.store.TakeAdded()
	b.backlog = b.store.IDs()

	b.log.Info("params changed, rebuilding",
		zap.Uint32("seed", p.Seed),
		zap.Uint64("digest", b.digest),
		zap.Int("chunks", len(b.backlog)),
	)
}

// Close stops the workers and waits for them to exit. Pending results are
// dropped.
func (b *Builder) Close() {
	b.cancel()
	b.wg.Wait()
}

func (b *Builder) work(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-b.jobs:
			r := b.build(j)
			select {
			case b.results <- r:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (b *Builder) build(j job) result {
	key := CacheKey{Digest: j.digest, Coord: j.coord, LOD: j.lod}
	r := result{id: j.id, gen: j.gen}

	if b.cache != nil {
		samples, ok, err := b.cache.Load(key)
		if err != nil {
			b.log.Warn("heightfield cache load failed",
				zap.Stringer("coord", j.coord),
				zap.Uint32("lod", j.lod),
				zap.Error(err),
			)
		}
		if ok {
			field := newHeightfield(j.params, j.lod)
			if len(samples) == field.Side*field.Side {
				field.Samples = samples
				r.field = field
				r.cached = true
			} else {
				b.log.Warn("heightfield cache entry has wrong size",
					zap.Stringer("coord", j.coord),
					zap.Int("samples", len(samples)),
					zap.Int("want", field.Side*field.Side),
				)
			}
		}
	}

	if r.field == nil {
		r.field = SampleHeights(j.params, j.coord, j.lod, j.hf)
		if b.cache != nil {
			if err := b.cache.Store(key, r.field.Samples); err != nil {
				b.log.Warn("heightfield cache store failed",
					zap.Stringer("coord", j.coord),
					zap.Uint32("lod", j.lod),
					zap.Error(err),
				)
			}
		}
	}

	r.mesh = BuildMesh(r.field)
	return r
}
