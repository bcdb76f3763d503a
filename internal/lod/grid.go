package lod

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/dunestream/internal/logger"
	"github.com/Faultbox/dunestream/pkg/math"
	"github.com/Faultbox/dunestream/pkg/ring"
)

// Grid is the toroidal LOD grid.
//
// rows is indexed [r][c] with r = offset.Y + Extent and c = offset.X + Extent.
// After Update the slot at offset (0,0) always represents the anchor.
type Grid struct {
	cfg  Config
	host Host
	log  *zap.Logger

	rows *ring.Ring[*ring.Ring[*Slot]]

	// Viewer positions in grid units. prev is what the rings reflect.
	pos  math.Vec2
	prev math.Vec2

	pending pendingSet
	tick    uint64
}

// NewGrid creates a grid anchored at the origin with every slot pending.
func NewGrid(cfg Config, host Host) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if host == nil {
		return nil, fmt.Errorf("%w: nil host", ErrInvalidConfig)
	}

	side := cfg.Side()
	rows, err := ring.New[*ring.Ring[*Slot]](side)
	if err != nil {
		return nil, err
	}
	for r := 0; r < side; r++ {
		row, err := ring.New[*Slot](side)
		if err != nil {
			return nil, err
		}
		for c := 0; c < side; c++ {
			row.Set(c, newSlot(cfg))
		}
		rows.Set(r, row)
	}

	g := &Grid{
		cfg:     cfg,
		host:    host,
		log:     logger.Named("lod"),
		rows:    rows,
		pending: make(pendingSet),
	}
	g.rebind()

	g.log.Debug("grid created",
		zap.Int("extent", cfg.Extent),
		zap.Int("lod_extent", cfg.LODExtent),
		zap.Float32("cell_size", cfg.CellSize),
	)
	return g, nil
}

// Config returns the grid dimensions.
func (g *Grid) Config() Config {
	return g.cfg
}

// SetViewer records the viewer position in world units.
// The grid catches up on the next Update. Non-finite positions are ignored.
func (g *Grid) SetViewer(world math.Vec2) {
	pos := world.Scale(1 / g.cfg.CellSize)
	if !pos.IsFinite() {
		g.log.Warn("ignoring non-finite viewer position",
			zap.Float32("x", world.X),
			zap.Float32("y", world.Y),
		)
		return
	}
	g.pos = pos
}

// Viewer returns the last recorded viewer position in grid units.
func (g *Grid) Viewer() math.Vec2 {
	return g.pos
}

// Anchor returns the cell the grid is currently centred on.
func (g *Grid) Anchor() math.IVec2 {
	return g.prev.Round()
}

// Ticks returns the number of Update calls so far.
func (g *Grid) Ticks() uint64 {
	return g.tick
}

// SlotAt returns the slot at an offset from the anchor.
// ok is false for offsets outside the window.
func (g *Grid) SlotAt(offset math.IVec2) (s *Slot, ok bool) {
	r, c, ok := g.cell(offset)
	if !ok {
		return nil, false
	}
	return g.slot(r, c), true
}

// Walk calls fn for every slot in row-major order.
func (g *Grid) Walk(fn func(offset math.IVec2, s *Slot)) {
	side := g.cfg.Side()
	for r := 0; r < side; r++ {
		row := g.rows.At(r)
		for c := 0; c < side; c++ {
			fn(g.offset(r, c), row.At(c))
		}
	}
}

// Clear despawns every chunk the grid holds and marks every slot pending,
// as if the grid had just been created at the current anchor.
func (g *Grid) Clear() int {
	n := 0
	side := g.cfg.Side()
	anchor := g.Anchor()
	for r := 0; r < side; r++ {
		row := g.rows.At(r)
		for c := 0; c < side; c++ {
			n += row.At(c).release(anchor.Add(g.offset(r, c)), g.host.Despawn)
		}
	}
	g.rebind()
	g.log.Info("grid cleared", zap.Int("despawned", n), zap.Stringer("anchor", anchor))
	return n
}

// rebind sets every slot's coordinate from the anchor and marks it pending.
func (g *Grid) rebind() {
	anchor := g.Anchor()
	g.Walk(func(offset math.IVec2, s *Slot) {
		s.coord = anchor.Add(offset)
		g.pending.mark(offset, g.tick)
	})
}

func (g *Grid) slot(r, c int) *Slot {
	return g.rows.At(r).At(c)
}

func (g *Grid) offset(r, c int) math.IVec2 {
	e := g.cfg.Extent
	return math.IVec2{X: int32(c - e), Y: int32(r - e)}
}

func (g *Grid) cell(offset math.IVec2) (r, c int, ok bool) {
	e := g.cfg.Extent
	r, c = int(offset.Y)+e, int(offset.X)+e
	side := g.cfg.Side()
	if r < 0 || r >= side || c < 0 || c >= side {
		return 0, 0, false
	}
	return r, c, true
}

func (g *Grid) inWindow(offset math.IVec2) bool {
	_, _, ok := g.cell(offset)
	return ok
}
