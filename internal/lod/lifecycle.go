package lod

import (
	"go.uber.org/zap"

	"github.com/Faultbox/dunestream/pkg/math"
)

// TickReport summarises one full tick.
type TickReport struct {
	Update  UpdateReport
	Spawned int
	Swapped int
	Pending int
}

// Tick runs Update, SpawnChunks and SwapChunks in order.
func (g *Grid) Tick() TickReport {
	rep := TickReport{Update: g.Update()}
	rep.Spawned = g.SpawnChunks()
	rep.Swapped = g.SwapChunks()
	rep.Pending = len(g.pending)
	return rep
}

// SpawnChunks requests a chunk for every slot whose current binding is
// empty. Returns the number of requests the host accepted.
func (g *Grid) SpawnChunks() int {
	anchor := g.Anchor()
	n := 0
	g.Walk(func(offset math.IVec2, s *Slot) {
		if s.Current() != NoChunk {
			return
		}
		req := ChunkRequest{
			Coord: anchor.Add(offset),
			LOD:   uint32(offset.Chebyshev()),
		}
		id := g.host.Spawn(req)
		if id == NoChunk {
			g.log.Debug("spawn deferred", zap.Stringer("coord", req.Coord))
			return
		}
		s.setCurrent(id)
		n++
	})
	return n
}

// SwapChunks promotes ready chunks. For every pending offset whose current
// chunk is ready, that chunk becomes visible, every other binding in the
// slot is hidden, and the offset stops pending. Offsets whose chunk is not
// ready stay pending; the previous chunk keeps showing meanwhile.
func (g *Grid) SwapChunks() int {
	n := 0
	for _, offset := range g.pending.sorted() {
		s, ok := g.SlotAt(offset)
		if !ok {
			delete(g.pending, offset)
			continue
		}

		cur := s.Current()
		if cur == NoChunk || !g.host.Ready(cur) {
			g.checkStall(offset, s)
			continue
		}

		for i, id := range s.lods.All() {
			if id == NoChunk {
				continue
			}
			vis := Hidden
			if i == s.current {
				vis = Visible
			}
			g.host.SetVisibility(id, vis)
		}
		delete(g.pending, offset)
		n++
	}
	return n
}

// checkStall warns once about a slot waiting longer than StallTicks.
func (g *Grid) checkStall(offset math.IVec2, s *Slot) {
	if g.cfg.StallTicks == 0 {
		return
	}
	e := g.pending[offset]
	if e.warned || g.tick-e.since < uint64(g.cfg.StallTicks) {
		return
	}
	e.warned = true
	g.pending[offset] = e
	g.log.Warn("chunk not ready",
		zap.Stringer("offset", offset),
		zap.Stringer("coord", s.Coord()),
		zap.Uint64("chunk", uint64(s.Current())),
		zap.Uint64("waited_ticks", g.tick-e.since),
	)
}

// Stalled returns the pending offsets that have waited at least StallTicks.
// It is empty when StallTicks is zero.
func (g *Grid) Stalled() []math.IVec2 {
	if g.cfg.StallTicks == 0 {
		return nil
	}
	var out []math.IVec2
	for _, o := range g.pending.sorted() {
		if g.tick-g.pending[o].since >= uint64(g.cfg.StallTicks) {
			out = append(out, o)
		}
	}
	return out
}
