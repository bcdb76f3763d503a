package lod

import (
	"go.uber.org/zap"

	"github.com/Faultbox/dunestream/pkg/math"
)

// UpdateReport summarises one Update pass.
type UpdateReport struct {
	Steps       int // one-cell anchor steps applied
	Despawned   int // chunks evicted from the window or the LOD rings
	Invalidated int // offsets marked pending
}

// Update moves the grid to the anchor implied by the viewer position.
//
// The move is applied one cell at a time, all Y steps before all X steps.
// Each step rotates the outer rings, despawns what fell off the trailing
// edge, then re-ranks every slot's LOD ring against the new anchor. A move
// of a full grid side or more on either axis leaves nothing to keep, so it
// is applied as a single jump.
func (g *Grid) Update() UpdateReport {
	g.tick++

	var rep UpdateReport
	anchor := g.Anchor()
	target := g.pos.Round()
	dx := int64(target.X) - int64(anchor.X)
	dy := int64(target.Y) - int64(anchor.Y)

	if side := int64(g.cfg.Side()); abs64(dx) >= side || abs64(dy) >= side {
		g.jump(target, &rep)
		rep.Steps = int(abs64(dx) + abs64(dy))
		anchor = target
	}

	delta := target.Sub(anchor)
	for delta.Y != 0 {
		step := math.IVec2{Y: math.Sign(delta.Y)}
		anchor = anchor.Add(step)
		g.step(step, anchor, &rep)
		delta.Y -= step.Y
	}
	for delta.X != 0 {
		step := math.IVec2{X: math.Sign(delta.X)}
		anchor = anchor.Add(step)
		g.step(step, anchor, &rep)
		delta.X -= step.X
	}

	g.prev = g.pos

	if rep.Steps > 0 {
		g.log.Debug("anchor moved",
			zap.Stringer("anchor", anchor),
			zap.Int("steps", rep.Steps),
			zap.Int("despawned", rep.Despawned),
			zap.Int("invalidated", rep.Invalidated),
		)
	}
	return rep
}

// jump releases every slot and rebinds the grid around anchor.
func (g *Grid) jump(anchor math.IVec2, rep *UpdateReport) {
	g.pending = make(pendingSet, len(g.pending))
	side := g.cfg.Side()
	for r := 0; r < side; r++ {
		row := g.rows.At(r)
		for c := 0; c < side; c++ {
			offset := g.offset(r, c)
			rep.Despawned += row.At(c).release(anchor.Add(offset), g.host.Despawn)
			g.pending.mark(offset, g.tick)
			rep.Invalidated++
		}
	}
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// step applies a single one-cell anchor move. anchor is the new anchor.
func (g *Grid) step(step, anchor math.IVec2, rep *UpdateReport) {
	rep.Steps++
	rep.Despawned += g.shift(step, anchor)

	g.pending = g.pending.rekey(step, g.inWindow)

	g.Walk(func(offset math.IVec2, s *Slot) {
		before := offset.Add(step)
		if !g.inWindow(before) {
			// Exposed by this step; its rings are already empty.
			g.pending.mark(offset, g.tick)
			rep.Invalidated++
			return
		}
		shift := offset.Chebyshev() - before.Chebyshev()
		if shift == 0 {
			return
		}
		rep.Despawned += s.shiftLOD(shift, g.host.Despawn)
		g.pending.mark(offset, g.tick)
		rep.Invalidated++
	})
}

// shift rotates the outer rings so contents follow the anchor. The row or
// column falling off the trailing edge is despawned and its slots reused
// for the leading edge.
func (g *Grid) shift(step, anchor math.IVec2) int {
	side := g.cfg.Side()
	last := side - 1
	n := 0

	recycle := func(s *Slot, r, c int) *Slot {
		n += s.release(anchor.Add(g.offset(r, c)), g.host.Despawn)
		return s
	}

	switch {
	case step.Y > 0:
		row := g.rows.ShiftBack()
		for c := 0; c < side; c++ {
			recycle(row.At(c), last, c)
		}
		g.rows.Set(last, row)
	case step.Y < 0:
		row := g.rows.ShiftFront()
		for c := 0; c < side; c++ {
			recycle(row.At(c), 0, c)
		}
		g.rows.Set(0, row)
	case step.X > 0:
		for r := 0; r < side; r++ {
			row := g.rows.At(r)
			row.Set(last, recycle(row.ShiftBack(), r, last))
		}
	case step.X < 0:
		for r := 0; r < side; r++ {
			row := g.rows.At(r)
			row.Set(0, recycle(row.ShiftFront(), r, 0))
		}
	}
	return n
}
