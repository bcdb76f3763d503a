package lod

import (
	"cmp"
	"slices"

	"github.com/Faultbox/dunestream/pkg/math"
)

// pendingSet holds offsets whose current chunk changed and is not yet
// confirmed visible. Keys are offsets from the anchor.
type pendingSet map[math.IVec2]pendingEntry

type pendingEntry struct {
	since  uint64 // tick the offset was last invalidated
	warned bool
}

// mark (re)invalidates an offset, restarting its stall clock.
func (p pendingSet) mark(offset math.IVec2, tick uint64) {
	p[offset] = pendingEntry{since: tick}
}

// rekey follows a one-cell anchor step: the cell at offset o is now at
// o-step. Offsets leaving the window are dropped.
func (p pendingSet) rekey(step math.IVec2, keep func(math.IVec2) bool) pendingSet {
	next := make(pendingSet, len(p))
	for o, e := range p {
		if n := o.Sub(step); keep(n) {
			next[n] = e
		}
	}
	return next
}

// sorted returns the offsets in row-major order.
func (p pendingSet) sorted() []math.IVec2 {
	out := make([]math.IVec2, 0, len(p))
	for o := range p {
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b math.IVec2) int {
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.X, b.X)
	})
	return out
}

// Pending returns the offsets awaiting a ready chunk, in row-major order.
func (g *Grid) Pending() []math.IVec2 {
	return g.pending.sorted()
}

// PendingLen returns the number of offsets awaiting a ready chunk.
func (g *Grid) PendingLen() int {
	return len(g.pending)
}

// IsPending reports whether the slot at offset awaits a ready chunk.
func (g *Grid) IsPending(offset math.IVec2) bool {
	_, ok := g.pending[offset]
	return ok
}
