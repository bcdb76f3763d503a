package lod

import (
	"github.com/Faultbox/dunestream/pkg/math"
	"github.com/Faultbox/dunestream/pkg/ring"
)

// Slot is one grid cell: a ring of chunk bindings around the current LOD.
//
// Index Current holds the chunk for the LOD the slot's distance calls for.
// Lower indices hold chunks of finer former levels, higher indices coarser
// ones, kept hidden so a slot moving back can reuse them.
type Slot struct {
	coord   math.IVec2
	lods    *ring.Ring[ChunkID]
	current int
}

func newSlot(cfg Config) *Slot {
	lods, err := ring.New[ChunkID](cfg.LODLen())
	if err != nil {
		// LODLen is always at least one.
		panic(err)
	}
	return &Slot{lods: lods, current: cfg.Current()}
}

// Coord returns the world cell the slot represents.
func (s *Slot) Coord() math.IVec2 {
	return s.coord
}

// Current returns the active binding.
func (s *Slot) Current() ChunkID {
	return s.lods.At(s.current)
}

// At returns the binding at LOD ring index i.
func (s *Slot) At(i int) ChunkID {
	return s.lods.At(i)
}

// Len returns the LOD ring size.
func (s *Slot) Len() int {
	return s.lods.Len()
}

// Bound returns the number of non-empty bindings.
func (s *Slot) Bound() int {
	n := 0
	for _, id := range s.lods.All() {
		if id != NoChunk {
			n++
		}
	}
	return n
}

func (s *Slot) setCurrent(id ChunkID) {
	s.lods.Set(s.current, id)
}

// shiftLOD moves the bindings by delta LOD steps. Positive delta means the
// slot got farther from the anchor. Evicted bindings are passed to evict.
func (s *Slot) shiftLOD(delta int32, evict func(ChunkID)) int {
	n := 0
	for ; delta > 0; delta-- {
		if id := s.lods.ShiftBack(); id != NoChunk {
			evict(id)
			n++
		}
	}
	for ; delta < 0; delta++ {
		if id := s.lods.ShiftFront(); id != NoChunk {
			evict(id)
			n++
		}
	}
	return n
}

// release evicts every binding and rebinds the slot to coord.
func (s *Slot) release(coord math.IVec2, evict func(ChunkID)) int {
	n := 0
	for _, id := range s.lods.Drain() {
		if id != NoChunk {
			evict(id)
			n++
		}
	}
	s.coord = coord
	return n
}
