package terrain

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/dunestream/internal/logger"
	"github.com/Faultbox/dunestream/internal/lod"
	"github.com/Faultbox/dunestream/pkg/math"
)

// Store owns chunk records and implements lod.Host.
//
// Spawned chunks start hidden and not ready, and are queued on the added
// list until the Builder takes them. Store is not safe for concurrent
// use; it lives on the tick goroutine with the grid.
type Store struct {
	next   lod.ChunkID
	chunks map[lod.ChunkID]*Chunk
	added  []lod.ChunkID
	size   float32
	log    *zap.Logger
}

// StoreStats counts chunks by state.
type StoreStats struct {
	Live    int
	Ready   int
	Visible int
	Added   int
}

// NewStore creates an empty store for chunks of the given world size.
func NewStore(size float32) *Store {
	return &Store{
		chunks: make(map[lod.ChunkID]*Chunk),
		size:   size,
		log:    logger.Named("terrain"),
	}
}

// Spawn implements lod.Host.
func (s *Store) Spawn(req lod.ChunkRequest) lod.ChunkID {
	s.next++
	id := s.next
	s.chunks[id] = &Chunk{
		ID:         id,
		Coord:      req.Coord,
		LOD:        req.LOD,
		Visibility: lod.Hidden,
	}
	s.added = append(s.added, id)
	return id
}

// Despawn implements lod.Host.
func (s *Store) Despawn(id lod.ChunkID) {
	if _, ok := s.chunks[id]; !ok {
		s.log.Warn("despawn of unknown chunk", zap.Uint64("chunk", uint64(id)))
		return
	}
	delete(s.chunks, id)
}

// Ready implements lod.Host.
func (s *Store) Ready(id lod.ChunkID) bool {
	c, ok := s.chunks[id]
	return ok && c.Ready
}

// SetVisibility implements lod.Host.
func (s *Store) SetVisibility(id lod.ChunkID, v lod.Visibility) {
	if c, ok := s.chunks[id]; ok {
		c.Visibility = v
	}
}

// Get returns a live chunk.
func (s *Store) Get(id lod.ChunkID) (*Chunk, bool) {
	c, ok := s.chunks[id]
	return c, ok
}

// TakeAdded returns the chunks spawned since the last call, skipping any
// already despawned.
func (s *Store) TakeAdded() []lod.ChunkID {
	out := s.added[:0:0]
	for _, id := range s.added {
		if _, ok := s.chunks[id]; ok {
			out = append(out, id)
		}
	}
	s.added = s.added[:0]
	return out
}

// IDs returns every live chunk ID in ascending order.
func (s *Store) IDs() []lod.ChunkID {
	ids := make([]lod.ChunkID, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Visible returns the chunks a renderer should draw, ordered by coordinate.
func (s *Store) Visible() []*Chunk {
	var out []*Chunk
	for _, c := range s.chunks {
		if c.Visibility == lod.Visible {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *Chunk) int {
		if c := cmp.Compare(a.Coord.Y, b.Coord.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.Coord.X, b.Coord.X)
	})
	return out
}

// Len returns the number of live chunks.
func (s *Store) Len() int {
	return len(s.chunks)
}

// Stats counts chunks by state.
func (s *Store) Stats() StoreStats {
	st := StoreStats{Live: len(s.chunks), Added: len(s.added)}
	for _, c := range s.chunks {
		if c.Ready {
			st.Ready++
		}
		if c.Visibility == lod.Visible {
			st.Visible++
		}
	}
	return st
}

// HeightAt returns the ground height at a world position from the visible
// LOD 0 chunk covering it. ok is false when no such chunk has a collider.
func (s *Store) HeightAt(world math.Vec2) (h float32, ok bool) {
	coord := world.Scale(1 / s.size).Round()
	for _, c := range s.chunks {
		if c.Coord != coord || c.Collider == nil || c.Visibility != lod.Visible {
			continue
		}
		local := world.Sub(c.Origin(s.size))
		return c.Collider.HeightAt(local.X, local.Y), true
	}
	return 0, false
}
