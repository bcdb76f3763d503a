package lod

import "github.com/Faultbox/dunestream/pkg/math"

// ChunkID is an opaque handle to a chunk owned by the Host.
// The zero value marks an empty binding.
type ChunkID uint64

// NoChunk is the empty binding.
const NoChunk ChunkID = 0

// Visibility is the render state the grid assigns to a chunk.
type Visibility uint8

const (
	Hidden Visibility = iota
	Visible
)

func (v Visibility) String() string {
	if v == Visible {
		return "visible"
	}
	return "hidden"
}

// ChunkRequest is the placeholder record emitted when a slot needs a chunk.
type ChunkRequest struct {
	Coord math.IVec2 // world grid cell
	LOD   uint32     // Chebyshev distance from the anchor at request time
}

// Host builds and owns chunks on behalf of the grid.
//
// The grid only ever holds ChunkIDs. It calls Spawn to request a chunk,
// Despawn once a chunk leaves the window, and promotes visibility only
// for chunks the host reports Ready. A Host returning NoChunk from Spawn
// is asked again on the next spawn pass.
type Host interface {
	Spawn(req ChunkRequest) ChunkID
	Despawn(id ChunkID)
	Ready(id ChunkID) bool
	SetVisibility(id ChunkID, v Visibility)
}
