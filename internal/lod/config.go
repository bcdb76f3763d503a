// Package lod implements the level-of-detail chunk streaming grid.
//
// The grid is a toroidal square of slots centred on an integer anchor.
// Each slot holds a small ring of chunk bindings, one per LOD step around
// the level its distance from the anchor calls for. When the anchor moves
// the rings are rotated instead of rebuilt, chunks falling off the window
// are despawned, and replacements are only made visible once the Host
// reports them ready.
//
// A Grid is not safe for concurrent use. Run Update, SpawnChunks and
// SwapChunks in that order from one goroutine, or call Tick.
package lod

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by NewGrid for unusable dimensions.
var ErrInvalidConfig = errors.New("lod: invalid config")

// Config holds the grid dimensions.
type Config struct {
	// Extent is the view distance in cells; the grid side is 2*Extent+1.
	Extent int
	// LODExtent is the half-width of each slot's LOD ring. It must be at
	// least 1 so a slot can hold the outgoing chunk next to its
	// replacement.
	LODExtent int
	// CellSize is the world size of one grid cell.
	CellSize float32
	// StallTicks logs a warning once a slot has waited this many ticks
	// for a ready chunk. Zero disables the warning. Stalled slots are
	// never evicted.
	StallTicks int
}

// DefaultConfig returns the dimensions used by the game.
func DefaultConfig() Config {
	return Config{
		Extent:    2,
		LODExtent: 2,
		CellSize:  512,
	}
}

// Validate checks the dimensions.
func (c Config) Validate() error {
	switch {
	case c.Extent < 0:
		return fmt.Errorf("%w: extent %d", ErrInvalidConfig, c.Extent)
	case c.LODExtent < 1:
		return fmt.Errorf("%w: lod extent %d", ErrInvalidConfig, c.LODExtent)
	case c.CellSize <= 0:
		return fmt.Errorf("%w: cell size %g", ErrInvalidConfig, c.CellSize)
	case c.StallTicks < 0:
		return fmt.Errorf("%w: stall ticks %d", ErrInvalidConfig, c.StallTicks)
	}
	return nil
}

// Side returns the number of slots along one axis.
func (c Config) Side() int {
	return 2*c.Extent + 1
}

// LODLen returns the size of a slot's LOD ring.
func (c Config) LODLen() int {
	return 2*c.LODExtent + 1
}

// Current returns the LOD ring index holding the active chunk.
func (c Config) Current() int {
	return c.LODExtent
}
