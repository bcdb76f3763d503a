// Package debug provides debug visualization of the LOD grid.
package debug

import (
	"github.com/Faultbox/dunestream/internal/lod"
	"github.com/Faultbox/dunestream/internal/terrain"
	"github.com/Faultbox/dunestream/pkg/math"
)

// State is what a slot's current binding is doing.
type State string

const (
	StateEmpty    State = "empty"    // nothing spawned yet
	StateBuilding State = "building" // spawned, mesh not ready
	StateHidden   State = "hidden"   // ready, waiting for the swap pass
	StateVisible  State = "visible"
)

// Color is an RGB triple.
type Color [3]uint8

// lodColors cycles by LOD level, finest first.
var lodColors = []Color{
	{230, 90, 60},
	{240, 170, 50},
	{200, 210, 70},
	{90, 190, 110},
	{70, 150, 210},
	{130, 100, 200},
}

// Cell is one grid slot as seen by the overlay.
type Cell struct {
	Offset   math.IVec2 `json:"offset"`
	Coord    math.IVec2 `json:"coord"`
	LOD      uint32     `json:"lod"`
	State    State      `json:"state"`
	Pending  bool       `json:"pending"`
	Bindings int        `json:"bindings"` // bound chunks including hidden former LODs
	Color    Color      `json:"color"`
}

// LODColor returns the overlay colour of a LOD level.
func LODColor(level uint32) Color {
	return lodColors[int(level)%len(lodColors)]
}

// Shade returns the cell colour dimmed by state, so visible cells stand
// out from ones still streaming in.
func (c Cell) Shade() Color {
	var f uint16
	switch c.State {
	case StateVisible:
		return c.Color
	case StateHidden:
		f = 160
	case StateBuilding:
		f = 90
	default:
		return Color{40, 40, 40}
	}
	return Color{
		uint8(uint16(c.Color[0]) * f / 255),
		uint8(uint16(c.Color[1]) * f / 255),
		uint8(uint16(c.Color[2]) * f / 255),
	}
}

// Overlay describes every slot of the grid in row-major order.
func Overlay(g *lod.Grid, s *terrain.Store) []Cell {
	side := g.Config().Side()
	cells := make([]Cell, 0, side*side)
	anchor := g.Anchor()

	g.Walk(func(offset math.IVec2, slot *lod.Slot) {
		level := uint32(offset.Chebyshev())
		cell := Cell{
			Offset:   offset,
			Coord:    anchor.Add(offset),
			LOD:      level,
			State:    StateEmpty,
			Pending:  g.IsPending(offset),
			Bindings: slot.Bound(),
			Color:    LODColor(level),
		}
		if c, ok := s.Get(slot.Current()); ok {
			switch {
			case !c.Ready:
				cell.State = StateBuilding
			case c.Visibility == lod.Visible:
				cell.State = StateVisible
			default:
				cell.State = StateHidden
			}
		}
		cells = append(cells, cell)
	})
	return cells
}

// Snapshot is one tick of grid state for the debug stream.
type Snapshot struct {
	Tick    uint64             `json:"tick"`
	Viewer  math.Vec2          `json:"viewer"`
	Anchor  math.IVec2         `json:"anchor"`
	Pending int                `json:"pending"`
	Stalled int                `json:"stalled"`
	Chunks  terrain.StoreStats `json:"chunks"`
	Cells   []Cell             `json:"cells"`
}

// Capture builds a snapshot of the grid and store.
func Capture(g *lod.Grid, s *terrain.Store) Snapshot {
	return Snapshot{
		Tick:    g.Ticks(),
		Viewer:  g.Viewer(),
		Anchor:  g.Anchor(),
		Pending: g.PendingLen(),
		Stalled: len(g.Stalled()),
		Chunks:  s.Stats(),
		Cells:   Overlay(g, s),
	}
}
