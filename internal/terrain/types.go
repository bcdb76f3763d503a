// Package terrain builds the chunks the LOD grid asks for.
//
// Store implements lod.Host: it owns chunk records and reports readiness.
// Builder turns freshly spawned records into heightfield meshes on a pool
// of worker goroutines and hands them back to the store on the tick
// goroutine.
package terrain

import (
	"encoding/binary"
	stdmath "math"

	"github.com/cespare/xxhash/v2"

	"github.com/Faultbox/dunestream/internal/lod"
	"github.com/Faultbox/dunestream/pkg/math"
)

// SkirtRatio enlarges chunks so neighbours of different LOD overlap and
// blend. The overlap slopes down to hide seams.
const SkirtRatio = 1.2

// Params controls heightfield generation.
type Params struct {
	NbVertices  int     // quads per chunk side at LOD 0
	Size        float32 // chunk size in world units
	Seed        uint32
	Amplitude   float64
	Scale       float32 // world-to-noise scale
	Power       float64
	Skew        float64
	Octaves     int
	Persistence float64
}

// DefaultParams returns the desert defaults.
func DefaultParams() Params {
	return Params{
		NbVertices:  64,
		Size:        512,
		Seed:        0,
		Amplitude:   20,
		Scale:       0.001,
		Power:       2,
		Skew:        1,
		Octaves:     4,
		Persistence: 0.5,
	}
}

// Digest fingerprints every field that changes generated heights.
func (p Params) Digest() uint64 {
	var buf [8 * 9]byte
	fields := []uint64{
		uint64(p.NbVertices),
		uint64(stdmath.Float32bits(p.Size)),
		uint64(p.Seed),
		stdmath.Float64bits(p.Amplitude),
		uint64(stdmath.Float32bits(p.Scale)),
		stdmath.Float64bits(p.Power),
		stdmath.Float64bits(p.Skew),
		uint64(p.Octaves),
		stdmath.Float64bits(p.Persistence),
	}
	for i, f := range fields {
		binary.LittleEndian.PutUint64(buf[i*8:], f)
	}
	return xxhash.Sum64(buf[:])
}

// Vertex is a terrain mesh vertex.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
}

// Bounds holds the axis-aligned bounding box of a mesh.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Mesh holds one chunk's triangle list, in chunk-local coordinates.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Bounds   Bounds
}

// Heightfield is a square grid of height samples, row-major by Y.
type Heightfield struct {
	Side    int
	Step    float32 // world distance between samples
	Origin  float32 // chunk-local coordinate of sample (0,0) on both axes
	Samples []float32
}

// At returns the sample at column x, row y.
func (h *Heightfield) At(x, y int) float32 {
	return h.Samples[y*h.Side+x]
}

// Chunk is one spawned terrain chunk.
type Chunk struct {
	ID         lod.ChunkID
	Coord      math.IVec2
	LOD        uint32
	Visibility lod.Visibility
	Ready      bool
	Mesh       *Mesh
	// Collider is only kept for LOD 0 chunks.
	Collider *Heightfield

	gen uint64 // build generation the mesh belongs to
}

// Origin returns the chunk centre in world units.
func (c *Chunk) Origin(size float32) math.Vec2 {
	return c.Coord.Vec2().Scale(size)
}
