package terrain

import (
	stdmath "math"
)

// HeightFunc samples a height in roughly [-1, 1] at a noise-space point.
// Implementations must be safe for concurrent use.
type HeightFunc interface {
	Height(x, y float64) float64
}

// HeightFuncOf adapts a plain function.
type HeightFuncOf func(x, y float64) float64

// Height implements HeightFunc.
func (f HeightFuncOf) Height(x, y float64) float64 {
	return f(x, y)
}

// ValueNoise is fractal value noise over a hashed integer lattice.
type ValueNoise struct {
	Seed        uint32
	Octaves     int
	Persistence float64
}

// NoiseFor returns the default height function for p.
func NoiseFor(p Params) HeightFunc {
	return ValueNoise{Seed: p.Seed, Octaves: p.Octaves, Persistence: p.Persistence}
}

// Height implements HeightFunc.
func (n ValueNoise) Height(x, y float64) float64 {
	octaves := max(n.Octaves, 1)
	var sum, norm float64
	amp, freq := 1.0, 1.0
	for o := 0; o < octaves; o++ {
		sum += amp * n.lattice(x*freq, y*freq, uint32(o))
		norm += amp
		amp *= n.Persistence
		freq *= 2
	}
	return sum / norm
}

// lattice interpolates hashed corner values with a smoothstep fade.
func (n ValueNoise) lattice(x, y float64, octave uint32) float64 {
	x0, y0 := stdmath.Floor(x), stdmath.Floor(y)
	fx, fy := fade(x-x0), fade(y-y0)
	ix, iy := int32(x0), int32(y0)

	seed := n.Seed + octave*0x9e3779b9
	v00 := corner(seed, ix, iy)
	v10 := corner(seed, ix+1, iy)
	v01 := corner(seed, ix, iy+1)
	v11 := corner(seed, ix+1, iy+1)

	top := v00 + (v10-v00)*fx
	bottom := v01 + (v11-v01)*fx
	return top + (bottom-top)*fy
}

func fade(t float64) float64 {
	return t * t * (3 - 2*t)
}

// corner maps a lattice point to [-1, 1].
func corner(seed uint32, x, y int32) float64 {
	return float64(hash2(seed, x, y))/float64(stdmath.MaxUint32)*2 - 1
}

func hash2(seed uint32, x, y int32) uint32 {
	h := seed
	h ^= uint32(x) * 0x9e3779b1
	h ^= uint32(y) * 0x85ebca6b
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	h *= 0x846ca68b
	h ^= h >> 16
	return h
}
