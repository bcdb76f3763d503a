package math

import "fmt"

// IVec2 is an integer 2D coordinate, used for grid cells and offsets.
type IVec2 struct {
	X, Y int32
}

// Add returns v + other.
func (v IVec2) Add(other IVec2) IVec2 {
	return IVec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v IVec2) Sub(other IVec2) IVec2 {
	return IVec2{v.X - other.X, v.Y - other.Y}
}

// IsZero reports whether both components are zero.
func (v IVec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Chebyshev returns max(|x|, |y|), the "ring" distance from the origin.
func (v IVec2) Chebyshev() int32 {
	return max(abs32(v.X), abs32(v.Y))
}

// Vec2 converts to a float vector.
func (v IVec2) Vec2() Vec2 {
	return Vec2{float32(v.X), float32(v.Y)}
}

func (v IVec2) String() string {
	return fmt.Sprintf("(%d,%d)", v.X, v.Y)
}

// Sign returns the component-wise sign of n as -1, 0 or 1.
func Sign(n int32) int32 {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

func abs32(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}
