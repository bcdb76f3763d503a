package streamer

import (
	"fmt"
	stdmath "math"
	"time"

	"github.com/Faultbox/dunestream/internal/config"
	"github.com/Faultbox/dunestream/pkg/math"
)

// Path places the viewer at a point in simulated time.
type Path interface {
	At(t time.Duration) math.Vec2
}

// Line flies in a straight line from the origin.
type Line struct {
	Velocity math.Vec2 // world units per second
}

// At implements Path.
func (l Line) At(t time.Duration) math.Vec2 {
	return l.Velocity.Scale(float32(t.Seconds()))
}

// Orbit circles a centre chosen so the viewer starts at the origin.
type Orbit struct {
	Radius float32
	Speed  float32 // world units per second along the circle
}

// At implements Path.
func (o Orbit) At(t time.Duration) math.Vec2 {
	if o.Radius <= 0 {
		return math.Vec2{}
	}
	angle := float64(o.Speed/o.Radius) * t.Seconds()
	return math.Vec2{
		X: o.Radius*float32(stdmath.Cos(angle)) - o.Radius,
		Y: o.Radius * float32(stdmath.Sin(angle)),
	}
}

// Still never moves.
type Still struct {
	Pos math.Vec2
}

// At implements Path.
func (s Still) At(time.Duration) math.Vec2 {
	return s.Pos
}

// NewPath builds the path described by cfg.
func NewPath(cfg config.ViewerConfig) (Path, error) {
	switch cfg.Path {
	case config.PathLine:
		rad := float64(cfg.Heading) * stdmath.Pi / 180
		return Line{Velocity: math.Vec2{
			X: cfg.Speed * float32(stdmath.Cos(rad)),
			Y: cfg.Speed * float32(stdmath.Sin(rad)),
		}}, nil
	case config.PathOrbit:
		return Orbit{Radius: cfg.Radius, Speed: cfg.Speed}, nil
	case config.PathStill:
		return Still{}, nil
	}
	return nil, fmt.Errorf("unknown viewer path %q", cfg.Path)
}
