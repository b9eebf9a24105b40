package common

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
)

// Epsilon is the length below which a direction is treated as degenerate.
const Epsilon = 1e-9

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Vec3 is a world-space point. Y is up; motion happens in the X/Z plane.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vec3) Distance(o Vec3) float64 {
	return v.Sub(o).Length()
}

// Plane projects v onto the ground plane used by the physics space.
func (v Vec3) Plane() cp.Vector {
	return cp.Vector{X: v.X, Y: v.Z}
}

// String matches the "(x, y, z)" form the trajectory tooling parses.
func (v Vec3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// FromPlane lifts a plane point back into world space at height y.
func FromPlane(p cp.Vector, y float64) Vec3 {
	return Vec3{X: p.X, Y: y, Z: p.Y}
}

// SignedAngleDeg returns the angle from forward to dir in degrees within
// [-180, 180]. Positive is counter-clockwise about the up axis. Zero-length
// inputs yield 0.
func SignedAngleDeg(forward, dir cp.Vector) float64 {
	if forward.Length() < Epsilon || dir.Length() < Epsilon {
		return 0
	}
	cross := forward.X*dir.Y - forward.Y*dir.X
	dot := forward.X*dir.X + forward.Y*dir.Y
	return math.Atan2(cross, dot) * 180 / math.Pi
}

func DegToRad(d float64) float64 {
	return d * math.Pi / 180
}
