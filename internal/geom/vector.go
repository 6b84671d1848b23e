// Package geom provides the small amount of 2D vector math shared by the
// segmenter, the analyzer, and trajectory synthesis.
package geom

import "math"

// Vec is a point or displacement in screen space.
type Vec struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec { return Vec{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec { return Vec{X: v.X - o.X, Y: v.Y - o.Y} }

// Mul returns v scaled by s.
func (v Vec) Mul(s float64) Vec { return Vec{X: v.X * s, Y: v.Y * s} }

// Mag returns the length of v. math.Hypot keeps this stable for extreme
// component magnitudes.
func (v Vec) Mag() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the Euclidean distance between v and o treated as points.
func (v Vec) Dist(o Vec) float64 { return math.Hypot(v.X-o.X, v.Y-o.Y) }

// Dot returns the dot product of v and o.
func (v Vec) Dot(o Vec) float64 { return v.X*o.X + v.Y*o.Y }

// Normalize returns the unit vector in the direction of v, or the zero
// vector when v is degenerate.
func (v Vec) Normalize() Vec {
	m := v.Mag()
	if m < 1e-9 {
		return Vec{}
	}
	return v.Mul(1.0 / m)
}

// Perp returns v rotated 90 degrees counterclockwise.
func (v Vec) Perp() Vec { return Vec{X: -v.Y, Y: v.X} }

// Lerp returns the point a fraction t of the way from v to o.
func (v Vec) Lerp(o Vec, t float64) Vec {
	return Vec{X: v.X + (o.X-v.X)*t, Y: v.Y + (o.Y-v.Y)*t}
}

// Limit truncates v to length max when it is longer.
func (v Vec) Limit(max float64) Vec {
	m := v.Mag()
	if m > max && m > 0 {
		return v.Mul(max / m)
	}
	return v
}
