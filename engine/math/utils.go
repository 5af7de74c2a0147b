package math

import (
	m "math"

	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// WrapAngle maps radians into [0, 2π).
func WrapAngle(radians float64) float64 {
	r := m.Mod(radians, 2*m.Pi)
	if r < 0 {
		r += 2 * m.Pi
	}
	if r >= 2*m.Pi {
		r = 0
	}
	return r
}

// AngleDistance returns the shortest distance between two angles on the circle.
func AngleDistance(a, b float64) float64 {
	d := WrapAngle(a - b)
	if d > m.Pi {
		d = 2*m.Pi - d
	}
	return d
}
