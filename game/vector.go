package game

import (
	"math"
	"math/rand/v2"
)

type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func V(x, y float64) Vec { return Vec{X: x, Y: y} }

// FromAngle returns the unit vector pointing at angle radians.
func FromAngle(angle float64) Vec {
	return Vec{X: math.Cos(angle), Y: math.Sin(angle)}
}

func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Mul(k float64) Vec { return Vec{v.X * k, v.Y * k} }
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec) IsZero() bool { return v.X == 0 && v.Y == 0 }
func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Len() }

// Normalize returns v scaled to length 1, or the zero vector if v is too
// short to have a direction.
func (v Vec) Normalize() Vec {
	if l := v.Len(); l > 1e-9 {
		return v.Mul(1 / l)
	}
	return Vec{}
}

// ClampLen returns v with its length capped at limit.
func (v Vec) ClampLen(limit float64) Vec {
	if l := v.Len(); l > limit && l > 0 {
		return v.Mul(limit / l)
	}
	return v
}

// CirclesOverlap reports whether two circles strictly intersect.
func CirclesOverlap(a Vec, ra float64, b Vec, rb float64) bool {
	return a.Dist(b) < ra+rb
}

// RandomInAnnulus samples a point at a uniform angle and a uniform radius in
// [rMin, rMax) around center. rMin == 0 samples the disc the same way the
// client does, which biases toward the middle.
func RandomInAnnulus(rng *rand.Rand, center Vec, rMin, rMax float64) Vec {
	angle := rng.Float64() * 2 * math.Pi
	r := rMin + rng.Float64()*(rMax-rMin)
	return center.Add(FromAngle(angle).Mul(r))
}

// ClampToDisc pulls p back inside the disc of radius r around center.
func ClampToDisc(p, center Vec, r float64) Vec {
	d := p.Sub(center)
	if d.Len() <= r {
		return p
	}
	return center.Add(d.ClampLen(r))
}
