package game

import "math"

// Vector2 is a position or velocity on the board.
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vector2) Add(o Vector2) Vector2 {
	return Vector2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Scale returns v * k.
func (v Vector2) Scale(k float64) Vector2 {
	return Vector2{X: v.X * k, Y: v.Y * k}
}

// Length returns the Euclidean magnitude of v.
func (v Vector2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X, Y float64
	W, H float64
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CircleRectCollision reports whether the ball's bounding box overlaps rect.
// This is an AABB test on the box [x-r, x+r] x [y-r, y+r], not an exact
// circle test. Touching edges do not count as overlap.
func CircleRectCollision(b Ball, rect Rect) bool {
	return b.Position.X-b.Radius < rect.X+rect.W &&
		b.Position.X+b.Radius > rect.X &&
		b.Position.Y-b.Radius < rect.Y+rect.H &&
		b.Position.Y+b.Radius > rect.Y
}

// ReflectVertical negates the Y component.
func ReflectVertical(v Vector2) Vector2 {
	return Vector2{X: v.X, Y: -v.Y}
}
