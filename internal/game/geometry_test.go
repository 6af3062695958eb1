package game

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float64
		want      float64
	}{
		{"inside", 5, 0, 10, 5},
		{"below", -3, 0, 10, 0},
		{"above", 12, 0, 10, 10},
		{"at lower edge", 0, 0, 10, 0},
		{"at upper edge", 10, 0, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
				t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
			}
		})
	}
}

// TestCircleRectCollision checks the AABB paddle-hit test
func TestCircleRectCollision(t *testing.T) {
	paddle := Rect{X: 20, Y: 160, W: 10, H: 80}

	tests := []struct {
		name string
		x, y float64
		want bool
	}{
		{"overlapping face", 36, 200, true},
		{"inside paddle", 25, 200, true},
		{"touching right edge", 38, 200, false},
		{"far right", 100, 200, false},
		{"overlapping top edge", 25, 155, true},
		{"touching top edge", 25, 152, false},
		{"overlapping bottom edge", 25, 247, true},
		{"clear below", 25, 260, false},
		// Box corner overlaps even though the circle itself would miss
		{"corner of box", 36, 154, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Ball{Position: Vector2{X: tt.x, Y: tt.y}, Radius: 8}
			if got := CircleRectCollision(b, paddle); got != tt.want {
				t.Errorf("CircleRectCollision at (%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestReflectVertical(t *testing.T) {
	v := ReflectVertical(Vector2{X: 3, Y: -4})
	if v.X != 3 || v.Y != 4 {
		t.Errorf("ReflectVertical = %+v, want {3 4}", v)
	}
	if math.Abs(v.Length()-5) > 1e-12 {
		t.Errorf("reflection changed magnitude: %v", v.Length())
	}
}
