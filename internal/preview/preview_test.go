package preview

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"
	"time"

	"pong-arena/internal/game"
)

func testState(t *testing.T) game.GameState {
	t.Helper()
	room := game.NewRoom("r1", time.Now())
	for _, id := range []string{"p1", "p2"} {
		if _, err := room.AddPlayer(id); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
	}
	return room.State.Clone()
}

func rgba(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func TestRenderDrawsBoard(t *testing.T) {
	img := Render(testState(t))

	if b := img.Bounds(); b.Dx() != int(game.GameWidth) || b.Dy() != int(game.GameHeight) {
		t.Fatalf("bounds = %v, want %vx%v", b, game.GameWidth, game.GameHeight)
	}

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"background corner", 5, 390, background},
		{"ball centre", int(game.GameWidth / 2), int(game.GameHeight / 2), color.RGBA{255, 255, 255, 255}},
		{"left paddle", 25, 200, leftColor},
		{"right paddle", 775, 200, rightColor},
	}
	for _, tt := range tests {
		if got := rgba(img.At(tt.x, tt.y)); got != tt.want {
			t.Errorf("%s at (%d,%d) = %v, want %v", tt.name, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestEncodePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, testState(t)); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if img.Bounds() != Render(testState(t)).Bounds() {
		t.Fatalf("bounds = %v, want render bounds", img.Bounds())
	}
}

// TestEncodePNGMatchesRender checks the PNG carries the same pixels Render draws
func TestEncodePNGMatchesRender(t *testing.T) {
	state := testState(t)
	want := Render(state)

	var buf bytes.Buffer
	if err := EncodePNG(&buf, state); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	got, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}

	b := want.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += 7 {
		for x := b.Min.X; x < b.Max.X; x += 7 {
			if g, w := rgba(got.At(x, y)), rgba(want.At(x, y)); g != w {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, g, w)
			}
		}
	}
}

// TestRenderZeroSizeFallsBack covers a zero-value state
func TestRenderZeroSizeFallsBack(t *testing.T) {
	img := Render(game.GameState{})
	if img.Bounds().Dx() != int(game.GameWidth) || img.Bounds().Dy() != int(game.GameHeight) {
		t.Errorf("bounds = %v, want board size", img.Bounds())
	}
}
