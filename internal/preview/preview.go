// Package preview draws a room snapshot as a still image.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sort"

	"pong-arena/internal/game"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

var (
	background = color.RGBA{12, 12, 28, 255}
	netColor   = color.RGBA{60, 60, 80, 255}
	leftColor  = color.RGBA{83, 200, 255, 255}
	rightColor = color.RGBA{255, 107, 107, 255}
	idleColor  = color.RGBA{140, 140, 160, 255}
)

// Render draws state at board resolution.
func Render(state game.GameState) image.Image {
	return draw(state).Image()
}

// EncodePNG renders state and writes it to out as PNG.
func EncodePNG(out io.Writer, state game.GameState) error {
	if err := draw(state).EncodePNG(out); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

func draw(state game.GameState) *gg.Context {
	w, h := int(state.GameWidth), int(state.GameHeight)
	if w <= 0 || h <= 0 {
		w, h = int(game.GameWidth), int(game.GameHeight)
	}
	dc := gg.NewContext(w, h)
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(background)
	dc.Clear()

	drawNet(dc, float64(w), float64(h))
	drawPaddles(dc, state)
	drawBall(dc, state)
	drawScores(dc, state, float64(w))

	if !state.IsPlaying {
		dc.SetColor(idleColor)
		dc.DrawStringAnchored("waiting for opponent", float64(w)/2, float64(h)-20, 0.5, 0.5)
	}
	return dc
}

func drawNet(dc *gg.Context, w, h float64) {
	dc.SetColor(netColor)
	dc.SetLineWidth(2)
	dc.SetDash(10, 10)
	dc.DrawLine(w/2, 0, w/2, h)
	dc.Stroke()
	dc.SetDash()
}

func sideColor(s game.Side) color.Color {
	if s == game.SideLeft {
		return leftColor
	}
	return rightColor
}

func drawPaddles(dc *gg.Context, state game.GameState) {
	for _, p := range state.Paddles {
		dc.SetColor(sideColor(p.Side))
		dc.DrawRectangle(p.Position.X, p.Position.Y, p.Width, p.Height)
		dc.Fill()
	}
}

func drawBall(dc *gg.Context, state game.GameState) {
	b := state.Ball
	dc.SetColor(color.White)
	dc.DrawCircle(b.Position.X, b.Position.Y, b.Radius)
	dc.Fill()
}

// drawScores prints each side's score above its half of the board.
func drawScores(dc *gg.Context, state game.GameState, w float64) {
	ids := make([]string, 0, len(state.Paddles))
	for id := range state.Paddles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p := state.Paddles[id]
		x := w / 4
		if p.Side == game.SideRight {
			x = 3 * w / 4
		}
		dc.SetColor(sideColor(p.Side))
		dc.DrawStringAnchored(fmt.Sprintf("%d", state.Scores[id]), x, 24, 0.5, 0.5)
	}
}
