// Package preview draws a still image of a room for the debug server.
package preview

import (
	"image"
	"image/color"
	"io"
	"math"
	"sort"

	"github.com/fogleman/gg"

	"cube-duel/internal/game"
	"cube-duel/internal/protocol"
)

var (
	backgroundColor = color.RGBA{12, 12, 28, 255}
	gridColor       = color.RGBA{30, 30, 45, 255}
	visibleColor    = color.RGBA{60, 60, 80, 255}
	hpBackColor     = color.RGBA{51, 51, 51, 255}
	stunColor       = color.RGBA{255, 255, 255, 160}
)

const (
	gridSize    = 100.0
	hpBarHeight = 6.0
	hpBarGap    = 6.0
)

// Render draws every player of a snapshot onto a canvas covering the whole
// wrap-around field. Field coordinates are shifted so MinX/MinY map to the
// image origin.
func Render(snap game.Snapshot, rules game.Rules) image.Image {
	return draw(snap, rules).Image()
}

// WritePNG renders the snapshot and encodes it as PNG.
func WritePNG(w io.Writer, snap game.Snapshot, rules game.Rules) error {
	return draw(snap, rules).EncodePNG(w)
}

func draw(snap game.Snapshot, rules game.Rules) *gg.Context {
	f := rules.Field
	width := int(math.Ceil(f.MaxX - f.MinX))
	height := int(math.Ceil(f.MaxY - f.MinY))
	if width <= 0 || height <= 0 {
		width, height = 1, 1
	}

	dc := gg.NewContext(width, height)
	drawBackground(dc, rules)

	dc.Push()
	dc.Translate(-f.MinX, -f.MinY)

	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		drawPlayer(dc, snap[id], rules)
	}
	dc.Pop()

	return dc
}

func drawBackground(dc *gg.Context, rules game.Rules) {
	w, h := float64(dc.Width()), float64(dc.Height())
	dc.SetColor(backgroundColor)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	for x := 0.0; x < w; x += gridSize {
		dc.DrawLine(x, 0, x, h)
		dc.Stroke()
	}
	for y := 0.0; y < h; y += gridSize {
		dc.DrawLine(0, y, w, y)
		dc.Stroke()
	}

	// Outline of the region where players spawn
	f := rules.Field
	dc.SetColor(visibleColor)
	dc.SetLineWidth(2)
	dc.DrawRectangle(-f.MinX, -f.MinY, f.MaxX-rules.BodySize, f.MaxY-rules.BodySize)
	dc.Stroke()
}

func drawPlayer(dc *gg.Context, p game.PlayerState, rules game.Rules) {
	size := rules.BodySize
	cx, cy := p.X+size/2, p.Y+size/2
	c := parseHexColor(p.Color)

	// Body
	dc.SetColor(c)
	dc.DrawRectangle(p.X, p.Y, size, size)
	dc.Fill()

	if p.Stunned {
		dc.SetColor(stunColor)
		dc.SetLineWidth(3)
		dc.DrawRectangle(p.X-3, p.Y-3, size+6, size+6)
		dc.Stroke()
	}

	// Weapon
	dc.SetColor(color.White)
	dc.SetLineWidth(3)
	dc.DrawLine(cx, cy, cx+math.Cos(p.Angle)*rules.WeaponReach, cy+math.Sin(p.Angle)*rules.WeaponReach)
	dc.Stroke()

	// Health bar
	hpPercent := float64(p.Health) / float64(rules.MaxHealth)
	if hpPercent < 0 {
		hpPercent = 0
	}
	if hpPercent > 1 {
		hpPercent = 1
	}
	top := p.Y - hpBarGap - hpBarHeight

	dc.SetColor(hpBackColor)
	dc.DrawRectangle(p.X, top, size, hpBarHeight)
	dc.Fill()

	if hpPercent > 0.5 {
		dc.SetColor(color.RGBA{83, 255, 69, 255})
	} else if hpPercent > 0.25 {
		dc.SetColor(color.RGBA{255, 149, 0, 255})
	} else {
		dc.SetColor(color.RGBA{255, 62, 62, 255})
	}
	dc.DrawRectangle(p.X, top, size*hpPercent, hpBarHeight)
	dc.Fill()
}

// parseHexColor accepts #rrggbb and falls back to the default player color.
func parseHexColor(hex string) color.RGBA {
	if c, ok := hexColor(hex); ok {
		return c
	}
	c, _ := hexColor(protocol.DefaultColor)
	return c
}

func hexColor(hex string) (color.RGBA, bool) {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{}, false
	}
	var out [3]uint8
	for i := range out {
		hi, ok1 := nibble(hex[1+2*i])
		lo, ok2 := nibble(hex[2+2*i])
		if !ok1 || !ok2 {
			return color.RGBA{}, false
		}
		out[i] = hi<<4 | lo
	}
	return color.RGBA{out[0], out[1], out[2], 255}, true
}

func nibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
