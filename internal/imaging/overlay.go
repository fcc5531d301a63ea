package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
)

// DefaultOutlineColor is used when no valid outline colour is given.
var DefaultOutlineColor = color.RGBA{255, 255, 0, 255}

// Mark is one region to outline on an overlay.
type Mark struct {
	Label  int
	Pixels []image.Point

	// Anchor is where the label number is drawn.
	Anchor image.Point
}

// OutlineOverlay draws one plane of b in grayscale and paints the border
// pixels of every mark in the given "#RRGGBB" or "#RRGGBBAA" colour. A border
// pixel is a member pixel with at least one 4-neighbour outside the mark.
// With showLabels each mark's label is drawn at its anchor.
//
// An invalid colour falls back to DefaultOutlineColor.
func OutlineOverlay(b *Buffer, plane int, marks []Mark, hexColor string, showLabels bool) *image.RGBA {
	lineColor, err := parseHexColor(hexColor)
	if err != nil {
		lineColor = DefaultOutlineColor
	}

	bounds := b.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, b.ToGray8(plane), image.Point{}, draw.Src)

	owner := make([]int, b.Width*b.Height)
	for i, m := range marks {
		for _, p := range m.Pixels {
			if p.In(bounds) {
				owner[p.Y*b.Width+p.X] = i + 1
			}
		}
	}
	same := func(x, y, id int) bool {
		return x >= 0 && x < b.Width && y >= 0 && y < b.Height && owner[y*b.Width+x] == id
	}

	for i, m := range marks {
		id := i + 1
		for _, p := range m.Pixels {
			if !p.In(bounds) {
				continue
			}
			if !same(p.X-1, p.Y, id) || !same(p.X+1, p.Y, id) || !same(p.X, p.Y-1, id) || !same(p.X, p.Y+1, id) {
				result.Set(p.X, p.Y, lineColor)
			}
		}
	}

	if showLabels {
		labelColor := color.RGBA{255, 255, 255, 255}
		bgColor := color.RGBA{0, 0, 0, 180}
		for _, m := range marks {
			drawLabel(result, m.Anchor.X, m.Anchor.Y, strconv.Itoa(m.Label), labelColor, bgColor)
		}
	}
	return result
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// digitGlyphs is a 3x5 pixel font for region labels.
var digitGlyphs = [10][5]string{
	{"111", "101", "101", "101", "111"},
	{"010", "110", "010", "010", "111"},
	{"111", "001", "111", "100", "111"},
	{"111", "001", "111", "001", "111"},
	{"101", "101", "111", "001", "001"},
	{"111", "100", "111", "001", "111"},
	{"111", "100", "111", "101", "111"},
	{"111", "001", "001", "001", "001"},
	{"111", "101", "111", "101", "111"},
	{"111", "101", "111", "001", "111"},
}

// drawLabel draws a number centred on (x, y) over a background box.
// Characters other than digits are left blank.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	x -= labelWidth / 2
	y -= labelHeight / 2

	set := func(px, py int, c color.RGBA) {
		if image.Pt(px, py).In(bounds) {
			img.Set(px, py, c)
		}
	}

	for dy := -1; dy < labelHeight-1; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			set(x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		if ch >= '0' && ch <= '9' {
			for row, line := range digitGlyphs[ch-'0'] {
				for col, pixel := range line {
					if pixel == '1' {
						set(cx+col, y+row, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
