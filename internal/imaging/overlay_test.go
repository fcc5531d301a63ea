package imaging

import (
	"image"
	"image/color"
	"testing"
)

// squareMark returns a mark covering the w x h rectangle at (x0, y0).
func squareMark(label, x0, y0, w, h int) Mark {
	m := Mark{Label: label, Anchor: image.Pt(x0+w/2, y0+h/2)}
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			m.Pixels = append(m.Pixels, image.Pt(x, y))
		}
	}
	return m
}

func TestOutlineOverlay(t *testing.T) {
	b := NewBuffer(20, 20, 1, Depth8)
	for i := range b.Pix {
		b.Pix[i] = 50
	}

	out := OutlineOverlay(b, 0, []Mark{squareMark(1, 5, 5, 6, 6)}, "#FF0000", false)

	if out.Bounds() != b.Bounds() {
		t.Fatalf("bounds: got %v, want %v", out.Bounds(), b.Bounds())
	}

	red := color.RGBA{255, 0, 0, 255}
	gray := color.RGBA{50, 50, 50, 255}

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"corner", 5, 5, red},
		{"top edge", 8, 5, red},
		{"right edge", 10, 7, red},
		{"interior", 7, 7, gray},
		{"outside", 2, 2, gray},
		{"just outside", 11, 7, gray},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := out.RGBAAt(tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d,%d): got %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestOutlineOverlay_TouchingMarks(t *testing.T) {
	b := NewBuffer(20, 10, 1, Depth8)
	left := squareMark(1, 2, 2, 5, 5)
	right := squareMark(2, 7, 2, 5, 5)

	out := OutlineOverlay(b, 0, []Mark{left, right}, "#00FF00", false)

	green := color.RGBA{0, 255, 0, 255}
	// Both sides of the shared border are outlined.
	if got := out.RGBAAt(6, 4); got != green {
		t.Errorf("left border: got %v, want green", got)
	}
	if got := out.RGBAAt(7, 4); got != green {
		t.Errorf("right border: got %v, want green", got)
	}
}

func TestOutlineOverlay_InvalidColor(t *testing.T) {
	b := NewBuffer(10, 10, 1, Depth8)

	for _, hex := range []string{"", "invalid", "#FFF"} {
		out := OutlineOverlay(b, 0, []Mark{squareMark(1, 2, 2, 4, 4)}, hex, false)
		if got := out.RGBAAt(2, 2); got != DefaultOutlineColor {
			t.Errorf("color %q: got %v, want default outline colour", hex, got)
		}
	}
}

func TestOutlineOverlay_OutOfBoundsPixels(t *testing.T) {
	b := NewBuffer(4, 4, 1, Depth8)
	m := Mark{Label: 1, Pixels: []image.Point{{-1, 0}, {0, 0}, {5, 5}}, Anchor: image.Pt(0, 0)}

	// Should not panic
	out := OutlineOverlay(b, 0, []Mark{m}, "#FF0000", false)
	if got := out.RGBAAt(0, 0); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("pixel (0,0): got %v, want red", got)
	}
}

func TestOutlineOverlay_Labels(t *testing.T) {
	b := NewBuffer(40, 40, 1, Depth8)
	plain := OutlineOverlay(b, 0, []Mark{squareMark(7, 10, 10, 20, 20)}, "#FF0000", false)
	labelled := OutlineOverlay(b, 0, []Mark{squareMark(7, 10, 10, 20, 20)}, "#FF0000", true)

	differ := 0
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			if plain.RGBAAt(x, y) != labelled.RGBAAt(x, y) {
				differ++
			}
		}
	}
	if differ == 0 {
		t.Error("label was not drawn")
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		hex     string
		wantR   uint8
		wantG   uint8
		wantB   uint8
		wantA   uint8
		wantErr bool
	}{
		{"#FF0000", 255, 0, 0, 255, false},
		{"#00FF00", 0, 255, 0, 255, false},
		{"#0000FF", 0, 0, 255, 255, false},
		{"FF0000", 255, 0, 0, 255, false},    // without #
		{"#FF000080", 255, 0, 0, 128, false}, // with alpha
		{"", 0, 0, 0, 0, true},
		{"#FFF", 0, 0, 0, 0, true},
		{"#GGGGGG", 0, 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			c, err := parseHexColor(tt.hex)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if c.R != tt.wantR || c.G != tt.wantG || c.B != tt.wantB || c.A != tt.wantA {
				t.Errorf("got (%d,%d,%d,%d), want (%d,%d,%d,%d)",
					c.R, c.G, c.B, c.A, tt.wantR, tt.wantG, tt.wantB, tt.wantA)
			}
		})
	}
}

func TestDrawLabel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 30, 20))
	fg := color.RGBA{255, 255, 255, 255}
	bg := color.RGBA{0, 0, 0, 255}

	drawLabel(img, 15, 10, "18", fg, bg)

	foundFg := false
	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			if img.RGBAAt(x, y) == fg {
				foundFg = true
			}
		}
	}
	if !foundFg {
		t.Error("no glyph pixels drawn")
	}

	// Drawing near the edge is clipped.
	drawLabel(img, 0, 0, "123", fg, bg)
}
