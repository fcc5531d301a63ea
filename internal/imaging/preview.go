package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Ramp is a colour lookup table used to render measurement maps for viewing.
//
// Stops are blended in HCL space, which keeps perceived lightness monotonic
// along the ramp.
type Ramp struct {
	stops []colorful.Color
}

// DefaultRamp runs from dark blue through teal to yellow.
var DefaultRamp = MustRamp("#0d0887", "#21918c", "#fde725")

// NewRamp builds a ramp from two or more "#RRGGBB" stops.
func NewRamp(hexStops ...string) (*Ramp, error) {
	if len(hexStops) < 2 {
		return nil, fmt.Errorf("ramp needs at least 2 stops, got %d", len(hexStops))
	}
	r := &Ramp{stops: make([]colorful.Color, len(hexStops))}
	for i, h := range hexStops {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("invalid ramp stop %q: %w", h, err)
		}
		r.stops[i] = c
	}
	return r, nil
}

// MustRamp is like NewRamp but panics on invalid stops.
func MustRamp(hexStops ...string) *Ramp {
	r, err := NewRamp(hexStops...)
	if err != nil {
		panic(err)
	}
	return r
}

// At returns the ramp colour for t in [0, 1]. Values outside are clamped.
func (r *Ramp) At(t float64) color.Color {
	t = clampFloat(t, 0, 1)
	segments := len(r.stops) - 1
	pos := t * float64(segments)
	i := int(pos)
	if i >= segments {
		i = segments - 1
	}
	return r.stops[i].BlendHcl(r.stops[i+1], pos-float64(i)).Clamped()
}

// Preview renders one plane of a buffer as a colour image.
//
// Values equal to background are drawn black so unmeasured pixels stand out
// from the lowest measurement. Remaining values are scaled between their own
// minimum and maximum; NaN and infinite samples are drawn white.
func Preview(b *Buffer, plane int, background float64, ramp *Ramp) *image.NRGBA {
	if ramp == nil {
		ramp = DefaultRamp
	}
	out := image.NewNRGBA(b.Bounds())

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range b.PlanePix(plane) {
		if v == background || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo

	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			v := b.At(x, y, plane)
			switch {
			case v == background:
				out.Set(x, y, color.NRGBA{0, 0, 0, 255})
			case math.IsNaN(v) || math.IsInf(v, 0):
				out.Set(x, y, color.NRGBA{255, 255, 255, 255})
			case span <= 0:
				out.Set(x, y, ramp.At(1))
			default:
				out.Set(x, y, ramp.At((v-lo)/span))
			}
		}
	}
	return out
}

// SavePreview renders a plane with Preview and writes it to path. The format
// follows the file extension (PNG recommended). A positive maxSide shrinks the
// preview so neither side exceeds it; measurement maps are never enlarged.
func SavePreview(path string, b *Buffer, plane int, maxSide int) error {
	img := image.Image(Preview(b, plane, 0, nil))
	if maxSide > 0 && (b.Width > maxSide || b.Height > maxSide) {
		img = imaging.Fit(img, maxSide, maxSide, imaging.NearestNeighbor)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}
