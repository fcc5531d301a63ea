package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Depth describes the sample type a Buffer was created with.
//
// Samples are always held as float64 in memory; Depth records the declared
// type so writers and statistics (e.g. the mode histogram) know whether
// values are integral and what range they came from.
type Depth int

const (
	// Depth8 holds unsigned 8-bit samples (0-255).
	Depth8 Depth = 8
	// Depth16 holds unsigned 16-bit samples (0-65535).
	Depth16 Depth = 16
	// Depth32F holds 32-bit floating point samples of any sign.
	Depth32F Depth = 32
	// Depth64F holds 64-bit floating point samples; maps saved at this depth
	// keep every float64 value exactly.
	Depth64F Depth = 64
)

// String returns the bit depth as a human readable label ("8-bit", "16-bit", "32-bit", "64-bit").
func (d Depth) String() string {
	switch d {
	case Depth8:
		return "8-bit"
	case Depth16:
		return "16-bit"
	case Depth32F:
		return "32-bit"
	case Depth64F:
		return "64-bit"
	default:
		return fmt.Sprintf("Depth(%d)", int(d))
	}
}

// Integral reports whether samples of this depth are whole numbers.
func (d Depth) Integral() bool {
	return d == Depth8 || d == Depth16
}

// Buffer is a dense grid of scalar samples, optionally with several planes
// (a z-stack or time series of the same channel).
//
// Samples are addressed by (x, y, plane) with (0,0) at the top-left corner.
// A freshly allocated Buffer holds 0.0 everywhere.
type Buffer struct {
	Width  int
	Height int
	Planes int
	Depth  Depth

	// Pix holds the samples plane by plane, each plane in row-major order.
	Pix []float64
}

// NewBuffer allocates a zero-filled buffer.
//
// It panics if any dimension is not positive, mirroring image.NewGray's
// behaviour for impossible rectangles.
func NewBuffer(width, height, planes int, depth Depth) *Buffer {
	if width <= 0 || height <= 0 || planes <= 0 {
		panic(fmt.Sprintf("imaging: invalid buffer dimensions %dx%dx%d", width, height, planes))
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Planes: planes,
		Depth:  depth,
		Pix:    make([]float64, width*height*planes),
	}
}

// Bounds returns the rectangle covered by a single plane.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// Index returns the offset of (x, y, plane) within Pix.
func (b *Buffer) Index(x, y, plane int) int {
	return (plane*b.Height+y)*b.Width + x
}

// InBounds reports whether (x, y, plane) addresses a sample of b.
func (b *Buffer) InBounds(x, y, plane int) bool {
	return x >= 0 && x < b.Width && y >= 0 && y < b.Height && plane >= 0 && plane < b.Planes
}

// At returns the sample at (x, y, plane).
func (b *Buffer) At(x, y, plane int) float64 {
	return b.Pix[b.Index(x, y, plane)]
}

// Set stores v at (x, y, plane).
func (b *Buffer) Set(x, y, plane int, v float64) {
	b.Pix[b.Index(x, y, plane)] = v
}

// PlanePix returns the samples of one plane. The slice aliases b.Pix.
func (b *Buffer) PlanePix(plane int) []float64 {
	n := b.Width * b.Height
	return b.Pix[plane*n : (plane+1)*n]
}

// Plane returns a single-plane copy of the given plane.
func (b *Buffer) Plane(plane int) (*Buffer, error) {
	if plane < 0 || plane >= b.Planes {
		return nil, fmt.Errorf("plane %d outside stack of %d planes", plane, b.Planes)
	}
	out := NewBuffer(b.Width, b.Height, 1, b.Depth)
	copy(out.Pix, b.PlanePix(plane))
	return out, nil
}

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{Width: b.Width, Height: b.Height, Planes: b.Planes, Depth: b.Depth}
	out.Pix = make([]float64, len(b.Pix))
	copy(out.Pix, b.Pix)
	return out
}

// WithDepth returns a view of b with a different declared depth. The view
// shares Pix with b.
func (b *Buffer) WithDepth(d Depth) *Buffer {
	v := *b
	v.Depth = d
	return &v
}

// SameShape reports whether b and o have identical width, height and plane count.
func (b *Buffer) SameShape(o *Buffer) bool {
	return b.Width == o.Width && b.Height == o.Height && b.Planes == o.Planes
}

// MinMax returns the smallest and largest sample of a plane.
func (b *Buffer) MinMax(plane int) (min, max float64) {
	pix := b.PlanePix(plane)
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range pix {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// ToGray8 renders one plane as an 8-bit grayscale image.
//
// 8-bit buffers are copied as-is. Other depths are scaled linearly so the
// plane minimum maps to 0 and the maximum to 255, which is the 256-bin view
// automatic thresholding works on. A flat plane maps to all zeros.
func (b *Buffer) ToGray8(plane int) *image.Gray {
	out := image.NewGray(b.Bounds())
	pix := b.PlanePix(plane)

	if b.Depth == Depth8 {
		for i, v := range pix {
			out.Pix[i] = uint8(clampFloat(v, 0, 255))
		}
		return out
	}

	min, max := b.MinMax(plane)
	span := max - min
	if span <= 0 {
		return out
	}
	scale := 256.0 / span
	for i, v := range pix {
		bin := int((v - min) * scale)
		if bin > 255 {
			bin = 255
		}
		out.Pix[i] = uint8(bin)
	}
	return out
}

// FromGray converts a grayscale image into a single-plane 8-bit buffer.
//
// Any image type is accepted; non-gray images are converted through
// color.GrayModel.
func FromGray(img image.Image) *Buffer {
	bounds := img.Bounds()
	out := NewBuffer(bounds.Dx(), bounds.Dy(), 1, Depth8)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			g := color.GrayModel.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.Gray)
			out.Set(x, y, 0, float64(g.Y))
		}
	}
	return out
}

// Channels splits a decoded image into one single-plane buffer per channel.
//
// Grayscale images yield one channel. Colour images yield three channels in
// R, G, B order; alpha is ignored. 16-bit source images keep 16-bit samples,
// everything else is reduced to 8-bit.
func Channels(img image.Image) []*Buffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch src := img.(type) {
	case *image.Gray:
		out := NewBuffer(w, h, 1, Depth8)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(x, y, 0, float64(src.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y))
			}
		}
		return []*Buffer{out}
	case *image.Gray16:
		out := NewBuffer(w, h, 1, Depth16)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(x, y, 0, float64(src.Gray16At(x+bounds.Min.X, y+bounds.Min.Y).Y))
			}
		}
		return []*Buffer{out}
	}

	depth := Depth8
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64:
		depth = Depth16
	}

	chans := []*Buffer{
		NewBuffer(w, h, 1, depth),
		NewBuffer(w, h, 1, depth),
		NewBuffer(w, h, 1, depth),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA64Model.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.NRGBA64)
			r, g, bl := float64(c.R), float64(c.G), float64(c.B)
			if depth == Depth8 {
				r, g, bl = float64(c.R>>8), float64(c.G>>8), float64(c.B>>8)
			}
			chans[0].Set(x, y, 0, r)
			chans[1].Set(x, y, 0, g)
			chans[2].Set(x, y, 0, bl)
		}
	}
	return chans
}

// clampFloat constrains v to [lo, hi].
func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
