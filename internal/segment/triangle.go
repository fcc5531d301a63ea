package segment

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/histogram"
)

// Triangle is the triangle (histogram shape) threshold, dark background
// variant: pixels brighter than the threshold level are objects.
type Triangle struct{}

// Threshold binarizes src. Pixels with a value above the computed level become
// Foreground. A histogram with a single occupied bin yields
// ErrSegmentationDegenerate.
func (Triangle) Threshold(src *image.Gray) (*image.Gray, error) {
	hist := histogram.NewRGBAHistogram(src)
	level, err := TriangleLevel(hist.R.Bins)
	if err != nil {
		return nil, err
	}
	return binarize8(src, level), nil
}

// binarize8 marks pixels whose gray value exceeds level as Foreground.
func binarize8(src *image.Gray, level int) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+b.Dx()]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x, v := range row {
			if int(v) > level {
				dst[x] = Foreground
			}
		}
	}
	return out
}

// TriangleLevel returns the triangle threshold of a histogram. Bins up to and
// including the level are background.
//
// A line is drawn from the histogram peak to the far end of the longer tail
// (one bin past the last occupied bin); the level is the bin just below the
// one furthest from that line. Ties go to the lowest bin, both when choosing
// the peak and when choosing the furthest bin.
func TriangleLevel(bins []int) (int, error) {
	n := len(bins)
	occupied := 0
	for _, c := range bins {
		if c > 0 {
			occupied++
		}
	}
	if occupied < 2 {
		return 0, ErrSegmentationDegenerate
	}

	data := make([]int, n)
	copy(data, bins)

	lo, hi, peak := 0, 0, 0
	for i := 0; i < n; i++ {
		if data[i] > 0 {
			lo = i
			break
		}
	}
	if lo > 0 {
		lo--
	}
	for i := n - 1; i > 0; i-- {
		if data[i] > 0 {
			hi = i
			break
		}
	}
	if hi < n-1 {
		hi++
	}
	for i := 0; i < n; i++ {
		if data[i] > data[peak] {
			peak = i
		}
	}

	// Work on the longer side; mirror the histogram when it is the right one.
	inverted := false
	if peak-lo < hi-peak {
		inverted = true
		reverse(data)
		lo = n - 1 - hi
		peak = n - 1 - peak
	}
	if lo == peak {
		return restore(lo, n, inverted), nil
	}

	// Line through (lo, data[lo]) and (peak, data[peak]) as nx*x + ny*y = d.
	nx := float64(data[peak])
	ny := float64(lo - peak)
	norm := math.Hypot(nx, ny)
	nx /= norm
	ny /= norm
	d := nx*float64(lo) + ny*float64(data[lo])

	split := lo
	best := 0.0
	for i := lo + 1; i <= peak; i++ {
		dist := nx*float64(i) + ny*float64(data[i]) - d
		if dist > best {
			split = i
			best = dist
		}
	}
	split--

	return restore(split, n, inverted), nil
}

func restore(level, n int, inverted bool) int {
	if inverted {
		return n - 1 - level
	}
	return level
}

func reverse(a []int) {
	for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
		a[i], a[j] = a[j], a[i]
	}
}
