package regions

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/ironsheep/measurement-maps/internal/imaging"
)

// DefaultMinArea is the area (in pixels) a component must exceed to be kept.
const DefaultMinArea = 50

// ErrRegionFilterEmpty reports that no component survived area filtering.
// It is informational: callers continue with an empty region set.
var ErrRegionFilterEmpty = errors.New("no regions left after area filtering")

// Result is the outcome of one extraction.
type Result struct {
	// Regions are the kept components in discovery order.
	Regions []Region

	// Raw is the number of components found before area filtering.
	Raw int

	// Discarded is the number of components removed by the area filter.
	Discarded int

	// MinArea is the filter threshold that was applied.
	MinArea int
}

// Empty reports whether no region survived filtering.
func (r *Result) Empty() bool {
	return len(r.Regions) == 0
}

// Condition returns a wrapped ErrRegionFilterEmpty when the result is empty,
// and nil otherwise.
func (r *Result) Condition() error {
	if !r.Empty() {
		return nil
	}
	return fmt.Errorf("%w (%d components, min area %d)", ErrRegionFilterEmpty, r.Raw, r.MinArea)
}

// Extract labels the connected components of a mask and returns those whose
// area exceeds minArea. A negative minArea keeps every component.
//
// Any non-zero sample is foreground. Components are 8-connected and are
// discovered by a raster scan of each plane in turn (plane 0 first, then
// top-to-bottom, left-to-right), which fixes their order and labels.
//
// The mask is only read. Every call returns fresh regions; nothing is
// retained between calls.
func Extract(mask *imaging.Buffer, minArea int) (*Result, error) {
	if mask == nil {
		return nil, errors.New("nil mask")
	}

	res := &Result{MinArea: minArea}
	w, h := mask.Width, mask.Height
	visited := make([]bool, w*h)
	label := 0

	for p := 0; p < mask.Planes; p++ {
		pix := mask.PlanePix(p)
		for i := range visited {
			visited[i] = false
		}

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				if pix[i] == 0 || visited[i] {
					continue
				}

				pixels := floodFill(pix, visited, x, y, w, h)
				res.Raw++
				if len(pixels) <= minArea {
					res.Discarded++
					continue
				}

				label++
				res.Regions = append(res.Regions, describe(pixels, label, p, mask.Planes))
			}
		}
	}

	return res, nil
}

// floodFill collects the 8-connected component containing (startX, startY)
// and marks it visited. Pixels are returned in raster order.
func floodFill(pix []float64, visited []bool, startX, startY, width, height int) []image.Point {
	stack := []image.Point{{X: startX, Y: startY}}
	visited[startY*width+startX] = true
	var pixels []image.Point

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pixels = append(pixels, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				i := ny*width + nx
				if visited[i] || pix[i] == 0 {
					continue
				}
				visited[i] = true
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}

	sort.Slice(pixels, func(i, j int) bool {
		if pixels[i].Y != pixels[j].Y {
			return pixels[i].Y < pixels[j].Y
		}
		return pixels[i].X < pixels[j].X
	})
	return pixels
}

// describe computes the shape descriptors of one component.
func describe(pixels []image.Point, label, plane, planes int) Region {
	b := Bounds{X1: pixels[0].X, Y1: pixels[0].Y, X2: pixels[0].X + 1, Y2: pixels[0].Y + 1}
	for _, p := range pixels {
		if p.X < b.X1 {
			b.X1 = p.X
		}
		if p.X+1 > b.X2 {
			b.X2 = p.X + 1
		}
		if p.Y+1 > b.Y2 {
			b.Y2 = p.Y + 1
		}
	}

	// Membership grid over the bounding box; the outline tracer probes
	// pixels around it, which count as outside.
	bw, bh := b.X2-b.X1, b.Y2-b.Y1
	member := make([]bool, bw*bh)
	for _, p := range pixels {
		member[(p.Y-b.Y1)*bw+(p.X-b.X1)] = true
	}
	inside := func(x, y int) bool {
		x -= b.X1
		y -= b.Y1
		if x < 0 || x >= bw || y < 0 || y >= bh {
			return false
		}
		return member[y*bw+x]
	}

	outline := traceOutline(inside, pixels[0])
	e := fitEllipse(pixels)

	return Region{
		Label:     label,
		Name:      defaultName(plane, planes, e.cx, e.cy),
		Plane:     plane,
		Pixels:    pixels,
		Bounds:    b,
		Area:      len(pixels),
		Perimeter: tracedPerimeter(outline),
		Major:     e.major,
		Minor:     e.minor,
		Angle:     e.angle,
		CentroidX: e.cx,
		CentroidY: e.cy,
	}
}

// LabelMap renders regions into a label image: each pixel holds the Label of
// the region covering it, 0 elsewhere. Later regions overwrite earlier ones
// if they overlap.
func LabelMap(regs []Region, width, height, planes int) *imaging.Buffer {
	depth := imaging.Depth16
	if len(regs) > 65535 {
		depth = imaging.Depth32F
	}
	out := imaging.NewBuffer(width, height, planes, depth)
	for _, r := range regs {
		for _, p := range r.Pixels {
			if out.InBounds(p.X, p.Y, r.Plane) {
				out.Set(p.X, p.Y, r.Plane, float64(r.Label))
			}
		}
	}
	return out
}
