package regions

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

// outlineDirs are the unit moves along pixel edges in clockwise order:
// right, down, left, up (y grows downward).
var outlineDirs = [4]image.Point{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}}

// traceOutline follows the outer boundary of an 8-connected pixel set along
// pixel edges, keeping the set on its right-hand side.
//
// start must be the first member pixel in raster order; tracing begins at its
// top-left corner heading right. The returned polygon lists the lattice
// vertices where the outline changes direction.
func traceOutline(inside func(x, y int) bool, start image.Point) []image.Point {
	v := start
	d := 0
	var poly []image.Point

	for {
		v = v.Add(outlineDirs[d])

		dx, dy := outlineDirs[d].X, outlineDirs[d].Y
		// Pixels ahead of the vertex, on the left and on the right of the
		// direction of travel.
		aheadLeft := inside(v.X+(dx+dy-1)/2, v.Y+(dy-dx-1)/2)
		aheadRight := inside(v.X+(dx-dy-1)/2, v.Y+(dy+dx-1)/2)

		next := d
		switch {
		case aheadLeft:
			next = (d + 3) % 4
		case aheadRight:
		default:
			next = (d + 1) % 4
		}
		if next != d {
			poly = append(poly, v)
		}
		d = next

		if v == start && d == 0 {
			return poly
		}
	}
}

// tracedPerimeter measures a traced outline polygon. Every unit step along an
// edge counts 1; each corner that cuts a pixel diagonally is shortened by
// 2-sqrt(2), so staircases approximate their diagonal.
func tracedPerimeter(poly []image.Point) float64 {
	n := len(poly)
	if n == 0 {
		return 0
	}

	sumdx, sumdy, corners := 0, 0, 0
	dx1 := poly[0].X - poly[n-1].X
	dy1 := poly[0].Y - poly[n-1].Y
	side1 := abs(dx1) + abs(dy1)
	corner := false

	for i := 0; i < n; i++ {
		next := (i + 1) % n
		dx2 := poly[next].X - poly[i].X
		dy2 := poly[next].Y - poly[i].Y
		sumdx += abs(dx1)
		sumdy += abs(dy1)
		side2 := abs(dx2) + abs(dy2)
		if side1 > 1 || !corner {
			corner = true
			corners++
		} else {
			corner = false
		}
		dx1, dy1, side1 = dx2, dy2, side2
	}

	return float64(sumdx+sumdy) - float64(corners)*(2-math.Sqrt2)
}

// ellipse holds the best-fit ellipse of a pixel set.
type ellipse struct {
	cx, cy       float64
	major, minor float64
	angle        float64
}

// fitEllipse fits an ellipse with the same second moments as the pixel set,
// then rescales its axes so its area equals the pixel count.
//
// Each pixel is treated as a unit square, which adds 1/12 to the variance
// along each axis; a single row of pixels therefore still has a non-zero
// minor axis.
func fitEllipse(pixels []image.Point) ellipse {
	n := float64(len(pixels))
	if n == 0 {
		return ellipse{}
	}

	var sx, sy float64
	for _, p := range pixels {
		sx += float64(p.X) + 0.5
		sy += float64(p.Y) + 0.5
	}
	cx, cy := sx/n, sy/n

	var sxx, syy, sxy float64
	for _, p := range pixels {
		dx := float64(p.X) + 0.5 - cx
		dy := float64(p.Y) + 0.5 - cy
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	sxx = sxx/n + 1.0/12
	syy = syy/n + 1.0/12
	sxy /= n

	cov := mat.NewSymDense(2, []float64{sxx, sxy, sxy, syy})
	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return ellipse{cx: cx, cy: cy}
	}
	vals := eig.Values(nil) // ascending
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	lMinor, lMajor := math.Max(vals[0], 0), math.Max(vals[1], 0)
	major := 4 * math.Sqrt(lMajor)
	minor := 4 * math.Sqrt(lMinor)
	if major > 0 && minor > 0 {
		scale := math.Sqrt(4 * n / (math.Pi * major * minor))
		major *= scale
		minor *= scale
	}

	angle := 0.0
	if lMajor-lMinor > 1e-9*lMajor {
		vx, vy := vecs.At(0, 1), vecs.At(1, 1)
		// Image rows grow downward; angles are reported with y up.
		angle = math.Atan2(-vy, vx) * 180 / math.Pi
		if angle < 0 {
			angle += 180
		}
		if angle >= 180 {
			angle -= 180
		}
	}

	return ellipse{cx: cx, cy: cy, major: major, minor: minor, angle: angle}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
