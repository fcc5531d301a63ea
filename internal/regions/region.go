package regions

import (
	"fmt"
	"image"
	"math"
)

// Bounds is a bounding box in pixel coordinates.
//
// (X1, Y1) is the top-left corner (inclusive), (X2, Y2) the bottom-right
// corner (exclusive).
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect converts b to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Region is one connected component of a mask together with its shape
// descriptors. Regions are values: they are not modified after extraction,
// and Pixels must be treated as read-only because copies share it.
type Region struct {
	// Label is the 1-based position of the region in extraction order.
	Label int `json:"label"`

	// Name is a human readable identifier. Extraction assigns
	// "YYYY-XXXX" (centroid row and column), prefixed with the 1-based
	// plane number for stacks.
	Name string `json:"name"`

	// Plane is the stack plane the region was detected on.
	Plane int `json:"plane"`

	// Pixels lists the member pixels in raster order (top-to-bottom,
	// left-to-right).
	Pixels []image.Point `json:"-"`

	// Bounds encloses all member pixels.
	Bounds Bounds `json:"bounds"`

	// Area is the number of member pixels.
	Area int `json:"area"`

	// Perimeter is the length of the traced outer outline, with diagonal
	// corner correction.
	Perimeter float64 `json:"perimeter"`

	// Major and Minor are the axis lengths of the best-fit ellipse, scaled so
	// the ellipse has the same area as the region.
	Major float64 `json:"major"`
	Minor float64 `json:"minor"`

	// Angle is the orientation of the major axis in degrees, in [0, 180),
	// measured counter-clockwise from the horizontal.
	Angle float64 `json:"angle"`

	// CentroidX and CentroidY locate the geometric centre using the
	// pixel-centre convention (pixel (0,0) has its centre at 0.5, 0.5).
	CentroidX float64 `json:"centroid_x"`
	CentroidY float64 `json:"centroid_y"`
}

// WithName returns a copy of r carrying a different name.
func (r Region) WithName(name string) Region {
	r.Name = name
	return r
}

// defaultName follows the "row-column" naming of ImageJ's ROI manager.
func defaultName(plane, planes int, cx, cy float64) string {
	y := int(math.Round(cy))
	x := int(math.Round(cx))
	if planes > 1 {
		return fmt.Sprintf("%04d-%04d-%04d", plane+1, y, x)
	}
	return fmt.Sprintf("%04d-%04d", y, x)
}
