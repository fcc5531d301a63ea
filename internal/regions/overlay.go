package regions

import (
	"image"
	"math"

	"github.com/ironsheep/measurement-maps/internal/imaging"
)

// Outlines draws the outlines of the regions detected on one plane of src,
// like ImageJ's "Show Outlines" view. Regions on other planes are skipped.
func Outlines(src *imaging.Buffer, regs []Region, plane int, hexColor string, showLabels bool) *image.RGBA {
	marks := make([]imaging.Mark, 0, len(regs))
	for _, r := range regs {
		if r.Plane != plane {
			continue
		}
		marks = append(marks, imaging.Mark{
			Label:  r.Label,
			Pixels: r.Pixels,
			Anchor: image.Pt(int(math.Floor(r.CentroidX)), int(math.Floor(r.CentroidY))),
		})
	}
	return imaging.OutlineOverlay(src, plane, marks, hexColor, showLabels)
}
