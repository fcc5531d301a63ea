package segment

import (
	"image"
	"image/draw"

	"github.com/anthonynsimon/bild/effect"
)

// BildFilter implements RankFilter with bild's median effect (square window
// of side 2*radius+1, edges replicated).
type BildFilter struct{}

// Median returns a denoised copy of src.
func (BildFilter) Median(src *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		return cloneGray(src)
	}
	return toGray(effect.Median(src, float64(radius)))
}

// BildMorphology implements Morphology with bild's erode and dilate effects
// using a 3x3 neighbourhood.
type BildMorphology struct{}

// Open erodes then dilates the mask once, removing speckle and thin bridges.
func (BildMorphology) Open(mask *image.Gray) *image.Gray {
	eroded := effect.Erode(mask, 1)
	return binarize(toGray(effect.Dilate(eroded, 1)))
}

// FillHoles sets every background pixel that cannot be reached from the image
// border to Foreground.
func (BildMorphology) FillHoles(mask *image.Gray) *image.Gray {
	return FillHoles(mask)
}

// toGray converts bild's RGBA output back to a single channel.
func toGray(img image.Image) *image.Gray {
	out := image.NewGray(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// binarize snaps any non-zero value to Foreground.
func binarize(g *image.Gray) *image.Gray {
	for i, v := range g.Pix {
		if v != 0 {
			g.Pix[i] = Foreground
		}
	}
	return g
}

func cloneGray(src *image.Gray) *image.Gray {
	out := image.NewGray(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}
