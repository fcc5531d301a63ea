package segment

import (
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/measurement-maps/internal/imaging"
)

// DefaultMedianRadius is the noise filter radius used when none is configured.
const DefaultMedianRadius = 3

// Foreground is the mask value of object pixels ("black background" convention).
const Foreground = 255

// ErrSegmentationDegenerate is returned when the threshold stage cannot split
// the histogram, typically because the image is blank or flat.
var ErrSegmentationDegenerate = errors.New("segmentation degenerate: histogram has no variance")

// RankFilter reduces noise with a rank (median) filter.
type RankFilter interface {
	Median(src *image.Gray, radius int) *image.Gray
}

// Thresholder computes a global threshold and binarizes an image. Object
// pixels become Foreground, everything else 0.
type Thresholder interface {
	Threshold(src *image.Gray) (*image.Gray, error)
}

// Morphology provides the binary cleanup operations.
type Morphology interface {
	Open(mask *image.Gray) *image.Gray
	FillHoles(mask *image.Gray) *image.Gray
}

// Segmenter turns an intensity channel into a binary mask:
// median filter, triangle threshold, opening, hole filling.
//
// The zero value is not usable; create one with New. The collaborators are
// exported so callers can substitute their own implementations.
type Segmenter struct {
	Filter       RankFilter
	Thresholder  Thresholder
	Morphology   Morphology
	MedianRadius int
}

// New returns a Segmenter backed by the bild implementations and the
// triangle threshold. A radius <= 0 selects DefaultMedianRadius.
func New(medianRadius int) *Segmenter {
	if medianRadius <= 0 {
		medianRadius = DefaultMedianRadius
	}
	return &Segmenter{
		Filter:       BildFilter{},
		Thresholder:  Triangle{},
		Morphology:   BildMorphology{},
		MedianRadius: medianRadius,
	}
}

// Segment computes the mask of every plane of channel.
//
// The input is never modified. The result has the same width, height and
// plane count as channel, 8-bit depth, and holds Foreground for object pixels
// and 0 elsewhere. Running Segment twice on the same input gives identical
// masks.
//
// Planes of 16-bit or float channels are first mapped onto 256 levels
// (see imaging.Buffer.ToGray8). The mapping is monotonic, so the median of
// the mapped values equals the mapping of the median.
func (s *Segmenter) Segment(channel *imaging.Buffer) (*imaging.Buffer, error) {
	mask := imaging.NewBuffer(channel.Width, channel.Height, channel.Planes, imaging.Depth8)
	for p := 0; p < channel.Planes; p++ {
		plane, err := s.SegmentPlane(channel, p)
		if err != nil {
			if channel.Planes > 1 {
				return nil, fmt.Errorf("plane %d: %w", p, err)
			}
			return nil, err
		}
		copy(mask.PlanePix(p), plane.PlanePix(0))
	}
	return mask, nil
}

// SegmentPlane computes the mask of a single plane and returns it as a
// single-plane buffer.
func (s *Segmenter) SegmentPlane(channel *imaging.Buffer, plane int) (*imaging.Buffer, error) {
	if plane < 0 || plane >= channel.Planes {
		return nil, fmt.Errorf("plane %d outside stack of %d planes", plane, channel.Planes)
	}

	gray := channel.ToGray8(plane)
	denoised := s.Filter.Median(gray, s.MedianRadius)

	binary, err := s.Thresholder.Threshold(denoised)
	if err != nil {
		return nil, err
	}

	opened := s.Morphology.Open(binary)
	filled := s.Morphology.FillHoles(opened)

	return imaging.FromGray(filled), nil
}
