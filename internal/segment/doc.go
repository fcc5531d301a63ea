// Package segment converts an intensity channel into a clean binary mask.
//
// The pipeline has four required stages, run in order with no early exit:
//
//  1. Noise reduction: median filter (default radius 3)
//  2. Thresholding: triangle method, dark background (bright objects)
//  3. Morphological opening: one erosion followed by one dilation
//  4. Hole filling: enclosed background becomes foreground
//
// Each stage is consumed through a small interface (RankFilter, Thresholder,
// Morphology) so the backing implementation can be swapped. The defaults use
// github.com/anthonynsimon/bild for filtering, histograms, binarization and
// morphology.
//
// # Mask Convention
//
// Masks use the "black background" convention: object pixels hold
// Foreground (255) and background pixels hold 0.
//
// # Error Handling
//
// A blank or flat image has no histogram to split; Segment returns
// ErrSegmentationDegenerate rather than an all-foreground or all-background
// mask. Callers should treat it as fatal for that image only.
package segment
