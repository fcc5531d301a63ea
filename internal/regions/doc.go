// Package regions extracts connected components from a binary mask and
// describes their shape.
//
// Extraction is a pure function of the mask: it returns a fresh, ordered slice
// of Region values and keeps no registry between calls. Components are
// 8-connected and ordered by a raster scan, so identical masks always give
// identical regions.
//
// # Shape Descriptors
//
//   - Area: pixel count
//   - Perimeter: traced outer outline, corners cut diagonally
//   - Major, Minor, Angle: best-fit ellipse with the region's area
//   - CentroidX, CentroidY: mean pixel centre
//
// # Filtering
//
// Components with Area <= minArea are discarded (default 50). When nothing
// survives, Result.Condition reports ErrRegionFilterEmpty; this is not fatal.
package regions
