// Package measure computes per-region statistics and renders them as
// measurement maps.
//
// A measurement map is a 32-bit float image the size of the source channel in
// which every pixel of a region holds that region's value for one statistic
// and every other pixel holds 0. The same values are returned as a Table, one
// Record per region.
//
// Statistics fall into two groups. Shape statistics (Area, Perimeter,
// Circularity, the ellipse fit, centroids) come from the region alone.
// Intensity statistics (Mean, Median, Mode, Min, Max, StdDev, ...) read the
// source channel at the region's pixels. NameEncodedLabel parses a number out
// of the region name.
//
// Some statistics are undefined for some regions. They do not fail the
// render: the value is a fixed sentinel and a Condition is reported.
//
//	Kind              Condition              Value
//	AspectRatio       ErrUndefinedRatio      +Inf (minor axis 0)
//	Circularity       ErrUndefinedRatio      +Inf (perimeter 0)
//	NameEncodedLabel  ErrLabelParseFailure   0
package measure
