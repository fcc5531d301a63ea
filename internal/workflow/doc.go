// Package workflow runs the full measurement pipeline on image files.
//
// For each image the Runner segments the reference channel, extracts the
// regions, optionally renames them from a names file, and for every measured
// channel writes one float TIFF map per statistic together with a results
// table. Outputs go to a folder next to the input:
//
//	<dir>/output_go/<base>_regions.csv
//	<dir>/output_go/<base>_labels.tif        (optional)
//	<dir>/output_go/c<N>_<base>_<Stat>.tif
//	<dir>/output_go/c<N>_<base>_<Stat>.png   (optional preview)
//	<dir>/output_go/c<N>_<base>_Table.csv
//
// RunBatch processes independent images concurrently.
package workflow
