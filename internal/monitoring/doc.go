// Package monitoring holds the process-wide diagnostic logger used by the
// pipeline packages. Output goes through Logf so tests and embedding
// programs can redirect or silence it.
package monitoring
