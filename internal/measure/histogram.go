package measure

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// DefaultHistogramBins is the bin count used when none is given.
const DefaultHistogramBins = 16

// ErrNoFiniteValues reports that a column holds no value that can be binned.
var ErrNoFiniteValues = errors.New("no finite values to plot")

// FiniteValues returns the finite values of one column in record order.
func (t *Table) FiniteValues(k Kind) []float64 {
	col := t.Column(k)
	if col < 0 {
		return nil
	}
	var out []float64
	for _, rec := range t.Records {
		if v := rec.Values[col]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// SaveHistogram plots the distribution of one statistic over the table's
// regions, the way ImageJ's Distribution command does for a results column.
// The image format follows the file extension (png, svg, pdf, ...).
// Infinite and NaN values are left out; a column without finite values gives
// ErrNoFiniteValues.
func (t *Table) SaveHistogram(path string, k Kind, bins int) error {
	if t.Column(k) < 0 {
		return fmt.Errorf("statistic %s is not in the table", k)
	}
	vals := t.FiniteValues(k)
	if len(vals) == 0 {
		return fmt.Errorf("%s: %w", k, ErrNoFiniteValues)
	}
	if bins <= 0 {
		bins = DefaultHistogramBins
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s distribution (%d regions)", k.Ident(), len(vals))
	p.X.Label.Text = k.String()
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return fmt.Errorf("failed to bin %s: %w", k, err)
	}
	p.Add(h)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save histogram: %w", err)
	}
	return nil
}
