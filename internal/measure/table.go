package measure

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Record is the measurement row of one region.
type Record struct {
	Label int
	Name  string
	Plane int

	// Values is aligned with the owning table's Kinds.
	Values []float64
}

// Table is an ordered set of records sharing the same statistic columns.
type Table struct {
	Kinds   []Kind
	Records []Record
}

// NewTable returns an empty table with the given columns.
func NewTable(kinds []Kind) *Table {
	return &Table{Kinds: append([]Kind(nil), kinds...)}
}

// Column returns the index of k among the table's columns, or -1.
func (t *Table) Column(k Kind) int {
	for i, kk := range t.Kinds {
		if kk == k {
			return i
		}
	}
	return -1
}

// Value returns the value of k in row i.
func (t *Table) Value(i int, k Kind) (float64, bool) {
	c := t.Column(k)
	if c < 0 || i < 0 || i >= len(t.Records) {
		return 0, false
	}
	return t.Records[i].Values[c], true
}

// WriteCSV writes the table in results-table layout: a 1-based row number
// column, then Label, Name and Plane, then one column per statistic.
// Values are written with the shortest representation that round-trips.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{" ", "Label", "Name", "Plane"}
	for _, k := range t.Kinds {
		header = append(header, k.String())
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write table header: %w", err)
	}

	row := make([]string, len(header))
	for i, rec := range t.Records {
		row[0] = strconv.Itoa(i + 1)
		row[1] = strconv.Itoa(rec.Label)
		row[2] = rec.Name
		row[3] = strconv.Itoa(rec.Plane + 1)
		for j, v := range rec.Values {
			row[4+j] = FormatValue(v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write table row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatValue renders a statistic for text output. Infinities are written
// as "Infinity" and "-Infinity", NaN as "NaN".
func FormatValue(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Rows returns the table as JSON-friendly maps keyed by column name.
// Non-finite values are given as strings since JSON has no encoding for them.
func (t *Table) Rows() []map[string]interface{} {
	rows := make([]map[string]interface{}, len(t.Records))
	for i, rec := range t.Records {
		row := map[string]interface{}{
			"label": rec.Label,
			"name":  rec.Name,
			"plane": rec.Plane,
		}
		for j, k := range t.Kinds {
			v := rec.Values[j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[k.String()] = FormatValue(v)
			} else {
				row[k.String()] = v
			}
		}
		rows[i] = row
	}
	return rows
}
