package regions

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{
	"Label", "Name", "Plane", "X1", "Y1", "X2", "Y2",
	"Area", "Perimeter", "Major", "Minor", "Angle", "X", "Y",
}

// WriteCSV writes one row per region with its identity, bounds and shape
// descriptors. Planes are written 1-based.
func WriteCSV(w io.Writer, regs []Region) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write region header: %w", err)
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, r := range regs {
		row := []string{
			strconv.Itoa(r.Label), r.Name, strconv.Itoa(r.Plane + 1),
			strconv.Itoa(r.Bounds.X1), strconv.Itoa(r.Bounds.Y1),
			strconv.Itoa(r.Bounds.X2), strconv.Itoa(r.Bounds.Y2),
			strconv.Itoa(r.Area), f(r.Perimeter), f(r.Major), f(r.Minor), f(r.Angle),
			f(r.CentroidX), f(r.CentroidY),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write region %d: %w", r.Label, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
