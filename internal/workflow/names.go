package workflow

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ironsheep/measurement-maps/internal/regions"
)

// LoadNames reads a names file: CSV rows of "label,name". A first row whose
// label column is not a number is taken as a header and skipped.
func LoadNames(path string) (map[int]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open names file: %w", err)
	}
	defer f.Close()

	names, err := ReadNames(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return names, nil
}

// ReadNames parses names from r, see LoadNames.
func ReadNames(r io.Reader) (map[int]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	names := make(map[int]string)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		label, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: invalid label %q", line, rec[0])
		}
		if _, dup := names[label]; dup {
			return nil, fmt.Errorf("line %d: duplicate label %d", line, label)
		}
		names[label] = rec[1]
	}
	return names, nil
}

// Rename returns regs with names replaced for every label present in names.
// Regions without an entry keep their name.
func Rename(regs []regions.Region, names map[int]string) []regions.Region {
	out := make([]regions.Region, len(regs))
	for i, r := range regs {
		if n, ok := names[r.Label]; ok {
			r = r.WithName(n)
		}
		out[i] = r
	}
	return out
}
