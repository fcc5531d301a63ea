package measure

import (
	"fmt"
	"strings"
)

// Kind selects the statistic written into a measurement map.
type Kind int

const (
	Area Kind = iota
	Angle
	AngleVertical
	AspectRatio
	Circularity
	MajorAxis
	MinorAxis
	Mean
	Median
	Mode
	Min
	Max
	Perimeter
	NameEncodedLabel
	CentroidX
	CentroidY
	CenterOfMassX
	CenterOfMassY
	StdDev
	IntegratedDensity

	numKinds
)

// kindInfo describes one Kind. column is the results-table heading used in
// CSV output; ident is the Go-style name.
type kindInfo struct {
	column string
	ident  string
	desc   string
}

var kindInfos = [numKinds]kindInfo{
	Area:              {"Area", "Area", "region area in pixels"},
	Angle:             {"Angle", "Angle", "major axis angle from horizontal, degrees [0,180)"},
	AngleVertical:     {"AngleVert", "AngleVertical", "major axis angle from vertical (Angle - 90)"},
	AspectRatio:       {"AR", "AspectRatio", "major / minor axis; +Inf when minor is 0"},
	Circularity:       {"Circ.", "Circularity", "4*pi*area / perimeter^2"},
	MajorAxis:         {"Major", "MajorAxis", "best-fit ellipse major axis"},
	MinorAxis:         {"Minor", "MinorAxis", "best-fit ellipse minor axis"},
	Mean:              {"Mean", "Mean", "mean intensity"},
	Median:            {"Median", "Median", "median intensity (lower median for even counts)"},
	Mode:              {"Mode", "Mode", "most frequent intensity"},
	Min:               {"Min", "Min", "minimum intensity"},
	Max:               {"Max", "Max", "maximum intensity"},
	Perimeter:         {"Perim.", "Perimeter", "traced outline length"},
	NameEncodedLabel:  {"Pattern", "NameEncodedLabel", "number parsed from a region name like Track-0007:Frame-0003"},
	CentroidX:         {"X", "CentroidX", "geometric centre x"},
	CentroidY:         {"Y", "CentroidY", "geometric centre y"},
	CenterOfMassX:     {"XM", "CenterOfMassX", "intensity-weighted centre x"},
	CenterOfMassY:     {"YM", "CenterOfMassY", "intensity-weighted centre y"},
	StdDev:            {"StdDev", "StdDev", "intensity standard deviation"},
	IntegratedDensity: {"IntDen", "IntegratedDensity", "area * mean intensity"},
}

// Kinds returns every Kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= 0 && k < numKinds
}

// String returns the results-table column name of k.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindInfos[k].column
}

// Ident returns the Go-style name of k, used in file names.
func (k Kind) Ident() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind%d", int(k))
	}
	return kindInfos[k].ident
}

// Description returns a one-line explanation of k.
func (k Kind) Description() string {
	if !k.Valid() {
		return ""
	}
	return kindInfos[k].desc
}

// ParseKind resolves a column name ("Circ.", "AR") or Go-style name
// ("Circularity", "AspectRatio"), ignoring case.
func ParseKind(s string) (Kind, error) {
	name := strings.TrimSpace(s)
	for k := Kind(0); k < numKinds; k++ {
		info := kindInfos[k]
		if strings.EqualFold(name, info.column) || strings.EqualFold(name, info.ident) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown statistic %q", s)
}

// ParseKinds resolves a list of names, see ParseKind.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// MarshalText encodes k as its column name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid statistic %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a column or Go-style name.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
