package measure

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleTable() *Table {
	t := NewTable([]Kind{Area, Mean, AspectRatio})
	t.Records = []Record{
		{Label: 1, Name: "0010-0012", Plane: 0, Values: []float64{64, 42.5, 1}},
		{Label: 2, Name: "blob, big", Plane: 0, Values: []float64{120, 1.0 / 3, math.Inf(1)}},
	}
	return t
}

func TestTable_WriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleTable().WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	want := `" ",Label,Name,Plane,Area,Mean,AR
1,1,0010-0012,1,64,42.5,1
2,2,"blob, big",1,120,0.3333333333333333,Infinity
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("CSV mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_Value(t *testing.T) {
	tbl := sampleTable()

	if v, ok := tbl.Value(1, Area); !ok || v != 120 {
		t.Errorf("Value(1, Area) = %v, %v", v, ok)
	}
	if _, ok := tbl.Value(0, Median); ok {
		t.Error("Value for a missing column should report false")
	}
	if _, ok := tbl.Value(5, Area); ok {
		t.Error("Value for a missing row should report false")
	}
}

func TestTable_Rows(t *testing.T) {
	rows := sampleTable().Rows()

	want := []map[string]interface{}{
		{"label": 1, "name": "0010-0012", "plane": 0, "Area": 64.0, "Mean": 42.5, "AR": 1.0},
		{"label": 2, "name": "blob, big", "plane": 0, "Area": 120.0, "Mean": 1.0 / 3, "AR": "Infinity"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("Rows mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{-2.5, "-2.5"},
		{1e21, "1e+21"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{math.NaN(), "NaN"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
