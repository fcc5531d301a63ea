package workflow

import (
	"context"
	"encoding/csv"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/measurement-maps/internal/config"
	"github.com/ironsheep/measurement-maps/internal/segment"
)

// squaresImage draws bright squares (200) on a dark background (20).
func squaresImage(w, h int, rects ...image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 20
	}
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetGray(x, y, color.Gray{Y: 200})
			}
		}
	}
	return img
}

// writePNG saves img into dir and returns its path.
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

// readCSV returns all rows of a CSV file.
func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func twoSquares() *image.Gray {
	return squaresImage(64, 64, image.Rect(8, 8, 20, 20), image.Rect(36, 30, 50, 44))
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Processing.Workers = 2
	return cfg
}

func TestRun_WritesOutputs(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "cells.png", twoSquares())

	r, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rep, err := r.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if rep.Channels != 1 || rep.Regions != 2 || rep.RawRegions != 2 {
		t.Fatalf("report = %+v, want 1 channel and 2 regions", rep)
	}
	if rep.RunID == "" {
		t.Error("RunID is empty")
	}
	outDir := filepath.Join(dir, "output_go")
	if rep.OutputDir != outDir {
		t.Errorf("OutputDir = %q, want %q", rep.OutputDir, outDir)
	}

	want := []string{
		filepath.Join(outDir, "cells_regions.csv"),
		filepath.Join(outDir, "c1_cells_Mean.tif"),
		filepath.Join(outDir, "c1_cells_Table.csv"),
	}
	if diff := cmp.Diff(want, rep.Outputs); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
	for _, p := range want {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}

	info, err := os.Stat(filepath.Join(outDir, "c1_cells_Mean.tif"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() < 64*64*4 {
		t.Errorf("map file has %d bytes, want at least one float32 plane", info.Size())
	}

	rows := readCSV(t, filepath.Join(outDir, "c1_cells_Table.csv"))
	if len(rows) != 3 {
		t.Fatalf("table has %d rows, want header + 2", len(rows))
	}
	if diff := cmp.Diff([]string{" ", "Label", "Name", "Plane", "Mean"}, rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	for _, row := range rows[1:] {
		if row[4] != "200" {
			t.Errorf("region %s mean = %s, want 200", row[1], row[4])
		}
	}

	regionRows := readCSV(t, filepath.Join(outDir, "cells_regions.csv"))
	if len(regionRows) != 3 {
		t.Errorf("regions file has %d rows, want header + 2", len(regionRows))
	}
}

func TestRun_Float64Maps(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "cells.png", twoSquares())

	cfg := testConfig()
	cfg.Output.Float64Maps = true
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := r.Run(context.Background(), path); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "output_go", "c1_cells_Mean.tif"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() < 64*64*8 {
		t.Errorf("map file has %d bytes, want at least one float64 plane", info.Size())
	}
}

func TestRun_Degenerate(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "blank.png", squaresImage(32, 32))

	r, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = r.Run(context.Background(), path)
	if !errors.Is(err, segment.ErrSegmentationDegenerate) {
		t.Errorf("Run error = %v, want ErrSegmentationDegenerate", err)
	}
}

func TestRun_AllRegionsFiltered(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "speck.png", squaresImage(32, 32, image.Rect(10, 10, 17, 17)))

	cfg := testConfig()
	cfg.Segmentation.MedianRadius = 0
	cfg.Output.Histograms = true
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rep, err := r.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.RawRegions != 1 || rep.Regions != 0 {
		t.Errorf("raw/kept = %d/%d, want 1/0", rep.RawRegions, rep.Regions)
	}
	if len(rep.Conditions) != 1 || !strings.Contains(rep.Conditions[0], "no regions left") {
		t.Errorf("conditions = %v, want the empty-filter condition", rep.Conditions)
	}

	rows := readCSV(t, filepath.Join(rep.OutputDir, "c1_speck_Table.csv"))
	if len(rows) != 1 {
		t.Errorf("table has %d rows, want header only", len(rows))
	}
	// Nothing to plot, so no histogram is written.
	if _, err := os.Stat(filepath.Join(rep.OutputDir, "c1_speck_Mean_hist.png")); !os.IsNotExist(err) {
		t.Errorf("histogram written for an empty region set: %v", err)
	}
}

func TestRun_NamesFileAndPattern(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "tracks.png", twoSquares())

	namesPath := filepath.Join(dir, "names.csv")
	names := "label,name\n1,Track-0011:Frame-0001\n2,blob-2\n"
	if err := os.WriteFile(namesPath, []byte(names), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Measurement.NamesFile = namesPath
	cfg.Measurement.Statistics = []string{"Pattern"}
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rep, err := r.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rows := readCSV(t, filepath.Join(rep.OutputDir, "c1_tracks_Table.csv"))
	got := [][]string{rows[1][2:], rows[2][2:]}
	want := [][]string{
		{"Track-0011:Frame-0001", "1", "11"},
		{"blob-2", "1", "0"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
	if len(rep.Conditions) != 1 || !strings.Contains(rep.Conditions[0], "blob-2") {
		t.Errorf("conditions = %v, want one parse failure for blob-2", rep.Conditions)
	}
}

func TestRun_ChannelSelectionAndExtras(t *testing.T) {
	dir := t.TempDir()
	gray := twoSquares()
	rgb := image.NewNRGBA(gray.Bounds())
	for i, v := range gray.Pix {
		rgb.Pix[4*i] = v
		rgb.Pix[4*i+1] = 100
		rgb.Pix[4*i+2] = 255 - v
		rgb.Pix[4*i+3] = 255
	}
	path := writePNG(t, dir, "rgb.png", rgb)

	cfg := testConfig()
	cfg.Measurement.Channels = []int{2}
	cfg.Measurement.Statistics = []string{"Area", "Max"}
	cfg.Output.Preview = true
	cfg.Output.LabelMap = true
	cfg.Output.Outlines = true
	cfg.Output.Histograms = true
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	rep, err := r.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.Channels != 3 {
		t.Errorf("Channels = %d, want 3", rep.Channels)
	}

	want := []string{
		"rgb_regions.csv",
		"rgb_labels.tif",
		"rgb_outlines.png",
		"c2_rgb_Area.tif",
		"c2_rgb_Area.png",
		"c2_rgb_Max.tif",
		"c2_rgb_Max.png",
		"c2_rgb_Table.csv",
		"c2_rgb_Area_hist.png",
		"c2_rgb_Max_hist.png",
	}
	var got []string
	for _, p := range rep.Outputs {
		got = append(got, filepath.Base(p))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}

	rows := readCSV(t, filepath.Join(rep.OutputDir, "c2_rgb_Table.csv"))
	for _, row := range rows[1:] {
		if row[5] != "100" {
			t.Errorf("region %s Max = %s, want 100", row[1], row[5])
		}
	}
}

func TestRun_BadChannel(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "one.png", twoSquares())

	cfg := testConfig()
	cfg.Segmentation.ReferenceChannel = 2
	r, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := r.Run(context.Background(), path); err == nil {
		t.Error("reference channel 2 of a gray image should fail")
	}

	cfg = testConfig()
	cfg.Measurement.Channels = []int{1, 4}
	r, err = New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := r.Run(context.Background(), path); err == nil {
		t.Error("measuring channel 4 of a gray image should fail")
	}
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writePNG(t, dir, "a.png", twoSquares()),
		filepath.Join(dir, "missing.png"),
		writePNG(t, dir, "b.png", twoSquares()),
	}

	r, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	reports, err := r.RunBatch(context.Background(), paths)
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}
	for i, rep := range reports {
		if rep.Path != paths[i] {
			t.Errorf("report %d is for %s, want %s", i, rep.Path, paths[i])
		}
	}
	if reports[0].Error != "" || reports[2].Error != "" {
		t.Errorf("good images failed: %q, %q", reports[0].Error, reports[2].Error)
	}
	if reports[1].Error == "" {
		t.Error("missing image should report an error")
	}
	if r.cache.Len() != 0 {
		t.Errorf("cache holds %d images after batch, want 0", r.cache.Len())
	}
}

func TestRunBatch_Cancelled(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png", twoSquares())

	r, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.RunBatch(ctx, []string{path, path})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunBatch error = %v, want context.Canceled", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Measurement.Statistics = []string{"Volume"}
	if _, err := New(cfg, nil); err == nil {
		t.Error("unknown statistic should be rejected")
	}

	cfg = testConfig()
	cfg.Measurement.NamesFile = filepath.Join(t.TempDir(), "absent.csv")
	if _, err := New(cfg, nil); err == nil {
		t.Error("missing names file should be rejected")
	}
}
