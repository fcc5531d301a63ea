package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/measurement-maps/internal/measure"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Segmentation.ReferenceChannel != 1 {
		t.Errorf("ReferenceChannel = %d, want 1", cfg.Segmentation.ReferenceChannel)
	}
	if cfg.Segmentation.MinArea != 50 || cfg.Segmentation.MedianRadius != 3 {
		t.Errorf("MinArea/MedianRadius = %d/%d, want 50/3", cfg.Segmentation.MinArea, cfg.Segmentation.MedianRadius)
	}
	if cfg.Output.Folder != "output_go" {
		t.Errorf("Folder = %q, want output_go", cfg.Output.Folder)
	}
	kinds, err := cfg.Kinds()
	if err != nil {
		t.Fatalf("Kinds failed: %v", err)
	}
	if diff := cmp.Diff([]measure.Kind{measure.Mean}, kinds); diff != "" {
		t.Errorf("default statistics mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "measure.yaml")
	data := `
segmentation:
  referenceChannel: 2
measurement:
  channels: [1, 3]
  statistics: [Circ., AspectRatio, mean]
output:
  preview: true
  float64Maps: true
processing:
  workers: 2
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Segmentation.ReferenceChannel != 2 {
		t.Errorf("ReferenceChannel = %d, want 2", cfg.Segmentation.ReferenceChannel)
	}
	if cfg.Segmentation.MinArea != 50 {
		t.Errorf("MinArea = %d, want default 50", cfg.Segmentation.MinArea)
	}
	if diff := cmp.Diff([]int{1, 3}, cfg.Measurement.Channels); diff != "" {
		t.Errorf("Channels mismatch (-want +got):\n%s", diff)
	}
	kinds, err := cfg.Kinds()
	if err != nil {
		t.Fatalf("Kinds failed: %v", err)
	}
	want := []measure.Kind{measure.Circularity, measure.AspectRatio, measure.Mean}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("statistics mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Output.Preview || !cfg.Output.Float64Maps || cfg.Output.Folder != DefaultOutputFolder {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if cfg.Processing.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Processing.Workers)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("missing file should give defaults (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad yaml", "segmentation: [", "parsing"},
		{"unknown statistic", "measurement:\n  statistics: [Volume]\n", "unknown statistic"},
		{"zero channel", "segmentation:\n  referenceChannel: 0\n", "referenceChannel"},
		{"bad pattern", "measurement:\n  labelPattern: 'Track-\\d+'\n", "capture group"},
		{"no workers", "processing:\n  workers: 0\n", "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadConfig error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "measure.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
