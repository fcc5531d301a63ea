// Package config provides configuration loading for measurement map runs.
// Configuration is read from YAML files; every field has a default so
// partial files are fine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/measurement-maps/internal/measure"
	"github.com/ironsheep/measurement-maps/internal/regions"
	"github.com/ironsheep/measurement-maps/internal/segment"
)

// DefaultOutputFolder is created next to each input image.
const DefaultOutputFolder = "output_go"

// Config represents the workflow configuration loaded from YAML
type Config struct {
	// Segmentation parameters
	Segmentation struct {
		// ReferenceChannel is the 1-based channel regions are detected on
		ReferenceChannel int `yaml:"referenceChannel"`

		// MedianRadius is the radius of the denoising median filter
		MedianRadius int `yaml:"medianRadius"`

		// MinArea is the area a region must exceed to be kept
		MinArea int `yaml:"minArea"`
	} `yaml:"segmentation"`

	// Measurement parameters
	Measurement struct {
		// Channels lists the 1-based channels to measure; empty means all
		Channels []int `yaml:"channels,omitempty"`

		// Statistics lists the statistics to render, by column or Go name
		Statistics []string `yaml:"statistics"`

		// LabelPattern extracts the number used by the Pattern statistic
		LabelPattern string `yaml:"labelPattern"`

		// NamesFile is an optional CSV of "label,name" rows used to rename regions
		NamesFile string `yaml:"namesFile"`
	} `yaml:"measurement"`

	// Output parameters
	Output struct {
		// Folder is the name of the output directory created next to each input
		Folder string `yaml:"folder"`

		// Preview writes a colour PNG next to each measurement map
		Preview bool `yaml:"preview"`

		// PreviewMaxSide limits the preview size; 0 keeps full size
		PreviewMaxSide int `yaml:"previewMaxSide"`

		// Float64Maps writes measurement maps with 64-bit float samples instead
		// of ImageJ's 32-bit, so large labels and densities are not rounded
		Float64Maps bool `yaml:"float64Maps"`

		// LabelMap writes a 16-bit label image of the detected regions
		LabelMap bool `yaml:"labelMap"`

		// Outlines writes the reference channel with region outlines drawn on top
		Outlines bool `yaml:"outlines"`

		// OutlineColor is the "#RRGGBB" colour of the outlines
		OutlineColor string `yaml:"outlineColor"`

		// Histograms writes a distribution plot per statistic and channel
		Histograms bool `yaml:"histograms"`
	} `yaml:"output"`

	// Processing parameters
	Processing struct {
		// Workers is the number of images processed in parallel
		Workers int `yaml:"workers"`
	} `yaml:"processing"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Segmentation.ReferenceChannel = 1
	cfg.Segmentation.MedianRadius = segment.DefaultMedianRadius
	cfg.Segmentation.MinArea = regions.DefaultMinArea

	cfg.Measurement.Statistics = []string{measure.Mean.String()}
	cfg.Measurement.LabelPattern = measure.DefaultLabelPattern

	cfg.Output.Folder = DefaultOutputFolder
	cfg.Output.PreviewMaxSide = 1024
	cfg.Output.OutlineColor = "#FFFF00"

	cfg.Processing.Workers = runtime.NumCPU()

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
// The loaded configuration is validated.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// CreateDefaultConfigFile writes the default configuration to configPath
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	if c.Segmentation.ReferenceChannel < 1 {
		return fmt.Errorf("referenceChannel must be at least 1, got %d", c.Segmentation.ReferenceChannel)
	}
	if c.Segmentation.MedianRadius < 0 {
		return fmt.Errorf("medianRadius must not be negative, got %d", c.Segmentation.MedianRadius)
	}
	if c.Segmentation.MinArea < 0 {
		return fmt.Errorf("minArea must not be negative, got %d", c.Segmentation.MinArea)
	}
	for _, ch := range c.Measurement.Channels {
		if ch < 1 {
			return fmt.Errorf("channel numbers start at 1, got %d", ch)
		}
	}
	if len(c.Measurement.Statistics) == 0 {
		return errors.New("at least one statistic is required")
	}
	if _, err := c.Kinds(); err != nil {
		return err
	}
	if _, err := c.Engine(); err != nil {
		return err
	}
	if c.Output.Folder == "" {
		return errors.New("output folder must not be empty")
	}
	if c.Output.PreviewMaxSide < 0 {
		return fmt.Errorf("previewMaxSide must not be negative, got %d", c.Output.PreviewMaxSide)
	}
	if c.Processing.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Processing.Workers)
	}
	return nil
}

// Kinds resolves the configured statistic names.
func (c *Config) Kinds() ([]measure.Kind, error) {
	return measure.ParseKinds(c.Measurement.Statistics)
}

// Engine returns a statistic engine using the configured label pattern.
func (c *Config) Engine() (*measure.Engine, error) {
	if c.Measurement.LabelPattern == "" {
		return measure.NewEngine(), nil
	}
	return measure.NewEngineWithPattern(c.Measurement.LabelPattern)
}
