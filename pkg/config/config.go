// Package config provides configuration loading and management for slicelabeler.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"slicelabeler/pkg/codec"
	"slicelabeler/pkg/registry"
)

// ErrInvalid is returned by Validate for unusable settings
var ErrInvalid = errors.New("invalid configuration")

// Compression formats for the label volume artifact
const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input source parameters
	Input struct {
		// Dir is the directory holding the slice files
		Dir string `yaml:"dir"`

		// Extensions lists the file extensions treated as slices
		Extensions []string `yaml:"extensions"`
	} `yaml:"input"`

	// Codec parameters
	Codec struct {
		// SimplifyThreshold is the traced vertex count above which decoded
		// outlines are simplified
		SimplifyThreshold int `yaml:"simplifyThreshold"`

		// SimplifyTolerance is the simplification tolerance in pixels
		SimplifyTolerance float64 `yaml:"simplifyTolerance"`
	} `yaml:"codec"`

	// Output parameters
	Output struct {
		// Dir is where label artifacts are written
		Dir string `yaml:"dir"`

		// LabelsFile is the label volume artifact name
		LabelsFile string `yaml:"labelsFile"`

		// MetadataFile is the registry metadata artifact name
		MetadataFile string `yaml:"metadataFile"`

		// Compression is "none" or "snappy"
		Compression string `yaml:"compression"`

		// MeshDir is where review meshes are written, relative to Dir
		MeshDir string `yaml:"meshDir"`

		// OverlayDir is where labeled slice overlays are written, relative to Dir
		OverlayDir string `yaml:"overlayDir"`
	} `yaml:"output"`

	// Review rendering parameters
	Review struct {
		// Enabled runs the review renderer after the annotation session ends
		Enabled bool `yaml:"enabled"`

		// IsoLevel is the isosurface threshold on the binary class volume
		IsoLevel float64 `yaml:"isoLevel"`

		// Spacing is the physical voxel size in mm
		Spacing struct {
			X float64 `yaml:"x"`
			Y float64 `yaml:"y"`
			Z float64 `yaml:"z"`
		} `yaml:"spacing"`
	} `yaml:"review"`

	// Logging parameters
	Logging struct {
		// Mode is "debug" or "release"
		Mode string `yaml:"mode"`

		// File is the rotating log file; empty logs to stderr
		File string `yaml:"file"`

		MaxSizeMB  int `yaml:"maxSizeMB"`
		MaxAgeDays int `yaml:"maxAgeDays"`
		MaxBackups int `yaml:"maxBackups"`
	} `yaml:"logging"`

	// Classes is the class registry used for the session
	Classes []registry.Class `yaml:"classes"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Input.Extensions = []string{".dcm", ".jpg", ".jpeg", ".png"}

	opts := codec.DefaultOptions()
	cfg.Codec.SimplifyThreshold = opts.SimplifyThreshold
	cfg.Codec.SimplifyTolerance = opts.SimplifyTolerance

	cfg.Output.Dir = "."
	cfg.Output.LabelsFile = "bone_labels.npy"
	cfg.Output.MetadataFile = "label_metadata.json"
	cfg.Output.Compression = CompressionNone
	cfg.Output.MeshDir = "meshes"
	cfg.Output.OverlayDir = "overlays"

	cfg.Review.Enabled = true
	cfg.Review.IsoLevel = 0.5
	cfg.Review.Spacing.X = 1.0
	cfg.Review.Spacing.Y = 1.0
	cfg.Review.Spacing.Z = 1.0

	cfg.Logging.Mode = "release"
	cfg.Logging.File = "slicelabeler.log"
	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxAgeDays = 28
	cfg.Logging.MaxBackups = 3

	cfg.Classes = registry.DefaultClasses()

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
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
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
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

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks settings that would otherwise fail deep inside a session
func (c *Config) Validate() error {
	if c.Codec.SimplifyThreshold < 0 || c.Codec.SimplifyTolerance < 0 {
		return fmt.Errorf("codec simplification must not be negative: %w", ErrInvalid)
	}
	switch c.Output.Compression {
	case CompressionNone, CompressionSnappy:
	default:
		return fmt.Errorf("unknown compression %q: %w", c.Output.Compression, ErrInvalid)
	}
	if c.Output.LabelsFile == "" || c.Output.MetadataFile == "" {
		return fmt.Errorf("output file names must be set: %w", ErrInvalid)
	}
	if c.Review.Spacing.X <= 0 || c.Review.Spacing.Y <= 0 || c.Review.Spacing.Z <= 0 {
		return fmt.Errorf("voxel spacing must be positive: %w", ErrInvalid)
	}
	if _, err := registry.New(c.Classes); err != nil {
		return fmt.Errorf("classes: %v: %w", err, ErrInvalid)
	}
	return nil
}

// CodecOptions returns the decode options described by the config
func (c *Config) CodecOptions() codec.Options {
	return codec.Options{
		SimplifyThreshold: c.Codec.SimplifyThreshold,
		SimplifyTolerance: c.Codec.SimplifyTolerance,
	}
}

// Registry builds the class registry described by the config
func (c *Config) Registry() (*registry.Registry, error) {
	return registry.New(c.Classes)
}
