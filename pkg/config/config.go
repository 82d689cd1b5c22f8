// Package config provides configuration loading and management for mmapmovie.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Storage parameters for the materialized movie file
	Storage struct {
		// TempDir is where the materialized movie file is written
		TempDir string `yaml:"tempDir"`

		// FileName is the name of the materialized movie file inside TempDir
		FileName string `yaml:"fileName"`

		// KeepFile leaves the movie file and its metadata on disk after the run
		KeepFile bool `yaml:"keepFile"`
	} `yaml:"storage"`

	// Partition parameters for parallel patch extraction
	Partition struct {
		// TileRows and TileCols bound the size of each tile
		TileRows int `yaml:"tileRows"`
		TileCols int `yaml:"tileCols"`

		// Overlap is the number of rows/columns shared by neighbouring tiles
		Overlap int `yaml:"overlap"`

		// Workers specifies how many extractions run at once
		Workers int `yaml:"workers"`
	} `yaml:"partition"`

	// Output parameters
	Output struct {
		// Dir is where frame previews and HDF5 files are written
		Dir string `yaml:"dir"`

		// SaveFrames writes a JPEG preview of every patch frame
		SaveFrames bool `yaml:"saveFrames"`

		// H5File, when set, receives each extracted patch and its trace
		H5File string `yaml:"h5File"`

		// PatchKey and TraceKey are the HDF5 dataset names
		PatchKey string `yaml:"patchKey"`
		TraceKey string `yaml:"traceKey"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Storage.TempDir = os.TempDir()
	cfg.Storage.FileName = "mmapmovie.bin"
	cfg.Storage.KeepFile = false

	cfg.Partition.TileRows = 64
	cfg.Partition.TileCols = 64
	cfg.Partition.Overlap = 8
	cfg.Partition.Workers = runtime.NumCPU() // Use all available cores by default

	cfg.Output.Dir = "mmapmovie_output"
	cfg.Output.SaveFrames = false
	cfg.Output.PatchKey = "/patch"
	cfg.Output.TraceKey = "/trace"
	cfg.Output.Verbose = false

	return cfg
}

// MoviePath returns the full path of the materialized movie file
func (c *Config) MoviePath() string {
	return filepath.Join(c.Storage.TempDir, c.Storage.FileName)
}

// Validate reports every invalid setting
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.FileName == "" {
		errs = append(errs, errors.New("storage.fileName must not be empty"))
	}
	if c.Partition.TileRows < 2 || c.Partition.TileCols < 2 {
		errs = append(errs, fmt.Errorf("partition tiles must be at least 2x2, got %dx%d",
			c.Partition.TileRows, c.Partition.TileCols))
	}
	if c.Partition.Overlap < 0 ||
		c.Partition.Overlap >= c.Partition.TileRows ||
		c.Partition.Overlap >= c.Partition.TileCols {
		errs = append(errs, fmt.Errorf("partition.overlap %d must be non-negative and smaller than the tile", c.Partition.Overlap))
	}
	if c.Partition.Workers < 0 {
		errs = append(errs, fmt.Errorf("partition.workers %d must not be negative", c.Partition.Workers))
	}
	return errors.Join(errs...)
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
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
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
