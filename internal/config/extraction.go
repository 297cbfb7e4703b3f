// Package config loads the extraction configuration. A config file is JSON
// or YAML; fields omitted from the file keep their defaults, so partial
// configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ExtractionConfig is the root configuration for a sample-extraction run.
// All fields are optional pointers; use the Get* accessors for defaulted
// reads.
type ExtractionConfig struct {
	// DataDir is the directory scanned recursively for .r49 archives.
	DataDir *string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`

	// Labels is the ordered set of class labels to extract.
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`

	// Size is the crop edge length in pixels.
	Size *int `json:"size,omitempty" yaml:"size,omitempty"`

	// DPT is the target calibration density in dots-per-track.
	DPT *int `json:"dpt,omitempty" yaml:"dpt,omitempty"`

	// Strict aborts an archive on per-marker transform failures instead of
	// skipping the marker.
	Strict *bool `json:"strict,omitempty" yaml:"strict,omitempty"`

	// Verbose enables per-marker skip diagnostics.
	Verbose *bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`

	// RemapTrainEnd enables the train-end -> train label remap rule.
	RemapTrainEnd *bool `json:"remap_train_end,omitempty" yaml:"remap_train_end,omitempty"`

	// OutputDir is where extracted patches are written, one directory per
	// label.
	OutputDir *string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	// DBPath is the sqlite sample index database. Empty disables indexing.
	DBPath *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// Helper functions to create pointers in tests and defaults.
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// Load reads an ExtractionConfig from a .json or .yaml/.yml file and
// validates it.
func Load(path string) (*ExtractionConfig, error) {
	cleanPath := filepath.Clean(path)

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ExtractionConfig{}
	switch ext := filepath.Ext(cleanPath); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *ExtractionConfig) Validate() error {
	if c.Size != nil && *c.Size < 2 {
		return fmt.Errorf("size must be at least 2, got %d", *c.Size)
	}
	if c.DPT != nil && *c.DPT < 1 {
		return fmt.Errorf("dpt must be positive, got %d", *c.DPT)
	}
	seen := map[string]bool{}
	for _, l := range c.Labels {
		if l == "" {
			return fmt.Errorf("labels must not contain empty strings")
		}
		if seen[l] {
			return fmt.Errorf("duplicate label %q", l)
		}
		seen[l] = true
	}
	return nil
}

// GetDataDir returns the archive directory or the default "data".
func (c *ExtractionConfig) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return "data"
	}
	return *c.DataDir
}

// GetLabels returns the requested labels or the default single "train"
// class.
func (c *ExtractionConfig) GetLabels() []string {
	if len(c.Labels) == 0 {
		return []string{"train"}
	}
	return c.Labels
}

// GetSize returns the crop edge length or the default.
func (c *ExtractionConfig) GetSize() int {
	if c.Size == nil {
		return 200
	}
	return *c.Size
}

// GetDPT returns the target density or the default.
func (c *ExtractionConfig) GetDPT() int {
	if c.DPT == nil {
		return 100
	}
	return *c.DPT
}

// GetStrict returns the strict flag, default false.
func (c *ExtractionConfig) GetStrict() bool {
	return c.Strict != nil && *c.Strict
}

// GetVerbose returns the verbose flag, default false.
func (c *ExtractionConfig) GetVerbose() bool {
	return c.Verbose != nil && *c.Verbose
}

// GetRemapTrainEnd returns the train-end remap flag, default false.
func (c *ExtractionConfig) GetRemapTrainEnd() bool {
	return c.RemapTrainEnd != nil && *c.RemapTrainEnd
}

// GetOutputDir returns the patch output directory or the default "samples".
func (c *ExtractionConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "samples"
	}
	return *c.OutputDir
}

// GetDBPath returns the sample index database path; empty means no index.
func (c *ExtractionConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// Default returns a config with every field at its default.
func Default() *ExtractionConfig {
	return &ExtractionConfig{}
}
