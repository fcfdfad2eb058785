// Package config loads the analysis configuration from YAML or JSON and
// watches it for changes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/landcover.report/internal/units"
)

// DefaultConfigPath is the example configuration shipped with the repo.
const DefaultConfigPath = "config/landcover.example.yaml"

// Defaults applied by the Get* accessors when a field is unset.
const (
	DefaultPixels        = 50000
	DefaultWorkers       = 4
	DefaultDataPrefix    = "data"
	DefaultResultsPrefix = "results"
	DefaultPlotsPrefix   = "plots"
	DefaultBlobDriver    = "fs"
	DefaultBlobRoot      = "landcover_data"
	DefaultDatabase      = "landcover.db"
)

// DefaultYears are the analysed years when none are configured.
var DefaultYears = []int{2010, 2015, 2020}

// Config is the root configuration. Sections mirror config/landcover.example.yaml.
type Config struct {
	DataSources   DataSourcesConfig   `yaml:"data_sources" json:"data_sources"`
	Analysis      AnalysisConfig      `yaml:"analysis" json:"analysis"`
	Visualization VisualizationConfig `yaml:"visualization" json:"visualization"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
}

// DataSourcesConfig controls sample generation and the CSV cache.
type DataSourcesConfig struct {
	// Pixels is the number of samples generated per year.
	Pixels int `yaml:"pixels" json:"pixels"`
	// Prefix is the blob key prefix of the per-year CSV files.
	Prefix string `yaml:"prefix" json:"prefix"`
	// NoCache regenerates every year instead of reusing stored CSVs.
	NoCache bool `yaml:"no_cache" json:"no_cache"`
}

// AnalysisConfig selects the years and the aggregation parallelism.
type AnalysisConfig struct {
	Years   []int `yaml:"years" json:"years"`
	Workers int   `yaml:"workers" json:"workers"`
}

// VisualizationConfig controls chart output.
type VisualizationConfig struct {
	Prefix   string `yaml:"prefix" json:"prefix"`
	Disabled bool   `yaml:"disabled" json:"disabled"`
	// AreaUnits is the unit area axes are drawn in: km2, ha, mi2 or acres.
	AreaUnits string `yaml:"area_units" json:"area_units"`
}

// StorageConfig selects the blob backend and the results database.
type StorageConfig struct {
	Driver        string   `yaml:"driver" json:"driver"`
	Root          string   `yaml:"root" json:"root"`
	ResultsPrefix string   `yaml:"results_prefix" json:"results_prefix"`
	Database      string   `yaml:"database" json:"database"`
	S3            S3Config `yaml:"s3" json:"s3"`
}

// S3Config is used when Storage.Driver is "s3".
type S3Config struct {
	Bucket          string `yaml:"bucket" json:"bucket"`
	Region          string `yaml:"region" json:"region"`
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	PathStyle       bool   `yaml:"path_style" json:"path_style"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
}

// Default returns a config whose accessors all yield their defaults.
func Default() *Config {
	return &Config{}
}

// Load reads a .yaml, .yml or .json config file. Missing fields fall back
// to the Get* defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return nil, fmt.Errorf("config file must have .yaml, .yml or .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching parent
// directories so tests in nested packages find it. Panics on failure.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	seen := make(map[int]bool)
	for i, y := range c.Analysis.Years {
		if y <= 0 {
			return fmt.Errorf("analysis.years[%d] must be positive, got %d", i, y)
		}
		if seen[y] {
			return fmt.Errorf("analysis.years contains %d twice", y)
		}
		seen[y] = true
	}
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must be non-negative, got %d", c.Analysis.Workers)
	}
	if c.DataSources.Pixels < 0 {
		return fmt.Errorf("data_sources.pixels must be non-negative, got %d", c.DataSources.Pixels)
	}
	if c.Visualization.AreaUnits != "" && !units.IsValid(c.Visualization.AreaUnits) {
		return fmt.Errorf("visualization.area_units must be one of %s, got %q", units.GetValidUnitsString(), c.Visualization.AreaUnits)
	}
	switch c.GetBlobDriver() {
	case "fs", "memory":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

// GetYears returns the analysed years in configured order.
func (c *Config) GetYears() []int {
	if len(c.Analysis.Years) == 0 {
		return append([]int(nil), DefaultYears...)
	}
	return append([]int(nil), c.Analysis.Years...)
}

func (c *Config) GetPixels() int {
	if c.DataSources.Pixels == 0 {
		return DefaultPixels
	}
	return c.DataSources.Pixels
}

func (c *Config) GetWorkers() int {
	if c.Analysis.Workers == 0 {
		return DefaultWorkers
	}
	return c.Analysis.Workers
}

func (c *Config) GetDataPrefix() string {
	return orDefault(c.DataSources.Prefix, DefaultDataPrefix)
}

func (c *Config) GetPlotsPrefix() string {
	return orDefault(c.Visualization.Prefix, DefaultPlotsPrefix)
}

func (c *Config) GetAreaUnits() string {
	return orDefault(c.Visualization.AreaUnits, units.KM2)
}

func (c *Config) GetResultsPrefix() string {
	return orDefault(c.Storage.ResultsPrefix, DefaultResultsPrefix)
}

func (c *Config) GetBlobDriver() string {
	return orDefault(c.Storage.Driver, DefaultBlobDriver)
}

func (c *Config) GetBlobRoot() string {
	return orDefault(c.Storage.Root, DefaultBlobRoot)
}

func (c *Config) GetDatabase() string {
	return orDefault(c.Storage.Database, DefaultDatabase)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
