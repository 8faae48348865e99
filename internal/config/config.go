// Package config loads and validates vulnmap configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete vulnmap configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Scan     ScanConfig     `json:"scan" mapstructure:"scan"`
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Fetch    FetchConfig    `json:"fetch" mapstructure:"fetch"`
	Storage  StorageConfig  `json:"storage" mapstructure:"storage"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// ScanConfig contains source scanning configuration
type ScanConfig struct {
	// Workers is the size of the file-scan worker pool
	Workers int `json:"workers" mapstructure:"workers"`
	// MaxFileSizeBytes skips files larger than this
	MaxFileSizeBytes int `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	// MaxFiles bounds the number of files loaded from a tree
	MaxFiles int `json:"maxFiles" mapstructure:"maxFiles"`
	// Ignore lists directory names excluded from tree loading
	Ignore []string `json:"ignore" mapstructure:"ignore"`
}

// AnalysisConfig contains graph analysis configuration
type AnalysisConfig struct {
	// MaxCycles bounds cycle enumeration; hitting it sets the saturation flag
	MaxCycles int `json:"maxCycles" mapstructure:"maxCycles"`
	// MaxAttackDistance caps BFS depth from entry points
	MaxAttackDistance int `json:"maxAttackDistance" mapstructure:"maxAttackDistance"`
}

// FetchConfig contains repository fetch configuration
type FetchConfig struct {
	// CloneTimeoutMs bounds git clone duration
	CloneTimeoutMs int `json:"cloneTimeoutMs" mapstructure:"cloneTimeoutMs"`
	// WorkDir is where remote repositories are checked out
	WorkDir string `json:"workDir" mapstructure:"workDir"`
}

// StorageConfig contains run history configuration
type StorageConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Scan: ScanConfig{
			Workers:          4,
			MaxFileSizeBytes: 1000000,
			MaxFiles:         10000,
			Ignore: []string{
				".git", "node_modules", "vendor", "__pycache__",
				".venv", "venv", "dist", "build", ".tox", ".mypy_cache",
			},
		},
		Analysis: AnalysisConfig{
			MaxCycles:         100,
			MaxAttackDistance: 25,
		},
		Fetch: FetchConfig{
			CloneTimeoutMs: 300000,
			WorkDir:        "input_data",
		},
		Storage: StorageConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .vulnmap/config.json under root.
// A missing config file yields the defaults.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("scan.workers", def.Scan.Workers)
	v.SetDefault("scan.maxFileSizeBytes", def.Scan.MaxFileSizeBytes)
	v.SetDefault("scan.maxFiles", def.Scan.MaxFiles)
	v.SetDefault("scan.ignore", def.Scan.Ignore)
	v.SetDefault("analysis.maxCycles", def.Analysis.MaxCycles)
	v.SetDefault("analysis.maxAttackDistance", def.Analysis.MaxAttackDistance)
	v.SetDefault("fetch.cloneTimeoutMs", def.Fetch.CloneTimeoutMs)
	v.SetDefault("fetch.workDir", def.Fetch.WorkDir)
	v.SetDefault("storage.enabled", def.Storage.Enabled)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".vulnmap"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to .vulnmap/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".vulnmap")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Scan.Workers < 1 {
		return &ConfigError{Field: "scan.workers", Message: "must be at least 1"}
	}
	if c.Analysis.MaxCycles < 1 {
		return &ConfigError{Field: "analysis.maxCycles", Message: "must be at least 1"}
	}
	if c.Analysis.MaxAttackDistance < 1 {
		return &ConfigError{Field: "analysis.maxAttackDistance", Message: "must be at least 1"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
