// Package config defines the greenlight application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level greenlight configuration.
type Config struct {
	DataDir     string             `json:"data_dir" yaml:"data_dir"`
	StoreFile   string             `json:"store_file" yaml:"store_file"`       // relative to DataDir unless absolute
	OverrideDB  string             `json:"override_db" yaml:"override_db"`     // relative to DataDir unless absolute
	LogLevel    string             `json:"log_level" yaml:"log_level"`
	Departments []DepartmentConfig `json:"departments" yaml:"departments"`
}

// DepartmentConfig defines one routing department and its workers.
type DepartmentConfig struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Agents   []string `json:"agents" yaml:"agents"`
	Manager  string   `json:"manager,omitempty" yaml:"manager"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:    "./data",
		StoreFile:  "tasks.json",
		OverrideDB: "overrides.db",
		LogLevel:   "info",
		Departments: []DepartmentConfig{
			{
				Name:     "general",
				Keywords: []string{"task", "todo"},
				Agents:   []string{"agent-general"},
				Manager:  "manager-general",
			},
		},
	}
}

// Load reads a YAML config file and returns the parsed configuration
// layered over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// StorePath resolves the task store file location.
func (c *Config) StorePath() string {
	return c.resolve(c.StoreFile)
}

// OverrideDBPath resolves the override ledger location.
func (c *Config) OverrideDBPath() string {
	return c.resolve(c.OverrideDB)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}
