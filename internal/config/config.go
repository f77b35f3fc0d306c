// Package config loads the service configuration from a YAML file. The
// loaded value is passed explicitly to the components that need it;
// nothing reads configuration ambiently.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port        int `yaml:"port"`
		MetricsPort int `yaml:"metrics_port"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	LogLevel  string          `yaml:"log_level"`
	Inventory InventoryConfig `yaml:"inventory"`
}

// InventoryConfig holds the availability policy toggles.
type InventoryConfig struct {
	// Enabled turns all availability logic on; off means everything
	// is always sellable.
	Enabled bool `yaml:"enabled"`
	// AllowNegativeStock, meaningful only when Enabled, keeps checkout
	// and fulfillment from blocking even as the ledger goes negative.
	AllowNegativeStock bool `yaml:"allow_negative_stock"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.MetricsPort = 9090
	cfg.Database.Path = "colonial.db"
	cfg.LogLevel = "info"
	cfg.Inventory.Enabled = true
	cfg.Inventory.AllowNegativeStock = true
	return cfg
}

// Load reads configuration from path, falling back to defaults when the
// file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
