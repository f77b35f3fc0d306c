package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, "colonial.db", cfg.Database.Path)
	assert.True(t, cfg.Inventory.Enabled)
	assert.True(t, cfg.Inventory.AllowNegativeStock)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 3000
database:
  path: /tmp/pizzaria.db
log_level: debug
inventory:
  enabled: true
  allow_negative_stock: false
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	// Unset keys keep their defaults
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, "/tmp/pizzaria.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Inventory.Enabled)
	assert.False(t, cfg.Inventory.AllowNegativeStock)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
