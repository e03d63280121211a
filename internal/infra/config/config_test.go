package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 6*time.Second, cfg.Search.Deadline)
	assert.Equal(t, 3, cfg.Suspension.Threshold)
	assert.NotEmpty(t, cfg.Engines)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
search:
  deadline: 10s
  max_concurrent: 4
suspension:
  threshold: 5
  base: 30s
  max: 20m
engines:
  - id: wikipedia
    category: general
    weight: 2.0
    locales: [en, de]
    default_locale: en
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Search.Deadline)
	assert.Equal(t, 4, cfg.Search.MaxConcurrent)
	assert.Equal(t, 5, cfg.Suspension.Threshold)
	require.Len(t, cfg.Engines, 1)
	assert.Equal(t, 2.0, cfg.Engines[0].Weight)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "search: [not a map")
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OMNISEARCH_LOG_LEVEL", "debug")
	t.Setenv("OMNISEARCH_DEADLINE", "9s")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 9*time.Second, cfg.Search.Deadline)
}

func TestDescriptorDefaults(t *testing.T) {
	cfg := Default()
	e := &EngineConfig{ID: "x", Category: "general"}
	d := cfg.Descriptor(e)
	assert.Equal(t, cfg.Search.DefaultTimeout, d.Timeout)
	assert.Equal(t, 1.0, d.Weight)
	assert.True(t, d.Enabled)
}

func TestEngineLookup(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg.Engine("wikipedia"))
	assert.Nil(t, cfg.Engine("absent"))
}
