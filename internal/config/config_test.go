package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.Grid.PageSize)
	assert.Equal(t, "data/nz_population.geojson", cfg.Grid.Path)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.Nominatim.BaseURL)
	assert.Equal(t, 30, cfg.Nominatim.TimeoutSecs)
	assert.Equal(t, time.Second, cfg.Nominatim.GeocodePace())
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.Empty(t, cfg.Anthropic.Key)
	assert.Equal(t, 10000, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.GenerationPace())
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
pipeline:
  chunk_size: 500
  pace_interval: 0s
nominatim:
  contact: ops@nz-insights.example
  pace_interval: 250ms
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Pipeline.ChunkSize)
	assert.Equal(t, time.Duration(0), cfg.Pipeline.GenerationPace())
	assert.Equal(t, "ops@nz-insights.example", cfg.Nominatim.Contact)
	assert.Equal(t, 250*time.Millisecond, cfg.Nominatim.GeocodePace())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsNonPositiveChunkSize(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := "pipeline:\n  chunk_size: 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_size")
}

func TestParseIntervalFallback(t *testing.T) {
	assert.Equal(t, time.Second, parseInterval("", time.Second))
	assert.Equal(t, time.Second, parseInterval("bogus", time.Second))
	assert.Equal(t, time.Second, parseInterval("-5s", time.Second))
	assert.Equal(t, 3*time.Second, parseInterval("3s", time.Second))
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
