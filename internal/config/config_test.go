package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "atlas.db", cfg.Store.Path)
	assert.Equal(t, "runs", cfg.Data.WorkDir)
	assert.Equal(t, ".atlas-cache", cfg.Data.CacheDir)
	assert.Equal(t, 256, cfg.Imagery.Width)
	assert.Equal(t, 256, cfg.Imagery.Height)
	assert.Equal(t, int64(42), cfg.Imagery.Seed)
	assert.Equal(t, "https://overpass-api.de/api/interpreter", cfg.Overpass.Endpoint)
	assert.Equal(t, 60, cfg.Overpass.TimeoutSecs)
	assert.False(t, cfg.Overpass.Enabled)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentRuns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/atlas
log:
  level: debug
  format: console
batch:
  max_concurrent_runs: 8
imagery:
  width: 128
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/atlas", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 8, cfg.Batch.MaxConcurrentRuns)
	assert.Equal(t, 128, cfg.Imagery.Width)
	// Defaults still apply for unset values
	assert.Equal(t, 256, cfg.Imagery.Height)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ATLAS_STORE_DRIVER", "postgres")
	t.Setenv("ATLAS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("ATLAS_BATCH_MAX_CONCURRENT_RUNS", "12")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Batch.MaxConcurrentRuns)
}

func validDefaults() *Config {
	return &Config{
		Store: StoreConfig{Driver: "sqlite", Path: "atlas.db"},
		Data:  DataConfig{WorkDir: "runs"},
		Imagery: ImageryConfig{
			Width:  256,
			Height: 256,
		},
		Batch: BatchConfig{MaxConcurrentRuns: 4},
	}
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validDefaults().Validate())
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/atlas"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidate_ConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.MaxConcurrentRuns = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_runs must be between 1 and 32")

	cfg.Batch.MaxConcurrentRuns = 33
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_runs must be between 1 and 32")

	cfg.Batch.MaxConcurrentRuns = 32
	assert.NoError(t, cfg.Validate())
}

func TestValidate_OverpassEnabledNeedsEndpoint(t *testing.T) {
	cfg := validDefaults()
	cfg.Overpass.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overpass.endpoint is required")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
