package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "caseintel.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 24, cfg.Store.CacheTTLHours)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.MNI.ConnectTimeoutSecs)
	assert.Equal(t, 30, cfg.MNI.QueryTimeoutSecs)
	assert.Equal(t, 120, cfg.MNI.BatchTimeoutSecs)
	assert.Equal(t, 4, cfg.MNI.ChunkSize)
	assert.Equal(t, 4, cfg.MNI.MaxParallel)
	assert.Equal(t, 3, cfg.Resilience.Query.MaxAttempts)
	assert.Equal(t, 500, cfg.Resilience.Query.InitialBackoffMs)
	assert.Equal(t, 4, cfg.Resilience.Batch.MaxAttempts)
	assert.Equal(t, 2000, cfg.Resilience.Batch.InitialBackoffMs)
	assert.Equal(t, 5, cfg.Resilience.Circuit.FailureThreshold)
	assert.Equal(t, 30, cfg.Resilience.Circuit.CooldownSecs)
	assert.Equal(t, int64(256), cfg.Classifier.MaxTokens)
	assert.Empty(t, cfg.Classifier.Backend)
}

func TestLoadFromYAML(t *testing.T) {
	chtemp(t)

	yaml := `
mni:
  endpoint: https://tribunal.example/mni
  consumer: juristec
  chunk_size: 3
store:
  driver: postgres
  database_url: postgres://localhost/caseintel
log:
  level: debug
  format: console
`
	wd, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(wd, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://tribunal.example/mni", cfg.MNI.Endpoint)
	assert.Equal(t, 3, cfg.MNI.ChunkSize)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.MNI.QueryTimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chtemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	wd, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(wd, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CASEINTEL_STORE_DRIVER", "postgres")
	t.Setenv("CASEINTEL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtemp(t)

	t.Setenv("CASEINTEL_MNI_CHUNK_SIZE", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MNI.ChunkSize)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mni.endpoint")

	cfg.MNI.Endpoint = "https://tribunal.example/mni"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mni.consumer")

	cfg.MNI.Consumer = "juristec"
	cfg.MNI.Password = "pw"
	assert.NoError(t, cfg.Validate())
}

func TestDurationHelpers(t *testing.T) {
	cfg := MNIConfig{ConnectTimeoutSecs: 10, QueryTimeoutSecs: 30, BatchTimeoutSecs: 120}
	assert.Equal(t, "10s", cfg.ConnectTimeout().String())
	assert.Equal(t, "30s", cfg.QueryTimeout().String())
	assert.Equal(t, "2m0s", cfg.BatchTimeout().String())
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
