package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrause/scopekit/demo/config"
)

func Test_Default(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Development)
}

func Test_Load(t *testing.T) {
	t.Run("no file uses defaults", func(t *testing.T) {
		cfg, err := config.Load("")
		require.NoError(t, err)

		assert.Equal(t, config.Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  addr: ":9090"
  shutdown_timeout: 5s
log:
  level: debug
  development: true
`)

		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout.Duration())
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.Development)
	})

	t.Run("partial file keeps remaining defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  addr: ":9090"
`)

		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  addr: ":9090"
`)

		t.Setenv("SCOPEDEMO_ADDR", ":7070")
		t.Setenv("SCOPEDEMO_LOG_LEVEL", "warn")

		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, ":7070", cfg.Server.Addr)
		assert.Equal(t, "warn", cfg.Log.Level)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "config: read file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfigFile(t, "server: [not a mapping")

		_, err := config.Load(path)
		assert.ErrorContains(t, err, "config: parse file")
	})
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}
