package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("minimal config gets defaults", func(t *testing.T) {
		path := writeConfig(t, `
auth:
  jwt_secret: sekrit
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, "sqlite", cfg.Storage.Driver)
		assert.Equal(t, "melodeon-state.json", cfg.Player.SnapshotPath)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "stdout", cfg.Log.Output)

		settings, err := cfg.Storage.SQLite()
		require.NoError(t, err)
		assert.Equal(t, "melodeon.db", settings.Path)
	})

	t.Run("explicit values win over defaults", func(t *testing.T) {
		path := writeConfig(t, `
server:
  addr: ":9090"
auth:
  jwt_secret: sekrit
  issuer: melodeon
storage:
  driver: sqlite
  settings:
    path: /var/lib/melodeon/catalog.db
    max_open_conns: 4
log:
  level: debug
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, "melodeon", cfg.Auth.Issuer)
		assert.Equal(t, "debug", cfg.Log.Level)

		settings, err := cfg.Storage.SQLite()
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/melodeon/catalog.db", settings.Path)
		assert.Equal(t, 4, settings.MaxOpenConns)
	})

	t.Run("missing jwt secret fails validation", func(t *testing.T) {
		path := writeConfig(t, `
server:
  addr: ":8080"
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "validation")
	})

	t.Run("unknown storage driver fails validation", func(t *testing.T) {
		path := writeConfig(t, `
auth:
  jwt_secret: sekrit
storage:
  driver: postgres
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("MELODEON_JWT_SECRET", "from-env")
		t.Setenv("MELODEON_DB_PATH", "/tmp/env.db")
		t.Setenv("MELODEON_ADDR", ":7070")

		path := writeConfig(t, `
auth:
  jwt_secret: from-file
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
		assert.Equal(t, ":7070", cfg.Server.Addr)

		settings, err := cfg.Storage.SQLite()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/env.db", settings.Path)
	})
}
