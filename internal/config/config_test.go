package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ConfigYAML(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "Reserved", cfg.Statuses.Table["reserved"])
	assert.Equal(t, "In progress", cfg.Statuses.Order["in_progress"])
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CAFE_DATABASE_DSN", "file:override.db")
	t.Setenv("CAFE_SERVER_PORT", "9999")

	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "file:override.db", cfg.Database.DSN)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoad_DefaultsRequireSecret(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n  driver: mysql\n  dsn: x\nauth:\n  jwt_secret: s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}
