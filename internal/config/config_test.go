package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Equal(t, 7, cfg.Digest.WindowDays)
	assert.Equal(t, "0 9 * * 0", cfg.Digest.WeeklyCron)
	assert.Equal(t, 5, cfg.Digest.RetryFloorSeconds)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Matrix.Homeserver = "https://matrix.example.com"
	cfg.Matrix.Username = "calbot"
	cfg.Matrix.Rooms = []string{"!room:example.com"}
	cfg.CalDAV.URL = "https://cal.example.com/personal/"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestNormalizeFillsDefaults(t *testing.T) {
	var cfg Config
	cfg.Normalize()

	assert.Equal(t, "./var/calbot", cfg.Matrix.DataDir)
	assert.NotNil(t, cfg.Matrix.Rooms)
	assert.Equal(t, 7, cfg.Digest.WindowDays)
	assert.Equal(t, "0 9 * * 0", cfg.Digest.WeeklyCron)
	assert.Equal(t, 5, cfg.Digest.RetryFloorSeconds)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MATRIX_BOT_PASSWORD", "env-matrix-pass")
	t.Setenv("CALDAV_PASSWORD", "env-caldav-pass")
	t.Setenv("MATRIX_ROOM_IDS", "!a:example.com, !b:example.com,")

	cfg := DefaultConfig()
	cfg.Matrix.Password = "file-pass"
	cfg.ApplyEnv()

	assert.Equal(t, "env-matrix-pass", cfg.Matrix.Password)
	assert.Equal(t, "env-caldav-pass", cfg.CalDAV.Password)
	assert.Equal(t, []string{"!a:example.com", "!b:example.com"}, cfg.Matrix.Rooms)
}

func TestApplyEnvLeavesFileValuesWhenUnset(t *testing.T) {
	t.Setenv("MATRIX_BOT_PASSWORD", "")

	cfg := DefaultConfig()
	cfg.Matrix.Password = "file-pass"
	cfg.ApplyEnv()

	assert.Equal(t, "file-pass", cfg.Matrix.Password)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.Matrix.Homeserver = "https://matrix.example.com"
	cfg.Matrix.Username = "calbot"
	cfg.Matrix.Rooms = []string{"!room:example.com"}
	cfg.CalDAV.URL = "https://cal.example.com/personal/"
	assert.NoError(t, cfg.Validate())
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 7*24*time.Hour, cfg.Window())
	assert.Equal(t, 5*time.Second, cfg.RetryFloor())
}
