package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8765, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, int64(4096), cfg.Server.ReadLimit)
	assert.Equal(t, ".", cfg.Tail.BaseDir)
	assert.Empty(t, cfg.Tail.AllowedRoots)
	assert.Equal(t, 1000, cfg.Tail.NumLines)
	assert.Equal(t, time.Second, cfg.Tail.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.Tail.HeartbeatInterval)
	assert.Equal(t, 5*time.Second, cfg.Tail.HeartbeatTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Tail.AllowedRoots = []string{"/var/log"}

		assert.NoError(t, cfg.Validate())
	})

	t.Run("no allowed roots", func(t *testing.T) {
		err := DefaultConfig().Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one allowed root")
	})

	t.Run("reports every invalid field", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Tail.AllowedRoots = []string{"/var/log"}
		cfg.Server.Port = 0
		cfg.Tail.NumLines = -1
		cfg.Tail.HeartbeatTimeout = 0
		cfg.Logging.Level = "verbose"

		err := cfg.Validate()
		require.Error(t, err)

		msg := err.Error()
		assert.Contains(t, msg, "port must be between")
		assert.Contains(t, msg, "tail.num_lines must be positive")
		assert.Contains(t, msg, "tail.heartbeat_timeout must be positive")
		assert.Contains(t, msg, "invalid log level")
		assert.Len(t, strings.Split(msg, "\n"), 4)
	})
}

func TestConfigAddRoots(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tail.AllowedRoots = []string{"/var/log"}

	cfg.AddRoots("/srv/logs", "/var/log", "/srv/logs")

	assert.Equal(t, []string{"/var/log", "/srv/logs"}, cfg.Tail.AllowedRoots)
}

func TestConfigRoots(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.log"), []byte("x\n"), 0644))

	cfg := DefaultConfig()
	cfg.Tail.BaseDir = dir
	cfg.Tail.AllowedRoots = []string{dir}

	roots, err := cfg.Roots()
	require.NoError(t, err)
	assert.Equal(t, dir, roots.Base())

	req, err := roots.Validate("/app.log?tail=1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "app.log"), req.Path)
	assert.True(t, req.Tail)
}

func TestConfigString(t *testing.T) {
	out := DefaultConfig().String()

	assert.Contains(t, out, `"host": "127.0.0.1"`)
	assert.Contains(t, out, `"num_lines": 1000`)
}
