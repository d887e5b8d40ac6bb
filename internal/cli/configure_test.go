package cli

import (
	"path/filepath"
	"testing"

	"github.com/harun/logstream/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureCommand(t *testing.T) {
	t.Run("help text", func(t *testing.T) {
		resetGlobals(t)

		output, err := execute(t, "", "configure", "--help")
		require.NoError(t, err)
		assert.Contains(t, output, "interactive configuration wizard")
	})

	t.Run("writes the answers to the config file", func(t *testing.T) {
		resetGlobals(t)
		configPath := filepath.Join(t.TempDir(), "conf", "logstream.json")

		output, err := execute(t, "\n9100\n/var/log\n500\nwarn\n", "configure", "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, output, "Configuration saved to: "+configPath)

		cfg, err := config.Load(configPath)
		require.NoError(t, err)
		assert.Equal(t, 9100, cfg.Server.Port)
		assert.Equal(t, []string{"/var/log"}, cfg.Tail.AllowedRoots)
		assert.Equal(t, 500, cfg.Tail.NumLines)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("fails on truncated input", func(t *testing.T) {
		resetGlobals(t)
		configPath := filepath.Join(t.TempDir(), "logstream.json")

		_, err := execute(t, "\n", "configure", "--config", configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration failed")
	})
}
