package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("create logger with console output", func(t *testing.T) {
		logger, err := New(Config{Level: "info", Console: true})
		require.NoError(t, err)
		require.NotNil(t, logger)
		assert.Nil(t, logger.closer)
		assert.NoError(t, logger.Close())
	})

	t.Run("create logger with plain file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "nested", "test.log")

		logger, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)
		_, rotating := logger.closer.(*RotatingWriter)
		assert.False(t, rotating)

		zl := logger.Zerolog()
		zl.Info().Msg("test message")
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "test message")
	})

	t.Run("create logger with rotating file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "test.log")

		logger, err := New(Config{Level: "info", File: logFile, MaxSize: 1})
		require.NoError(t, err)
		_, rotating := logger.closer.(*RotatingWriter)
		assert.True(t, rotating)
		require.NoError(t, logger.Close())
	})

	t.Run("redaction masks request credentials", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "test.log")

		logger, err := New(Config{Level: "info", File: logFile, Redaction: true})
		require.NoError(t, err)
		require.NotNil(t, logger.redactor)

		zl := logger.Zerolog()
		zl.Info().Str("path", "/var/log/app.log?tail=1&token=abc123").Msg("Client connected")
		require.NoError(t, logger.Close())

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(content), "tail=1&token=[REDACTED]")
		assert.NotContains(t, string(content), "abc123")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger, err := New(Config{Level: "loud"})
		require.NoError(t, err)
		defer logger.Close()

		assert.Equal(t, zerolog.InfoLevel, logger.Zerolog().GetLevel())
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 7, cfg.MaxAge)
	assert.True(t, cfg.Compress)
}

func TestComponent(t *testing.T) {
	logger, err := New(Config{Level: "debug"})
	require.NoError(t, err)
	defer logger.Close()

	child := logger.Component("gateway")
	assert.Equal(t, zerolog.DebugLevel, child.GetLevel())
}
