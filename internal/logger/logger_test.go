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
	t.Run("console only", func(t *testing.T) {
		logger, err := New(Config{Level: "info", Console: true})
		require.NoError(t, err)
		defer logger.Close()
		assert.Equal(t, zerolog.InfoLevel, logger.Zerolog().GetLevel())
	})

	t.Run("file output creates the file", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "hub.log")
		logger, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)

		zl := logger.Zerolog()
		zl.Info().Msg("hello")
		require.NoError(t, logger.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), "hello")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		logger, err := New(Config{Level: "chatty", Console: true})
		require.NoError(t, err)
		defer logger.Close()
		assert.Equal(t, zerolog.InfoLevel, logger.Zerolog().GetLevel())
	})

	t.Run("redaction scrubs keys from the file", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "hub.log")
		logger, err := New(Config{Level: "info", File: logFile, Redaction: true})
		require.NoError(t, err)

		zl := logger.Zerolog()
		zl.Info().Str("key", "sk-ant-REDACTED").Msg("configured")
		require.NoError(t, logger.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "sk-ant-REDACTED")
		assert.Contains(t, string(data), "[REDACTED]")
	})
}

func TestLoggerWith(t *testing.T) {
	logger, err := New(Config{Level: "info"})
	require.NoError(t, err)
	defer logger.Close()

	child := logger.With().Str("component", "test").Logger()
	assert.Equal(t, zerolog.InfoLevel, child.GetLevel())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
	assert.Equal(t, 50, cfg.MaxSizeMB)
	assert.Equal(t, 7, cfg.MaxAge)
	assert.True(t, cfg.Compress)
}
