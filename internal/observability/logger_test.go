package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sirhCC/Smart-Dependency-Analyzer-sub000/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer.
type syncBuffer struct{ bytes.Buffer }

func (s *syncBuffer) Sync() error { return nil }

func TestInitialize(t *testing.T) {
	t.Run("should initialize console logger with colors", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		cfg := config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "TestService",
			Colors: config.ColorConfig{
				Info: "green",
			},
		}
		Initialize(cfg, &buf)
		logger := GetLogger()
		logger.Info("This is a test message.")
		Sync()

		output := buf.String()
		assert.Contains(t, output, "INFO", "Output should contain the log level")
		assert.Contains(t, output, "This is a test message.", "Output should contain the message")
		assert.Contains(t, output, colorGreen, "Info level should be colorized green")
		assert.Contains(t, output, colorReset, "Output should contain the reset color code")
	})

	t.Run("should initialize json logger", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		cfg := config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "JSONTest",
		}
		Initialize(cfg, &buf)
		logger := GetLogger()
		logger.Warn("This is a JSON message.", zap.String("key", "value"))
		Sync()

		var logEntry map[string]interface{}
		err := json.Unmarshal(buf.Bytes(), &logEntry)
		require.NoError(t, err, "Log output should be valid JSON")

		assert.Equal(t, "WARN", logEntry["level"])
		assert.Equal(t, "JSONTest", logEntry["logger"])
		assert.Equal(t, "This is a JSON message.", logEntry["msg"])
		assert.Equal(t, "value", logEntry["key"])
	})

	t.Run("should suppress entries below the configured level", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{Level: "warn", Format: "json"}, &buf)
		GetLogger().Info("should not appear")
		Sync()

		assert.Empty(t, buf.String())
	})

	t.Run("should write json to a log file if configured", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer
		logPath := filepath.Join(t.TempDir(), "sda.log")

		cfg := config.LoggerConfig{
			Level:   "debug",
			Format:  "console",
			LogFile: logPath,
			MaxSize: 1,
		}
		Initialize(cfg, &buf)
		GetLogger().Info("file sink message")
		Sync()

		data, err := os.ReadFile(logPath)
		require.NoError(t, err)

		var logEntry map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &logEntry))
		assert.Equal(t, "file sink message", logEntry["msg"])
	})

	t.Run("should only initialize once", func(t *testing.T) {
		ResetForTest()
		var first, second syncBuffer

		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "first"}, &first)
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "second"}, &second)

		GetLogger().Info("routed to the first sink")
		Sync()

		assert.NotEmpty(t, first.String())
		assert.Empty(t, second.String())
	})

	t.Run("should fall back to an invalid level gracefully", func(t *testing.T) {
		ResetForTest()
		var buf syncBuffer

		Initialize(config.LoggerConfig{Level: "not-a-level", Format: "json"}, &buf)
		GetLogger().Info("info passes at the fallback level")
		GetLogger().Debug("debug does not")
		Sync()

		assert.Contains(t, buf.String(), "info passes")
		assert.NotContains(t, buf.String(), "debug does not")
	})
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()

	logger := GetLogger()
	require.NotNil(t, logger)

	// The fallback must be usable without Initialize ever running.
	logger.Debug("fallback logger works")
}

func TestSyncWithoutInitialize(t *testing.T) {
	ResetForTest()
	// Must not panic.
	Sync()
}

func TestNewEncoderVariants(t *testing.T) {
	console := newEncoder(config.LoggerConfig{Format: "console"})
	require.NotNil(t, console)

	jsonEnc := newEncoder(config.LoggerConfig{Format: "json"})
	require.NotNil(t, jsonEnc)

	entry := zapcore.Entry{Level: zapcore.InfoLevel, Message: "probe"}
	buf, err := jsonEnc.EncodeEntry(entry, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"probe"`)
}
