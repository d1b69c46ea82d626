package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"gcu-service/internal/config"
)

func TestNewLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gcu.log")
	logger, err := NewLogger(&config.LoggingConfig{
		Level:      "debug",
		Format:     "json",
		Output:     path,
		MaxSize:    1,
		MaxBackups: 1,
	})
	require.NoError(t, err)

	NewOperationLogger(logger, "VERSION", "op-1").Success()
	require.NoError(t, CloseLogger(logger))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"operation_type":"VERSION"`)
	assert.Contains(t, string(data), `"message":"Operation completed successfully"`)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)

	_, err = NewLogger(&config.LoggingConfig{Level: "verbose", Output: "stderr"})
	assert.Error(t, err)
}
