package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		"error":   ERROR,
		"fatal":   FATAL,
		"bogus":   INFO,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}

func TestZapLevelFromLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, zapLevelFromLogLevel(DEBUG))
	assert.Equal(t, zapcore.ErrorLevel, zapLevelFromLogLevel(ERROR))
	assert.Equal(t, zapcore.InfoLevel, zapLevelFromLogLevel(LogLevel(42)))
}

func TestSetupWritesRotatedFile(t *testing.T) {
	prev := defaultLogger
	t.Cleanup(func() { defaultLogger = prev })

	file := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Setup("info", "file", file))

	Info("round %s reconciled", "0xabc")
	Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "round 0xabc reconciled")
	assert.Contains(t, string(data), `"level":"INFO"`)
}

func TestNewWithLumberjackConfigRequiresFile(t *testing.T) {
	_, err := NewWithLumberjackConfig(INFO, LumberjackConfig{})
	require.Error(t, err)
}

func TestWithAddsFieldsToDefaultLogger(t *testing.T) {
	prev := defaultLogger
	t.Cleanup(func() { defaultLogger = prev })

	file := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Setup("info", "file", file))

	With(zap.String("round", "0xabc")).Info("tally published")
	assert.Same(t, defaultLogger.GetZapLogger(), GetDefaultZapLogger())
	Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"round":"0xabc"`)
	assert.Contains(t, string(data), "tally published")
}

func TestNewNopDiscards(t *testing.T) {
	prev := defaultLogger
	t.Cleanup(func() { defaultLogger = prev })

	SetDefaultLogger(NewNop())
	assert.False(t, GetDefaultZapLogger().Core().Enabled(zapcore.ErrorLevel))
	Error("dropped %d", 1)
}
