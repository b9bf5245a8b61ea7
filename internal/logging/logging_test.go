package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewBuildsLoggerAtRequestedLevel(t *testing.T) {
	logger, err := New("debug", "json")
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewFallsBackToInfoOnInvalidLevel(t *testing.T) {
	logger, err := New("not-a-level", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNewSupportsConsoleFormat(t *testing.T) {
	logger, err := New("info", "console")
	require.NoError(t, err)
	require.NotNil(t, logger)
}
