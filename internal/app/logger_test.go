package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		level   string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"production default", "production", "", zapcore.InfoLevel, zapcore.DebugLevel},
		{"development default", "development", "", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"production debug", "production", "debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"development warn", "development", "WARN", zapcore.WarnLevel, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.env, tt.level)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.muted))
		})
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("production", "verbose")
	assert.ErrorContains(t, err, "log level")
}
