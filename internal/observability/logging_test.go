package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/crm-support/internal/config"
)

func TestNewLogger_Levels(t *testing.T) {
	app := config.AppConfig{Name: "crm-support", Env: "production", Version: "1.2.0"}

	logger, err := NewLogger(config.LoggerConfig{Level: "WARN"}, app)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	logger, err = NewLogger(config.LoggerConfig{Level: "loud"}, app)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
