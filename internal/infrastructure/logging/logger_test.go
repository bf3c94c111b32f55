package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "warn"})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewDevelopment(t *testing.T) {
	logger := NewDevelopment()
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestWithAndNamed(t *testing.T) {
	logger := NewNop().Named("apps").With(zap.String("app_id", "app_1"))
	assert.NotNil(t, logger)
	logger.Info("noop")
}
