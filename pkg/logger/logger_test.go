package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGet_BeforeInit(t *testing.T) {
	// Never nil, logging before Init is a safe no-op.
	assert.NotNil(t, Get())
}

func TestInit(t *testing.T) {
	err := Init(&Config{Level: "debug", ServiceName: "api-gateway", Development: true})
	require.NoError(t, err)
	assert.NotNil(t, Get())
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))
}

func TestInit_InvalidLevel(t *testing.T) {
	err := Init(&Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
