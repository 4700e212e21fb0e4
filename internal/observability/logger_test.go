package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "", want: zapcore.InfoLevel},
		{in: "INFO", want: zapcore.InfoLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: "trace", want: zapcore.DebugLevel},
		{in: "warn", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInit(t *testing.T) {
	origCLI, origServer := CLILogger, ServerLogger
	defer func() { CLILogger, ServerLogger = origCLI, origServer }()

	require.NoError(t, Init("warn", ProfileConsole))
	assert.False(t, CLILogger.Core().Enabled(zap.InfoLevel))
	assert.True(t, CLILogger.Core().Enabled(zap.WarnLevel))

	require.NoError(t, Init("debug", ProfileStructured))
	assert.True(t, ServerLogger.Core().Enabled(zap.DebugLevel))

	assert.Error(t, Init("nope", ProfileStructured))
}
